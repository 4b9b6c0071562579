package main

import "go.coldcutz.net/toolbelt/cmd"

func main() {
	cmd.Execute()
}
