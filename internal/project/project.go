package project

import (
	"os"
	"path/filepath"
)

// Language is an ecosystem recognized by its marker files.
type Language string

const (
	LangGo     Language = "go"
	LangRust   Language = "rust"
	LangPython Language = "python"
	LangNode   Language = "node"
)

var markers = []struct {
	lang  Language
	files []string
}{
	{LangGo, []string{"go.mod", "go.work"}},
	{LangRust, []string{"Cargo.toml"}},
	{LangPython, []string{"pyproject.toml", "setup.py", "setup.cfg", "requirements.txt"}},
	{LangNode, []string{"package.json"}},
}

// Detect scans dir for language markers.
func Detect(dir string) []Language {
	var langs []Language
	for _, m := range markers {
		for _, f := range m.files {
			if Exists(filepath.Join(dir, f)) {
				langs = append(langs, m.lang)
				break
			}
		}
	}
	return langs
}

// Has reports whether lang is among the languages detected in dir.
func Has(dir string, lang Language) bool {
	for _, l := range Detect(dir) {
		if l == lang {
			return true
		}
	}
	return false
}

// Exists reports whether path exists, file or directory.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
