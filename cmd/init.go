package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"go.coldcutz.net/toolbelt/internal/bootstrap"
)

var (
	initName        string
	initEmptyReqs   bool
	initInteractive bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Project bootstrappers",
}

var initPythonCmd = &cobra.Command{
	Use:   "python",
	Short: "Create a new Python repo with venv, .gitignore, requirements, and initial commit",
	Long: `Create a new Python project.

Steps, in order:
  - create the project directory
  - git init (skipped with a warning if git is missing or fails)
  - write .gitignore (never overwrites an existing one)
  - create .venv (skipped if it already exists)
  - write requirements.txt and pip install it (--empty-reqs writes an empty file and installs nothing)
  - git add . and commit (a failed commit is only a warning)`,
	Args: cobra.NoArgs,
	RunE: runInitPython,
}

var initNpmCmd = &cobra.Command{
	Use:   "npm",
	Short: "Create a new Node repo with npm init, .gitignore, and initial commit",
	Long: `Create a new Node project.

The package manager is the first of npm, pnpm and yarn found on PATH.
With none installed, package init is skipped with a warning.`,
	Args: cobra.NoArgs,
	RunE: runInitNpm,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.AddCommand(initPythonCmd, initNpmCmd)

	for _, c := range []*cobra.Command{initPythonCmd, initNpmCmd} {
		c.Flags().StringVar(&initName, "name", ".", "Project directory ('.' = current)")
		c.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "Prompt for options")
	}
	initPythonCmd.Flags().BoolVar(&initEmptyReqs, "empty-reqs", false, "Create empty requirements.txt (no default dev deps)")
}

func runInitPython(cmd *cobra.Command, args []string) error {
	if initInteractive {
		if err := gatherPythonOptions(cmd); err != nil {
			return err
		}
	}
	root, err := filepath.Abs(initName)
	if err != nil {
		return fmt.Errorf("failed to resolve project directory: %w", err)
	}

	b := bootstrap.New(runner, resolver, reporter(cmd), settings.Init)
	return b.Python(cmd.Context(), bootstrap.PythonOptions{
		Root:              root,
		EmptyRequirements: initEmptyReqs,
	})
}

func runInitNpm(cmd *cobra.Command, args []string) error {
	if initInteractive {
		if err := gatherName(cmd); err != nil {
			return err
		}
	}
	root, err := filepath.Abs(initName)
	if err != nil {
		return fmt.Errorf("failed to resolve project directory: %w", err)
	}

	b := bootstrap.New(runner, resolver, reporter(cmd), settings.Init)
	return b.Node(cmd.Context(), root)
}

func gatherName(cmd *cobra.Command) error {
	if cmd.Flags().Changed("name") {
		fmt.Fprintf(cmd.OutOrStdout(), "Project directory: %s\n", initName)
		return nil
	}
	rl, err := readline.New("")
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	name, err := ask(rl, "Project directory? (Enter for current) ")
	if err != nil {
		return err
	}
	if name != "" {
		initName = name
	}
	return nil
}

func gatherPythonOptions(cmd *cobra.Command) error {
	if err := gatherName(cmd); err != nil {
		return err
	}
	if cmd.Flags().Changed("empty-reqs") {
		return nil
	}
	rl, err := readline.New("")
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	answer, err := ask(rl, "Install default dev tools (black, isort, ruff, pytest)? [Y/n] ")
	if err != nil {
		return err
	}
	initEmptyReqs = !parseYes(answer, true)
	return nil
}

func ask(rl *readline.Instance, prompt string) (string, error) {
	rl.SetPrompt(prompt)
	line, err := rl.Readline()
	if err != nil {
		return "", fmt.Errorf("failed to read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// parseYes interprets a y/n answer; empty input returns def.
func parseYes(answer string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "":
		return def
	case "y", "yes":
		return true
	default:
		return false
	}
}
