package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.coldcutz.net/toolbelt/internal/project"
	"go.coldcutz.net/toolbelt/internal/sh"
	"go.coldcutz.net/toolbelt/internal/toolchain"
	"go.coldcutz.net/toolbelt/internal/ui"
)

var (
	devPath      string
	lintFix      bool
	formatCheck  bool
	formatVerb   bool
	testVerbose  bool
	testFailFast bool
	testNoCap    bool
	testCI       bool
)

var devCmd = &cobra.Command{
	Use:   "dev",
	Short: "Developer helpers",
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Run linters (ruff recommended)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCapability(cmd, toolchain.Lint, toolchain.Options{
			Path: targetPath(cmd),
			Fix:  lintFix,
		}, "Lint completed")
	},
}

var formatCmd = &cobra.Command{
	Use:   "format",
	Short: "Auto-format code (black + isort if available)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCapability(cmd, toolchain.Format, toolchain.Options{
			Path:    targetPath(cmd),
			Check:   formatCheck,
			Verbose: formatVerb,
		}, "Formatting completed")
	},
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run tests (pytest if available, else unittest)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCapability(cmd, toolchain.Test, toolchain.Options{
			Path:      targetPath(cmd),
			Verbose:   testVerbose,
			FailFast:  testFailFast,
			NoCapture: testNoCap,
			CI:        testCI,
		}, "Tests completed")
	},
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Show which tool handles each capability on this machine",
	Args:  cobra.NoArgs,
	RunE:  runTools,
}

func init() {
	rootCmd.AddCommand(devCmd)
	devCmd.AddCommand(lintCmd, formatCmd, testCmd, toolsCmd)

	for _, c := range []*cobra.Command{lintCmd, formatCmd, testCmd} {
		c.Flags().StringVar(&devPath, "path", ".", "Target path")
	}

	lintCmd.Flags().BoolVar(&lintFix, "fix", false, "Apply fixes in place where the linter supports it")

	formatCmd.Flags().BoolVar(&formatCheck, "check", false, "Report what would change without writing")
	formatCmd.Flags().BoolVarP(&formatVerb, "verbose", "v", false, "Verbose formatter output")

	testCmd.Flags().BoolVarP(&testVerbose, "verbose", "v", false, "Verbose test output")
	testCmd.Flags().BoolVarP(&testFailFast, "fail-fast", "x", false, "Stop after the first failure")
	testCmd.Flags().BoolVarP(&testNoCap, "nocapture", "s", false, "Don't capture test output")
	testCmd.Flags().BoolVar(&testCI, "ci", false, "CI mode: fail fast, no warnings, no color, short tracebacks")
}

// targetPath prefers --path, then the settings file, then ".".
func targetPath(cmd *cobra.Command) string {
	if cmd.Flags().Changed("path") || settings.Dev.Path == "" {
		return devPath
	}
	return settings.Dev.Path
}

func runCapability(cmd *cobra.Command, c toolchain.Capability, opts toolchain.Options, done string) error {
	rep := reporter(cmd)
	tc := toolchain.New(resolver)
	spec, err := tc.Spec(c)
	if err != nil {
		return err
	}

	plan, err := tc.Plan(c, opts)
	if errors.Is(err, sh.ErrToolNotFound) {
		rep.Warn(fmt.Sprintf("No %s tool found (%s). %s", c, strings.Join(spec.Names(), "/"), spec.Hint))
		return nil
	}
	if err != nil {
		return err
	}

	for _, inv := range plan {
		rep.Info(announce(spec, inv))
		res, err := runner.Run(cmd.Context(), sh.Request{Args: inv.Args})
		if err != nil {
			return err
		}
		rep.Print(res.Stdout)
		rep.Print(res.Stderr)
	}
	rep.OK(done)
	return nil
}

func announce(spec toolchain.Spec, inv toolchain.Invocation) string {
	primary := spec.Candidates[0].Name
	switch {
	case inv.Degraded:
		return fmt.Sprintf("%s not found; running %s …", primary, strings.Join(inv.Args, " "))
	case inv.Tool.Name != primary && isCandidate(spec, inv.Tool):
		return fmt.Sprintf("%s not found; falling back to %s …", primary, inv.Tool.Name)
	default:
		return fmt.Sprintf("Running %s …", inv.Tool.Name)
	}
}

func isCandidate(spec toolchain.Spec, tool toolchain.Tool) bool {
	for _, t := range spec.Candidates {
		if t.Name == tool.Name {
			return true
		}
	}
	return false
}

func runTools(cmd *cobra.Command, args []string) error {
	rep := reporter(cmd)
	rep.Header("Tools on this machine", "")
	for _, row := range toolchain.New(resolver).Report() {
		switch {
		case row.Tool == "" && row.Required:
			rep.Err(fmt.Sprintf("%-13s missing (required)", row.Capability))
		case row.Tool == "":
			rep.Warn(fmt.Sprintf("%-13s none found", row.Capability))
		case row.Degraded:
			rep.Warn(fmt.Sprintf("%-13s %s (fallback) %s", row.Capability, row.Tool, ui.Dim(row.Path)))
		default:
			rep.OK(fmt.Sprintf("%-13s %s %s", row.Capability, row.Tool, ui.Dim(row.Path)))
		}
	}

	langs := project.Detect(".")
	if len(langs) == 0 {
		rep.Info("No project markers found in the current directory")
		return nil
	}
	names := make([]string, len(langs))
	for i, l := range langs {
		names[i] = string(l)
	}
	rep.Info("Project languages: " + strings.Join(names, ", "))
	if !project.Has(".", project.LangPython) {
		rep.Warn("dev lint/format/test drive Python tools; this directory has no Python project markers")
	}
	return nil
}
