package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.coldcutz.net/toolbelt/internal/bootstrap"
	"go.coldcutz.net/toolbelt/internal/config"
	"go.coldcutz.net/toolbelt/internal/logging"
	"go.coldcutz.net/toolbelt/internal/sh"
	"go.coldcutz.net/toolbelt/internal/ui"
)

// Version is set at build time with -ldflags "-X go.coldcutz.net/toolbelt/cmd.Version=...".
var Version = "dev"

var (
	configPath string
	logLevel   string
)

// Collaborators, swapped out in tests.
var (
	runner   sh.Runner = sh.Exec{}
	resolver           = sh.NewResolver(nil)
	settings           = config.Defaults()
)

var rootCmd = &cobra.Command{
	Use:   "toolbelt",
	Short: "Your team's unified CLI toolbelt",
	Long: `toolbelt runs the linters, formatters and test runners installed on this
machine behind one set of commands, and bootstraps new projects.

Commands:
  dev lint     Run a linter (ruff, else flake8)
  dev format   Format code (black and isort)
  dev test     Run tests (pytest, else unittest)
  dev tools    Show which tool handles each capability
  init python  Create a Python project with a virtualenv
  init npm     Create a Node project`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command and exits 1 on any error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		report(ui.NewConsole(os.Stdout, os.Stderr), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Settings file (default ./"+config.SettingsFile+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Diagnostic log level (debug, info, warn, error, off)")
}

func setup(cmd *cobra.Command, args []string) error {
	var (
		loaded *config.Settings
		err    error
	)
	if configPath != "" {
		loaded, err = config.Read(configPath)
	} else {
		loaded, err = config.Load(config.SettingsPath("."))
	}
	if err != nil {
		return err
	}
	settings = loaded

	level := logLevel
	if level == "" {
		level = settings.Log.Level
	}
	logging.ConfigureRuntime(level)
	return nil
}

func reporter(cmd *cobra.Command) ui.Reporter {
	return ui.NewConsole(cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// report echoes whatever a failed tool printed, then one error line with the
// exact command so it can be re-run by hand.
// A failed bootstrap step prefixes the line with the step name.
func report(rep ui.Reporter, err error) {
	prefix := ""
	var stepErr *bootstrap.StepError
	if errors.As(err, &stepErr) {
		prefix = stepErr.Step + ": "
	}
	var exitErr *sh.ExitError
	if errors.As(err, &exitErr) {
		rep.Print(strings.TrimRight(exitErr.Stdout, " \t\r\n"))
		rep.Print(strings.TrimRight(exitErr.Stderr, " \t\r\n"))
		rep.Err(fmt.Sprintf("%sCommand failed (%d): %s", prefix, exitErr.Code, strings.Join(exitErr.Args, " ")))
		return
	}
	if stepErr != nil {
		rep.Err(prefix + stepErr.Err.Error())
		return
	}
	rep.Err(err.Error())
}
