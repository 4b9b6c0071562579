package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.coldcutz.net/toolbelt/internal/config"
	"go.coldcutz.net/toolbelt/internal/project"
	"go.coldcutz.net/toolbelt/internal/sh"
	"go.coldcutz.net/toolbelt/internal/toolchain"
	"go.coldcutz.net/toolbelt/internal/ui"
)

// Step names, in plan order.
const (
	StepEnsureDirectory = "ensure directory"
	StepInitVCS         = "git init"
	StepWriteIgnore     = "write .gitignore"
	StepCreateEnv       = "create virtual environment"
	StepRequirements    = "install requirements"
	StepPackageInit     = "package init"
	StepCommit          = "git commit"
)

// Bootstrapper builds and runs project initialization plans.
type Bootstrapper struct {
	Runner   sh.Runner
	Resolver *sh.Resolver
	Tools    *toolchain.Toolchain
	UI       ui.Reporter
	Settings config.InitSettings
	// Windows selects Scripts\pip.exe over bin/pip.
	Windows bool
}

// New returns a Bootstrapper for the current OS with its own Toolchain.
func New(runner sh.Runner, resolver *sh.Resolver, reporter ui.Reporter, settings config.InitSettings) *Bootstrapper {
	return &Bootstrapper{
		Runner:   runner,
		Resolver: resolver,
		Tools:    toolchain.New(resolver),
		UI:       reporter,
		Settings: settings,
		Windows:  runtime.GOOS == "windows",
	}
}

// PythonOptions configures one Python bootstrap.
type PythonOptions struct {
	Root              string
	EmptyRequirements bool
}

// PythonPlan returns the Python bootstrap plan for an absolute root.
func (b *Bootstrapper) PythonPlan(opts PythonOptions) Plan {
	root := opts.Root
	return Plan{UI: b.UI, Steps: []Step{
		{StepEnsureDirectory, Required, func(context.Context) error { return ensureDir(root) }},
		{StepInitVCS, BestEffort, func(ctx context.Context) error { return b.initVCS(ctx, root) }},
		{StepWriteIgnore, Required, func(context.Context) error {
			return b.writeIgnore(root, config.PythonGitignore, b.venvIgnoreEntry(root))
		}},
		{StepCreateEnv, Required, func(ctx context.Context) error { return b.createEnv(ctx, root) }},
		{StepRequirements, Required, func(ctx context.Context) error {
			return b.requirements(ctx, root, opts.EmptyRequirements)
		}},
		{StepCommit, BestEffort, func(ctx context.Context) error {
			return b.commit(ctx, root, b.Settings.PythonCommitMessage)
		}},
	}}
}

// NodePlan returns the Node bootstrap plan for an absolute root.
func (b *Bootstrapper) NodePlan(root string) Plan {
	return Plan{UI: b.UI, Steps: []Step{
		{StepEnsureDirectory, Required, func(context.Context) error { return ensureDir(root) }},
		{StepInitVCS, BestEffort, func(ctx context.Context) error { return b.initVCS(ctx, root) }},
		{StepPackageInit, Required, func(ctx context.Context) error { return b.packageInit(ctx, root) }},
		{StepWriteIgnore, Required, func(context.Context) error {
			return b.writeIgnore(root, config.NodeGitignore)
		}},
		{StepCommit, BestEffort, func(ctx context.Context) error {
			return b.commit(ctx, root, b.Settings.NodeCommitMessage)
		}},
	}}
}

// Python bootstraps a Python project and prints how to activate the environment.
func (b *Bootstrapper) Python(ctx context.Context, opts PythonOptions) error {
	b.UI.Header("Bootstrap: Python project", opts.Root)
	if err := b.PythonPlan(opts).Run(ctx); err != nil {
		return err
	}
	b.UI.OK("Done!")
	b.UI.Info("Activate your virtualenv with:")
	b.UI.Info(ui.Dim(b.activateHint(opts.Root)))
	return nil
}

// Node bootstraps a Node project.
func (b *Bootstrapper) Node(ctx context.Context, root string) error {
	b.UI.Header("Bootstrap: Node project", root)
	if err := b.NodePlan(root).Run(ctx); err != nil {
		return err
	}
	b.UI.OK("Done!")
	return nil
}

func ensureDir(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", root, err)
	}
	return nil
}

func (b *Bootstrapper) initVCS(ctx context.Context, root string) error {
	if project.Exists(filepath.Join(root, config.GitDir)) {
		b.UI.Info("Git repository already present")
		return nil
	}
	plan, err := b.Tools.Plan(toolchain.VCSInit, toolchain.Options{})
	if err != nil {
		return err
	}
	b.UI.Info("Initializing git repo …")
	for _, inv := range plan {
		if _, err := b.Runner.Run(ctx, sh.Request{Args: inv.Args, Dir: root}); err != nil {
			return err
		}
	}
	return nil
}

// writeIgnore writes tmpl plus any extra entries. An existing file is left alone.
func (b *Bootstrapper) writeIgnore(root string, tmpl config.Template, extra ...string) error {
	path := filepath.Join(root, config.GitignoreFile)
	content := tmpl.Content()
	var lines []string
	for _, e := range extra {
		if e != "" {
			lines = append(lines, e)
		}
	}
	if len(lines) > 0 {
		if !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		content += "\n# Project virtual environment\n" + strings.Join(lines, "\n") + "\n"
	}
	wrote, err := writeIfAbsent(path, content)
	if err != nil {
		return err
	}
	if wrote {
		b.UI.OK("Wrote " + config.GitignoreFile)
	} else {
		b.UI.Info(config.GitignoreFile + " already exists, leaving it untouched")
	}
	return nil
}

func (b *Bootstrapper) venvDir(root string) string {
	dir := b.Settings.VenvDir
	if dir == "" {
		dir = config.DefaultVenvDir
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(root, dir)
}

// venvIgnoreEntry returns a root-anchored ignore line for a venv under root
// that the Python template does not already cover, or "".
func (b *Bootstrapper) venvIgnoreEntry(root string) string {
	rel, err := filepath.Rel(root, b.venvDir(root))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	rel = filepath.ToSlash(rel)
	for _, line := range strings.Split(config.PythonGitignore.Content(), "\n") {
		line = strings.TrimSpace(line)
		if strings.TrimSuffix(strings.TrimPrefix(line, "/"), "/") == rel {
			return ""
		}
	}
	return "/" + rel + "/"
}

func (b *Bootstrapper) createEnv(ctx context.Context, root string) error {
	venv := b.venvDir(root)
	if project.Exists(venv) {
		b.UI.Info("Virtual environment already exists")
		return nil
	}
	python, _, err := b.Resolver.First("python3", "python")
	if err != nil {
		return err
	}
	b.UI.Info(fmt.Sprintf("Creating virtual environment (%s) …", filepath.Base(venv)))
	if _, err := b.Runner.Run(ctx, sh.Request{Args: []string{python, "-m", "venv", venv}, Dir: root}); err != nil {
		return err
	}
	b.UI.OK("Virtual environment created")
	return nil
}

func (b *Bootstrapper) requirements(ctx context.Context, root string, empty bool) error {
	path := filepath.Join(root, config.RequirementsFile)
	if empty {
		wrote, err := writeIfAbsent(path, "")
		if err != nil {
			return err
		}
		if wrote {
			b.UI.Info("Created empty " + config.RequirementsFile)
		}
		return nil
	}

	content := ""
	if len(b.Settings.Requirements) > 0 {
		content = strings.Join(b.Settings.Requirements, "\n") + "\n"
	}
	wrote, err := writeIfAbsent(path, content)
	if err != nil {
		return err
	}
	if wrote {
		b.UI.Info(config.RequirementsFile + " created with common dev tools")
	} else {
		b.UI.Info(config.RequirementsFile + " already exists, installing from it")
	}

	b.UI.Info("Installing requirements …")
	pip := b.pipPath(b.venvDir(root))
	if _, err := b.Runner.Run(ctx, sh.Request{Args: []string{pip, "install", "-r", path}, Dir: root}); err != nil {
		return err
	}
	b.UI.OK("Requirements installed")
	return nil
}

func (b *Bootstrapper) pipPath(venv string) string {
	if b.Windows {
		return filepath.Join(venv, "Scripts", "pip.exe")
	}
	return filepath.Join(venv, "bin", "pip")
}

func (b *Bootstrapper) activateHint(root string) string {
	venv := b.venvDir(root)
	if b.Windows {
		return filepath.Join(venv, "Scripts", "activate")
	}
	return "source " + filepath.Join(venv, "bin", "activate")
}

func (b *Bootstrapper) packageInit(ctx context.Context, root string) error {
	if project.Exists(filepath.Join(root, "package.json")) {
		b.UI.Info("package.json already exists")
		return nil
	}
	plan, err := b.Tools.Plan(toolchain.PackageInit, toolchain.Options{})
	if errors.Is(err, sh.ErrToolNotFound) {
		b.UI.Warn("No Node package manager found (npm/pnpm/yarn). Skipping init.")
		return nil
	}
	if err != nil {
		return err
	}
	for _, inv := range plan {
		if inv.Tool.Name == toolchain.Npm.Name {
			b.UI.Info("Running " + strings.Join(inv.Args, " ") + " …")
		} else {
			b.UI.Info(fmt.Sprintf("npm not found; using %s …", strings.Join(inv.Args, " ")))
		}
		if _, err := b.Runner.Run(ctx, sh.Request{Args: inv.Args, Dir: root}); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bootstrapper) commit(ctx context.Context, root, message string) error {
	if _, err := b.Resolver.Require(toolchain.Git.Name); err != nil {
		return err
	}
	if _, err := b.Runner.Run(ctx, sh.Request{Args: []string{"git", "add", "."}, Dir: root}); err != nil {
		return err
	}
	res, err := b.Runner.Run(ctx, sh.Request{
		Args:         []string{"git", "commit", "-m", message},
		Dir:          root,
		AllowFailure: true,
	})
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		b.UI.Warn("Nothing committed: " + firstLine(res.Stdout, res.Stderr))
		return nil
	}
	b.UI.OK("Initial commit created")
	return nil
}

// writeIfAbsent writes content to path unless something is already there.
func writeIfAbsent(path, content string) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return false, err
	}
	return true, f.Close()
}

func firstLine(texts ...string) string {
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		line, _, _ := strings.Cut(t, "\n")
		return line
	}
	return "git commit exited non-zero"
}
