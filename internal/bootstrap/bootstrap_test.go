package bootstrap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.coldcutz.net/toolbelt/internal/config"
	"go.coldcutz.net/toolbelt/internal/sh"
	"go.coldcutz.net/toolbelt/internal/ui"
)

// fakeRunner records every request and simulates the filesystem effects of
// git init and venv creation.
type fakeRunner struct {
	calls []sh.Request
	// fail maps a command prefix (space-joined) to the exit code it returns.
	fail map[string]int
}

func (f *fakeRunner) Run(_ context.Context, req sh.Request) (sh.Result, error) {
	f.calls = append(f.calls, req)
	line := strings.Join(req.Args, " ")
	for prefix, code := range f.fail {
		if strings.HasPrefix(line, prefix) {
			res := sh.Result{Stdout: "nothing to commit, working tree clean", ExitCode: code}
			if req.AllowFailure {
				return res, nil
			}
			return res, &sh.ExitError{Args: req.Args, Code: code, Stdout: res.Stdout + "\n", Stderr: "error\n"}
		}
	}
	switch {
	case len(req.Args) >= 2 && req.Args[0] == "git" && req.Args[1] == "init":
		os.MkdirAll(filepath.Join(req.Dir, ".git"), 0o755)
	case len(req.Args) >= 4 && req.Args[1] == "-m" && req.Args[2] == "venv":
		os.MkdirAll(filepath.Join(req.Args[3], "bin"), 0o755)
	case len(req.Args) >= 2 && req.Args[1] == "init" && (req.Args[0] == "npm" || req.Args[0] == "pnpm" || req.Args[0] == "yarn"):
		os.WriteFile(filepath.Join(req.Dir, "package.json"), []byte("{}\n"), 0o644)
	}
	return sh.Result{}, nil
}

func (f *fakeRunner) lines() []string {
	var out []string
	for _, c := range f.calls {
		out = append(out, strings.Join(c.Args, " "))
	}
	return out
}

func (f *fakeRunner) ran(prefix string) bool {
	for _, l := range f.lines() {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}

func hostWith(present ...string) *sh.Resolver {
	set := make(map[string]bool)
	for _, p := range present {
		set[p] = true
	}
	return sh.NewResolver(func(name string) (string, error) {
		if set[name] {
			return "/usr/bin/" + name, nil
		}
		return "", errors.New("not found")
	})
}

func newTestBootstrapper(runner sh.Runner, resolver *sh.Resolver) (*Bootstrapper, *ui.Recorder) {
	rec := &ui.Recorder{}
	b := New(runner, resolver, rec, config.Defaults().Init)
	b.Windows = false
	return b, rec
}

func TestPythonBootstrapFreshDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "demo")
	runner := &fakeRunner{}
	b, rec := newTestBootstrapper(runner, hostWith("git", "python3"))

	err := b.Python(context.Background(), PythonOptions{Root: root})
	require.NoError(t, err)

	assert.DirExists(t, root)
	assert.DirExists(t, filepath.Join(root, ".git"))
	assert.DirExists(t, filepath.Join(root, ".venv"))

	ignore, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, config.PythonGitignore.Content(), string(ignore))

	reqs, err := os.ReadFile(filepath.Join(root, "requirements.txt"))
	require.NoError(t, err)
	assert.Equal(t, strings.Join(config.DefaultRequirements, "\n")+"\n", string(reqs))

	venv := filepath.Join(root, ".venv")
	want := []string{
		"git init -q",
		"python3 -m venv " + venv,
		filepath.Join(venv, "bin", "pip") + " install -r " + filepath.Join(root, "requirements.txt"),
		"git add .",
		"git commit -m Initialize Python project",
	}
	assert.Equal(t, want, runner.lines())
	for _, c := range runner.calls {
		assert.Equal(t, root, c.Dir, "every step runs inside the project root")
	}
	assert.True(t, runner.calls[len(runner.calls)-1].AllowFailure, "commit tolerates failure")

	assert.True(t, rec.Contains(ui.LevelOK, "Initial commit created"))
	assert.True(t, rec.Contains(ui.LevelInfo, "source "+filepath.Join(venv, "bin", "activate")))
	assert.Empty(t, rec.Messages(ui.LevelWarn))
}

func TestPythonBootstrapIsIdempotent(t *testing.T) {
	root := t.TempDir()
	custom := "# mine\n*.tmp\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte(custom), 0o644))

	b, _ := newTestBootstrapper(&fakeRunner{}, hostWith("git", "python3"))
	require.NoError(t, b.Python(context.Background(), PythonOptions{Root: root}))

	runner := &fakeRunner{}
	b, rec := newTestBootstrapper(runner, hostWith("git", "python3"))
	require.NoError(t, b.Python(context.Background(), PythonOptions{Root: root}))

	got, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, custom, string(got), "existing ignore file must not be overwritten")

	assert.False(t, runner.ran("git init"), "existing repository must not be re-initialized")
	assert.False(t, runner.ran("python3 -m venv"), "existing environment must not be recreated")
	assert.True(t, rec.Contains(ui.LevelInfo, "Virtual environment already exists"))
}

func TestPythonBootstrapEmptyRequirements(t *testing.T) {
	root := t.TempDir()
	runner := &fakeRunner{}
	b, _ := newTestBootstrapper(runner, hostWith("git", "python3"))

	require.NoError(t, b.Python(context.Background(), PythonOptions{Root: root, EmptyRequirements: true}))

	reqs, err := os.ReadFile(filepath.Join(root, "requirements.txt"))
	require.NoError(t, err)
	assert.Empty(t, reqs)
	for _, l := range runner.lines() {
		assert.NotContains(t, l, "install -r")
	}
}

func TestPythonBootstrapInstallFailureAborts(t *testing.T) {
	root := t.TempDir()
	pip := filepath.Join(root, ".venv", "bin", "pip")
	runner := &fakeRunner{fail: map[string]int{pip + " install": 1}}
	b, _ := newTestBootstrapper(runner, hostWith("git", "python3"))

	err := b.Python(context.Background(), PythonOptions{Root: root})
	require.Error(t, err)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, StepRequirements, stepErr.Step)

	var exitErr *sh.ExitError
	require.True(t, errors.As(err, &exitErr), "the execution failure stays reachable")
	assert.Equal(t, 1, exitErr.Code)

	assert.False(t, runner.ran("git add"), "steps after a required failure must not run")
}

func TestPythonBootstrapWithoutGit(t *testing.T) {
	root := t.TempDir()
	runner := &fakeRunner{}
	b, rec := newTestBootstrapper(runner, hostWith("python3"))

	require.NoError(t, b.Python(context.Background(), PythonOptions{Root: root}))

	assert.False(t, runner.ran("git"))
	assert.True(t, rec.Contains(ui.LevelWarn, "git init skipped"))
	assert.True(t, rec.Contains(ui.LevelWarn, "git commit skipped"))
	assert.FileExists(t, filepath.Join(root, "requirements.txt"))
}

func TestPythonBootstrapWithoutPython(t *testing.T) {
	root := t.TempDir()
	b, _ := newTestBootstrapper(&fakeRunner{}, hostWith("git"))

	err := b.Python(context.Background(), PythonOptions{Root: root})
	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, StepCreateEnv, stepErr.Step)
	assert.ErrorIs(t, err, sh.ErrToolNotFound)
}

func TestPythonBootstrapFallsBackToPython(t *testing.T) {
	root := t.TempDir()
	runner := &fakeRunner{}
	b, _ := newTestBootstrapper(runner, hostWith("git", "python"))

	require.NoError(t, b.Python(context.Background(), PythonOptions{Root: root}))
	assert.True(t, runner.ran("python -m venv"))
}

func TestCommitNothingToCommitIsTolerated(t *testing.T) {
	root := t.TempDir()
	runner := &fakeRunner{fail: map[string]int{"git commit": 1}}
	b, rec := newTestBootstrapper(runner, hostWith("git", "python3"))

	require.NoError(t, b.Python(context.Background(), PythonOptions{Root: root, EmptyRequirements: true}))
	assert.True(t, rec.Contains(ui.LevelWarn, "Nothing committed: nothing to commit"))
	assert.False(t, rec.Contains(ui.LevelOK, "Initial commit created"))
}

func TestGitInitFailureIsBestEffort(t *testing.T) {
	root := t.TempDir()
	runner := &fakeRunner{fail: map[string]int{"git init": 128}}
	b, rec := newTestBootstrapper(runner, hostWith("git", "python3"))

	require.NoError(t, b.Python(context.Background(), PythonOptions{Root: root, EmptyRequirements: true}))
	assert.True(t, rec.Contains(ui.LevelWarn, "git init skipped"))
	assert.FileExists(t, filepath.Join(root, ".gitignore"))
}

func TestPythonPlanOrder(t *testing.T) {
	b, _ := newTestBootstrapper(&fakeRunner{}, hostWith())
	plan := b.PythonPlan(PythonOptions{Root: "/tmp/x"})

	assert.Equal(t, []string{
		StepEnsureDirectory, StepInitVCS, StepWriteIgnore, StepCreateEnv, StepRequirements, StepCommit,
	}, plan.Names())

	modes := map[string]Mode{}
	for _, s := range plan.Steps {
		modes[s.Name] = s.Mode
	}
	assert.Equal(t, BestEffort, modes[StepInitVCS])
	assert.Equal(t, BestEffort, modes[StepCommit])
	assert.Equal(t, Required, modes[StepRequirements])
	assert.Equal(t, Required, modes[StepEnsureDirectory])
}

func TestNodeBootstrap(t *testing.T) {
	tests := []struct {
		name     string
		present  []string
		wantInit string
	}{
		{"npm preferred", []string{"git", "npm", "pnpm", "yarn"}, "npm init -y"},
		{"pnpm when no npm", []string{"git", "pnpm", "yarn"}, "pnpm init"},
		{"yarn last", []string{"git", "yarn"}, "yarn init -y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := filepath.Join(t.TempDir(), "web")
			runner := &fakeRunner{}
			b, _ := newTestBootstrapper(runner, hostWith(tt.present...))

			require.NoError(t, b.Node(context.Background(), root))
			assert.Equal(t, []string{
				"git init -q",
				tt.wantInit,
				"git add .",
				"git commit -m Initialize Node project",
			}, runner.lines())

			ignore, err := os.ReadFile(filepath.Join(root, ".gitignore"))
			require.NoError(t, err)
			assert.Contains(t, string(ignore), "node_modules/")
		})
	}
}

func TestNodeBootstrapNoPackageManager(t *testing.T) {
	root := t.TempDir()
	runner := &fakeRunner{}
	b, rec := newTestBootstrapper(runner, hostWith("git"))

	require.NoError(t, b.Node(context.Background(), root))
	assert.True(t, rec.Contains(ui.LevelWarn, "No Node package manager found"))
	assert.FileExists(t, filepath.Join(root, ".gitignore"))
	assert.True(t, runner.ran("git commit"))
}

func TestNodeBootstrapPackageManagerFailure(t *testing.T) {
	root := t.TempDir()
	runner := &fakeRunner{fail: map[string]int{"npm init": 1}}
	b, _ := newTestBootstrapper(runner, hostWith("git", "npm"))

	err := b.Node(context.Background(), root)
	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, StepPackageInit, stepErr.Step)
	assert.NoFileExists(t, filepath.Join(root, ".gitignore"))
}

func TestNodeBootstrapKeepsExistingPackageJSON(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "package.json"), []byte(`{"name":"x"}`), 0o644))
	runner := &fakeRunner{}
	b, _ := newTestBootstrapper(runner, hostWith("git", "npm"))

	require.NoError(t, b.Node(context.Background(), root))
	assert.False(t, runner.ran("npm init"))
}

func TestPipPathWindows(t *testing.T) {
	b, _ := newTestBootstrapper(&fakeRunner{}, hostWith())
	b.Windows = true
	assert.Equal(t, filepath.Join("v", "Scripts", "pip.exe"), b.pipPath("v"))
}

func TestCustomSettings(t *testing.T) {
	root := t.TempDir()
	runner := &fakeRunner{}
	rec := &ui.Recorder{}
	settings := config.InitSettings{
		Requirements:        []string{"ruff"},
		VenvDir:             "env",
		PythonCommitMessage: "chore: scaffold",
	}
	b := New(runner, hostWith("git", "python3"), rec, settings)
	b.Windows = false

	require.NoError(t, b.Python(context.Background(), PythonOptions{Root: root}))

	reqs, _ := os.ReadFile(filepath.Join(root, "requirements.txt"))
	assert.Equal(t, "ruff\n", string(reqs))
	assert.DirExists(t, filepath.Join(root, "env"))
	assert.True(t, runner.ran("git commit -m chore: scaffold"))

	ignore, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, strings.Split(string(ignore), "\n"), "/env/")
	assert.True(t, strings.HasPrefix(string(ignore), config.PythonGitignore.Content()))
}

func TestVenvIgnoreEntry(t *testing.T) {
	root := t.TempDir()
	tests := []struct {
		venv string
		want string
	}{
		{".venv", ""},
		{"venv", ""},
		{"ENV", ""},
		{"env", "/env/"},
		{filepath.Join("tools", "py"), "/tools/py/"},
		{filepath.Join(t.TempDir(), "elsewhere"), ""},
		{filepath.Join(root, "abs-inside"), "/abs-inside/"},
	}
	for _, tt := range tests {
		b := New(&fakeRunner{}, hostWith(), &ui.Recorder{}, config.InitSettings{VenvDir: tt.venv})
		if got := b.venvIgnoreEntry(root); got != tt.want {
			t.Errorf("venvIgnoreEntry(%q) = %q, want %q", tt.venv, got, tt.want)
		}
	}
}

func TestCustomVenvKeepsExistingIgnore(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("mine\n"), 0o644))
	b := New(&fakeRunner{}, hostWith("git", "python3"), &ui.Recorder{}, config.InitSettings{VenvDir: "env"})

	require.NoError(t, b.Python(context.Background(), PythonOptions{Root: root, EmptyRequirements: true}))

	ignore, _ := os.ReadFile(filepath.Join(root, ".gitignore"))
	assert.Equal(t, "mine\n", string(ignore))
}
