package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

//go:embed templates/python.gitignore
var pythonGitignore string

//go:embed templates/node.gitignore
var nodeGitignore string

const (
	SettingsFile     = ".toolbelt.toml"
	GitDir           = ".git"
	GitignoreFile    = ".gitignore"
	RequirementsFile = "requirements.txt"
	DefaultVenvDir   = ".venv"

	DefaultPythonCommitMessage = "Initialize Python project"
	DefaultNodeCommitMessage   = "Initialize Node project"
)

// DefaultRequirements are the dev tools written to a new requirements.txt.
var DefaultRequirements = []string{
	"black>=24.0.0",
	"isort>=5.12.0",
	"ruff>=0.5.0",
	"pytest>=7.0.0",
}

// Template identifies an embedded file template.
type Template string

const (
	PythonGitignore Template = "python.gitignore"
	NodeGitignore   Template = "node.gitignore"
)

// Content returns the embedded template text.
func (t Template) Content() string {
	switch t {
	case PythonGitignore:
		return pythonGitignore
	case NodeGitignore:
		return nodeGitignore
	}
	return ""
}

// Settings is the optional per-project settings file.
type Settings struct {
	Dev  DevSettings  `toml:"dev"`
	Init InitSettings `toml:"init"`
	Log  LogSettings  `toml:"log"`
}

// DevSettings holds defaults for the dev commands.
type DevSettings struct {
	Path string `toml:"path"`
}

// InitSettings controls what the init commands write and run.
type InitSettings struct {
	Requirements        []string `toml:"requirements"`
	VenvDir             string   `toml:"venv_dir"`
	PythonCommitMessage string   `toml:"python_commit_message"`
	NodeCommitMessage   string   `toml:"node_commit_message"`
}

// LogSettings sets the diagnostic log level.
type LogSettings struct {
	Level string `toml:"level"`
}

// Defaults returns settings with every field populated.
func Defaults() *Settings {
	return &Settings{
		Dev: DevSettings{Path: "."},
		Init: InitSettings{
			Requirements:        append([]string(nil), DefaultRequirements...),
			VenvDir:             DefaultVenvDir,
			PythonCommitMessage: DefaultPythonCommitMessage,
			NodeCommitMessage:   DefaultNodeCommitMessage,
		},
	}
}

// SettingsPath returns the settings file location inside dir.
func SettingsPath(dir string) string {
	return filepath.Join(dir, SettingsFile)
}

// Load reads settings from path. A missing file yields Defaults.
// Fields left out of the file keep their defaults.
func Load(path string) (*Settings, error) {
	settings, err := Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return Defaults(), nil
	}
	return settings, err
}

// Read is Load for a file the user named explicitly: a missing file is an error.
func Read(path string) (*Settings, error) {
	settings := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var file Settings
	meta, err := toml.Decode(string(data), &file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown settings key %q in %s", undecoded[0].String(), path)
	}

	Merge(settings, &file)
	return settings, nil
}

// Merge copies every non-zero field of override onto base.
func Merge(base, override *Settings) {
	if override.Dev.Path != "" {
		base.Dev.Path = override.Dev.Path
	}
	if override.Init.Requirements != nil {
		base.Init.Requirements = override.Init.Requirements
	}
	if override.Init.VenvDir != "" {
		base.Init.VenvDir = override.Init.VenvDir
	}
	if override.Init.PythonCommitMessage != "" {
		base.Init.PythonCommitMessage = override.Init.PythonCommitMessage
	}
	if override.Init.NodeCommitMessage != "" {
		base.Init.NodeCommitMessage = override.Init.NodeCommitMessage
	}
	if override.Log.Level != "" {
		base.Log.Level = override.Log.Level
	}
}
