package toolchain

// Capability is an abstract workflow need, independent of the tool that fills it.
type Capability string

const (
	Lint        Capability = "lint"
	Format      Capability = "format"
	Test        Capability = "test"
	VCSInit     Capability = "vcs-init"
	PackageInit Capability = "package-init"
)

// Capabilities lists every capability in display order.
var Capabilities = []Capability{Lint, Format, Test, VCSInit, PackageInit}

// Flag is a user-facing option that a tool may or may not understand.
type Flag string

const (
	FlagFix       Flag = "fix"
	FlagCheck     Flag = "check"
	FlagVerbose   Flag = "verbose"
	FlagFailFast  Flag = "fail-fast"
	FlagNoCapture Flag = "no-capture"
	FlagCI        Flag = "ci"

	// CI components.
	FlagNoWarnings     Flag = "no-warnings"
	FlagNoColor        Flag = "no-color"
	FlagShortTraceback Flag = "short-traceback"
)

// ciFlags is what FlagCI expands to.
var ciFlags = []Flag{FlagFailFast, FlagNoWarnings, FlagNoColor, FlagShortTraceback}

// PathArg is replaced with the target path in a tool's base arguments.
const PathArg = "{path}"

// Translation maps one flag to the literal arguments a tool expects.
type Translation struct {
	Flag Flag
	Args []string
}

// Tool is a concrete executable and the rule for invoking it.
type Tool struct {
	Name string
	// Exe overrides Name as argv[0] when the executable differs from the tool name.
	Exe  string
	Base []string
	// Terse args are added unless the tool translates FlagVerbose and it is set.
	Terse []string
	Flags []Translation
}

func (t Tool) executable() string {
	if t.Exe != "" {
		return t.Exe
	}
	return t.Name
}

func (t Tool) translates(f Flag) bool {
	for _, tr := range t.Flags {
		if tr.Flag == f {
			return true
		}
	}
	return false
}

// Spec is the fixed resolution policy for one capability.
type Spec struct {
	Capability Capability
	// Candidates are tried in order; the first present one runs.
	Candidates []Tool
	// Additive tools run independently of the candidates whenever present.
	Additive []Tool
	// Fallbacks run, degraded, only when no candidate or additive tool is present.
	Fallbacks []Tool
	// Required tools are setup errors when absent rather than skips.
	Required bool
	Hint     string
}

var (
	Ruff = Tool{
		Name: "ruff",
		Base: []string{"check", PathArg},
		Flags: []Translation{
			{FlagFix, []string{"--fix"}},
		},
	}
	Flake8 = Tool{
		Name: "flake8",
		Base: []string{PathArg},
	}
	Black = Tool{
		Name:  "black",
		Base:  []string{PathArg},
		Terse: []string{"-q"},
		Flags: []Translation{
			{FlagCheck, []string{"--check"}},
			{FlagVerbose, []string{"-v"}},
		},
	}
	Isort = Tool{
		Name:  "isort",
		Base:  []string{PathArg},
		Terse: []string{"-q"},
		Flags: []Translation{
			{FlagCheck, []string{"--check-only"}},
			{FlagVerbose, []string{"--verbose"}},
		},
	}
	Pytest = Tool{
		Name:  "pytest",
		Base:  []string{PathArg},
		Terse: []string{"-q"},
		Flags: []Translation{
			{FlagVerbose, []string{"-v"}},
			{FlagFailFast, []string{"-x"}},
			{FlagNoCapture, []string{"-s"}},
			{FlagNoWarnings, []string{"--disable-warnings"}},
			{FlagNoColor, []string{"--color=no"}},
			{FlagShortTraceback, []string{"--tb=short"}},
		},
	}
	Unittest = Tool{
		Name:  "unittest",
		Exe:   "python3",
		Base:  []string{"-m", "unittest", "discover", "-s", PathArg},
		Terse: []string{"-q"},
		Flags: []Translation{
			{FlagVerbose, []string{"-v"}},
			{FlagFailFast, []string{"-f"}},
		},
	}
	Git = Tool{
		Name:  "git",
		Base:  []string{"init"},
		Terse: []string{"-q"},
	}
	Npm = Tool{
		Name: "npm",
		Base: []string{"init", "-y"},
	}
	Pnpm = Tool{
		Name: "pnpm",
		Base: []string{"init"},
	}
	Yarn = Tool{
		Name: "yarn",
		Base: []string{"init", "-y"},
	}
)

// UnittestPython is the unittest fallback for hosts that only ship "python".
var UnittestPython = func() Tool {
	t := Unittest
	t.Exe = "python"
	return t
}()

// Specs holds the resolution policy for every capability.
var Specs = map[Capability]Spec{
	Lint: {
		Capability: Lint,
		Candidates: []Tool{Ruff, Flake8},
		Hint:       "Install ruff with: pipx install ruff",
	},
	Format: {
		Capability: Format,
		Candidates: []Tool{Black},
		Additive:   []Tool{Isort},
		Hint:       "Try: pipx install black isort",
	},
	Test: {
		Capability: Test,
		Candidates: []Tool{Pytest},
		Fallbacks:  []Tool{Unittest, UnittestPython},
		Hint:       "Install pytest with: pipx install pytest",
	},
	VCSInit: {
		Capability: VCSInit,
		Candidates: []Tool{Git},
		Required:   true,
	},
	PackageInit: {
		Capability: PackageInit,
		Candidates: []Tool{Npm, Pnpm, Yarn},
		Hint:       "Install one of npm, pnpm or yarn",
	},
}
