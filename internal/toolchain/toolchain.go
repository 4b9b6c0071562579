package toolchain

import (
	"errors"
	"fmt"
	"strings"

	"go.coldcutz.net/toolbelt/internal/sh"
)

// Options are the user-supplied settings for one capability run.
type Options struct {
	Path      string
	Fix       bool
	Check     bool
	Verbose   bool
	FailFast  bool
	NoCapture bool
	CI        bool
}

// Flags returns the set of flags requested, with CI expanded into its parts.
func (o Options) Flags() map[Flag]bool {
	set := make(map[Flag]bool)
	add := func(on bool, f Flag) {
		if on {
			set[f] = true
		}
	}
	add(o.Fix, FlagFix)
	add(o.Check, FlagCheck)
	add(o.Verbose, FlagVerbose)
	add(o.FailFast, FlagFailFast)
	add(o.NoCapture, FlagNoCapture)
	if o.CI {
		for _, f := range ciFlags {
			set[f] = true
		}
	}
	return set
}

// Build returns the full argument vector for tool. Flags the tool does not
// translate are ignored.
func Build(tool Tool, opts Options) []string {
	path := opts.Path
	if path == "" {
		path = "."
	}
	flags := opts.Flags()

	argv := []string{tool.executable()}
	for _, a := range tool.Base {
		if a == PathArg {
			a = path
		}
		argv = append(argv, a)
	}
	if !(flags[FlagVerbose] && tool.translates(FlagVerbose)) {
		argv = append(argv, tool.Terse...)
	}
	for _, tr := range tool.Flags {
		if flags[tr.Flag] {
			argv = append(argv, tr.Args...)
		}
	}
	return argv
}

// Invocation is one tool run planned for a capability.
type Invocation struct {
	Tool Tool
	Args []string
	// Degraded is set when a fallback runs in place of a missing candidate.
	Degraded bool
}

// Toolchain resolves capabilities against the tools present on this host.
type Toolchain struct {
	resolver *sh.Resolver
	specs    map[Capability]Spec
}

// New returns a Toolchain that resolves the built-in Specs through resolver.
func New(resolver *sh.Resolver) *Toolchain {
	return &Toolchain{resolver: resolver, specs: Specs}
}

// Spec returns the resolution policy for c.
func (tc *Toolchain) Spec(c Capability) (Spec, error) {
	spec, ok := tc.specs[c]
	if !ok {
		return Spec{}, fmt.Errorf("toolchain: unknown capability %q", c)
	}
	return spec, nil
}

func (tc *Toolchain) first(tools []Tool, required bool) (Tool, error) {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.executable()
	}
	name, _, err := tc.resolver.First(names...)
	if err != nil {
		if required {
			return Tool{}, fmt.Errorf("%w: %s", sh.ErrRequiredToolMissing, strings.Join(names, ", "))
		}
		return Tool{}, err
	}
	for _, t := range tools {
		if t.executable() == name {
			return t, nil
		}
	}
	return Tool{}, fmt.Errorf("%w: %s", sh.ErrToolNotFound, name)
}

// Plan resolves c and builds every invocation that should run, in order.
// When nothing is available the error wraps sh.ErrToolNotFound.
func (tc *Toolchain) Plan(c Capability, opts Options) ([]Invocation, error) {
	spec, err := tc.Spec(c)
	if err != nil {
		return nil, err
	}

	var plan []Invocation
	tool, err := tc.first(spec.Candidates, spec.Required)
	switch {
	case err == nil:
		plan = append(plan, Invocation{Tool: tool, Args: Build(tool, opts)})
	case !errors.Is(err, sh.ErrToolNotFound):
		return nil, err
	}

	for _, extra := range spec.Additive {
		if _, ok := tc.resolver.Which(extra.executable()); ok {
			plan = append(plan, Invocation{Tool: extra, Args: Build(extra, opts)})
		}
	}

	if len(plan) == 0 && len(spec.Fallbacks) > 0 {
		if fb, err := tc.first(spec.Fallbacks, false); err == nil {
			plan = append(plan, Invocation{Tool: fb, Args: Build(fb, opts), Degraded: true})
		}
	}

	if len(plan) == 0 {
		return nil, fmt.Errorf("%w for %s (tried %s)", sh.ErrToolNotFound, c, strings.Join(spec.Names(), ", "))
	}
	return plan, nil
}

// Names lists every executable the spec may run, in resolution order.
func (s Spec) Names() []string {
	var names []string
	for _, group := range [][]Tool{s.Candidates, s.Additive, s.Fallbacks} {
		for _, t := range group {
			names = append(names, t.executable())
		}
	}
	return names
}

// Status is one row of the host tool report.
type Status struct {
	Capability Capability
	Tool       string
	Path       string
	Degraded   bool
	Required   bool
}

// Report resolves every capability. A capability with no tool has an empty Tool.
func (tc *Toolchain) Report() []Status {
	var out []Status
	for _, c := range Capabilities {
		spec := tc.specs[c]
		row := Status{Capability: c, Required: spec.Required}
		plan, err := tc.Plan(c, Options{})
		if err == nil {
			var tools []string
			for _, inv := range plan {
				tools = append(tools, inv.Tool.Name)
				row.Degraded = row.Degraded || inv.Degraded
			}
			row.Tool = strings.Join(tools, " + ")
			row.Path, _ = tc.resolver.Which(plan[0].Tool.executable())
		}
		out = append(out, row)
	}
	return out
}
