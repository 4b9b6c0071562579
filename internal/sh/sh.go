package sh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog/log"
)

var (
	ErrEmptyCommand = errors.New("sh: empty command")
	ErrStart        = errors.New("sh: failed to start command")
)

// Request describes one external process invocation.
type Request struct {
	Args []string
	Dir  string
	// Env is merged over the inherited environment. Keys here win.
	Env map[string]string
	// AllowFailure returns the result for any exit code instead of an *ExitError.
	AllowFailure bool
}

// Result holds captured output with trailing whitespace trimmed.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// ExitError reports a command that ran and exited non-zero.
// Stdout and Stderr are kept exactly as captured.
type ExitError struct {
	Args   []string
	Code   int
	Stdout string
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("command failed (%d): %s", e.Code, strings.Join(e.Args, " "))
	if stderr := trim(e.Stderr); stderr != "" {
		msg += "\n" + stderr
	}
	return msg
}

// Runner abstracts process execution so callers can be tested without spawning tools.
type Runner interface {
	Run(ctx context.Context, req Request) (Result, error)
}

// Exec runs commands on the local host.
type Exec struct{}

// Run executes req and waits for it. A non-zero exit is an *ExitError unless
// req.AllowFailure is set.
func (Exec) Run(ctx context.Context, req Request) (Result, error) {
	if len(req.Args) == 0 {
		return Result{}, ErrEmptyCommand
	}

	cmd := exec.CommandContext(ctx, req.Args[0], req.Args[1:]...)
	cmd.Dir = req.Dir
	if len(req.Env) > 0 {
		cmd.Env = MergeEnv(os.Environ(), req.Env)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	code := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			log.Debug().Strs("argv", req.Args).Str("dir", req.Dir).Err(err).Msg("exec start failed")
			return Result{ExitCode: 127}, fmt.Errorf("%w: %s: %v", ErrStart, strings.Join(req.Args, " "), err)
		}
		code = exitErr.ExitCode()
	}
	log.Debug().
		Strs("argv", req.Args).
		Str("dir", req.Dir).
		Int("exit", code).
		Dur("took", time.Since(start)).
		Msg("exec")

	res := Result{
		Stdout:   trim(stdout.String()),
		Stderr:   trim(stderr.String()),
		ExitCode: code,
	}
	if code != 0 && !req.AllowFailure {
		return res, &ExitError{
			Args:   append([]string(nil), req.Args...),
			Code:   code,
			Stdout: stdout.String(),
			Stderr: stderr.String(),
		}
	}
	return res, nil
}

// MergeEnv overlays vars onto base (KEY=VALUE form). Overlay keys replace
// existing entries; new keys are appended in sorted order.
func MergeEnv(base []string, vars map[string]string) []string {
	out := make([]string, 0, len(base)+len(vars))
	seen := make(map[string]bool, len(vars))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if v, ok := vars[key]; ok {
			if !seen[key] {
				out = append(out, key+"="+v)
				seen[key] = true
			}
			continue
		}
		out = append(out, kv)
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+vars[k])
	}
	return out
}

func trim(s string) string {
	return strings.TrimRightFunc(s, unicode.IsSpace)
}
