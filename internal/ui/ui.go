// Package ui is the user-facing output sink.
//
// Every component takes a Reporter instead of writing to the terminal, so
// tests can swap in a Recorder.
package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Reporter receives user-facing messages.
type Reporter interface {
	Info(msg string)
	OK(msg string)
	Warn(msg string)
	Err(msg string)
	Header(title, subtitle string)
	// Print writes tool output verbatim.
	Print(text string)
}

var (
	infoMark = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")).Render("ℹ")
	okMark   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2")).Render("✔")
	warnMark = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3")).Render("⚠")
	errMark  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1")).Render("✖")

	panelStyle = lipgloss.NewStyle().
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
	dimStyle = lipgloss.NewStyle().Faint(true)
)

// Console writes styled lines. Warnings and errors go to errOut.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
}

// NewConsole returns a Console writing to out and errOut.
func NewConsole(out, errOut io.Writer) *Console {
	return &Console{out: out, errOut: errOut}
}

func (c *Console) line(w io.Writer, mark, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(w, "%s %s\n", mark, msg)
}

func (c *Console) Info(msg string) { c.line(c.out, infoMark, msg) }
func (c *Console) OK(msg string)   { c.line(c.out, okMark, msg) }
func (c *Console) Warn(msg string) { c.line(c.errOut, warnMark, msg) }
func (c *Console) Err(msg string)  { c.line(c.errOut, errMark, msg) }

func (c *Console) Header(title, subtitle string) {
	body := title
	if subtitle != "" {
		body += "\n" + dimStyle.Render(subtitle)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, panelStyle.Render(body))
}

func (c *Console) Print(text string) {
	if text == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, text)
}

// Dim renders s faint, for secondary hints.
func Dim(s string) string {
	return dimStyle.Render(s)
}

// Level names a Reporter method.
type Level string

const (
	LevelInfo   Level = "info"
	LevelOK     Level = "ok"
	LevelWarn   Level = "warn"
	LevelErr    Level = "err"
	LevelHeader Level = "header"
	LevelPrint  Level = "print"
)

// Entry is one recorded call.
type Entry struct {
	Level Level
	Msg   string
}

// Recorder is a Reporter that keeps every call.
type Recorder struct {
	mu      sync.Mutex
	Entries []Entry
}

func (r *Recorder) add(l Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Entries = append(r.Entries, Entry{Level: l, Msg: msg})
}

func (r *Recorder) Info(msg string) { r.add(LevelInfo, msg) }
func (r *Recorder) OK(msg string)   { r.add(LevelOK, msg) }
func (r *Recorder) Warn(msg string) { r.add(LevelWarn, msg) }
func (r *Recorder) Err(msg string)  { r.add(LevelErr, msg) }
func (r *Recorder) Print(text string) {
	r.add(LevelPrint, text)
}

func (r *Recorder) Header(title, subtitle string) {
	msg := title
	if subtitle != "" {
		msg += ": " + subtitle
	}
	r.add(LevelHeader, msg)
}

// Messages returns the recorded messages at level l.
func (r *Recorder) Messages(l Level) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.Entries {
		if e.Level == l {
			out = append(out, e.Msg)
		}
	}
	return out
}

// Contains reports whether any message at level l contains substr.
func (r *Recorder) Contains(l Level, substr string) bool {
	for _, m := range r.Messages(l) {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}
