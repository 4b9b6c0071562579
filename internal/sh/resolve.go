package sh

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

var (
	ErrToolNotFound        = errors.New("no tool available")
	ErrRequiredToolMissing = errors.New("required executable not found on PATH")
)

// LookPathFunc finds an executable by name. exec.LookPath is the default.
type LookPathFunc func(name string) (string, error)

// Resolver looks up executables on the search path.
type Resolver struct {
	lookPath LookPathFunc
}

// NewResolver returns a resolver backed by lookPath, or exec.LookPath when nil.
func NewResolver(lookPath LookPathFunc) *Resolver {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	return &Resolver{lookPath: lookPath}
}

// Which returns the path of name, or false if it is not on PATH.
func (r *Resolver) Which(name string) (string, bool) {
	path, err := r.lookPath(name)
	if err != nil || path == "" {
		log.Debug().Str("tool", name).Msg("not found")
		return "", false
	}
	log.Debug().Str("tool", name).Str("path", path).Msg("resolved")
	return path, true
}

// Require is Which for tools whose absence is a setup error.
func (r *Resolver) Require(name string) (string, error) {
	path, ok := r.Which(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrRequiredToolMissing, name)
	}
	return path, nil
}

// First returns the first of names present on PATH, in order.
func (r *Resolver) First(names ...string) (string, string, error) {
	for _, name := range names {
		if path, ok := r.Which(name); ok {
			return name, path, nil
		}
	}
	return "", "", fmt.Errorf("%w: tried %s", ErrToolNotFound, strings.Join(names, ", "))
}
