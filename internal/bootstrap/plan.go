package bootstrap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.coldcutz.net/toolbelt/internal/ui"
)

// Mode decides what a step failure does to the rest of the plan.
type Mode int

const (
	// Required failures abort the plan.
	Required Mode = iota
	// BestEffort failures are reported as warnings and the plan continues.
	BestEffort
)

func (m Mode) String() string {
	if m == BestEffort {
		return "best-effort"
	}
	return "required"
}

// Step is one unit of a bootstrap plan.
type Step struct {
	Name string
	Mode Mode
	Run  func(ctx context.Context) error
}

// StepError reports the required step that aborted a plan.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("bootstrap step %q failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Plan runs its steps in order. There are no retries and no rollback.
type Plan struct {
	Steps []Step
	UI    ui.Reporter
}

// Run executes the steps in order, warning on best-effort failures and
// stopping at the first required one with a *StepError.
func (p Plan) Run(ctx context.Context) error {
	for _, s := range p.Steps {
		log.Debug().Str("step", s.Name).Stringer("mode", s.Mode).Msg("bootstrap step")
		err := s.Run(ctx)
		if err == nil {
			continue
		}
		if s.Mode == BestEffort {
			log.Debug().Str("step", s.Name).Err(err).Msg("best-effort step failed")
			p.UI.Warn(fmt.Sprintf("%s skipped: %v", s.Name, err))
			continue
		}
		return &StepError{Step: s.Name, Err: err}
	}
	return nil
}

// Names lists the step names in order.
func (p Plan) Names() []string {
	names := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		names[i] = s.Name
	}
	return names
}
