package strat

import (
	"errors"
	"fmt"
)

var (
	ErrNegativeThickness = errors.New("strat: negative layer thickness")
	ErrShapeMismatch     = errors.New("strat: input shape mismatch")
)

// StepError wraps an error with the step and cold trap it occurred at.
type StepError struct {
	Step     int
	Time     float64
	Coldtrap string
	Wrapped  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s at step %d (%.0f yr): %v", e.Coldtrap, e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
