package solver

import (
	"errors"
	"fmt"
)

// ErrSolveFailed flags structural failures the round cannot recover from.
var ErrSolveFailed = errors.New("solve failed")

// errNoPath reports a matching instance without an augmenting path. Exit
// seats keep this unreachable for well-formed inputs.
var errNoPath = errors.New("no augmenting path")

// SolverError carries the phase and reason a solve aborted. A failed solve
// never commits partial output.
type SolverError struct {
	Phase  string
	Reason string
	Err    error
}

func (e *SolverError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("solve failed in %s phase: %s: %v", e.Phase, e.Reason, e.Err)
	}
	return fmt.Sprintf("solve failed in %s phase: %s", e.Phase, e.Reason)
}

func (e *SolverError) Unwrap() error { return e.Err }

// Is lets errors.Is match against ErrSolveFailed.
func (e *SolverError) Is(target error) bool { return target == ErrSolveFailed }
