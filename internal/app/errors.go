package app

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotStarted is returned when a round is requested before Start.
	ErrNotStarted = errors.New("service not started")

	// ErrRoundInProgress is returned when a round is requested while
	// another one holds the round lock.
	ErrRoundInProgress = errors.New("round already in progress")

	// ErrNoCommittedRound is returned by Explain before any round commits.
	ErrNoCommittedRound = errors.New("no committed round")
)

// Round stages reported by RoundError.
const (
	StageIntake   = "intake"
	StageScoring  = "scoring"
	StageFairness = "fairness"
	StageSolve    = "solve"
	StageCommit   = "commit"
)

// RoundError is the structured failure of one allocation round. A failed
// round never returns a partial Allocation; the error names the stage that
// broke, the entities involved when known, and wraps the cause.
type RoundError struct {
	RoundID  string
	Stage    string
	Entities []string
	Err      error
}

func (e *RoundError) Error() string {
	if len(e.Entities) > 0 {
		return fmt.Sprintf("round %s failed at %s (%s): %v",
			e.RoundID, e.Stage, strings.Join(e.Entities, ", "), e.Err)
	}
	return fmt.Sprintf("round %s failed at %s: %v", e.RoundID, e.Stage, e.Err)
}

func (e *RoundError) Unwrap() error {
	return e.Err
}
