package model

import "time"

// Unmatched reason codes attached to candidates an allocation left out.
const (
	ReasonNoSeatAvailable   = "no_seat_available"
	ReasonIneligibleAllOpen = "ineligible_for_all_open_slots"
	ReasonInvalidFeatures   = "excluded_invalid_features"
	ReasonDuplicateID       = "excluded_duplicate_id"
	ReasonScoringFailed     = "scoring_failed"
	ReasonRoundCancelled    = "round_cancelled"
)

// Assignment phases. Reserved seats fill first, open seats second.
const (
	PhaseReserved = 1
	PhaseOpen     = 2
)

// Assignment binds one candidate to one slot at a known score.
type Assignment struct {
	CandidateID string  `json:"candidate_id"`
	SlotID      string  `json:"slot_id"`
	Score       float64 `json:"score"`

	// Phase records which matching phase produced the assignment.
	Phase int `json:"phase"`

	// Reserved marks assignments made against a category-reserved seat.
	Reserved bool     `json:"reserved,omitempty"`
	Category Category `json:"category,omitempty"`
}

// UnmatchedCandidate pairs a candidate left out of an allocation with the
// machine-readable reason code explaining why.
type UnmatchedCandidate struct {
	CandidateID string `json:"candidate_id"`
	Reason      string `json:"reason"`

	// Detail optionally elaborates, e.g. the validation failure text for
	// excluded_invalid_features.
	Detail string `json:"detail,omitempty"`
}

// QuotaWaiver records a floor the round could not satisfy and was configured
// to waive rather than abort.
type QuotaWaiver struct {
	SlotID   string   `json:"slot_id"`
	Category Category `json:"category"`
	Required int      `json:"required"`
	Filled   int      `json:"filled"`
	Reason   string   `json:"reason"`
}

// FairnessViolation is a non-fatal disparity finding attached to an
// allocation result.
type FairnessViolation struct {
	Category Category `json:"category"`

	// Scope is "aggregate" or the slot ID when disparity is checked per
	// slot.
	Scope string `json:"scope"`

	// Rate is the category's placement rate, Baseline the population
	// average it was compared against, Tolerance the configured band.
	Rate      float64 `json:"rate"`
	Baseline  float64 `json:"baseline"`
	Tolerance float64 `json:"tolerance"`
}

// RoundStats aggregates headline numbers for reporting.
type RoundStats struct {
	Candidates     int     `json:"candidates"`
	Slots          int     `json:"slots"`
	Seats          int     `json:"seats"`
	Assigned       int     `json:"assigned"`
	Unmatched      int     `json:"unmatched"`
	Excluded       int     `json:"excluded"`
	PairsScored    int     `json:"pairs_scored"`
	DegradedScores int     `json:"degraded_scores"`
	FillRate       float64 `json:"fill_rate"`
	MeanScore      float64 `json:"mean_score"`
	MinScore       float64 `json:"min_score"`
	TotalScore     float64 `json:"total_score"`
}

// Allocation is the committed result of one allocation round.
type Allocation struct {
	RoundID     string               `json:"round_id"`
	StartedAt   time.Time            `json:"started_at"`
	CommittedAt time.Time            `json:"committed_at"`
	Assignments []Assignment         `json:"assignments"`
	Unmatched   []UnmatchedCandidate `json:"unmatched"`
	Waivers     []QuotaWaiver        `json:"waivers,omitempty"`
	Violations  []FairnessViolation  `json:"violations,omitempty"`
	Stats       RoundStats           `json:"stats"`

	// ConfigDigest fingerprints the scoring and fairness configuration
	// the round ran under.
	ConfigDigest string `json:"config_digest"`
}

// AssignmentFor returns the assignment holding the candidate, if any.
func (a Allocation) AssignmentFor(candidateID string) (Assignment, bool) {
	for _, as := range a.Assignments {
		if as.CandidateID == candidateID {
			return as, true
		}
	}
	return Assignment{}, false
}
