package model

// FactorContribution is one scoring factor's share of a pair score. The
// solver consumes only the total; contributions exist for explainability.
type FactorContribution struct {
	// Factor is the registry name, e.g. "skill_similarity".
	Factor string `json:"factor"`

	// Weight is the configured factor weight at scoring time.
	Weight float64 `json:"weight"`

	// Subscore is the raw factor output in [0,1].
	Subscore float64 `json:"subscore"`

	// Contribution is Weight * Subscore.
	Contribution float64 `json:"contribution"`

	// Degraded marks a factor that failed and contributed the neutral
	// subscore instead; Note carries the failure text.
	Degraded bool   `json:"degraded,omitempty"`
	Note     string `json:"note,omitempty"`
}

// PairScore is the scored compatibility of one candidate/slot pair.
// It carries no timestamps so that scoring the same inputs under the same
// configuration yields byte-identical values.
type PairScore struct {
	CandidateID string `json:"candidate_id"`
	SlotID      string `json:"slot_id"`

	// Score is the weighted sum of factor contributions, in [0,1].
	Score float64 `json:"score"`

	// Breakdown lists every registered factor ordered by contribution,
	// largest first, with factor declaration order breaking ties.
	Breakdown []FactorContribution `json:"breakdown"`

	// Degraded marks scores computed with one or more failed factors
	// substituted by a neutral subscore.
	Degraded bool `json:"degraded,omitempty"`
}

// Confidence buckets a score for downstream consumers that want a coarse
// signal instead of a float.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Confidence returns the coarse bucket for the pair's total score.
func (p PairScore) Confidence() Confidence {
	switch {
	case p.Score >= 0.75:
		return ConfidenceHigh
	case p.Score >= 0.5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
