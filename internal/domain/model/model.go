// Package model contains the domain entities moved between layers of the
// allocation engine: candidates, slots, pair scores, quotas and allocations.
package model

import "time"

// Category is a protected-attribute bucket used exclusively for fairness
// accounting. It is never an input to compatibility scoring.
type Category string

// CategoryNone marks candidates that declared no protected category.
const CategoryNone Category = ""

// Features is the canonical normalized feature vector shared by candidates
// and slots. Candidate vectors describe what the candidate offers and
// prefers; slot vectors describe what the opening requires and offers.
// Instances are produced by the feature normalizer and are immutable for the
// duration of a round.
type Features struct {
	// SchemaVersion identifies the normalization schema that produced
	// this vector. Vectors of different versions never mix in a round.
	SchemaVersion int `json:"schema_version"`

	// Skills is the L2-normalized skill embedding with a fixed,
	// schema-defined dimension.
	Skills []float64 `json:"skills"`

	// Experience and Rating are rescaled to [0,1]; 0.5 is the documented
	// neutral value imputed for missing source fields.
	Experience float64 `json:"experience"`
	Rating     float64 `json:"rating"`

	// Tags holds sorted, deduplicated vocabulary indices. Index 0 is the
	// shared "unknown" bucket for tags outside the vocabulary.
	Tags []int `json:"tags"`

	// District and Region locate the candidate or opening.
	District string `json:"district"`
	Region   string `json:"region"`
}

// Constraints narrows the slots a candidate may be assigned to. Empty lists
// impose no restriction.
type Constraints struct {
	Districts []string `json:"districts,omitempty"`
	Sectors   []string `json:"sectors,omitempty"`
}

// Candidate is one student entity in a round. Immutable once intake accepts it.
type Candidate struct {
	ID          string      `json:"id"`
	SubmittedAt time.Time   `json:"submitted_at"`
	Category    Category    `json:"category,omitempty"`
	Features    Features    `json:"features"`
	Constraints Constraints `json:"constraints"`
}

// Slot is one internship opening with capacity and optional reserved seats.
// Immutable once intake accepts it.
type Slot struct {
	ID       string           `json:"id"`
	OrgID    string           `json:"org_id"`
	Capacity int              `json:"capacity"`
	Sector   string           `json:"sector"`
	Reserved map[Category]int `json:"reserved,omitempty"`
	Features Features         `json:"features"`
}

// District returns the slot's normalized district.
func (s Slot) District() string { return s.Features.District }

// Region returns the slot's normalized region.
func (s Slot) Region() string { return s.Features.Region }

// EligibleFor reports whether the candidate's constraints admit the slot.
// An edge exists in the assignment graph only when this holds.
func (c Candidate) EligibleFor(s Slot) bool {
	if len(c.Constraints.Districts) > 0 && !containsFold(c.Constraints.Districts, s.District()) {
		return false
	}
	if len(c.Constraints.Sectors) > 0 && !containsFold(c.Constraints.Sectors, s.Sector) {
		return false
	}
	return true
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if equalFold(h, needle) {
			return true
		}
	}
	return false
}

// equalFold is an ASCII-only case-insensitive comparison; district and
// sector tags are normalized ASCII identifiers.
func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
