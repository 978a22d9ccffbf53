// Package feature normalizes raw candidate and slot attributes into the
// canonical feature vectors the scorer consumes. Normalization is pure and
// deterministic: the same raw payload always yields the same vector.
package feature

import (
	"context"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/model"
)

// Neutral value imputed for missing optional scalar fields.
const neutralMidpoint = 0.5

// unknownTagIndex is the shared vocabulary bucket for unrecognized tags.
const unknownTagIndex = 0

// Raw is the unnormalized feature payload as supplied at intake.
type Raw struct {
	// SchemaVersion must match the normalizer's configured version.
	SchemaVersion int `json:"schema_version"`

	// Skills holds embedding components in [-1,1]. The dimension must
	// match the configured schema dimension.
	Skills []float64 `json:"skills"`

	// SkillTerms optionally carries raw skill text for rows shipped
	// without an embedding. The orchestrator resolves terms through the
	// feature provider before normalization; Normalize consumes only the
	// vector.
	SkillTerms []string `json:"skill_terms,omitempty"`

	// ExperienceYears and Rating are optional; nil imputes the neutral
	// midpoint after rescaling.
	ExperienceYears *float64 `json:"experience_years,omitempty"`
	Rating          *float64 `json:"rating,omitempty"`

	// Tags are free-form preference or requirement labels.
	Tags []string `json:"tags,omitempty"`

	District string `json:"district"`
	Region   string `json:"region"`
}

// Normalizer turns Raw payloads into model.Features under one schema.
type Normalizer struct {
	schemaVersion int
	skillDim      int
	expCapYears   float64
	ratingScale   float64
	vocab         map[string]int
}

// New creates a Normalizer using provided options.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		schemaVersion: 1,
		skillDim:      8,
		expCapYears:   10,
		ratingScale:   10,
		vocab:         map[string]int{},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// SchemaVersion returns the schema version this normalizer accepts.
func (n *Normalizer) SchemaVersion() int { return n.schemaVersion }

// Normalize validates raw features and produces the canonical vector.
// A non-nil error is always a *ValidationError; the caller excludes the
// owning entity and continues the round.
func (n *Normalizer) Normalize(_ context.Context, raw Raw) (model.Features, error) {
	if raw.SchemaVersion != n.schemaVersion {
		return model.Features{}, invalid("schema_version", "got %d, want %d", raw.SchemaVersion, n.schemaVersion)
	}
	if len(raw.Skills) != n.skillDim {
		return model.Features{}, invalid("skills", "dimension %d, want %d", len(raw.Skills), n.skillDim)
	}
	for i, v := range raw.Skills {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return model.Features{}, invalid("skills", "component %d is not finite", i)
		}
		if v < -1 || v > 1 {
			return model.Features{}, invalid("skills", "component %d is %v, want [-1,1]", i, v)
		}
	}

	skills := make([]float64, len(raw.Skills))
	copy(skills, raw.Skills)
	norm := floats.Norm(skills, 2)
	if norm == 0 {
		return model.Features{}, invalid("skills", "all-zero vector")
	}
	floats.Scale(1/norm, skills)

	experience, err := n.rescale("experience_years", raw.ExperienceYears, n.expCapYears)
	if err != nil {
		return model.Features{}, err
	}
	rating, err := n.rescale("rating", raw.Rating, n.ratingScale)
	if err != nil {
		return model.Features{}, err
	}

	return model.Features{
		SchemaVersion: n.schemaVersion,
		Skills:        skills,
		Experience:    experience,
		Rating:        rating,
		Tags:          n.tagIndices(raw.Tags),
		District:      canonical(raw.District),
		Region:        canonical(raw.Region),
	}, nil
}

// rescale clamps an optional raw value to [0, scale] and maps it to [0,1].
// Missing values impute the neutral midpoint.
func (n *Normalizer) rescale(field string, v *float64, scale float64) (float64, error) {
	if v == nil {
		return neutralMidpoint, nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, invalid(field, "value is not finite")
	}
	clamped := *v
	if clamped < 0 {
		clamped = 0
	}
	if clamped > scale {
		clamped = scale
	}
	return clamped / scale, nil
}

// tagIndices maps tags through the vocabulary to sorted unique indices.
// Unknown tags share the unknown bucket.
func (n *Normalizer) tagIndices(tags []string) []int {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[int]struct{}, len(tags))
	for _, t := range tags {
		idx, ok := n.vocab[canonical(t)]
		if !ok {
			idx = unknownTagIndex
		}
		seen[idx] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for idx := range seen {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

func canonical(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
