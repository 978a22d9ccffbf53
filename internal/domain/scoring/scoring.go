// Package scoring computes explainable compatibility scores for
// candidate/slot feature pairs. Scoring is pure: the same two vectors under
// the same weights always produce byte-identical results, and protected
// attributes are not visible to any factor.
package scoring

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/model"
)

// Factor registry names, in declaration order. Declaration order breaks
// contribution ties in the breakdown and fixes the neutral-subscore notes.
const (
	FactorSkillSimilarity     = "skill_similarity"
	FactorPreferenceAlignment = "preference_alignment"
	FactorGeographyFit        = "geography_fit"
	FactorExperienceFit       = "experience_fit"
)

// Neutral subscore substituted for a failed factor.
const neutralSubscore = 0.0

// Preference alignment when neither side declares tags.
const emptyTagsNeutral = 0.5

const weightSumTolerance = 1e-9

// Scorer computes a compatibility score for one candidate/slot feature pair.
type Scorer interface {
	// ScorePair scores two normalized vectors, honoring ctx for
	// cancellation. Identifier fields on the returned PairScore are left
	// empty; the caller labels them.
	ScorePair(ctx context.Context, cand, slot model.Features) (model.PairScore, error)
}

type factorFunc func(s *WeightedScorer, cand, slot model.Features) (float64, error)

type factor struct {
	name string
	fn   factorFunc
}

// declaration order is load-bearing: it is the tie-break order of the
// breakdown and the order notes are recorded in.
var factors = []factor{
	{FactorSkillSimilarity, (*WeightedScorer).skillSimilarity},
	{FactorPreferenceAlignment, (*WeightedScorer).preferenceAlignment},
	{FactorGeographyFit, (*WeightedScorer).geographyFit},
	{FactorExperienceFit, (*WeightedScorer).experienceFit},
}

// WeightedScorer implements Scorer as a weighted sum of registered factors.
type WeightedScorer struct {
	weights       map[string]float64
	partialCredit float64
}

// NewWeightedScorer creates a scorer with configuration options. Weights
// must cover only registered factors and sum to 1.0.
func NewWeightedScorer(opts ...Option) (*WeightedScorer, error) {
	s := &WeightedScorer{
		weights: map[string]float64{
			FactorSkillSimilarity:     0.40,
			FactorPreferenceAlignment: 0.25,
			FactorGeographyFit:        0.20,
			FactorExperienceFit:       0.15,
		},
		partialCredit: 0.5,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	known := make(map[string]struct{}, len(factors))
	for _, f := range factors {
		known[f.name] = struct{}{}
	}
	sum := 0.0
	for name, w := range s.weights {
		if _, ok := known[name]; !ok {
			return nil, fmt.Errorf("%w: unknown factor %s", ErrInvalidWeights, name)
		}
		if w < 0 {
			return nil, fmt.Errorf("%w: factor %s has negative weight", ErrInvalidWeights, name)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return nil, fmt.Errorf("%w: weights sum to %v, want 1.0", ErrInvalidWeights, sum)
	}
	return s, nil
}

// ScorePair computes the weighted composite and its factor breakdown.
// Factor failures never fail the pair: the factor contributes the neutral
// subscore and the result is marked degraded.
func (s *WeightedScorer) ScorePair(ctx context.Context, cand, slot model.Features) (model.PairScore, error) {
	select {
	case <-ctx.Done():
		return model.PairScore{}, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	breakdown := make([]model.FactorContribution, 0, len(factors))
	total := 0.0
	degraded := false

	for _, f := range factors {
		weight := s.weights[f.name]
		sub, err := f.fn(s, cand, slot)
		fc := model.FactorContribution{
			Factor:   f.name,
			Weight:   weight,
			Subscore: sub,
		}
		if err != nil {
			fc.Subscore = neutralSubscore
			fc.Degraded = true
			fc.Note = err.Error()
			degraded = true
		}
		fc.Contribution = fc.Weight * fc.Subscore
		total += fc.Contribution
		breakdown = append(breakdown, fc)
	}

	// Largest contribution first; declaration order holds on ties.
	sort.SliceStable(breakdown, func(i, j int) bool {
		return breakdown[i].Contribution > breakdown[j].Contribution
	})

	return model.PairScore{
		Score:     total,
		Breakdown: breakdown,
		Degraded:  degraded,
	}, nil
}

// skillSimilarity is the cosine of the two unit skill vectors rescaled from
// [-1,1] to [0,1].
func (s *WeightedScorer) skillSimilarity(cand, slot model.Features) (float64, error) {
	if len(cand.Skills) == 0 || len(slot.Skills) == 0 {
		return 0, &FactorError{Factor: FactorSkillSimilarity, Reason: "missing skill vector"}
	}
	if len(cand.Skills) != len(slot.Skills) {
		return 0, &FactorError{
			Factor: FactorSkillSimilarity,
			Reason: fmt.Sprintf("dimension mismatch %d vs %d", len(cand.Skills), len(slot.Skills)),
		}
	}
	cos := floats.Dot(cand.Skills, slot.Skills)
	sub := (cos + 1) / 2
	return clamp01(sub), nil
}

// preferenceAlignment is the Jaccard overlap of the two sorted tag index
// sets. Two empty sets align neutrally.
func (s *WeightedScorer) preferenceAlignment(cand, slot model.Features) (float64, error) {
	if len(cand.Tags) == 0 && len(slot.Tags) == 0 {
		return emptyTagsNeutral, nil
	}
	inter, union := 0, 0
	i, j := 0, 0
	for i < len(cand.Tags) && j < len(slot.Tags) {
		switch {
		case cand.Tags[i] == slot.Tags[j]:
			inter++
			union++
			i++
			j++
		case cand.Tags[i] < slot.Tags[j]:
			union++
			i++
		default:
			union++
			j++
		}
	}
	union += len(cand.Tags) - i + len(slot.Tags) - j
	return float64(inter) / float64(union), nil
}

// geographyFit grants full credit for an exact district match, configured
// partial credit for a same-region match, and zero otherwise.
func (s *WeightedScorer) geographyFit(cand, slot model.Features) (float64, error) {
	if cand.District != "" && cand.District == slot.District {
		return 1.0, nil
	}
	if cand.Region != "" && cand.Region == slot.Region {
		return s.partialCredit, nil
	}
	return 0.0, nil
}

// experienceFit rewards proximity of the rescaled experience levels.
func (s *WeightedScorer) experienceFit(cand, slot model.Features) (float64, error) {
	if math.IsNaN(cand.Experience) || math.IsNaN(slot.Experience) {
		return 0, &FactorError{Factor: FactorExperienceFit, Reason: "experience not normalized"}
	}
	return clamp01(1 - math.Abs(cand.Experience-slot.Experience)), nil
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
