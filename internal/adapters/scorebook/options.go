package scorebook

import (
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/model"
)

// Option applies a configuration option to the Book.
type Option func(*Book)

// WithCandidateHint pre-sizes the matrix for the expected candidate count.
func WithCandidateHint(n int) Option {
	return func(b *Book) {
		if n > 0 {
			b.scores = make(map[string]map[string]model.PairScore, n)
		}
	}
}
