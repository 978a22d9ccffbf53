package feature

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithSchemaVersion sets the accepted schema version.
func WithSchemaVersion(v int) Option {
	return func(n *Normalizer) {
		if v > 0 {
			n.schemaVersion = v
		}
	}
}

// WithSkillDimension sets the required skill vector length.
func WithSkillDimension(dim int) Option {
	return func(n *Normalizer) {
		if dim > 0 {
			n.skillDim = dim
		}
	}
}

// WithExperienceCap sets the raw experience bound in years.
func WithExperienceCap(years float64) Option {
	return func(n *Normalizer) {
		if years > 0 {
			n.expCapYears = years
		}
	}
}

// WithRatingScale sets the raw rating upper bound.
func WithRatingScale(scale float64) Option {
	return func(n *Normalizer) {
		if scale > 0 {
			n.ratingScale = scale
		}
	}
}

// WithVocabulary installs the tag vocabulary. Index 0 is reserved for the
// unknown bucket; vocabulary entries map to indices 1..len.
func WithVocabulary(tags []string) Option {
	return func(n *Normalizer) {
		vocab := make(map[string]int, len(tags))
		for i, t := range tags {
			vocab[canonical(t)] = i + 1
		}
		n.vocab = vocab
	}
}
