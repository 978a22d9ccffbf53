package scoring

// Option applies a configuration option to the WeightedScorer.
type Option func(*WeightedScorer)

// WithWeights sets factor weights from a configuration map. The map is
// copied; entries replace the defaults wholesale.
func WithWeights(weights map[string]float64) Option {
	return func(s *WeightedScorer) {
		if len(weights) == 0 {
			return
		}
		s.weights = make(map[string]float64, len(weights))
		for name, w := range weights {
			s.weights[name] = w
		}
	}
}

// WithGeographyPartialCredit sets the same-region subscore.
func WithGeographyPartialCredit(credit float64) Option {
	return func(s *WeightedScorer) {
		if credit >= 0 && credit <= 1 {
			s.partialCredit = credit
		}
	}
}
