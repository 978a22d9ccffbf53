package intake

import (
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/feature"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/pkg/logger"
)

// Option applies a configuration option to the Processor.
type Option func(*Processor)

// WithNormalizer sets the feature normalizer used for all entities.
func WithNormalizer(n *feature.Normalizer) Option {
	return func(p *Processor) {
		if n != nil {
			p.normalizer = n
		}
	}
}

// WithLogger sets the intake logger.
func WithLogger(log logger.Logger) Option {
	return func(p *Processor) {
		if log != nil {
			p.log = log
		}
	}
}
