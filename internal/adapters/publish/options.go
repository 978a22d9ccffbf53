package publish

import (
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/pkg/logger"
)

// Option applies a configuration option to the NATSPublisher.
type Option func(*NATSPublisher)

// WithPrefix sets the subject prefix events are published under.
func WithPrefix(prefix string) Option {
	return func(p *NATSPublisher) {
		if prefix != "" {
			p.prefix = prefix
		}
	}
}

// WithLogger sets a custom logger for the publisher.
func WithLogger(log logger.Logger) Option {
	return func(p *NATSPublisher) {
		if log != nil {
			p.log = log
		}
	}
}
