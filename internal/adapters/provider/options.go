package provider

import (
	"time"

	"github.com/narendrakadam1/Allocation-Engine-PM-internship/pkg/logger"
)

// RetryOption applies a configuration option to the Retrying extractor.
type RetryOption func(*Retrying)

// WithMaxRetries caps how many times a failed call is retried.
func WithMaxRetries(n uint64) RetryOption {
	return func(r *Retrying) {
		r.maxRetries = n
	}
}

// WithInitialInterval sets the first backoff delay.
func WithInitialInterval(d time.Duration) RetryOption {
	return func(r *Retrying) {
		if d > 0 {
			r.initialInterval = d
		}
	}
}

// WithMaxInterval caps the backoff delay.
func WithMaxInterval(d time.Duration) RetryOption {
	return func(r *Retrying) {
		if d > 0 {
			r.maxInterval = d
		}
	}
}

// WithLogger sets a custom logger for the retry wrapper.
func WithLogger(log logger.Logger) RetryOption {
	return func(r *Retrying) {
		if log != nil {
			r.log = log
		}
	}
}
