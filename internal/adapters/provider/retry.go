package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/narendrakadam1/Allocation-Engine-PM-internship/pkg/logger"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/pkg/metrics"
)

const (
	defaultMaxRetries      = 3
	defaultInitialInterval = 100 * time.Millisecond
	defaultMaxInterval     = 2 * time.Second
)

// Retrying wraps an Extractor with exponential backoff. Context errors are
// never retried; everything else is treated as transient up to the retry cap.
type Retrying struct {
	inner           Extractor
	maxRetries      uint64
	initialInterval time.Duration
	maxInterval     time.Duration
	log             logger.Logger
}

// NewRetrying wraps the extractor with retry behavior.
func NewRetrying(inner Extractor, opts ...RetryOption) *Retrying {
	r := &Retrying{
		inner:           inner,
		maxRetries:      defaultMaxRetries,
		initialInterval: defaultInitialInterval,
		maxInterval:     defaultMaxInterval,
	}

	// Apply all options
	for _, opt := range opts {
		opt(r)
	}

	if r.log == nil {
		r.log = logger.Named("provider")
	}
	return r
}

// Extract implements Extractor.
func (r *Retrying) Extract(ctx context.Context, texts []string) ([][]float64, error) {
	var out [][]float64

	operation := func() error {
		vectors, err := r.inner.Extract(ctx, texts)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return backoff.Permanent(err)
			}
			return err
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("%w: %d vectors for %d texts", ErrBadResponse, len(vectors), len(texts))
		}
		out = vectors
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.initialInterval
	bo.MaxInterval = r.maxInterval
	bo.MaxElapsedTime = 0

	notify := func(err error, wait time.Duration) {
		metrics.RecordErrorByComponent("provider", "extract_retry")
		r.log.Warn(ctx, "provider call failed, retrying",
			logger.Error(err),
			logger.Duration("backoff", wait),
		)
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(bo, r.maxRetries), ctx), notify)
	if err != nil {
		metrics.RecordErrorByComponent("provider", "extract_failed")
		return nil, fmt.Errorf("extract features: %w", err)
	}
	return out, nil
}
