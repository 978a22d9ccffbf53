// Package publish pushes committed allocation results and disparity reports
// to downstream consumers over NATS. Rounds commit to the ledger first;
// publishing is best-effort notification, never the source of truth.
package publish

import (
	"context"

	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/fairness"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/model"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/pkg/logger"
)

const (
	defaultPrefix = "pmis"

	subjectRoundCommitted = "round.committed"
	subjectDisparity      = "fairness.disparity"
)

// Publisher pushes round outcomes to whoever listens.
type Publisher interface {
	// PublishRoundCommitted announces a committed allocation.
	PublishRoundCommitted(ctx context.Context, alloc model.Allocation) error

	// PublishDisparity announces the round's placement parity report.
	PublishDisparity(ctx context.Context, roundID string, report fairness.DisparityReport) error
}

// DisparityEvent is the wire envelope for disparity reports; the report
// itself carries no round identity.
type DisparityEvent struct {
	RoundID string                   `json:"round_id"`
	Report  fairness.DisparityReport `json:"report"`
}

// NoopPublisher drops every event. Used when no broker is configured so the
// engine runs standalone without code paths forking on nil publishers.
type NoopPublisher struct {
	log logger.Logger
}

// NewNoopPublisher creates a publisher that drops all events.
func NewNoopPublisher() *NoopPublisher {
	return &NoopPublisher{log: logger.Named("publish")}
}

// PublishRoundCommitted implements Publisher.
func (p *NoopPublisher) PublishRoundCommitted(ctx context.Context, alloc model.Allocation) error {
	p.log.Debug(ctx, "publisher disabled, dropping round",
		logger.String("round_id", alloc.RoundID),
	)
	return nil
}

// PublishDisparity implements Publisher.
func (p *NoopPublisher) PublishDisparity(ctx context.Context, roundID string, _ fairness.DisparityReport) error {
	p.log.Debug(ctx, "publisher disabled, dropping disparity report",
		logger.String("round_id", roundID),
	)
	return nil
}
