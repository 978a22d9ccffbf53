package publish

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/fairness"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/model"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/pkg/logger"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/pkg/metrics"
)

// sender is the slice of *nats.Conn the publisher needs.
type sender interface {
	Publish(subj string, data []byte) error
}

// NATSPublisher publishes JSON events to core NATS subjects under a
// configurable prefix. The connection is owned by the caller; the publisher
// never closes it.
type NATSPublisher struct {
	conn   sender
	prefix string
	log    logger.Logger
}

// NewNATSPublisher creates a publisher over an established NATS connection.
func NewNATSPublisher(conn *nats.Conn, opts ...Option) *NATSPublisher {
	p := &NATSPublisher{
		prefix: defaultPrefix,
	}
	if conn != nil {
		p.conn = conn
	}

	// Apply all options
	for _, opt := range opts {
		opt(p)
	}

	if p.log == nil {
		p.log = logger.Named("publish")
	}
	return p
}

// PublishRoundCommitted implements Publisher.
func (p *NATSPublisher) PublishRoundCommitted(ctx context.Context, alloc model.Allocation) error {
	return p.publish(ctx, p.subject(subjectRoundCommitted), alloc)
}

// PublishDisparity implements Publisher.
func (p *NATSPublisher) PublishDisparity(ctx context.Context, roundID string, report fairness.DisparityReport) error {
	return p.publish(ctx, p.subject(subjectDisparity), DisparityEvent{
		RoundID: roundID,
		Report:  report,
	})
}

func (p *NATSPublisher) subject(suffix string) string {
	return p.prefix + "." + suffix
}

func (p *NATSPublisher) publish(ctx context.Context, subject string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.conn == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(payload)
	if err != nil {
		metrics.RecordPublishError()
		return fmt.Errorf("encode %s payload: %w", subject, err)
	}

	if err := p.conn.Publish(subject, data); err != nil {
		metrics.RecordPublishError()
		metrics.RecordErrorByComponent("publish", "nats_error")
		p.log.Error(ctx, "publish failed",
			logger.String("subject", subject),
			logger.Error(err),
		)
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	metrics.RecordResultPublished()
	p.log.Debug(ctx, "event published",
		logger.String("subject", subject),
		logger.Int("bytes", len(data)),
	)
	return nil
}
