// Package app orchestrates allocation rounds end to end: intake,
// fan-out scoring, quota scheduling, solving, disparity checks and the
// atomic ledger commit.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/adapters/ledger"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/adapters/provider"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/adapters/publish"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/adapters/scorebook"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/fairness"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/intake"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/model"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/scoring"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/solver"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/pkg/logger"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/pkg/metrics"
)

// Service runs allocation rounds for the internship matching engine.
type Service struct {
	mu sync.RWMutex

	// roundMu serializes rounds; a second RunRound while one is active
	// fails fast with ErrRoundInProgress instead of queueing.
	roundMu sync.Mutex

	// Core components
	intake    *intake.Processor
	scorer    scoring.Scorer
	monitor   *fairness.Monitor
	solver    *solver.Solver
	audit     ledger.Ledger
	publisher publish.Publisher
	extractor provider.Extractor

	// Configuration
	workerCount  int
	queueSize    int
	metricsAddr  string
	configDigest string

	// State
	started         bool
	roundsCommitted int
	lastAlloc       *model.Allocation
	lastBook        *scorebook.Book
	metricsSrv      *http.Server

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of scoring worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the scoring job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithMetricsAddr sets the listen address for the Prometheus endpoint.
// Empty leaves the endpoint disabled.
func WithMetricsAddr(addr string) Option {
	return func(s *Service) {
		s.metricsAddr = addr
	}
}

// WithConfigDigest stamps committed allocations with the digest of the
// scoring configuration that produced them.
func WithConfigDigest(digest string) Option {
	return func(s *Service) {
		s.configDigest = digest
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithIntake sets the intake processor.
func WithIntake(p *intake.Processor) Option {
	return func(s *Service) {
		if p != nil {
			s.intake = p
		}
	}
}

// WithScorer sets the pair scorer.
func WithScorer(sc scoring.Scorer) Option {
	return func(s *Service) {
		if sc != nil {
			s.scorer = sc
		}
	}
}

// WithMonitor sets the fairness monitor.
func WithMonitor(m *fairness.Monitor) Option {
	return func(s *Service) {
		if m != nil {
			s.monitor = m
		}
	}
}

// WithSolver sets the assignment solver.
func WithSolver(sv *solver.Solver) Option {
	return func(s *Service) {
		if sv != nil {
			s.solver = sv
		}
	}
}

// WithLedger sets the audit ledger.
func WithLedger(l ledger.Ledger) Option {
	return func(s *Service) {
		if l != nil {
			s.audit = l
		}
	}
}

// WithPublisher sets the round event publisher.
func WithPublisher(p publish.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithExtractor sets the feature provider used to resolve raw skill
// terms into vectors before intake. Leaving it unset is valid; rows
// that carry terms but no vector are then excluded at intake.
func WithExtractor(e provider.Extractor) Option {
	return func(s *Service) {
		if e != nil {
			s.extractor = e
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU() * 2, // Default to 2x CPU cores
		queueSize:   100000,               // Default queue size
		logger:      nil,                  // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the service components that were not injected.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Named("app")
	}

	s.logger.Info(ctx, "starting allocation service...")

	if s.intake == nil {
		s.intake = intake.New()
	}
	if s.scorer == nil {
		sc, err := scoring.NewWeightedScorer()
		if err != nil {
			return fmt.Errorf("build scorer: %w", err)
		}
		s.scorer = sc
	}
	if s.monitor == nil {
		s.monitor = fairness.New()
	}
	if s.solver == nil {
		s.solver = solver.New()
	}
	if s.audit == nil {
		s.audit = ledger.NewMemoryLedger()
	}
	if s.publisher == nil {
		s.publisher = publish.NewNoopPublisher()
	}

	if s.metricsAddr != "" {
		s.startMetricsServer()
	}

	metrics.UpdateWorkerCount(s.workerCount)
	metrics.UpdateQueueCapacity(s.queueSize)

	s.started = true
	s.logger.Info(ctx, "allocation service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
	)

	return nil
}

func (s *Service) startMetricsServer() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	s.metricsSrv = &http.Server{
		Addr:              s.metricsAddr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func(srv *http.Server) {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(context.Background(), "metrics server failed", logger.Error(err))
		}
	}(s.metricsSrv)
}

// Stop gracefully shuts down the service. Rounds own their scoring
// components; only the metrics listener is torn down here.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping allocation service...")

	if s.metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.metricsSrv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(context.Background(), "metrics server shutdown", logger.Error(err))
		}
		cancel()
		s.metricsSrv = nil
	}

	s.started = false
	s.logger.Info(context.Background(), "allocation service stopped")
}

// LastAllocation returns the most recently committed allocation, if any.
func (s *Service) LastAllocation() (*model.Allocation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.lastAlloc == nil {
		return nil, false
	}
	alloc := *s.lastAlloc
	return &alloc, true
}

// ConfigDigest returns the digest stamped onto committed allocations.
func (s *Service) ConfigDigest() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.configDigest
}

// AuditHistory returns every ledger record touching the given candidate
// or slot id, oldest first.
func (s *Service) AuditHistory(ctx context.Context, entityID string) ([]ledger.Record, error) {
	s.mu.RLock()
	audit := s.audit
	s.mu.RUnlock()

	if audit == nil {
		return nil, ErrNotStarted
	}
	return audit.History(ctx, entityID)
}

// VerifyAudit re-checks the ledger hash chain.
func (s *Service) VerifyAudit(ctx context.Context) error {
	s.mu.RLock()
	audit := s.audit
	s.mu.RUnlock()

	if audit == nil {
		return ErrNotStarted
	}
	return audit.Verify(ctx)
}

// ExportAudit streams the full ledger as JSONL to w.
func (s *Service) ExportAudit(ctx context.Context, w io.Writer) error {
	s.mu.RLock()
	audit := s.audit
	s.mu.RUnlock()

	if audit == nil {
		return ErrNotStarted
	}
	return audit.Export(ctx, w)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"workerCount":     s.workerCount,
		"queueSize":       s.queueSize,
		"roundsCommitted": s.roundsCommitted,
	}

	if s.audit != nil {
		stats["ledgerRecords"] = s.audit.Len()
	}

	if s.lastAlloc != nil {
		stats["lastRoundID"] = s.lastAlloc.RoundID
		stats["lastAssigned"] = s.lastAlloc.Stats.Assigned
		stats["lastUnmatched"] = s.lastAlloc.Stats.Unmatched
		stats["lastFillRate"] = s.lastAlloc.Stats.FillRate
		stats["lastMeanScore"] = s.lastAlloc.Stats.MeanScore
	}

	return stats
}
