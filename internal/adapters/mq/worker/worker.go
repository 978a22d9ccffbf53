// Package worker consumes scoring jobs from the queue and lands pair scores
// in the round's scorebook.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/adapters/mq/queue"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/model"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/pkg/logger"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Job abstracts what workers read off the queue.
type Job = queue.Job

// Scorer computes one pair score from normalized features. Workers label the
// result with identities afterward; the scorer never sees them.
type Scorer interface {
	ScorePair(ctx context.Context, cand, slot model.Features) (model.PairScore, error)
}

// Book receives scored pairs and failures for the running round.
type Book interface {
	Put(ctx context.Context, ps model.PairScore) error
	MarkFailed(ctx context.Context, candidateID, slotID, reason string)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes scoring jobs using the provided interfaces.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	// It will process any remaining jobs before stopping.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for scoring queued pairs.
type InMemoryWorker struct {
	queue  Queue
	scorer Scorer
	book   Book
	name   string

	// Shutdown control
	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, scorer Scorer, book Book, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		scorer:   scorer,
		book:     book,
		name:     "worker", // default name
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"), // will be updated by options
	}

	// Apply all options
	for _, opt := range opts {
		opt(w)
	}

	// Set up logger with worker name if not already set
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer func() {
		close(w.done)
	}()

	jobChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobChan:
			if !ok {
				// Channel closed, worker should stop
				return
			}

			if err := w.processJob(ctx, job); err != nil {
				w.logger.Error(ctx, "error processing job", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker once its in-flight job completes.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	// Signal shutdown
	w.stopOnce.Do(func() { close(w.shutdown) })

	// Wait for worker to finish or context to timeout
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processJob scores a single pair. Failures are absorbed into the scorebook
// as failed pairs; the job always releases its barrier slot.
func (w *InMemoryWorker) processJob(ctx context.Context, job queue.Job) error { //nolint:gocritic // hugeParam: Job must be passed by value for channel semantics
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordWorkerProcessingLatency(float64(latency))
	}()
	if job.Done != nil {
		defer job.Done()
	}

	scoreStart := time.Now()
	ps, err := w.scorer.ScorePair(ctx, job.Candidate.Features, job.Slot.Features)
	metrics.RecordScoringLatency(float64(time.Since(scoreStart).Milliseconds()))

	if err != nil {
		metrics.RecordScoringError()
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "scoring_error")
		w.logger.Error(ctx, "scoring failed for pair",
			logger.String("candidate_id", job.Candidate.ID),
			logger.String("slot_id", job.Slot.ID),
			logger.Error(err),
		)
		w.book.MarkFailed(ctx, job.Candidate.ID, job.Slot.ID, err.Error())
		return fmt.Errorf("failed to score pair %s/%s: %w", job.Candidate.ID, job.Slot.ID, err)
	}

	// The scorer works on bare features; identities are labeled here.
	ps.CandidateID = job.Candidate.ID
	ps.SlotID = job.Slot.ID

	if err := w.book.Put(ctx, ps); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "scorebook_error")
		w.logger.Error(ctx, "recording pair score failed",
			logger.String("candidate_id", job.Candidate.ID),
			logger.String("slot_id", job.Slot.ID),
			logger.Error(err),
		)
		w.book.MarkFailed(ctx, job.Candidate.ID, job.Slot.ID, err.Error())
		return fmt.Errorf("record pair %s/%s: %w", job.Candidate.ID, job.Slot.ID, err)
	}

	metrics.RecordPairScored()
	if ps.Degraded {
		metrics.RecordDegradedScore()
	}
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	scorer  Scorer
	book    Book

	// Logging
	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, queue Queue, scorer Scorer, book Book) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		scorer:  scorer,
		book:    book,
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			queue,
			scorer,
			book,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
}

// Stop stops all workers without waiting for the queue to empty.
func (p *Pool) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), workerShutdownTimeout)
	defer cancel()

	for _, worker := range p.workers {
		_ = worker.Shutdown(ctx)
	}
}

// Shutdown closes the queue and waits for workers to finish the jobs still
// buffered on it.
func (p *Pool) Shutdown(ctx context.Context) error {
	// First close the queue to stop new jobs
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	// Wait for all workers to finish or context to timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	return nil
}
