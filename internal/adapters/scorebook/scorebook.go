// Package scorebook holds the round-local pair score matrix. A Book collects
// results from the scoring workers and serves lookups to the solver and the
// explanation path. Books live for exactly one round.
package scorebook

import (
	"context"
	"sync"

	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/model"
)

// FailedPair records a candidate/slot pair whose scoring failed. The edge is
// absent from the assignment graph.
type FailedPair struct {
	CandidateID string
	SlotID      string
	Reason      string
}

// Book is a write-heavy, then read-only score matrix. Workers write
// concurrently during the scoring fan-out; the solver reads after the
// round's scoring barrier.
type Book struct {
	mu       sync.RWMutex
	scores   map[string]map[string]model.PairScore
	failed   []FailedPair
	degraded int
}

// New creates an empty Book using provided options.
func New(opts ...Option) *Book {
	b := &Book{
		scores: make(map[string]map[string]model.PairScore),
	}

	// Apply all options
	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Put stores one scored pair. The pair must carry both identifiers.
func (b *Book) Put(ctx context.Context, ps model.PairScore) error {
	if ps.CandidateID == "" || ps.SlotID == "" {
		return ErrInvalidPair
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	row, ok := b.scores[ps.CandidateID]
	if !ok {
		row = make(map[string]model.PairScore)
		b.scores[ps.CandidateID] = row
	}
	if _, dup := row[ps.SlotID]; dup {
		return ErrDuplicatePair
	}
	row[ps.SlotID] = ps
	if ps.Degraded {
		b.degraded++
	}
	return nil
}

// MarkFailed records a pair that could not be scored.
func (b *Book) MarkFailed(_ context.Context, candidateID, slotID, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failed = append(b.failed, FailedPair{
		CandidateID: candidateID,
		SlotID:      slotID,
		Reason:      reason,
	})
}

// Get returns the stored score for a pair.
// Returns ErrNotFound if the pair was never scored.
func (b *Book) Get(_ context.Context, candidateID, slotID string) (model.PairScore, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ps, ok := b.scores[candidateID][slotID]
	if !ok {
		return model.PairScore{}, ErrNotFound
	}
	return ps, nil
}

// Score is the solver's lookup: the composite and whether the edge exists.
func (b *Book) Score(candidateID, slotID string) (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ps, ok := b.scores[candidateID][slotID]
	if !ok {
		return 0, false
	}
	return ps.Score, true
}

// ScoredFor reports how many slots hold a score for the candidate.
func (b *Book) ScoredFor(candidateID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.scores[candidateID])
}

// Failed returns a copy of the failed pair records.
func (b *Book) Failed() []FailedPair {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]FailedPair, len(b.failed))
	copy(out, b.failed)
	return out
}

// Len returns the number of stored pair scores.
func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for _, row := range b.scores {
		n += len(row)
	}
	return n
}

// DegradedCount returns how many stored scores were computed degraded.
func (b *Book) DegradedCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.degraded
}
