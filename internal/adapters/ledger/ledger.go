package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/narendrakadam1/Allocation-Engine-PM-internship/pkg/metrics"
)

// Ledger provides append and read access to the audit chain.
type Ledger interface {
	// Append assigns Seq, RecordedAt, PrevHash and Hash to the record and
	// stores it. Returns the completed record.
	Append(ctx context.Context, rec Record) (Record, error)

	// History returns every record touching the candidate or slot with the
	// given ID, in append order.
	History(ctx context.Context, entityID string) ([]Record, error)

	// Round returns every record of one round, in append order.
	Round(ctx context.Context, roundID string) ([]Record, error)

	// Verify re-hashes the whole chain.
	// Returns ErrChainBroken-compatible errors naming the first bad link.
	Verify(ctx context.Context) error

	// Export writes the chain as JSONL.
	Export(ctx context.Context, w io.Writer) error

	// Len returns the number of records in the chain.
	Len() int
}

// MemoryLedger is the in-memory Ledger. Appends are serialized behind a
// single writer lock; reads copy records out so callers can never reach the
// stored chain.
type MemoryLedger struct {
	mu      sync.RWMutex
	records []Record
	now     func() time.Time
}

// NewMemoryLedger constructs an empty ledger with configuration options.
func NewMemoryLedger(opts ...Option) *MemoryLedger {
	l := &MemoryLedger{
		now: time.Now,
	}

	// Apply all options
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Append implements Ledger.Append.
func (l *MemoryLedger) Append(ctx context.Context, rec Record) (Record, error) {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordLedgerAppendLatency(float64(latency))
	}()

	if !validKind(rec.Kind) {
		return Record{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidRecord, rec.Kind)
	}
	if rec.RoundID == "" {
		return Record{}, fmt.Errorf("%w: empty round id", ErrInvalidRecord)
	}
	if rec.Seq != 0 || rec.Hash != "" || rec.PrevHash != "" {
		return Record{}, fmt.Errorf("%w: chain fields are assigned on append", ErrInvalidRecord)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec = rec.clone()
	rec.Seq = uint64(len(l.records)) + 1
	rec.RecordedAt = l.now()
	if n := len(l.records); n > 0 {
		rec.PrevHash = l.records[n-1].Hash
	}

	sum, err := hashRecord(rec)
	if err != nil {
		return Record{}, err
	}
	rec.Hash = sum

	l.records = append(l.records, rec)
	metrics.RecordLedgerAppend()
	return rec.clone(), nil
}

// History implements Ledger.History.
func (l *MemoryLedger) History(_ context.Context, entityID string) ([]Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Record
	for i := range l.records {
		if l.records[i].CandidateID == entityID || l.records[i].SlotID == entityID {
			out = append(out, l.records[i].clone())
		}
	}
	return out, nil
}

// Round implements Ledger.Round.
func (l *MemoryLedger) Round(_ context.Context, roundID string) ([]Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Record
	for i := range l.records {
		if l.records[i].RoundID == roundID {
			out = append(out, l.records[i].clone())
		}
	}
	return out, nil
}

// Verify implements Ledger.Verify.
func (l *MemoryLedger) Verify(_ context.Context) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if err := VerifyRecords(l.records); err != nil {
		metrics.RecordLedgerVerifyFailure()
		return err
	}
	return nil
}

// Export implements Ledger.Export.
func (l *MemoryLedger) Export(_ context.Context, w io.Writer) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	enc := json.NewEncoder(w)
	for i := range l.records {
		if err := enc.Encode(l.records[i]); err != nil {
			return fmt.Errorf("export record %d: %w", l.records[i].Seq, err)
		}
	}
	return nil
}

// Len implements Ledger.Len.
func (l *MemoryLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
