package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/model"
)

func fixedClock() func() time.Time {
	at := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func assignmentRecord(roundID, candidateID, slotID string, score float64) Record {
	return Record{
		RoundID:     roundID,
		Kind:        KindAssignment,
		CandidateID: candidateID,
		SlotID:      slotID,
		Phase:       model.PhaseOpen,
		PairScore: &model.PairScore{
			CandidateID: candidateID,
			SlotID:      slotID,
			Score:       score,
			Breakdown: []model.FactorContribution{
				{Factor: "skill_similarity", Weight: 1.0, Subscore: score, Contribution: score},
			},
		},
	}
}

func TestLedger_AppendAssignsChainFields(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger(WithNow(fixedClock()))

	first, err := l.Append(ctx, assignmentRecord("round-1", "cand-1", "slot-1", 0.9))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Seq != 1 {
		t.Errorf("expected seq 1, got %d", first.Seq)
	}
	if first.PrevHash != "" {
		t.Errorf("expected empty prev hash on genesis record, got %q", first.PrevHash)
	}
	if first.Hash == "" {
		t.Error("expected hash to be assigned")
	}
	if first.RecordedAt.IsZero() {
		t.Error("expected recorded_at to be stamped")
	}

	second, err := l.Append(ctx, assignmentRecord("round-1", "cand-2", "slot-2", 0.8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Seq != 2 {
		t.Errorf("expected seq 2, got %d", second.Seq)
	}
	if second.PrevHash != first.Hash {
		t.Errorf("expected prev hash %q, got %q", first.Hash, second.PrevHash)
	}

	if l.Len() != 2 {
		t.Errorf("expected 2 records, got %d", l.Len())
	}
	if err := l.Verify(ctx); err != nil {
		t.Errorf("expected chain to verify, got %v", err)
	}
}

func TestLedger_AppendValidation(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	_, err := l.Append(ctx, Record{RoundID: "round-1", Kind: Kind("edit")})
	if !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("expected ErrInvalidRecord for unknown kind, got %v", err)
	}

	_, err = l.Append(ctx, Record{Kind: KindUnmatched})
	if !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("expected ErrInvalidRecord for empty round, got %v", err)
	}

	_, err = l.Append(ctx, Record{RoundID: "round-1", Kind: KindUnmatched, Seq: 7})
	if !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("expected ErrInvalidRecord for preassigned seq, got %v", err)
	}

	_, err = l.Append(ctx, Record{RoundID: "round-1", Kind: KindUnmatched, Hash: "deadbeef"})
	if !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("expected ErrInvalidRecord for preassigned hash, got %v", err)
	}

	if l.Len() != 0 {
		t.Errorf("expected rejected records to leave the chain empty, got %d", l.Len())
	}
}

func TestLedger_HistoryAndRound(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger(WithNow(fixedClock()))

	mustAppend(t, l, assignmentRecord("round-1", "cand-1", "slot-1", 0.9))
	mustAppend(t, l, assignmentRecord("round-1", "cand-2", "slot-2", 0.8))
	mustAppend(t, l, Record{
		RoundID:     "round-1",
		Kind:        KindUnmatched,
		CandidateID: "cand-3",
		Reason:      "no_seat_available",
	})
	mustAppend(t, l, Record{RoundID: "round-1", Kind: KindRoundCommitted})
	mustAppend(t, l, assignmentRecord("round-2", "cand-1", "slot-2", 0.7))

	history, err := l.History(ctx, "cand-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 records for cand-1, got %d", len(history))
	}
	if history[0].RoundID != "round-1" || history[1].RoundID != "round-2" {
		t.Errorf("expected append order round-1 then round-2, got %s then %s",
			history[0].RoundID, history[1].RoundID)
	}

	bySlot, err := l.History(ctx, "slot-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bySlot) != 2 {
		t.Errorf("expected 2 records for slot-2, got %d", len(bySlot))
	}

	round, err := l.Round(ctx, "round-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(round) != 4 {
		t.Errorf("expected 4 records for round-1, got %d", len(round))
	}
	if round[3].Kind != KindRoundCommitted {
		t.Errorf("expected round to end with commit record, got %s", round[3].Kind)
	}

	missing, err := l.History(ctx, "cand-404")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("expected no records for unknown entity, got %d", len(missing))
	}
}

func TestLedger_ReadersGetCopies(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger(WithNow(fixedClock()))
	mustAppend(t, l, assignmentRecord("round-1", "cand-1", "slot-1", 0.9))

	history, err := l.History(ctx, "cand-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Mutating what a reader got back must not reach the chain.
	history[0].Reason = "tampered"
	history[0].PairScore.Score = 0.1
	history[0].PairScore.Breakdown[0].Factor = "tampered"

	if err := l.Verify(ctx); err != nil {
		t.Errorf("expected chain to verify after mutating reader copy, got %v", err)
	}

	fresh, err := l.History(ctx, "cand-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fresh[0].PairScore.Score != 0.9 {
		t.Errorf("expected stored score 0.9, got %f", fresh[0].PairScore.Score)
	}
}

func TestLedger_VerifyDetectsTampering(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger(WithNow(fixedClock()))
	mustAppend(t, l, assignmentRecord("round-1", "cand-1", "slot-1", 0.9))
	mustAppend(t, l, assignmentRecord("round-1", "cand-2", "slot-2", 0.8))
	mustAppend(t, l, Record{RoundID: "round-1", Kind: KindRoundCommitted})

	if err := l.Verify(ctx); err != nil {
		t.Fatalf("expected clean chain to verify, got %v", err)
	}

	// Mutate a historical record in place.
	l.records[1].Reason = "rewritten history"

	err := l.Verify(ctx)
	if !errors.Is(err, ErrChainBroken) {
		t.Fatalf("expected ErrChainBroken, got %v", err)
	}
	var chainErr *ChainError
	if !errors.As(err, &chainErr) {
		t.Fatalf("expected ChainError, got %T", err)
	}
	if chainErr.Seq != 2 {
		t.Errorf("expected break at seq 2, got %d", chainErr.Seq)
	}

	// Re-hashing the mutated record does not help: the successor's PrevHash
	// no longer matches.
	sum, hashErr := hashRecord(l.records[1])
	if hashErr != nil {
		t.Fatalf("unexpected error: %v", hashErr)
	}
	l.records[1].Hash = sum

	err = l.Verify(ctx)
	if !errors.Is(err, ErrChainBroken) {
		t.Fatalf("expected ErrChainBroken after re-hash, got %v", err)
	}
	if !errors.As(err, &chainErr) {
		t.Fatalf("expected ChainError, got %T", err)
	}
	if chainErr.Seq != 3 {
		t.Errorf("expected break at seq 3, got %d", chainErr.Seq)
	}
}

func TestLedger_ExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger(WithNow(fixedClock()))
	mustAppend(t, l, assignmentRecord("round-1", "cand-1", "slot-1", 0.9))
	mustAppend(t, l, Record{
		RoundID: "round-1",
		Kind:    KindWaiver,
		SlotID:  "slot-2",
		Quota:   &QuotaState{Category: "rural", Floor: 2, Filled: 0},
		Reason:  "insufficient eligible candidates",
	})
	mustAppend(t, l, Record{RoundID: "round-1", Kind: KindRoundCommitted})

	var buf bytes.Buffer
	if err := l.Export(ctx, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, err := ReadAll(&buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if err := VerifyRecords(records); err != nil {
		t.Errorf("expected exported chain to verify, got %v", err)
	}
	if records[1].Quota == nil || records[1].Quota.Category != "rural" {
		t.Error("expected waiver quota state to survive the round trip")
	}

	// A doctored export fails verification.
	records[0].CandidateID = "cand-999"
	if err := VerifyRecords(records); !errors.Is(err, ErrChainBroken) {
		t.Errorf("expected ErrChainBroken for doctored export, got %v", err)
	}
}

func TestLedger_ConcurrentAppendsAndReads(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	const writers = 4
	const perWriter = 25

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(writer int) {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				candidateID := fmt.Sprintf("cand-%d-%d", writer, j)
				if _, err := l.Append(ctx, assignmentRecord("round-1", candidateID, "slot-1", 0.5)); err != nil {
					t.Errorf("unexpected append error: %v", err)
				}
			}
		}(i)
	}

	// Readers run alongside writers.
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := l.Round(ctx, "round-1"); err != nil {
					t.Errorf("unexpected read error: %v", err)
				}
			}
		}()
	}

	wg.Wait()

	if l.Len() != writers*perWriter {
		t.Errorf("expected %d records, got %d", writers*perWriter, l.Len())
	}
	if err := l.Verify(ctx); err != nil {
		t.Errorf("expected chain to verify after concurrent appends, got %v", err)
	}
}

func mustAppend(t *testing.T, l *MemoryLedger, rec Record) Record {
	t.Helper()
	out, err := l.Append(context.Background(), rec)
	if err != nil {
		t.Fatalf("unexpected append error: %v", err)
	}
	return out
}
