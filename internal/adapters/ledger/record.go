// Package ledger is the append-only, hash-chained audit store for allocation
// decisions. Every assignment, unmatched outcome, quota waiver and round
// commit lands here as an immutable record; corrections are new records that
// supersede old ones, never edits.
package ledger

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/model"
)

// Kind classifies what decision a record captures.
type Kind string

const (
	// KindAssignment records one candidate placed into one slot.
	KindAssignment Kind = "assignment"

	// KindUnmatched records a candidate that ended the round without a seat.
	KindUnmatched Kind = "unmatched"

	// KindWaiver records a reserved-seat floor the round could not fill.
	KindWaiver Kind = "waiver"

	// KindRoundCommitted closes a round; its hash digests the whole chain
	// up to and including the round.
	KindRoundCommitted Kind = "round_committed"
)

func validKind(k Kind) bool {
	switch k {
	case KindAssignment, KindUnmatched, KindWaiver, KindRoundCommitted:
		return true
	default:
		return false
	}
}

// QuotaState is the reserved-seat accounting at the moment a decision was
// recorded. Floor and Ceiling come from the round's quota schedule; Filled
// counts seats of the category already consumed in the slot.
type QuotaState struct {
	Category model.Category `json:"category,omitempty"`
	Floor    int            `json:"floor,omitempty"`
	Ceiling  int            `json:"ceiling,omitempty"`
	Filled   int            `json:"filled,omitempty"`
}

// Record is one immutable ledger entry. Seq, RecordedAt, PrevHash and Hash
// are assigned on append; everything else is supplied by the committer.
// Hash covers the canonical JSON encoding of the record with Hash cleared,
// chained through PrevHash to the preceding record.
type Record struct {
	Seq         uint64           `json:"seq"`
	RoundID     string           `json:"round_id"`
	Kind        Kind             `json:"kind"`
	CandidateID string           `json:"candidate_id,omitempty"`
	SlotID      string           `json:"slot_id,omitempty"`
	PairScore   *model.PairScore `json:"pair_score,omitempty"`
	Phase       int              `json:"phase,omitempty"`
	Quota       *QuotaState      `json:"quota,omitempty"`
	Reason      string           `json:"reason,omitempty"`
	Detail      string           `json:"detail,omitempty"`
	Supersedes  uint64           `json:"supersedes,omitempty"`
	RecordedAt  time.Time        `json:"recorded_at"`
	PrevHash    string           `json:"prev_hash,omitempty"`
	Hash        string           `json:"hash,omitempty"`
}

// clone returns a copy that shares no mutable state with the original.
func (r Record) clone() Record {
	if r.PairScore != nil {
		ps := *r.PairScore
		ps.Breakdown = append([]model.FactorContribution(nil), r.PairScore.Breakdown...)
		r.PairScore = &ps
	}
	if r.Quota != nil {
		q := *r.Quota
		r.Quota = &q
	}
	return r
}

// hashRecord computes the chain hash for a record: SHA-256 over the record's
// canonical JSON form with the Hash field cleared.
func hashRecord(rec Record) (string, error) {
	rec.Hash = ""
	payload, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal record %d: %w", rec.Seq, err)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// VerifyRecords re-hashes an ordered record slice and checks every chain
// link. It works on any source of records, exported JSONL included, and
// returns a ChainError naming the first broken sequence.
func VerifyRecords(records []Record) error {
	prev := ""
	for i := range records {
		rec := records[i]
		if want := uint64(i + 1); rec.Seq != want {
			return &ChainError{Seq: rec.Seq, Reason: fmt.Sprintf("sequence %d where %d expected", rec.Seq, want)}
		}
		if rec.PrevHash != prev {
			return &ChainError{Seq: rec.Seq, Reason: "previous hash mismatch"}
		}
		sum, err := hashRecord(rec)
		if err != nil {
			return err
		}
		if sum != rec.Hash {
			return &ChainError{Seq: rec.Seq, Reason: "hash mismatch"}
		}
		prev = rec.Hash
	}
	return nil
}

// ReadAll decodes JSONL records produced by Export. It stops at the first
// malformed line and reports its position.
func ReadAll(r io.Reader) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode record at line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	return records, nil
}
