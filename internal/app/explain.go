package app

import (
	"context"
	"fmt"

	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/model"
)

// Explanation is the full story of one candidate/slot pair from the
// last committed round: the score with its per-factor breakdown, and
// whether the pair became an assignment.
type Explanation struct {
	RoundID     string                     `json:"round_id"`
	CandidateID string                     `json:"candidate_id"`
	SlotID      string                     `json:"slot_id"`
	Score       float64                    `json:"score"`
	Confidence  model.Confidence           `json:"confidence"`
	Degraded    bool                       `json:"degraded,omitempty"`
	Breakdown   []model.FactorContribution `json:"breakdown"`
	Assigned    bool                       `json:"assigned"`
	Phase       int                        `json:"phase,omitempty"`
	Reserved    bool                       `json:"reserved,omitempty"`
	Category    model.Category             `json:"category,omitempty"`
}

// Explain reconstructs why a pair scored what it did in the last
// committed round. Read-only; repeated calls return the same answer
// until the next round commits.
func (s *Service) Explain(ctx context.Context, candidateID, slotID string) (Explanation, error) {
	s.mu.RLock()
	alloc, book := s.lastAlloc, s.lastBook
	s.mu.RUnlock()

	if alloc == nil || book == nil {
		return Explanation{}, ErrNoCommittedRound
	}

	ps, err := book.Get(ctx, candidateID, slotID)
	if err != nil {
		return Explanation{}, fmt.Errorf("pair %s/%s: %w", candidateID, slotID, err)
	}

	ex := Explanation{
		RoundID:     alloc.RoundID,
		CandidateID: candidateID,
		SlotID:      slotID,
		Score:       ps.Score,
		Confidence:  ps.Confidence(),
		Degraded:    ps.Degraded,
		Breakdown:   ps.Breakdown,
	}

	if as, ok := alloc.AssignmentFor(candidateID); ok && as.SlotID == slotID {
		ex.Assigned = true
		ex.Phase = as.Phase
		ex.Reserved = as.Reserved
		ex.Category = as.Category
	}

	return ex, nil
}
