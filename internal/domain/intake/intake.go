// Package intake validates and normalizes a raw batch before a round runs.
// It excludes invalid or duplicate entities without failing the round,
// normalizes features through the configured schema, and fixes the
// deterministic candidate processing order.
package intake

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/feature"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/model"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/pkg/logger"
)

// RawCandidate is one candidate row as supplied in a batch file.
type RawCandidate struct {
	ID          string            `json:"id"`
	SubmittedAt time.Time         `json:"submitted_at"`
	Category    string            `json:"category,omitempty"`
	Features    feature.Raw       `json:"features"`
	Constraints model.Constraints `json:"constraints,omitempty"`
}

// RawSlot is one internship opening row as supplied in a batch file.
type RawSlot struct {
	ID       string         `json:"id"`
	OrgID    string         `json:"org_id"`
	Capacity int            `json:"capacity"`
	Sector   string         `json:"sector"`
	Reserved map[string]int `json:"reserved,omitempty"`
	Features feature.Raw    `json:"features"`
}

// Batch is the full raw input of one allocation round.
type Batch struct {
	Candidates []RawCandidate `json:"candidates"`
	Slots      []RawSlot      `json:"slots"`
	Quotas     []model.Quota  `json:"quotas,omitempty"`
}

// ExcludedSlot flags a slot the round will not offer.
type ExcludedSlot struct {
	SlotID string `json:"slot_id"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// Result is the validated, normalized input handed to scoring and solving.
// Candidates are ordered by (SubmittedAt, ID); slots keep declaration order.
type Result struct {
	Candidates    []model.Candidate
	Slots         []model.Slot
	Excluded      []model.UnmatchedCandidate
	ExcludedSlots []ExcludedSlot
}

// Processor runs intake for one batch at a time. Safe for reuse across
// rounds; holds no per-batch state.
type Processor struct {
	normalizer *feature.Normalizer
	log        logger.Logger
}

// New creates a Processor using provided options.
func New(opts ...Option) *Processor {
	p := &Processor{
		normalizer: feature.New(),
	}

	// Apply all options
	for _, opt := range opts {
		opt(p)
	}

	if p.log == nil {
		p.log = logger.Named("intake")
	}
	return p
}

// Process validates the batch. Per-entity failures exclude the entity and
// flag it; only context cancellation fails the call.
func (p *Processor) Process(ctx context.Context, batch Batch) (Result, error) {
	var res Result

	seenCandidates := make(map[string]struct{}, len(batch.Candidates))
	for _, rc := range batch.Candidates {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("intake cancelled: %w", err)
		}

		if rc.ID == "" {
			res.Excluded = append(res.Excluded, model.UnmatchedCandidate{
				CandidateID: rc.ID,
				Reason:      model.ReasonInvalidFeatures,
				Detail:      "missing candidate id",
			})
			continue
		}
		if _, dup := seenCandidates[rc.ID]; dup {
			p.log.Warn(ctx, "duplicate candidate excluded", logger.String("candidate_id", rc.ID))
			res.Excluded = append(res.Excluded, model.UnmatchedCandidate{
				CandidateID: rc.ID,
				Reason:      model.ReasonDuplicateID,
				Detail:      "candidate id already present in batch",
			})
			continue
		}
		seenCandidates[rc.ID] = struct{}{}

		feats, err := p.normalizer.Normalize(ctx, rc.Features)
		if err != nil {
			p.log.Warn(ctx, "candidate failed normalization",
				logger.String("candidate_id", rc.ID),
				logger.Error(err),
			)
			res.Excluded = append(res.Excluded, model.UnmatchedCandidate{
				CandidateID: rc.ID,
				Reason:      model.ReasonInvalidFeatures,
				Detail:      err.Error(),
			})
			continue
		}

		res.Candidates = append(res.Candidates, model.Candidate{
			ID:          rc.ID,
			SubmittedAt: rc.SubmittedAt,
			Category:    canonicalCategory(rc.Category),
			Features:    feats,
			Constraints: canonicalConstraints(rc.Constraints),
		})
	}

	seenSlots := make(map[string]struct{}, len(batch.Slots))
	for _, rs := range batch.Slots {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("intake cancelled: %w", err)
		}

		if rs.ID == "" {
			res.ExcludedSlots = append(res.ExcludedSlots, ExcludedSlot{
				SlotID: rs.ID,
				Reason: model.ReasonInvalidFeatures,
				Detail: "missing slot id",
			})
			continue
		}
		if _, dup := seenSlots[rs.ID]; dup {
			p.log.Warn(ctx, "duplicate slot excluded", logger.String("slot_id", rs.ID))
			res.ExcludedSlots = append(res.ExcludedSlots, ExcludedSlot{
				SlotID: rs.ID,
				Reason: model.ReasonDuplicateID,
				Detail: "slot id already present in batch",
			})
			continue
		}
		seenSlots[rs.ID] = struct{}{}

		if rs.Capacity < 1 {
			res.ExcludedSlots = append(res.ExcludedSlots, ExcludedSlot{
				SlotID: rs.ID,
				Reason: model.ReasonInvalidFeatures,
				Detail: fmt.Sprintf("capacity %d, want >= 1", rs.Capacity),
			})
			continue
		}

		feats, err := p.normalizer.Normalize(ctx, rs.Features)
		if err != nil {
			p.log.Warn(ctx, "slot failed normalization",
				logger.String("slot_id", rs.ID),
				logger.Error(err),
			)
			res.ExcludedSlots = append(res.ExcludedSlots, ExcludedSlot{
				SlotID: rs.ID,
				Reason: model.ReasonInvalidFeatures,
				Detail: err.Error(),
			})
			continue
		}

		res.Slots = append(res.Slots, model.Slot{
			ID:       rs.ID,
			OrgID:    rs.OrgID,
			Capacity: rs.Capacity,
			Sector:   canonical(rs.Sector),
			Reserved: canonicalReserved(rs.Reserved),
			Features: feats,
		})
	}

	// Deterministic processing order: submission time, then ID.
	sort.SliceStable(res.Candidates, func(i, j int) bool {
		a, b := res.Candidates[i], res.Candidates[j]
		if !a.SubmittedAt.Equal(b.SubmittedAt) {
			return a.SubmittedAt.Before(b.SubmittedAt)
		}
		return a.ID < b.ID
	})

	p.log.Info(ctx, "intake complete",
		logger.Int("candidates", len(res.Candidates)),
		logger.Int("slots", len(res.Slots)),
		logger.Int("excluded_candidates", len(res.Excluded)),
		logger.Int("excluded_slots", len(res.ExcludedSlots)),
	)
	return res, nil
}

func canonical(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func canonicalCategory(s string) model.Category {
	return model.Category(canonical(s))
}

func canonicalConstraints(c model.Constraints) model.Constraints {
	out := model.Constraints{}
	for _, d := range c.Districts {
		if d = canonical(d); d != "" {
			out.Districts = append(out.Districts, d)
		}
	}
	for _, s := range c.Sectors {
		if s = canonical(s); s != "" {
			out.Sectors = append(out.Sectors, s)
		}
	}
	return out
}

func canonicalReserved(in map[string]int) map[model.Category]int {
	if len(in) == 0 {
		return nil
	}
	out := make(map[model.Category]int, len(in))
	for cat, n := range in {
		if n <= 0 {
			continue
		}
		out[canonicalCategory(cat)] += n
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
