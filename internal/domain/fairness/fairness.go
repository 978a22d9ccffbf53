// Package fairness turns reservation policy into per-slot seat bounds,
// previews how quota-blind greedy allocation would treat those bounds, and
// reports post-solve placement disparity across protected categories.
package fairness

import (
	"context"
	"math"
	"sort"

	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/model"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/pkg/logger"
)

// Disparity scopes.
const (
	ScopeAggregate = "aggregate"
	ScopePerSlot   = "per_slot"
)

// Preview finding kinds.
const (
	FindingFloorUnmet      = "floor_unmet"
	FindingCeilingExceeded = "ceiling_exceeded"
)

// Entry is one scored candidate-slot edge fed to the greedy preview.
type Entry struct {
	CandidateID string
	SlotID      string
	Category    model.Category
	Score       float64
}

// PreviewFinding is one quota bound the greedy simulation would break.
type PreviewFinding struct {
	SlotID   string         `json:"slot_id"`
	Category model.Category `json:"category"`
	Kind     string         `json:"kind"`
	Want     int            `json:"want"`
	Got      int            `json:"got"`
}

// PreviewReport summarizes the quota-blind greedy simulation. Advisory only;
// the solver enforces the schedule regardless.
type PreviewReport struct {
	Assigned int              `json:"assigned"`
	Findings []PreviewFinding `json:"findings,omitempty"`
}

// CategoryRate is one category's placement rate next to the baseline it was
// compared against.
type CategoryRate struct {
	Category model.Category `json:"category"`
	Scope    string         `json:"scope"`
	Assigned int            `json:"assigned"`
	Total    int            `json:"total"`
	Rate     float64        `json:"rate"`
	Baseline float64        `json:"baseline"`
}

// DisparityReport is the post-solve placement parity check.
type DisparityReport struct {
	Scope      string                    `json:"scope"`
	Tolerance  float64                   `json:"tolerance"`
	Rates      []CategoryRate            `json:"rates,omitempty"`
	Violations []model.FairnessViolation `json:"violations,omitempty"`
}

// Monitor derives quota schedules and disparity reports. Safe for reuse
// across rounds; holds no per-round state.
type Monitor struct {
	defaultMaxFraction float64
	waiveInfeasible    bool
	tolerance          float64
	scope              string
	log                logger.Logger
}

// New creates a Monitor using provided options.
func New(opts ...Option) *Monitor {
	m := &Monitor{
		defaultMaxFraction: 1.0,
		tolerance:          0.1,
		scope:              ScopeAggregate,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	if m.log == nil {
		m.log = logger.Named("fairness")
	}
	return m
}

// Schedule fixes the seat bounds each slot must honor. Explicit per-slot
// Reserved counts win over quota-derived floors. A slot whose floors sum past
// its capacity fails the call, or has its floors zeroed and waived when the
// waive-infeasible policy is on.
func (m *Monitor) Schedule(ctx context.Context, slots []model.Slot, quotas []model.Quota) (model.QuotaSchedule, error) {
	schedule := model.QuotaSchedule{
		Bounds: make(map[string]map[model.Category]model.SeatBounds, len(slots)),
	}

	for _, slot := range slots {
		bounds := make(map[model.Category]model.SeatBounds)

		for _, q := range quotas {
			if q.Category == model.CategoryNone {
				continue
			}
			maxFrac := q.MaxFraction
			if maxFrac <= 0 {
				maxFrac = m.defaultMaxFraction
			}
			b := model.SeatBounds{
				Floor:   ceilSeats(q.MinFraction, slot.Capacity),
				Ceiling: floorSeats(maxFrac, slot.Capacity),
			}
			if b.Ceiling > slot.Capacity {
				b.Ceiling = slot.Capacity
			}
			bounds[q.Category] = b
		}

		for cat, n := range slot.Reserved {
			b, ok := bounds[cat]
			if !ok {
				b = model.SeatBounds{Ceiling: slot.Capacity}
			}
			b.Floor = n
			bounds[cat] = b
		}

		// A floor above the ceiling means the explicit reservation
		// outranks the fraction policy.
		floorTotal := 0
		for cat, b := range bounds {
			if b.Ceiling < b.Floor {
				b.Ceiling = b.Floor
				bounds[cat] = b
			}
			floorTotal += b.Floor
		}

		if floorTotal > slot.Capacity {
			over := flooredCategories(bounds)
			if !m.waiveInfeasible {
				return model.QuotaSchedule{}, &QuotaInfeasibleError{
					SlotID:     slot.ID,
					Capacity:   slot.Capacity,
					FloorTotal: floorTotal,
					Categories: over,
				}
			}
			m.log.Warn(ctx, "quota floors exceed capacity, waiving slot floors",
				logger.String("slot_id", slot.ID),
				logger.Int("floor_total", floorTotal),
				logger.Int("capacity", slot.Capacity),
			)
			for _, cat := range over {
				b := bounds[cat]
				schedule.Waived = append(schedule.Waived, model.QuotaWaiver{
					SlotID:   slot.ID,
					Category: cat,
					Required: b.Floor,
					Reason:   "reserved floors exceed slot capacity",
				})
				b.Floor = 0
				bounds[cat] = b
			}
		}

		if len(bounds) > 0 {
			schedule.Bounds[slot.ID] = bounds
		}
	}

	return schedule, nil
}

// PreviewGreedy simulates quota-blind allocation: edges taken in score order
// respecting only seat capacity. It reports every scheduled bound that
// simulation breaks. Ties keep input order, so callers feeding entries in
// candidate submission order preview the documented tie-break.
func (m *Monitor) PreviewGreedy(ctx context.Context, entries []Entry, slots []model.Slot, schedule model.QuotaSchedule) PreviewReport {
	ordered := make([]Entry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Score > ordered[j].Score
	})

	remaining := make(map[string]int, len(slots))
	for _, s := range slots {
		remaining[s.ID] = s.Capacity
	}

	taken := make(map[string]struct{}, len(ordered))
	counts := make(map[string]map[model.Category]int, len(slots))
	assigned := 0
	for _, e := range ordered {
		if _, done := taken[e.CandidateID]; done {
			continue
		}
		if remaining[e.SlotID] <= 0 {
			continue
		}
		taken[e.CandidateID] = struct{}{}
		remaining[e.SlotID]--
		assigned++
		if counts[e.SlotID] == nil {
			counts[e.SlotID] = make(map[model.Category]int)
		}
		counts[e.SlotID][e.Category]++
	}

	report := PreviewReport{Assigned: assigned}
	for _, slot := range slots {
		byCat := schedule.Bounds[slot.ID]
		for _, cat := range sortedCategories(byCat) {
			b := byCat[cat]
			got := counts[slot.ID][cat]
			if got < b.Floor {
				report.Findings = append(report.Findings, PreviewFinding{
					SlotID:   slot.ID,
					Category: cat,
					Kind:     FindingFloorUnmet,
					Want:     b.Floor,
					Got:      got,
				})
			}
			if got > b.Ceiling {
				report.Findings = append(report.Findings, PreviewFinding{
					SlotID:   slot.ID,
					Category: cat,
					Kind:     FindingCeilingExceeded,
					Want:     b.Ceiling,
					Got:      got,
				})
			}
		}
	}

	for _, f := range report.Findings {
		m.log.Info(ctx, "greedy preview would break quota",
			logger.String("slot_id", f.SlotID),
			logger.String("category", string(f.Category)),
			logger.String("kind", f.Kind),
			logger.Int("want", f.Want),
			logger.Int("got", f.Got),
		)
	}
	return report
}

// Disparity compares each declared category's placement rate against the
// population average. Deviations past the tolerance become Violations;
// the report never fails a round.
func (m *Monitor) Disparity(ctx context.Context, alloc model.Allocation, candidates []model.Candidate) DisparityReport {
	report := DisparityReport{Scope: m.scope, Tolerance: m.tolerance}
	if len(candidates) == 0 {
		return report
	}

	categoryOf := make(map[string]model.Category, len(candidates))
	totals := make(map[model.Category]int)
	for _, c := range candidates {
		categoryOf[c.ID] = c.Category
		if c.Category != model.CategoryNone {
			totals[c.Category]++
		}
	}

	switch m.scope {
	case ScopePerSlot:
		bySlot := make(map[string]map[model.Category]int)
		slotAssigned := make(map[string]int)
		for _, as := range alloc.Assignments {
			slotAssigned[as.SlotID]++
			cat := categoryOf[as.CandidateID]
			if cat == model.CategoryNone {
				continue
			}
			if bySlot[as.SlotID] == nil {
				bySlot[as.SlotID] = make(map[model.Category]int)
			}
			bySlot[as.SlotID][cat]++
		}
		for _, slotID := range sortedKeys(slotAssigned) {
			baseline := float64(slotAssigned[slotID]) / float64(len(candidates))
			m.rateCategories(&report, slotID, baseline, bySlot[slotID], totals)
		}
	default:
		assignedBy := make(map[model.Category]int)
		for _, as := range alloc.Assignments {
			if cat := categoryOf[as.CandidateID]; cat != model.CategoryNone {
				assignedBy[cat]++
			}
		}
		baseline := float64(len(alloc.Assignments)) / float64(len(candidates))
		m.rateCategories(&report, ScopeAggregate, baseline, assignedBy, totals)
	}

	for _, v := range report.Violations {
		m.log.Warn(ctx, "placement disparity past tolerance",
			logger.String("category", string(v.Category)),
			logger.String("scope", v.Scope),
			logger.Float64("rate", v.Rate),
			logger.Float64("baseline", v.Baseline),
		)
	}
	return report
}

func (m *Monitor) rateCategories(report *DisparityReport, scope string, baseline float64, assigned map[model.Category]int, totals map[model.Category]int) {
	for _, cat := range sortedCategories(totals) {
		rate := float64(assigned[cat]) / float64(totals[cat])
		report.Rates = append(report.Rates, CategoryRate{
			Category: cat,
			Scope:    scope,
			Assigned: assigned[cat],
			Total:    totals[cat],
			Rate:     rate,
			Baseline: baseline,
		})
		if math.Abs(rate-baseline) > m.tolerance {
			report.Violations = append(report.Violations, model.FairnessViolation{
				Category:  cat,
				Scope:     scope,
				Rate:      rate,
				Baseline:  baseline,
				Tolerance: m.tolerance,
			})
		}
	}
}

// fractionEpsilon absorbs float error in fraction-times-capacity products so
// 0.3 of 10 seats floors to 3, not to floor(2.9999999999999996).
const fractionEpsilon = 1e-9

func ceilSeats(frac float64, capacity int) int {
	return int(math.Ceil(frac*float64(capacity) - fractionEpsilon))
}

func floorSeats(frac float64, capacity int) int {
	return int(math.Floor(frac*float64(capacity) + fractionEpsilon))
}

func flooredCategories(bounds map[model.Category]model.SeatBounds) []model.Category {
	out := make([]model.Category, 0, len(bounds))
	for cat, b := range bounds {
		if b.Floor > 0 {
			out = append(out, cat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedCategories[V any](byCat map[model.Category]V) []model.Category {
	out := make([]model.Category, 0, len(byCat))
	for cat := range byCat {
		out = append(out, cat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
