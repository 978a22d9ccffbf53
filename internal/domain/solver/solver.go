// Package solver seats candidates in two phases over the quota schedule:
// reserved floors first, then open capacity with category ceilings held by a
// deterministic repair loop. All matching runs on fixed-point weights so
// equal inputs always solve to equal outputs.
package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/model"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/pkg/logger"
)

// ScoreSource exposes the round's pair scores. A false second return means
// the pair carries no edge, either ineligible or failed scoring.
type ScoreSource interface {
	Score(candidateID, slotID string) (float64, bool)
}

// Input is one fully scored round ready to solve. Candidates must already be
// in (SubmittedAt, ID) order; slots keep their declaration order.
type Input struct {
	Candidates []model.Candidate
	Slots      []model.Slot
	Scores     ScoreSource
	Schedule   model.QuotaSchedule
}

// Result is the solved round before commit.
type Result struct {
	Assignments  []model.Assignment
	Unmatched    []model.UnmatchedCandidate
	Waivers      []model.QuotaWaiver
	RepairPasses int
}

// Solver runs the two-phase assignment. Safe for reuse across rounds; holds
// no per-round state.
type Solver struct {
	waiveUnmetFloors bool
	log              logger.Logger
}

// New creates a Solver using provided options.
func New(opts ...Option) *Solver {
	s := &Solver{
		waiveUnmetFloors: true,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	if s.log == nil {
		s.log = logger.Named("solver")
	}
	return s
}

type solveState struct {
	in        Input
	weights   [][]int64
	hasEdge   []bool
	taken     []bool
	slotFills []int
	catFills  []map[model.Category]int
	result    Result
}

type proposal struct {
	cand   int
	slot   int
	weight int64
}

// Solve matches the round. It never returns a partial result: any error
// means no assignment stands.
func (s *Solver) Solve(ctx context.Context, in Input) (Result, error) {
	if in.Scores == nil {
		return Result{}, &SolverError{Phase: "input", Reason: "nil score source"}
	}

	st := &solveState{
		in:        in,
		taken:     make([]bool, len(in.Candidates)),
		slotFills: make([]int, len(in.Slots)),
		catFills:  make([]map[model.Category]int, len(in.Slots)),
	}
	st.weights, st.hasEdge = buildWeights(in.Candidates, in.Slots, in.Scores)
	for i := range st.catFills {
		st.catFills[i] = make(map[model.Category]int)
	}

	if err := s.reservedPhase(ctx, st); err != nil {
		return Result{}, err
	}
	if err := s.openPhase(ctx, st); err != nil {
		return Result{}, err
	}

	for i, c := range in.Candidates {
		if st.taken[i] {
			continue
		}
		reason := model.ReasonIneligibleAllOpen
		if st.hasEdge[i] {
			reason = model.ReasonNoSeatAvailable
		}
		st.result.Unmatched = append(st.result.Unmatched, model.UnmatchedCandidate{
			CandidateID: c.ID,
			Reason:      reason,
		})
	}

	s.log.Info(ctx, "solve complete",
		logger.Int("assigned", len(st.result.Assignments)),
		logger.Int("unmatched", len(st.result.Unmatched)),
		logger.Int("waivers", len(st.result.Waivers)),
		logger.Int("repair_passes", st.result.RepairPasses),
	)
	return st.result, nil
}

// reservedPhase fills category floors with maximum-weight matching over
// reserved seats, then audits every floor against its fills.
func (s *Solver) reservedPhase(ctx context.Context, st *solveState) error {
	seats, floored := reservedSeats(st.in.Slots, st.in.Schedule)
	if len(seats) > 0 {
		var rows []int
		var cats []model.Category
		for i, c := range st.in.Candidates {
			if _, ok := floored[c.Category]; ok {
				rows = append(rows, i)
				cats = append(cats, c.Category)
			}
		}

		prob := &problem{weights: st.weights, rowCand: rows, rowCat: cats, seats: seats}
		cols, err := prob.match(ctx)
		if err != nil {
			if errors.Is(err, errNoPath) {
				return &SolverError{Phase: "reserved", Reason: "matching stalled", Err: err}
			}
			return err
		}
		for local, col := range cols {
			if col < 0 || col >= len(seats) {
				continue
			}
			st.place(rows[local], seats[col].slot, model.PhaseReserved, seats[col].cat)
		}
	}

	for idx, slot := range st.in.Slots {
		byCat := st.in.Schedule.Bounds[slot.ID]
		for _, cat := range sortedCats(byCat) {
			floor := byCat[cat].Floor
			if floor == 0 {
				continue
			}
			filled := st.catFills[idx][cat]
			if filled >= floor {
				continue
			}
			if !s.waiveUnmetFloors {
				return &SolverError{
					Phase:  "reserved",
					Reason: fmt.Sprintf("slot %s category %s floor %d filled %d", slot.ID, cat, floor, filled),
				}
			}
			s.log.Warn(ctx, "reserved floor waived",
				logger.String("slot_id", slot.ID),
				logger.String("category", string(cat)),
				logger.Int("required", floor),
				logger.Int("filled", filled),
			)
			st.result.Waivers = append(st.result.Waivers, model.QuotaWaiver{
				SlotID:   slot.ID,
				Category: cat,
				Required: floor,
				Filled:   filled,
				Reason:   "insufficient eligible candidates",
			})
		}
	}
	return nil
}

// openPhase seats the remaining candidates on leftover capacity. Categories
// whose ceiling is already met lose their edges up front; the repair loop
// then drops and bans over-ceiling proposals until every ceiling holds.
func (s *Solver) openPhase(ctx context.Context, st *solveState) error {
	var seats []seat
	for idx, slot := range st.in.Slots {
		for k := st.slotFills[idx]; k < slot.Capacity; k++ {
			seats = append(seats, seat{slot: idx})
		}
	}

	var rows []int
	var cats []model.Category
	for i, c := range st.in.Candidates {
		if !st.taken[i] {
			rows = append(rows, i)
			cats = append(cats, c.Category)
		}
	}
	if len(rows) == 0 {
		return nil
	}

	weights := cloneWeights(st.weights)
	for idx, slot := range st.in.Slots {
		for cat, fills := range st.catFills[idx] {
			b, ok := st.in.Schedule.BoundsFor(slot.ID, cat)
			if !ok || fills < b.Ceiling {
				continue
			}
			for _, ci := range rows {
				if st.in.Candidates[ci].Category == cat {
					weights[ci][idx] = edgeForbidden
				}
			}
		}
	}

	for {
		prob := &problem{weights: weights, rowCand: rows, rowCat: cats, seats: seats}
		cols, err := prob.match(ctx)
		if err != nil {
			if errors.Is(err, errNoPath) {
				return &SolverError{Phase: "open", Reason: "matching stalled", Err: err}
			}
			return err
		}

		proposed := make([]proposal, 0, len(rows))
		for local, col := range cols {
			if col < 0 || col >= len(seats) {
				continue
			}
			ci := rows[local]
			slotIdx := seats[col].slot
			proposed = append(proposed, proposal{cand: ci, slot: slotIdx, weight: weights[ci][slotIdx]})
		}

		if banned := s.banOverCeiling(ctx, st, proposed, weights); banned > 0 {
			st.result.RepairPasses++
			continue
		}

		for _, pr := range proposed {
			st.place(pr.cand, pr.slot, model.PhaseOpen, model.CategoryNone)
		}
		return nil
	}
}

// banOverCeiling finds proposals that push a category past its ceiling,
// drops the lowest-score then latest-submitted among them, and forbids those
// edges. Returns the number of edges banned.
func (s *Solver) banOverCeiling(ctx context.Context, st *solveState, proposed []proposal, weights [][]int64) int {
	perSlot := make(map[int]map[model.Category][]proposal)
	for _, pr := range proposed {
		cat := st.in.Candidates[pr.cand].Category
		if cat == model.CategoryNone {
			continue
		}
		if perSlot[pr.slot] == nil {
			perSlot[pr.slot] = make(map[model.Category][]proposal)
		}
		perSlot[pr.slot][cat] = append(perSlot[pr.slot][cat], pr)
	}

	banned := 0
	for idx, slot := range st.in.Slots {
		byCat := perSlot[idx]
		for _, cat := range sortedCats(byCat) {
			b, ok := st.in.Schedule.BoundsFor(slot.ID, cat)
			if !ok {
				continue
			}
			over := st.catFills[idx][cat] + len(byCat[cat]) - b.Ceiling
			if over <= 0 {
				continue
			}
			drops := byCat[cat]
			sort.SliceStable(drops, func(i, j int) bool {
				if drops[i].weight != drops[j].weight {
					return drops[i].weight < drops[j].weight
				}
				return drops[i].cand > drops[j].cand
			})
			for _, pr := range drops[:over] {
				weights[pr.cand][pr.slot] = edgeForbidden
				banned++
				s.log.Debug(ctx, "ceiling repair banned edge",
					logger.String("candidate_id", st.in.Candidates[pr.cand].ID),
					logger.String("slot_id", slot.ID),
					logger.String("category", string(cat)),
				)
			}
		}
	}
	return banned
}

func (st *solveState) place(ci, slotIdx, phase int, seatCat model.Category) {
	cand := st.in.Candidates[ci]
	slot := st.in.Slots[slotIdx]
	score, _ := st.in.Scores.Score(cand.ID, slot.ID)

	a := model.Assignment{
		CandidateID: cand.ID,
		SlotID:      slot.ID,
		Score:       score,
		Phase:       phase,
	}
	if phase == model.PhaseReserved {
		a.Reserved = true
		a.Category = seatCat
	}
	st.result.Assignments = append(st.result.Assignments, a)
	st.taken[ci] = true
	st.slotFills[slotIdx]++
	st.catFills[slotIdx][cand.Category]++
}

// reservedSeats expands floors into category-restricted unit seats in slot
// declaration order, categories sorted within a slot.
func reservedSeats(slots []model.Slot, schedule model.QuotaSchedule) ([]seat, map[model.Category]struct{}) {
	var seats []seat
	floored := make(map[model.Category]struct{})
	for idx, slot := range slots {
		byCat := schedule.Bounds[slot.ID]
		for _, cat := range sortedCats(byCat) {
			for k := 0; k < byCat[cat].Floor; k++ {
				seats = append(seats, seat{slot: idx, cat: cat})
			}
			if byCat[cat].Floor > 0 {
				floored[cat] = struct{}{}
			}
		}
	}
	return seats, floored
}

func buildWeights(cands []model.Candidate, slots []model.Slot, scores ScoreSource) ([][]int64, []bool) {
	weights := make([][]int64, len(cands))
	hasEdge := make([]bool, len(cands))
	for i, c := range cands {
		row := make([]int64, len(slots))
		for j, sl := range slots {
			if sc, ok := scores.Score(c.ID, sl.ID); ok {
				row[j] = scaleWeight(sc)
				hasEdge[i] = true
			} else {
				row[j] = edgeForbidden
			}
		}
		weights[i] = row
	}
	return weights, hasEdge
}

func cloneWeights(in [][]int64) [][]int64 {
	out := make([][]int64, len(in))
	for i, row := range in {
		out[i] = make([]int64, len(row))
		copy(out[i], row)
	}
	return out
}

func scaleWeight(score float64) int64 {
	switch {
	case math.IsNaN(score) || score <= 0:
		return 0
	case score >= 1:
		return weightScale
	default:
		return int64(math.Round(score * float64(weightScale)))
	}
}

func sortedCats[V any](byCat map[model.Category]V) []model.Category {
	out := make([]model.Category, 0, len(byCat))
	for cat := range byCat {
		out = append(out, cat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
