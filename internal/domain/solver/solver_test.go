package solver_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/model"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/solver"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/pkg/logger"
)

func init() {
	_ = logger.Init()
}

type scoreMap map[string]map[string]float64

func (m scoreMap) Score(candidateID, slotID string) (float64, bool) {
	v, ok := m[candidateID][slotID]
	return v, ok
}

// cand builds a candidate submitted at the given minute offset, so slice
// order matches submission order.
func cand(id string, minute int, cat model.Category) model.Candidate {
	return model.Candidate{
		ID:          id,
		SubmittedAt: time.Date(2025, 7, 1, 9, minute, 0, 0, time.UTC),
		Category:    cat,
	}
}

func slotIDs(assignments []model.Assignment) map[string]string {
	out := make(map[string]string, len(assignments))
	for _, a := range assignments {
		out[a.CandidateID] = a.SlotID
	}
	return out
}

func unmatchedReasons(unmatched []model.UnmatchedCandidate) map[string]string {
	out := make(map[string]string, len(unmatched))
	for _, u := range unmatched {
		out[u.CandidateID] = u.Reason
	}
	return out
}

func TestSolveOpenSeats(t *testing.T) {
	Convey("Given two candidates and two single-seat slots", t, func() {
		s := solver.New()
		in := solver.Input{
			Candidates: []model.Candidate{cand("c1", 0, ""), cand("c2", 1, "")},
			Slots:      []model.Slot{{ID: "s1", Capacity: 1}, {ID: "s2", Capacity: 1}},
			Scores: scoreMap{
				"c1": {"s1": 0.9, "s2": 0.5},
				"c2": {"s1": 0.8, "s2": 0.7},
			},
		}

		Convey("When solving", func() {
			res, err := s.Solve(context.Background(), in)

			Convey("Then total score is maximized, not first-come greed", func() {
				So(err, ShouldBeNil)
				So(res.Assignments, ShouldHaveLength, 2)

				got := slotIDs(res.Assignments)
				So(got["c1"], ShouldEqual, "s1")
				So(got["c2"], ShouldEqual, "s2")
				So(res.Assignments[0].Phase, ShouldEqual, model.PhaseOpen)
				So(res.Unmatched, ShouldBeEmpty)
			})
		})
	})

	Convey("Given one candidate scored against two slots", t, func() {
		s := solver.New()
		in := solver.Input{
			Candidates: []model.Candidate{cand("c1", 0, "")},
			Slots:      []model.Slot{{ID: "s1", Capacity: 1}, {ID: "s2", Capacity: 1}},
			Scores:     scoreMap{"c1": {"s1": 0.4, "s2": 0.9}},
		}

		Convey("When solving", func() {
			res, err := s.Solve(context.Background(), in)

			Convey("Then the candidate lands on the better slot", func() {
				So(err, ShouldBeNil)
				So(slotIDs(res.Assignments)["c1"], ShouldEqual, "s2")
			})
		})
	})

	Convey("Given more candidates than seats", t, func() {
		s := solver.New()
		in := solver.Input{
			Candidates: []model.Candidate{cand("c1", 0, ""), cand("c2", 1, ""), cand("c3", 2, "")},
			Slots:      []model.Slot{{ID: "s1", Capacity: 2}},
			Scores: scoreMap{
				"c1": {"s1": 0.9},
				"c2": {"s1": 0.8},
				"c3": {"s1": 0.7},
			},
		}

		Convey("When solving", func() {
			res, err := s.Solve(context.Background(), in)

			Convey("Then the lowest scorer is left out with a seat reason", func() {
				So(err, ShouldBeNil)
				So(res.Assignments, ShouldHaveLength, 2)

				reasons := unmatchedReasons(res.Unmatched)
				So(reasons["c3"], ShouldEqual, model.ReasonNoSeatAvailable)
			})
		})
	})
}

func TestSolveTieBreak(t *testing.T) {
	Convey("Given two equal-score candidates and one seat", t, func() {
		s := solver.New()

		// zz-cand submitted first despite sorting last by ID, so a win for
		// it proves submission time breaks the tie, not ID order.
		in := solver.Input{
			Candidates: []model.Candidate{cand("zz-cand", 0, ""), cand("aa-cand", 5, "")},
			Slots:      []model.Slot{{ID: "s1", Capacity: 1}},
			Scores: scoreMap{
				"zz-cand": {"s1": 0.8},
				"aa-cand": {"s1": 0.8},
			},
		}

		Convey("When solving", func() {
			res, err := s.Solve(context.Background(), in)

			Convey("Then the earlier submission keeps the seat", func() {
				So(err, ShouldBeNil)
				So(res.Assignments, ShouldHaveLength, 1)
				So(res.Assignments[0].CandidateID, ShouldEqual, "zz-cand")
				So(unmatchedReasons(res.Unmatched)["aa-cand"], ShouldEqual, model.ReasonNoSeatAvailable)
			})
		})
	})
}

func TestSolveUnmatchedReasons(t *testing.T) {
	Convey("Given a candidate with no scored pairs", t, func() {
		s := solver.New()
		in := solver.Input{
			Candidates: []model.Candidate{cand("c1", 0, ""), cand("c2", 1, "")},
			Slots:      []model.Slot{{ID: "s1", Capacity: 1}},
			Scores:     scoreMap{"c1": {"s1": 0.9}},
		}

		Convey("When solving", func() {
			res, err := s.Solve(context.Background(), in)

			Convey("Then the edge-less candidate is marked ineligible", func() {
				So(err, ShouldBeNil)
				So(unmatchedReasons(res.Unmatched)["c2"], ShouldEqual, model.ReasonIneligibleAllOpen)
			})
		})
	})

	Convey("Given no slots at all", t, func() {
		s := solver.New()
		in := solver.Input{
			Candidates: []model.Candidate{cand("c1", 0, "")},
			Scores:     scoreMap{},
		}

		Convey("When solving", func() {
			res, err := s.Solve(context.Background(), in)

			Convey("Then every candidate is unmatched as ineligible", func() {
				So(err, ShouldBeNil)
				So(res.Assignments, ShouldBeEmpty)
				So(unmatchedReasons(res.Unmatched)["c1"], ShouldEqual, model.ReasonIneligibleAllOpen)
			})
		})
	})

	Convey("Given no candidates", t, func() {
		s := solver.New()
		in := solver.Input{
			Slots:  []model.Slot{{ID: "s1", Capacity: 3}},
			Scores: scoreMap{},
		}

		Convey("When solving", func() {
			res, err := s.Solve(context.Background(), in)

			Convey("Then the result is empty", func() {
				So(err, ShouldBeNil)
				So(res.Assignments, ShouldBeEmpty)
				So(res.Unmatched, ShouldBeEmpty)
				So(res.Waivers, ShouldBeEmpty)
			})
		})
	})
}

func TestSolveReservedFloors(t *testing.T) {
	Convey("Given a slot with a reserved rural floor", t, func() {
		s := solver.New()
		in := solver.Input{
			Candidates: []model.Candidate{
				cand("u1", 0, "urban"),
				cand("u2", 1, "urban"),
				cand("r1", 2, "rural"),
			},
			Slots: []model.Slot{{ID: "s1", Capacity: 2}},
			Scores: scoreMap{
				"u1": {"s1": 0.9},
				"u2": {"s1": 0.8},
				"r1": {"s1": 0.4},
			},
			Schedule: model.QuotaSchedule{Bounds: map[string]map[model.Category]model.SeatBounds{
				"s1": {"rural": {Floor: 1, Ceiling: 2}},
			}},
		}

		Convey("When solving", func() {
			res, err := s.Solve(context.Background(), in)

			Convey("Then the rural candidate takes the reserved seat first", func() {
				So(err, ShouldBeNil)
				So(res.Assignments, ShouldHaveLength, 2)

				reserved, ok := findAssignment(res.Assignments, "r1")
				So(ok, ShouldBeTrue)
				So(reserved.Reserved, ShouldBeTrue)
				So(reserved.Phase, ShouldEqual, model.PhaseReserved)
				So(reserved.Category, ShouldEqual, model.Category("rural"))

				open, ok := findAssignment(res.Assignments, "u1")
				So(ok, ShouldBeTrue)
				So(open.Reserved, ShouldBeFalse)
				So(open.Phase, ShouldEqual, model.PhaseOpen)

				So(unmatchedReasons(res.Unmatched)["u2"], ShouldEqual, model.ReasonNoSeatAvailable)
			})
		})
	})

	Convey("Given a floor with no eligible candidates", t, func() {
		in := solver.Input{
			Candidates: []model.Candidate{cand("u1", 0, "urban"), cand("u2", 1, "urban")},
			Slots:      []model.Slot{{ID: "s1", Capacity: 2}},
			Scores: scoreMap{
				"u1": {"s1": 0.9},
				"u2": {"s1": 0.8},
			},
			Schedule: model.QuotaSchedule{Bounds: map[string]map[model.Category]model.SeatBounds{
				"s1": {"rural": {Floor: 1, Ceiling: 2}},
			}},
		}

		Convey("When the waive policy is on", func() {
			res, err := solver.New().Solve(context.Background(), in)

			Convey("Then the floor is waived and the seat returns to the open pool", func() {
				So(err, ShouldBeNil)
				So(res.Waivers, ShouldHaveLength, 1)
				So(res.Waivers[0].SlotID, ShouldEqual, "s1")
				So(res.Waivers[0].Category, ShouldEqual, model.Category("rural"))
				So(res.Waivers[0].Required, ShouldEqual, 1)
				So(res.Waivers[0].Filled, ShouldEqual, 0)
				So(res.Assignments, ShouldHaveLength, 2)
			})
		})

		Convey("When the waive policy is off", func() {
			strict := solver.New(solver.WithWaiveUnmetFloors(false))
			_, err := strict.Solve(context.Background(), in)

			Convey("Then the solve fails without partial output", func() {
				So(errors.Is(err, solver.ErrSolveFailed), ShouldBeTrue)

				var serr *solver.SolverError
				So(errors.As(err, &serr), ShouldBeTrue)
				So(serr.Phase, ShouldEqual, "reserved")
			})
		})
	})
}

func TestSolveCeilings(t *testing.T) {
	Convey("Given a ceiling of one urban seat on a two-seat slot", t, func() {
		s := solver.New()
		in := solver.Input{
			Candidates: []model.Candidate{
				cand("u1", 0, "urban"),
				cand("u2", 1, "urban"),
				cand("u3", 2, "urban"),
				cand("r1", 3, "rural"),
			},
			Slots: []model.Slot{{ID: "s1", Capacity: 2}},
			Scores: scoreMap{
				"u1": {"s1": 0.9},
				"u2": {"s1": 0.8},
				"u3": {"s1": 0.7},
				"r1": {"s1": 0.5},
			},
			Schedule: model.QuotaSchedule{Bounds: map[string]map[model.Category]model.SeatBounds{
				"s1": {"urban": {Floor: 0, Ceiling: 1}},
			}},
		}

		Convey("When solving", func() {
			res, err := s.Solve(context.Background(), in)

			Convey("Then repair keeps the best urban and seats the rural", func() {
				So(err, ShouldBeNil)
				So(res.Assignments, ShouldHaveLength, 2)

				got := slotIDs(res.Assignments)
				So(got, ShouldContainKey, "u1")
				So(got, ShouldContainKey, "r1")
				So(res.RepairPasses, ShouldEqual, 2)

				reasons := unmatchedReasons(res.Unmatched)
				So(reasons["u2"], ShouldEqual, model.ReasonNoSeatAvailable)
				So(reasons["u3"], ShouldEqual, model.ReasonNoSeatAvailable)
			})

			Convey("Then solving again gives the identical result", func() {
				again, err2 := s.Solve(context.Background(), in)
				So(err2, ShouldBeNil)
				So(again, ShouldResemble, res)
			})
		})
	})

	Convey("Given equal-score candidates over a ceiling", t, func() {
		s := solver.New()
		in := solver.Input{
			Candidates: []model.Candidate{
				cand("u1", 0, "urban"),
				cand("u2", 1, "urban"),
				cand("r1", 2, "rural"),
			},
			Slots: []model.Slot{{ID: "s1", Capacity: 2}},
			Scores: scoreMap{
				"u1": {"s1": 0.8},
				"u2": {"s1": 0.8},
				"r1": {"s1": 0.5},
			},
			Schedule: model.QuotaSchedule{Bounds: map[string]map[model.Category]model.SeatBounds{
				"s1": {"urban": {Floor: 0, Ceiling: 1}},
			}},
		}

		Convey("When solving", func() {
			res, err := s.Solve(context.Background(), in)

			Convey("Then the later submission is the one dropped", func() {
				So(err, ShouldBeNil)

				got := slotIDs(res.Assignments)
				So(got, ShouldContainKey, "u1")
				So(got, ShouldContainKey, "r1")
				So(unmatchedReasons(res.Unmatched)["u2"], ShouldEqual, model.ReasonNoSeatAvailable)
			})
		})
	})

	Convey("Given a ceiling already met by reserved fills", t, func() {
		s := solver.New()
		in := solver.Input{
			Candidates: []model.Candidate{
				cand("u1", 0, "urban"),
				cand("u2", 1, "urban"),
				cand("r1", 2, "rural"),
			},
			Slots: []model.Slot{{ID: "s1", Capacity: 2}},
			Scores: scoreMap{
				"u1": {"s1": 0.9},
				"u2": {"s1": 0.8},
				"r1": {"s1": 0.3},
			},
			Schedule: model.QuotaSchedule{Bounds: map[string]map[model.Category]model.SeatBounds{
				"s1": {"urban": {Floor: 1, Ceiling: 1}},
			}},
		}

		Convey("When solving", func() {
			res, err := s.Solve(context.Background(), in)

			Convey("Then the open seat skips the higher-scoring urban", func() {
				So(err, ShouldBeNil)

				got := slotIDs(res.Assignments)
				So(got, ShouldContainKey, "u1")
				So(got, ShouldContainKey, "r1")
				So(unmatchedReasons(res.Unmatched)["u2"], ShouldEqual, model.ReasonNoSeatAvailable)
			})
		})
	})
}

func TestSolveCancellation(t *testing.T) {
	Convey("Given a cancelled context", t, func() {
		s := solver.New()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		in := solver.Input{
			Candidates: []model.Candidate{cand("c1", 0, "")},
			Slots:      []model.Slot{{ID: "s1", Capacity: 1}},
			Scores:     scoreMap{"c1": {"s1": 0.9}},
		}

		Convey("When solving", func() {
			_, err := s.Solve(ctx, in)

			Convey("Then the cancellation surfaces unchanged", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})

	Convey("Given no score source", t, func() {
		s := solver.New()

		Convey("When solving", func() {
			_, err := s.Solve(context.Background(), solver.Input{})

			Convey("Then the solve fails structurally", func() {
				So(errors.Is(err, solver.ErrSolveFailed), ShouldBeTrue)
			})
		})
	})
}

func findAssignment(assignments []model.Assignment, candidateID string) (model.Assignment, bool) {
	for _, a := range assignments {
		if a.CandidateID == candidateID {
			return a, true
		}
	}
	return model.Assignment{}, false
}
