package intake_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/feature"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/intake"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/model"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/pkg/logger"
)

func init() {
	_ = logger.Init()
}

func rawFeatures(axis int) feature.Raw {
	skills := make([]float64, 2)
	skills[axis] = 1
	return feature.Raw{
		SchemaVersion: 1,
		Skills:        skills,
		District:      "pune",
		Region:        "west",
	}
}

func newProcessor() *intake.Processor {
	return intake.New(intake.WithNormalizer(feature.New(
		feature.WithSkillDimension(2),
		feature.WithVocabulary([]string{"software", "data"}),
	)))
}

func TestIntakeProcess(t *testing.T) {
	Convey("Given an intake processor", t, func() {
		p := newProcessor()
		ctx := context.Background()
		base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

		Convey("When processing a clean batch", func() {
			batch := intake.Batch{
				Candidates: []intake.RawCandidate{
					{ID: "cand-b", SubmittedAt: base.Add(time.Hour), Category: "SC", Features: rawFeatures(0)},
					{ID: "cand-a", SubmittedAt: base, Features: rawFeatures(1)},
				},
				Slots: []intake.RawSlot{
					{ID: "slot-1", OrgID: "org-1", Capacity: 2, Sector: "Software", Features: rawFeatures(0)},
				},
			}

			res, err := p.Process(ctx, batch)

			Convey("Then all entities are accepted", func() {
				So(err, ShouldBeNil)
				So(res.Candidates, ShouldHaveLength, 2)
				So(res.Slots, ShouldHaveLength, 1)
				So(res.Excluded, ShouldBeEmpty)
				So(res.ExcludedSlots, ShouldBeEmpty)
			})

			Convey("Then candidates are ordered by submission time", func() {
				So(err, ShouldBeNil)
				So(res.Candidates[0].ID, ShouldEqual, "cand-a")
				So(res.Candidates[1].ID, ShouldEqual, "cand-b")
			})

			Convey("Then categories and sectors are canonicalized", func() {
				So(err, ShouldBeNil)
				So(res.Candidates[1].Category, ShouldEqual, model.Category("sc"))
				So(res.Slots[0].Sector, ShouldEqual, "software")
			})
		})

		Convey("When submission times tie", func() {
			batch := intake.Batch{
				Candidates: []intake.RawCandidate{
					{ID: "cand-z", SubmittedAt: base, Features: rawFeatures(0)},
					{ID: "cand-a", SubmittedAt: base, Features: rawFeatures(0)},
				},
			}

			res, err := p.Process(ctx, batch)

			Convey("Then IDs break the tie", func() {
				So(err, ShouldBeNil)
				So(res.Candidates[0].ID, ShouldEqual, "cand-a")
				So(res.Candidates[1].ID, ShouldEqual, "cand-z")
			})
		})

		Convey("When a candidate ID repeats", func() {
			batch := intake.Batch{
				Candidates: []intake.RawCandidate{
					{ID: "cand-1", SubmittedAt: base, Features: rawFeatures(0)},
					{ID: "cand-1", SubmittedAt: base.Add(time.Minute), Features: rawFeatures(1)},
				},
			}

			res, err := p.Process(ctx, batch)

			Convey("Then the first occurrence wins", func() {
				So(err, ShouldBeNil)
				So(res.Candidates, ShouldHaveLength, 1)
				So(res.Excluded, ShouldHaveLength, 1)
				So(res.Excluded[0].CandidateID, ShouldEqual, "cand-1")
				So(res.Excluded[0].Reason, ShouldEqual, model.ReasonDuplicateID)
			})
		})

		Convey("When a candidate has invalid features", func() {
			bad := rawFeatures(0)
			bad.Skills = []float64{0, 0} // all-zero vector
			batch := intake.Batch{
				Candidates: []intake.RawCandidate{
					{ID: "cand-bad", SubmittedAt: base, Features: bad},
					{ID: "cand-ok", SubmittedAt: base, Features: rawFeatures(0)},
				},
			}

			res, err := p.Process(ctx, batch)

			Convey("Then the candidate is excluded and the round continues", func() {
				So(err, ShouldBeNil)
				So(res.Candidates, ShouldHaveLength, 1)
				So(res.Candidates[0].ID, ShouldEqual, "cand-ok")
				So(res.Excluded, ShouldHaveLength, 1)
				So(res.Excluded[0].Reason, ShouldEqual, model.ReasonInvalidFeatures)
				So(res.Excluded[0].Detail, ShouldContainSubstring, "all-zero")
			})
		})

		Convey("When a candidate has no ID", func() {
			batch := intake.Batch{
				Candidates: []intake.RawCandidate{
					{SubmittedAt: base, Features: rawFeatures(0)},
				},
			}

			res, err := p.Process(ctx, batch)

			Convey("Then it is excluded as invalid", func() {
				So(err, ShouldBeNil)
				So(res.Candidates, ShouldBeEmpty)
				So(res.Excluded, ShouldHaveLength, 1)
				So(res.Excluded[0].Reason, ShouldEqual, model.ReasonInvalidFeatures)
			})
		})

		Convey("When a slot has zero capacity", func() {
			batch := intake.Batch{
				Slots: []intake.RawSlot{
					{ID: "slot-0", Capacity: 0, Features: rawFeatures(0)},
					{ID: "slot-1", Capacity: 1, Features: rawFeatures(0)},
				},
			}

			res, err := p.Process(ctx, batch)

			Convey("Then the slot is excluded with a detail", func() {
				So(err, ShouldBeNil)
				So(res.Slots, ShouldHaveLength, 1)
				So(res.ExcludedSlots, ShouldHaveLength, 1)
				So(res.ExcludedSlots[0].SlotID, ShouldEqual, "slot-0")
				So(res.ExcludedSlots[0].Detail, ShouldContainSubstring, "capacity")
			})
		})

		Convey("When a slot ID repeats", func() {
			batch := intake.Batch{
				Slots: []intake.RawSlot{
					{ID: "slot-1", Capacity: 1, Features: rawFeatures(0)},
					{ID: "slot-1", Capacity: 3, Features: rawFeatures(1)},
				},
			}

			res, err := p.Process(ctx, batch)

			Convey("Then the first declaration wins", func() {
				So(err, ShouldBeNil)
				So(res.Slots, ShouldHaveLength, 1)
				So(res.Slots[0].Capacity, ShouldEqual, 1)
				So(res.ExcludedSlots, ShouldHaveLength, 1)
				So(res.ExcludedSlots[0].Reason, ShouldEqual, model.ReasonDuplicateID)
			})
		})

		Convey("When reserved seat counts need cleanup", func() {
			batch := intake.Batch{
				Slots: []intake.RawSlot{
					{
						ID:       "slot-r",
						Capacity: 4,
						Reserved: map[string]int{"SC": 1, "st": 1, "obc": 0, "ews": -2},
						Features: rawFeatures(0),
					},
				},
			}

			res, err := p.Process(ctx, batch)

			Convey("Then categories lowercase and non-positive counts drop", func() {
				So(err, ShouldBeNil)
				So(res.Slots, ShouldHaveLength, 1)
				So(res.Slots[0].Reserved, ShouldResemble, map[model.Category]int{"sc": 1, "st": 1})
			})
		})

		Convey("When constraints carry stray whitespace and case", func() {
			batch := intake.Batch{
				Candidates: []intake.RawCandidate{
					{
						ID:          "cand-c",
						SubmittedAt: base,
						Features:    rawFeatures(0),
						Constraints: model.Constraints{
							Districts: []string{" Pune ", ""},
							Sectors:   []string{"SOFTWARE"},
						},
					},
				},
			}

			res, err := p.Process(ctx, batch)

			Convey("Then constraints are canonicalized and empties dropped", func() {
				So(err, ShouldBeNil)
				So(res.Candidates[0].Constraints.Districts, ShouldResemble, []string{"pune"})
				So(res.Candidates[0].Constraints.Sectors, ShouldResemble, []string{"software"})
			})
		})

		Convey("When the context is cancelled", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			batch := intake.Batch{
				Candidates: []intake.RawCandidate{
					{ID: "cand-1", SubmittedAt: base, Features: rawFeatures(0)},
				},
			}

			_, err := p.Process(cancelled, batch)

			Convey("Then processing fails", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the batch is empty", func() {
			res, err := p.Process(ctx, intake.Batch{})

			Convey("Then the result is empty and valid", func() {
				So(err, ShouldBeNil)
				So(res.Candidates, ShouldBeEmpty)
				So(res.Slots, ShouldBeEmpty)
			})
		})
	})
}
