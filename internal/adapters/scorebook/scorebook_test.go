package scorebook_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/adapters/scorebook"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/model"
)

func TestScorebook(t *testing.T) {
	Convey("Given an empty scorebook", t, func() {
		book := scorebook.New(scorebook.WithCandidateHint(16))
		ctx := context.Background()

		Convey("When storing a scored pair", func() {
			err := book.Put(ctx, model.PairScore{CandidateID: "cand-1", SlotID: "slot-1", Score: 0.8})

			Convey("Then the pair can be read back", func() {
				So(err, ShouldBeNil)

				ps, err := book.Get(ctx, "cand-1", "slot-1")
				So(err, ShouldBeNil)
				So(ps.Score, ShouldEqual, 0.8)

				score, ok := book.Score("cand-1", "slot-1")
				So(ok, ShouldBeTrue)
				So(score, ShouldEqual, 0.8)
				So(book.Len(), ShouldEqual, 1)
				So(book.ScoredFor("cand-1"), ShouldEqual, 1)
			})
		})

		Convey("When storing the same pair twice", func() {
			So(book.Put(ctx, model.PairScore{CandidateID: "cand-1", SlotID: "slot-1", Score: 0.8}), ShouldBeNil)
			err := book.Put(ctx, model.PairScore{CandidateID: "cand-1", SlotID: "slot-1", Score: 0.9})

			Convey("Then the duplicate is rejected and the original kept", func() {
				So(errors.Is(err, scorebook.ErrDuplicatePair), ShouldBeTrue)

				ps, getErr := book.Get(ctx, "cand-1", "slot-1")
				So(getErr, ShouldBeNil)
				So(ps.Score, ShouldEqual, 0.8)
			})
		})

		Convey("When storing a pair without identifiers", func() {
			err := book.Put(ctx, model.PairScore{Score: 0.5})

			Convey("Then the pair is rejected", func() {
				So(errors.Is(err, scorebook.ErrInvalidPair), ShouldBeTrue)
			})
		})

		Convey("When reading a pair that was never scored", func() {
			_, err := book.Get(ctx, "cand-x", "slot-x")

			Convey("Then ErrNotFound is returned", func() {
				So(errors.Is(err, scorebook.ErrNotFound), ShouldBeTrue)

				_, ok := book.Score("cand-x", "slot-x")
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When marking pairs failed", func() {
			book.MarkFailed(ctx, "cand-1", "slot-2", "factor panic")
			book.MarkFailed(ctx, "cand-2", "slot-1", "timeout")

			Convey("Then the failures are listed", func() {
				failed := book.Failed()
				So(failed, ShouldHaveLength, 2)
				So(failed[0].CandidateID, ShouldEqual, "cand-1")
				So(failed[0].Reason, ShouldEqual, "factor panic")
			})

			Convey("Then the returned slice is a copy", func() {
				failed := book.Failed()
				failed[0].Reason = "mutated"
				So(book.Failed()[0].Reason, ShouldEqual, "factor panic")
			})
		})

		Convey("When storing degraded scores", func() {
			So(book.Put(ctx, model.PairScore{CandidateID: "cand-1", SlotID: "slot-1", Score: 0.4, Degraded: true}), ShouldBeNil)
			So(book.Put(ctx, model.PairScore{CandidateID: "cand-1", SlotID: "slot-2", Score: 0.6}), ShouldBeNil)

			Convey("Then the degraded count tracks them", func() {
				So(book.DegradedCount(), ShouldEqual, 1)
			})
		})

		Convey("When many workers write concurrently", func() {
			const workers = 8
			const perWorker = 50

			var wg sync.WaitGroup
			wg.Add(workers)
			for w := 0; w < workers; w++ {
				go func(w int) {
					defer wg.Done()
					for i := 0; i < perWorker; i++ {
						_ = book.Put(ctx, model.PairScore{
							CandidateID: fmt.Sprintf("cand-%d", w),
							SlotID:      fmt.Sprintf("slot-%d", i),
							Score:       0.5,
						})
					}
				}(w)
			}
			wg.Wait()

			Convey("Then every pair is stored exactly once", func() {
				So(book.Len(), ShouldEqual, workers*perWorker)
			})
		})
	})
}
