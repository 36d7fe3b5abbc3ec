package traits_test

import (
	"testing"
	"time"

	"github.com/petgotchi/petgotchi/internal/domain/model"
	"github.com/petgotchi/petgotchi/internal/domain/traits"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAccumulate(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	Convey("Given a fresh tally", t, func() {
		tally := traits.NewTally("u1", now)

		Convey("Then it tracks for a week", func() {
			So(tally.TrackingUntil, ShouldEqual, now.Add(7*24*time.Hour))
			So(tally.Locked, ShouldBeFalse)
		})

		Convey("When deltas are accumulated", func() {
			tally = traits.Accumulate(tally, map[model.Affinity]float64{model.AffinitySolo: 1})
			tally = traits.Accumulate(tally, map[model.Affinity]float64{model.AffinitySolo: 1, model.AffinitySocial: 2})

			Convey("Then scores add up", func() {
				So(tally.Score(model.AffinitySolo), ShouldEqual, 2)
				So(tally.Score(model.AffinitySocial), ShouldEqual, 2)
			})
		})

		Convey("When a negative delta arrives", func() {
			tally = traits.Accumulate(tally, map[model.Affinity]float64{model.AffinitySolo: 3})
			tally = traits.Accumulate(tally, map[model.Affinity]float64{model.AffinitySolo: -5})

			Convey("Then the score does not decrease", func() {
				So(tally.Score(model.AffinitySolo), ShouldEqual, 3)
			})
		})

		Convey("When the input tally is reused", func() {
			next := traits.Accumulate(tally, map[model.Affinity]float64{model.AffinitySocial: 4})

			Convey("Then the original is not mutated", func() {
				So(tally.Score(model.AffinitySocial), ShouldEqual, 0)
				So(next.Score(model.AffinitySocial), ShouldEqual, 4)
			})
		})
	})

	Convey("Given a locked tally", t, func() {
		tally := traits.Lock(traits.Accumulate(traits.NewTally("u1", now),
			map[model.Affinity]float64{model.AffinitySocial: 2}))

		Convey("When accumulating", func() {
			after := traits.Accumulate(tally, map[model.Affinity]float64{model.AffinitySolo: 10})

			Convey("Then the delta is discarded", func() {
				So(after.Score(model.AffinitySolo), ShouldEqual, 0)
				So(after.Score(model.AffinitySocial), ShouldEqual, 2)
				So(after.Locked, ShouldBeTrue)
			})
		})
	})
}

func TestDecide(t *testing.T) {
	Convey("Given tallies", t, func() {
		mk := func(solo, social float64) *model.TraitTally {
			return &model.TraitTally{Scores: map[model.Affinity]float64{
				model.AffinitySolo:   solo,
				model.AffinitySocial: social,
			}}
		}

		Convey("Then the strictly highest affinity wins", func() {
			So(traits.Decide(mk(5, 2)), ShouldEqual, model.TraitLoneCoder)
			So(traits.Decide(mk(1, 4)), ShouldEqual, model.TraitCollaborator)
		})

		Convey("Then ties fall back to the default", func() {
			So(traits.Decide(mk(3, 3)), ShouldEqual, model.TraitLoneCoder)
			So(traits.Decide(mk(0, 0)), ShouldEqual, model.TraitLoneCoder)
		})

		Convey("Then a missing tally yields the default", func() {
			So(traits.Decide(nil), ShouldEqual, model.TraitLoneCoder)
			So(traits.Decide(&model.TraitTally{}), ShouldEqual, model.TraitLoneCoder)
		})

		Convey("Then the decision is stable across calls", func() {
			tally := mk(1, 6)
			first := traits.Decide(tally)
			locked := traits.Lock(*tally)
			So(traits.Decide(&locked), ShouldEqual, first)
		})
	})
}
