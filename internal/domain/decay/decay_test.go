package decay_test

import (
	"testing"
	"time"

	"github.com/petgotchi/petgotchi/internal/domain/decay"
	"github.com/petgotchi/petgotchi/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAmount(t *testing.T) {
	Convey("Given the default decay model", t, func() {
		Convey("When two hours pass on each tier", func() {
			Convey("Then decay scales with difficulty", func() {
				So(decay.Amount(2, model.DifficultyEasy), ShouldAlmostEqual, 0.4)
				So(decay.Amount(2, model.DifficultyNormal), ShouldAlmostEqual, 0.8)
				So(decay.Amount(2, model.DifficultyHard), ShouldAlmostEqual, 1.6)
			})
		})

		Convey("When no time passes", func() {
			So(decay.Amount(0, model.DifficultyHard), ShouldEqual, 0)
		})

		Convey("When the tier is unknown", func() {
			So(decay.Amount(10, model.Difficulty("bogus")), ShouldAlmostEqual, 4.0)
		})

		Convey("When a long absence is not clamped here", func() {
			So(decay.Amount(1000, model.DifficultyNormal), ShouldAlmostEqual, 400.0)
		})
	})

	Convey("Given a configured model", t, func() {
		m := decay.New(
			decay.WithMultipliers(map[string]float64{"hard": 3, "easy": -1}),
			decay.WithBaseRate(1),
		)

		Convey("Then overrides apply and invalid entries are ignored", func() {
			So(m.Amount(1, model.DifficultyHard), ShouldAlmostEqual, 3.0)
			So(m.Amount(1, model.DifficultyEasy), ShouldAlmostEqual, 0.5)
		})
	})
}

func TestHoursSince(t *testing.T) {
	Convey("Given two instants", t, func() {
		now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

		So(decay.HoursSince(now.Add(-90*time.Minute), now), ShouldAlmostEqual, 1.5)
		So(decay.HoursSince(now.Add(time.Hour), now), ShouldEqual, 0)
		So(decay.HoursSince(time.Time{}, now), ShouldEqual, 0)
	})
}
