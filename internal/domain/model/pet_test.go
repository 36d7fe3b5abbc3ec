package model_test

import (
	"testing"
	"time"

	model "github.com/petgotchi/petgotchi/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestPetLevel(t *testing.T) {
	convey.Convey("Given pets with varying xp", t, func() {
		convey.So(model.Pet{XP: 0}.Level(), convey.ShouldEqual, 0)
		convey.So(model.Pet{XP: 9}.Level(), convey.ShouldEqual, 0)
		convey.So(model.Pet{XP: 10}.Level(), convey.ShouldEqual, 1)
		convey.So(model.Pet{XP: 40}.Level(), convey.ShouldEqual, 2)
		convey.So(model.Pet{XP: 1000}.Level(), convey.ShouldEqual, 10)
	})
}

func TestClampVital(t *testing.T) {
	convey.Convey("Given values outside the vital range", t, func() {
		convey.So(model.ClampVital(-3), convey.ShouldEqual, 0)
		convey.So(model.ClampVital(130), convey.ShouldEqual, 100)
		convey.So(model.ClampVital(42.5), convey.ShouldEqual, 42.5)
	})
}

func TestPetUpdateApply(t *testing.T) {
	convey.Convey("Given a pet and a partial update", t, func() {
		born := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		pet := model.Pet{ID: "p1", Stage: model.StageEgg, Hunger: 50, XP: 10, BornAt: born}
		stage := model.StageHatchling
		hatched := born.Add(72 * time.Hour)
		hunger := 80.0

		updated := model.PetUpdate{Stage: &stage, Hunger: &hunger, HatchedAt: &hatched}.Apply(pet)

		convey.Convey("Then only the set fields change", func() {
			convey.So(updated.Stage, convey.ShouldEqual, model.StageHatchling)
			convey.So(updated.Hunger, convey.ShouldEqual, 80)
			convey.So(updated.XP, convey.ShouldEqual, 10)
			convey.So(updated.BornAt, convey.ShouldEqual, born)
			convey.So(*updated.HatchedAt, convey.ShouldEqual, hatched)
		})

		convey.Convey("Then the original is untouched", func() {
			convey.So(pet.Stage, convey.ShouldEqual, model.StageEgg)
			convey.So(pet.HatchedAt, convey.ShouldBeNil)
		})
	})
}

func TestStageAndDifficulty(t *testing.T) {
	convey.Convey("Given stages and difficulties", t, func() {
		convey.So(model.StageJuvenile.String(), convey.ShouldEqual, "juvenile")
		convey.So(model.Stage(9).String(), convey.ShouldEqual, "unknown")
		convey.So(model.DifficultyHard.Valid(), convey.ShouldBeTrue)
		convey.So(model.Difficulty("nightmare").Valid(), convey.ShouldBeFalse)
	})
}

func TestTraitTallyClone(t *testing.T) {
	convey.Convey("Given a tally", t, func() {
		tally := model.TraitTally{UserID: "u1", Scores: map[model.Affinity]float64{model.AffinitySolo: 2}}
		clone := tally.Clone()
		clone.Scores[model.AffinitySolo] = 9

		convey.So(tally.Score(model.AffinitySolo), convey.ShouldEqual, 2)
		convey.So(tally.Score(model.AffinitySocial), convey.ShouldEqual, 0)
	})
}
