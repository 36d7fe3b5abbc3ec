package simulate

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/petgotchi/petgotchi/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPlan(t *testing.T) {
	Convey("Given an activity plan configuration", t, func() {
		cfg := Config{Days: 14, EventsPerDay: 5, ActiveDayRatio: 0.7, Seed: 42}

		Convey("Then equal seeds produce equal plans", func() {
			a, b := plan(cfg, epoch), plan(cfg, epoch)
			So(len(a), ShouldBeGreaterThan, 0)
			So(a, ShouldResemble, b)
		})

		Convey("Then a different seed produces a different plan", func() {
			other := cfg
			other.Seed = 43
			So(plan(other, epoch), ShouldNotResemble, plan(cfg, epoch))
		})

		Convey("Then events are ordered, unique, and inside the run window", func() {
			events := plan(cfg, epoch)
			seen := make(map[string]bool, len(events))
			end := epoch.Add(14 * day)
			for i, e := range events {
				So(seen[e.ID], ShouldBeFalse)
				seen[e.ID] = true
				So(e.CreatedAt.Before(epoch), ShouldBeFalse)
				So(e.CreatedAt.Before(end), ShouldBeTrue)
				if i > 0 {
					So(e.CreatedAt.Before(events[i-1].CreatedAt), ShouldBeFalse)
				}
			}
		})

		Convey("Then a zero active ratio plans nothing", func() {
			cfg.ActiveDayRatio = 0
			So(plan(cfg, epoch), ShouldBeEmpty)
		})
	})
}

func TestRun_Validation(t *testing.T) {
	Convey("Given unusable settings", t, func() {
		ctx := context.Background()
		base := Config{Days: 3, SyncInterval: time.Hour, EventsPerDay: 2, ActiveDayRatio: 1}

		cases := []func(*Config){
			func(c *Config) { c.Days = 0 },
			func(c *Config) { c.SyncInterval = 0 },
			func(c *Config) { c.SyncInterval = 25 * time.Hour },
			func(c *Config) { c.EventsPerDay = -1 },
			func(c *Config) { c.ActiveDayRatio = 1.5 },
			func(c *Config) { c.Difficulties = []model.Difficulty{"nightmare"} },
		}
		for _, mutate := range cases {
			cfg := base
			mutate(&cfg)
			_, err := Run(ctx, cfg)
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		}
	})
}

func TestRun_Idle(t *testing.T) {
	Convey("Given five idle days for every difficulty", t, func() {
		report, err := Run(context.Background(), Config{
			Days:           5,
			SyncInterval:   6 * time.Hour,
			ActiveDayRatio: 0,
			Seed:           1,
		})
		So(err, ShouldBeNil)
		So(report.PlannedEvents, ShouldEqual, 0)
		So(report.Trajectories, ShouldHaveLength, 3)

		easy, ok := report.Trajectory(model.DifficultyEasy)
		So(ok, ShouldBeTrue)
		normal, _ := report.Trajectory(model.DifficultyNormal)
		hard, _ := report.Trajectory(model.DifficultyHard)

		Convey("Then every pet has one sample per day", func() {
			for _, tr := range report.Trajectories {
				So(tr.Samples, ShouldHaveLength, 5)
				So(tr.Samples[0].Day, ShouldEqual, 1)
				So(tr.Final().Day, ShouldEqual, 5)
			}
		})

		Convey("Then the eggs hatch on age alone without earning xp", func() {
			for _, tr := range report.Trajectories {
				So(tr.Samples[1].Stage, ShouldEqual, model.StageEgg)
				So(tr.Final().Stage, ShouldEqual, model.StageHatchling)
				So(tr.Evolutions, ShouldEqual, 1)
				So(tr.Final().XP, ShouldEqual, 0)
				So(tr.Final().Streak, ShouldEqual, 0)
			}
		})

		Convey("Then hunger only falls and harder tiers fall faster", func() {
			for _, tr := range report.Trajectories {
				for i := 1; i < len(tr.Samples); i++ {
					So(tr.Samples[i].Hunger, ShouldBeLessThan, tr.Samples[i-1].Hunger)
				}
			}
			So(easy.Final().Hunger, ShouldBeGreaterThan, normal.Final().Hunger)
			So(normal.Final().Hunger, ShouldBeGreaterThan, hard.Final().Hunger)
			So(hard.Final().Hunger, ShouldBeGreaterThanOrEqualTo, 0)
		})
	})
}

func TestRun_Active(t *testing.T) {
	Convey("Given ten busy days replayed on easy and hard", t, func() {
		report, err := Run(context.Background(), Config{
			Days:           10,
			SyncInterval:   2 * time.Hour,
			EventsPerDay:   6,
			ActiveDayRatio: 1,
			Difficulties:   []model.Difficulty{model.DifficultyEasy, model.DifficultyHard},
			Seed:           7,
		})
		So(err, ShouldBeNil)
		So(report.PlannedEvents, ShouldBeGreaterThanOrEqualTo, 30)
		So(report.Trajectories, ShouldHaveLength, 2)

		easy, _ := report.Trajectory(model.DifficultyEasy)
		hard, _ := report.Trajectory(model.DifficultyHard)
		_, ok := report.Trajectory(model.DifficultyNormal)
		So(ok, ShouldBeFalse)

		Convey("Then xp never decreases and easy outgrows hard", func() {
			for _, tr := range report.Trajectories {
				for i := 1; i < len(tr.Samples); i++ {
					So(tr.Samples[i].XP, ShouldBeGreaterThanOrEqualTo, tr.Samples[i-1].XP)
				}
			}
			So(easy.Final().XP, ShouldBeGreaterThan, hard.Final().XP)
		})

		Convey("Then every planned event is applied exactly once", func() {
			for _, tr := range report.Trajectories {
				total := 0
				for _, s := range tr.Samples {
					total += s.Events
				}
				So(total, ShouldEqual, report.PlannedEvents)
			}
		})

		Convey("Then daily activity keeps a streak and hatches the pets", func() {
			for _, tr := range report.Trajectories {
				So(tr.Final().Streak, ShouldBeGreaterThanOrEqualTo, 1)
				So(tr.Final().Stage, ShouldBeGreaterThanOrEqualTo, model.StageHatchling)
			}
		})
	})
}

func TestSaveReport(t *testing.T) {
	Convey("Given a report and a nested output path", t, func() {
		path := filepath.Join(t.TempDir(), "out", "report.json")
		report := Report{
			Days:          1,
			Seed:          9,
			PlannedEvents: 2,
			Trajectories: []Trajectory{{
				Difficulty: model.DifficultyNormal,
				Samples:    []Sample{{Day: 1, StageName: "egg", XP: 12.5}},
			}},
		}

		So(SaveReport(context.Background(), path, report), ShouldBeNil)

		Convey("Then the file holds the JSON report", func() {
			raw, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			var got map[string]any
			So(json.Unmarshal(raw, &got), ShouldBeNil)
			So(got["planned_events"], ShouldEqual, 2.0)
			So(got["seed"], ShouldEqual, 9.0)
			trajectories := got["trajectories"].([]any)
			So(trajectories, ShouldHaveLength, 1)
			So(trajectories[0].(map[string]any)["difficulty"], ShouldEqual, "normal")
		})
	})
}
