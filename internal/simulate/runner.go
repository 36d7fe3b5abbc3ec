// Package simulate replays a synthetic activity plan through the pet engine
// with a simulated clock so growth and decay can be compared across
// difficulty tiers.
package simulate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/petgotchi/petgotchi/internal/adapters/feed"
	service "github.com/petgotchi/petgotchi/internal/app"
	"github.com/petgotchi/petgotchi/internal/domain/model"
	"github.com/petgotchi/petgotchi/pkg/logger"
)

const (
	directoryPermission = 0o755
	simUsername         = "petsim"
	simGitHubID         = 1
)

// epoch anchors runs that do not set Config.Start.
var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Run simulates one pet per configured difficulty over the same activity
// plan and returns their daily trajectories.
func Run(ctx context.Context, cfg Config) (Report, error) {
	if err := validate(&cfg); err != nil {
		return Report{}, err
	}
	started := time.Now()
	log := logger.Get().Named("simulate")

	start := cfg.Start
	if start.IsZero() {
		start = epoch
	}

	// Step 1: Generate the activity plan
	events := plan(cfg, start)
	log.Info(ctx, "activity plan generated",
		logger.Int("days", cfg.Days),
		logger.Int("events", len(events)),
		logger.Any("seed", cfg.Seed))

	// Step 2: Replay it for each difficulty side by side
	trajectories := make([]Trajectory, len(cfg.Difficulties))
	g, gctx := errgroup.WithContext(ctx)
	for i, d := range cfg.Difficulties {
		g.Go(func() error {
			t, err := simulateOne(gctx, cfg, d, start, events)
			if err != nil {
				return fmt.Errorf("simulate %s: %w", d, err)
			}
			trajectories[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	report := Report{
		Days:          cfg.Days,
		Seed:          cfg.Seed,
		PlannedEvents: len(events),
		Trajectories:  trajectories,
		Duration:      time.Since(started),
	}

	// Step 3: Save the report
	if cfg.OutputFile != "" {
		if err := SaveReport(ctx, cfg.OutputFile, report); err != nil {
			log.Warn(ctx, "failed to save report", logger.Error(err))
		}
	}

	displayReport(ctx, report, cfg.Verbose)
	return report, nil
}

func validate(cfg *Config) error {
	if cfg.Days <= 0 {
		return fmt.Errorf("%w: days must be positive", ErrInvalidConfig)
	}
	if cfg.SyncInterval <= 0 || cfg.SyncInterval > day {
		return fmt.Errorf("%w: sync interval must be within (0, 24h]", ErrInvalidConfig)
	}
	if cfg.EventsPerDay < 0 {
		return fmt.Errorf("%w: events per day must not be negative", ErrInvalidConfig)
	}
	if cfg.ActiveDayRatio < 0 || cfg.ActiveDayRatio > 1 {
		return fmt.Errorf("%w: active day ratio must be within [0, 1]", ErrInvalidConfig)
	}
	if len(cfg.Difficulties) == 0 {
		cfg.Difficulties = []model.Difficulty{model.DifficultyEasy, model.DifficultyNormal, model.DifficultyHard}
	}
	for _, d := range cfg.Difficulties {
		if !d.Valid() {
			return fmt.Errorf("%w: unknown difficulty %q", ErrInvalidConfig, d)
		}
	}
	return nil
}

// simulateOne drives a dedicated in-memory service through the plan.
func simulateOne(ctx context.Context, cfg Config, d model.Difficulty, start time.Time, events []model.Event) (Trajectory, error) {
	now := start
	src := feed.NewStatic()
	svc := service.New(
		service.WithFeed(src),
		service.WithClock(func() time.Time { return now }),
		service.WithLogger(logger.Get().Named("simulate."+string(d))),
	)

	user, err := svc.RegisterUser(ctx, simGitHubID, simUsername, "")
	if err != nil {
		return Trajectory{}, fmt.Errorf("register: %w", err)
	}
	pet, err := svc.Adopt(ctx, user.ID, "sim-"+string(d), d)
	if err != nil {
		return Trajectory{}, fmt.Errorf("adopt: %w", err)
	}

	traj := Trajectory{Difficulty: d, Samples: make([]Sample, 0, cfg.Days)}
	end := start.Add(time.Duration(cfg.Days) * day)
	next, dayEvents := 0, 0

	for t := start.Add(cfg.SyncInterval); !t.After(end); t = t.Add(cfg.SyncInterval) {
		if err := ctx.Err(); err != nil {
			return Trajectory{}, err
		}

		// Release everything that happened up to t.
		for next < len(events) && !events[next].CreatedAt.After(t) {
			src.Add(simUsername, events[next])
			next++
		}
		now = t

		res, err := svc.SyncUser(ctx, user.ID)
		if err != nil {
			return Trajectory{}, fmt.Errorf("sync at %s: %w", t.Format(time.RFC3339), err)
		}
		if res.Pet != nil {
			pet = *res.Pet
		}
		if res.Evolved {
			traj.Evolutions++
		}
		dayEvents += res.Events

		if t.Sub(start) >= time.Duration(len(traj.Samples)+1)*day {
			traj.Samples = append(traj.Samples, sample(len(traj.Samples)+1, pet, dayEvents))
			dayEvents = 0
		}
	}
	return traj, nil
}

func sample(dayNum int, p model.Pet, events int) Sample {
	return Sample{
		Day:       dayNum,
		Stage:     p.Stage,
		StageName: p.Stage.String(),
		Trait:     p.Trait,
		XP:        p.XP,
		Level:     p.Level(),
		Hunger:    p.Hunger,
		Happiness: p.Happiness,
		Health:    p.Health,
		Streak:    p.StreakCurrent,
		Events:    events,
	}
}

// SaveReport writes report as indented JSON to filename.
func SaveReport(ctx context.Context, filename string, report Report) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	logger.Get().Info(ctx, "report saved to file", logger.String("filename", filename))
	return nil
}

// displayReport logs the final state of every pet, and every day when verbose.
func displayReport(ctx context.Context, r Report, verbose bool) {
	log := logger.Get().Named("simulate")
	for _, t := range r.Trajectories {
		if verbose {
			for _, s := range t.Samples {
				log.Info(ctx, "day",
					logger.String("difficulty", string(t.Difficulty)),
					logger.Int("day", s.Day),
					logger.String("stage", s.StageName),
					logger.Float64("xp", s.XP),
					logger.Float64("hunger", s.Hunger),
					logger.Float64("happiness", s.Happiness),
					logger.Float64("health", s.Health),
					logger.Int("events", s.Events))
			}
		}
		f := t.Final()
		log.Info(ctx, "final state",
			logger.String("difficulty", string(t.Difficulty)),
			logger.String("stage", f.StageName),
			logger.String("trait", string(f.Trait)),
			logger.Float64("xp", f.XP),
			logger.Int("level", f.Level),
			logger.Float64("hunger", f.Hunger),
			logger.Float64("happiness", f.Happiness),
			logger.Float64("health", f.Health),
			logger.Int("streak", f.Streak),
			logger.Int("evolutions", t.Evolutions))
	}
	log.Info(ctx, "simulation finished",
		logger.Int("plannedEvents", r.PlannedEvents),
		logger.String("duration", r.Duration.String()))
}
