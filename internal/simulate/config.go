package simulate

import (
	"time"

	"github.com/petgotchi/petgotchi/internal/domain/model"
)

// Config holds configuration for a simulation run.
type Config struct {
	Days           int                // simulated days
	SyncInterval   time.Duration      // simulated time between sync passes
	EventsPerDay   int                // mean events on an active day
	ActiveDayRatio float64            // share of days with any activity, 0..1
	Difficulties   []model.Difficulty // one pet per difficulty, side by side
	Seed           uint64             // activity plan seed; equal seeds replay equal plans
	Start          time.Time          // simulated birth time; zero means a fixed epoch
	OutputFile     string             // optional JSON report path
	LogFile        string             // log file for run output
	Verbose        bool
}

// Sample is a pet's state at the end of one simulated day.
type Sample struct {
	Day       int         `json:"day"`
	Stage     model.Stage `json:"stage"`
	StageName string      `json:"stage_name"`
	Trait     model.Trait `json:"trait,omitempty"`
	XP        float64     `json:"xp"`
	Level     int         `json:"level"`
	Hunger    float64     `json:"hunger"`
	Happiness float64     `json:"happiness"`
	Health    float64     `json:"health"`
	Streak    int         `json:"streak"`
	Events    int         `json:"events"`
}

// Trajectory is the per-day history of one pet.
type Trajectory struct {
	Difficulty model.Difficulty `json:"difficulty"`
	Samples    []Sample         `json:"samples"`
	Evolutions int              `json:"evolutions"`
}

// Final returns the last sample, or the zero Sample for an empty run.
func (t Trajectory) Final() Sample {
	if len(t.Samples) == 0 {
		return Sample{}
	}
	return t.Samples[len(t.Samples)-1]
}

// Report is the outcome of a simulation run.
type Report struct {
	Days          int           `json:"days"`
	Seed          uint64        `json:"seed"`
	PlannedEvents int           `json:"planned_events"`
	Trajectories  []Trajectory  `json:"trajectories"`
	Duration      time.Duration `json:"duration"`
}

// Trajectory returns the trajectory for d, if it was simulated.
func (r Report) Trajectory(d model.Difficulty) (Trajectory, bool) {
	for _, t := range r.Trajectories {
		if t.Difficulty == d {
			return t, true
		}
	}
	return Trajectory{}, false
}
