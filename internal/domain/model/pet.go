package model

import (
	"math"
	"time"
)

// Stage is a pet's life stage. Stages only move forward.
type Stage int

const (
	StageEgg Stage = iota
	StageHatchling
	StageJuvenile
	StageAdult
	StageElder
	StageLegend
)

// MaxStage is terminal: no transition leaves it.
const MaxStage = StageLegend

var stageNames = [...]string{"egg", "hatchling", "juvenile", "adult", "elder", "legend"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// Difficulty is chosen at adoption and never changes.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyNormal Difficulty = "normal"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is one of the known tiers.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyNormal, DifficultyHard:
		return true
	}
	return false
}

// Vital bounds.
const (
	VitalMin = 0.0
	VitalMax = 100.0
)

// ClampVital bounds v to [VitalMin, VitalMax].
func ClampVital(v float64) float64 {
	return math.Max(VitalMin, math.Min(VitalMax, v))
}

// Pet is the persistent virtual pet owned by a user.
type Pet struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Name       string     `json:"name"`
	Stage      Stage      `json:"stage"`
	Trait      Trait      `json:"trait,omitempty"`
	Hunger     float64    `json:"hunger"`
	Happiness  float64    `json:"happiness"`
	Health     float64    `json:"health"`
	XP         float64    `json:"xp"`
	Difficulty Difficulty `json:"difficulty"`

	StreakCurrent  int    `json:"streak_current"`
	StreakLongest  int    `json:"streak_longest"`
	StreakLastDate string `json:"streak_last_date,omitempty"` // YYYY-MM-DD, UTC

	BornAt        time.Time  `json:"born_at"`
	HatchedAt     *time.Time `json:"hatched_at,omitempty"`
	TraitLockedAt *time.Time `json:"trait_locked_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Level derives a display level from accumulated xp.
func (p Pet) Level() int {
	if p.XP <= 0 {
		return 0
	}
	return int(math.Floor(math.Sqrt(p.XP / 10)))
}

// PetUpdate is a partial update; nil fields are left untouched.
type PetUpdate struct {
	Stage          *Stage
	Trait          *Trait
	Hunger         *float64
	Happiness      *float64
	Health         *float64
	XP             *float64
	StreakCurrent  *int
	StreakLongest  *int
	StreakLastDate *string
	HatchedAt      *time.Time
	TraitLockedAt  *time.Time
}

// Apply returns p with u's non-nil fields copied over.
func (u PetUpdate) Apply(p Pet) Pet {
	if u.Stage != nil {
		p.Stage = *u.Stage
	}
	if u.Trait != nil {
		p.Trait = *u.Trait
	}
	if u.Hunger != nil {
		p.Hunger = *u.Hunger
	}
	if u.Happiness != nil {
		p.Happiness = *u.Happiness
	}
	if u.Health != nil {
		p.Health = *u.Health
	}
	if u.XP != nil {
		p.XP = *u.XP
	}
	if u.StreakCurrent != nil {
		p.StreakCurrent = *u.StreakCurrent
	}
	if u.StreakLongest != nil {
		p.StreakLongest = *u.StreakLongest
	}
	if u.StreakLastDate != nil {
		p.StreakLastDate = *u.StreakLastDate
	}
	if u.HatchedAt != nil {
		t := *u.HatchedAt
		p.HatchedAt = &t
	}
	if u.TraitLockedAt != nil {
		t := *u.TraitLockedAt
		p.TraitLockedAt = &t
	}
	return p
}

// HallOfFameEntry is an immutable snapshot of a retired pet.
type HallOfFameEntry struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	PetID         string     `json:"pet_id"`
	Name          string     `json:"name"`
	Stage         Stage      `json:"stage"`
	Trait         Trait      `json:"trait"`
	Difficulty    Difficulty `json:"difficulty"`
	XP            float64    `json:"xp"`
	StreakLongest int        `json:"streak_longest"`
	BornAt        time.Time  `json:"born_at"`
	RetiredAt     time.Time  `json:"retired_at"`
}
