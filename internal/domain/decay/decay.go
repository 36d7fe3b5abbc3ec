// Package decay computes how much the vitals of a pet wear down over time.
package decay

import (
	"time"

	"github.com/petgotchi/petgotchi/internal/domain/model"
)

// BaseRate is the vital loss in points per hour before the difficulty multiplier.
const BaseRate = 0.4

// DefaultMultipliers scale BaseRate per difficulty tier.
var DefaultMultipliers = map[model.Difficulty]float64{
	model.DifficultyEasy:   0.5,
	model.DifficultyNormal: 1.0,
	model.DifficultyHard:   2.0,
}

// Option configures a Model.
type Option func(*Model)

// WithMultipliers overrides the per-difficulty multipliers. Non-positive
// entries are ignored.
func WithMultipliers(m map[string]float64) Option {
	return func(d *Model) {
		for k, v := range m {
			if v > 0 {
				d.multipliers[model.Difficulty(k)] = v
			}
		}
	}
}

// WithBaseRate overrides BaseRate.
func WithBaseRate(rate float64) Option {
	return func(d *Model) {
		if rate >= 0 {
			d.baseRate = rate
		}
	}
}

// Model is a configured decay function. It holds no mutable state.
type Model struct {
	baseRate    float64
	multipliers map[model.Difficulty]float64
}

// New returns a Model seeded with the default rate and multipliers.
func New(opts ...Option) *Model {
	m := &Model{
		baseRate:    BaseRate,
		multipliers: make(map[model.Difficulty]float64, len(DefaultMultipliers)),
	}
	for k, v := range DefaultMultipliers {
		m.multipliers[k] = v
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Amount returns the decay for hours elapsed at difficulty d. The result is
// not clamped; hours must be non-negative. Unknown tiers decay at the normal rate.
func (m *Model) Amount(hours float64, d model.Difficulty) float64 {
	mult, ok := m.multipliers[d]
	if !ok {
		mult = m.multipliers[model.DifficultyNormal]
	}
	return hours * m.baseRate * mult
}

var defaultModel = New()

// Amount applies the default model.
func Amount(hours float64, d model.Difficulty) float64 {
	return defaultModel.Amount(hours, d)
}

// HoursSince returns the hours between from and to, floored at zero.
func HoursSince(from, to time.Time) float64 {
	if from.IsZero() || !to.After(from) {
		return 0
	}
	return to.Sub(from).Hours()
}
