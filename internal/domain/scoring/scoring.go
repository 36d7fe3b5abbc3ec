// Package scoring turns activity events into stat deltas.
package scoring

import (
	"github.com/petgotchi/petgotchi/internal/domain/model"
)

// Rule is the pre-multiplier reward for a single event kind.
type Rule struct {
	Hunger    float64
	Happiness float64
	XP        float64
	Affinity  map[model.Affinity]float64
}

// DefaultPolicy is the reward table applied when no override is configured.
var DefaultPolicy = map[model.EventKind]Rule{
	model.EventPush: {
		Hunger: 15, Happiness: 5, XP: 10,
		Affinity: map[model.Affinity]float64{model.AffinitySolo: 1},
	},
	model.EventPullRequestOpened: {
		Happiness: 15, XP: 10,
	},
	model.EventPullRequestMerged: {
		Happiness: 30, XP: 25,
		Affinity: map[model.Affinity]float64{model.AffinitySocial: 2},
	},
	model.EventReviewSubmitted: {
		Happiness: 20, XP: 15,
		Affinity: map[model.Affinity]float64{model.AffinitySocial: 2},
	},
}

// DefaultXPMultipliers scale xp per difficulty tier.
var DefaultXPMultipliers = map[model.Difficulty]float64{
	model.DifficultyEasy:   1.2,
	model.DifficultyNormal: 1.0,
	model.DifficultyHard:   0.8,
}

// Delta is the summed effect of one or more events on a pet.
type Delta struct {
	Hunger    float64
	Happiness float64
	XP        float64
	Affinity  map[model.Affinity]float64
	Events    int // events folded into this delta
}

// Add returns the sum of d and o.
func (d Delta) Add(o Delta) Delta {
	out := Delta{
		Hunger:    d.Hunger + o.Hunger,
		Happiness: d.Happiness + o.Happiness,
		XP:        d.XP + o.XP,
		Events:    d.Events + o.Events,
		Affinity:  make(map[model.Affinity]float64, len(model.Affinities)),
	}
	for k, v := range d.Affinity {
		out.Affinity[k] += v
	}
	for k, v := range o.Affinity {
		out.Affinity[k] += v
	}
	return out
}

// Scorer computes the delta for a single event.
type Scorer interface {
	Score(e model.Event, d model.Difficulty) Delta
}

// Option applies a configuration option to the PolicyScorer.
type Option func(*PolicyScorer)

// WithPolicy replaces the reward table.
func WithPolicy(policy map[model.EventKind]Rule) Option {
	return func(s *PolicyScorer) {
		if len(policy) == 0 {
			return
		}
		s.policy = make(map[model.EventKind]Rule, len(policy))
		for k, v := range policy {
			s.policy[k] = v
		}
	}
}

// WithXPMultipliers overrides xp multipliers keyed by difficulty name.
// Negative entries are ignored.
func WithXPMultipliers(m map[string]float64) Option {
	return func(s *PolicyScorer) {
		for k, v := range m {
			if v >= 0 {
				s.xpMultipliers[model.Difficulty(k)] = v
			}
		}
	}
}

// PolicyScorer implements Scorer with a static reward table.
type PolicyScorer struct {
	policy        map[model.EventKind]Rule
	xpMultipliers map[model.Difficulty]float64
}

// NewPolicyScorer creates a scorer using DefaultPolicy unless overridden.
func NewPolicyScorer(opts ...Option) *PolicyScorer {
	s := &PolicyScorer{
		policy:        DefaultPolicy,
		xpMultipliers: make(map[model.Difficulty]float64, len(DefaultXPMultipliers)),
	}
	for k, v := range DefaultXPMultipliers {
		s.xpMultipliers[k] = v
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score returns the delta for e. Unknown kinds yield a zero delta that still
// counts as a scored event.
func (s *PolicyScorer) Score(e model.Event, d model.Difficulty) Delta {
	out := Delta{Events: 1, Affinity: make(map[model.Affinity]float64, len(model.Affinities))}
	rule, ok := s.policy[e.Kind]
	if !ok {
		return out
	}
	mult, ok := s.xpMultipliers[d]
	if !ok {
		mult = s.xpMultipliers[model.DifficultyNormal]
	}
	out.Hunger = rule.Hunger
	out.Happiness = rule.Happiness
	out.XP = rule.XP * mult
	for k, v := range rule.Affinity {
		out.Affinity[k] = v
	}
	return out
}

var _ Scorer = (*PolicyScorer)(nil)
