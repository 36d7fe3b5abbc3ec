// Package traits accumulates affinity scores and decides a pet's trait.
package traits

import (
	"time"

	"github.com/petgotchi/petgotchi/internal/domain/model"
)

// TrackingWindow is how long a fresh tally keeps collecting before evolution
// is expected to lock it.
const TrackingWindow = 7 * 24 * time.Hour

// NewTally returns an empty, unlocked tally for userID.
func NewTally(userID string, now time.Time) model.TraitTally {
	return model.TraitTally{
		UserID:        userID,
		Scores:        make(map[model.Affinity]float64, len(model.Affinities)),
		TrackingUntil: now.Add(TrackingWindow),
	}
}

// Accumulate adds delta to t. A locked tally is returned unchanged and
// negative contributions are dropped so scores never decrease.
func Accumulate(t model.TraitTally, delta map[model.Affinity]float64) model.TraitTally {
	if t.Locked {
		return t
	}
	out := t.Clone()
	for a, v := range delta {
		if v > 0 {
			out.Scores[a] += v
		}
	}
	return out
}

// Decide returns the trait of the affinity with the strictly highest score.
// A missing tally, or a tie for the top score, yields model.DefaultTrait.
func Decide(t *model.TraitTally) model.Trait {
	if t == nil {
		return model.DefaultTrait
	}
	var (
		best   model.Affinity
		top    float64
		unique bool
	)
	for i, a := range model.Affinities {
		s := t.Score(a)
		switch {
		case i == 0 || s > top:
			best, top, unique = a, s, true
		case s == top:
			unique = false
		}
	}
	if !unique {
		return model.DefaultTrait
	}
	trait, ok := model.AffinityTraits[best]
	if !ok {
		return model.DefaultTrait
	}
	return trait
}

// Lock freezes t. Locking an already locked tally is a no-op.
func Lock(t model.TraitTally) model.TraitTally {
	t.Locked = true
	return t
}
