package model

import "time"

// Trait is the personality a pet locks in when it becomes a juvenile.
type Trait string

const (
	TraitNone         Trait = ""
	TraitLoneCoder    Trait = "lone_coder"
	TraitCollaborator Trait = "collaborator"
	TraitCraftsman    Trait = "craftsman"
	TraitArchitect    Trait = "architect"
	TraitSprinter     Trait = "sprinter"
)

// DefaultTrait is assigned whenever no affinity wins outright.
const DefaultTrait = TraitLoneCoder

// Affinity is a dimension of the trait tally.
type Affinity string

const (
	AffinitySolo   Affinity = "solo"
	AffinitySocial Affinity = "social"
)

// Affinities lists every affinity in tie-break order.
var Affinities = []Affinity{AffinitySolo, AffinitySocial}

// AffinityTraits maps each affinity to the trait it produces.
var AffinityTraits = map[Affinity]Trait{
	AffinitySolo:   TraitLoneCoder,
	AffinitySocial: TraitCollaborator,
}

// TraitTally accumulates affinity scores during a pet's early life.
type TraitTally struct {
	UserID        string
	Scores        map[Affinity]float64
	TrackingUntil time.Time
	Locked        bool
}

// Score returns the tally's score for a, zero when absent.
func (t TraitTally) Score(a Affinity) float64 {
	return t.Scores[a]
}

// Clone returns a deep copy.
func (t TraitTally) Clone() TraitTally {
	out := t
	out.Scores = make(map[Affinity]float64, len(t.Scores))
	for k, v := range t.Scores {
		out.Scores[k] = v
	}
	return out
}
