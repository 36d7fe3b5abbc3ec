package simulate

import (
	"math/rand/v2"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/petgotchi/petgotchi/internal/domain/model"
)

const day = 24 * time.Hour

// kindWeights sets the share of each event kind in generated activity.
var kindWeights = []struct {
	kind   model.EventKind
	weight float64
}{
	{model.EventPush, 0.55},
	{model.EventPullRequestOpened, 0.15},
	{model.EventPullRequestMerged, 0.10},
	{model.EventReviewSubmitted, 0.15},
	{model.EventUnknown, 0.05},
}

// plan generates the activity for the whole run, sorted by CreatedAt. The
// same seed always yields the same plan so difficulties can be compared.
func plan(cfg Config, start time.Time) []model.Event {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	ns := uuid.NewSHA1(uuid.NameSpaceOID, []byte("petsim"))

	var events []model.Event
	for d := 0; d < cfg.Days; d++ {
		if rng.Float64() >= cfg.ActiveDayRatio {
			continue
		}
		n := dailyCount(rng, cfg.EventsPerDay)
		dayStart := start.Add(time.Duration(d) * day)
		for i := 0; i < n; i++ {
			at := dayStart.Add(time.Duration(rng.Int64N(int64(day))))
			seq := len(events)
			events = append(events, model.Event{
				ID:        uuid.NewSHA1(ns, []byte(strconv.Itoa(seq))).String(),
				Kind:      pickKind(rng),
				CreatedAt: at,
				Repo:      "petsim/playground",
			})
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].CreatedAt.Before(events[j].CreatedAt) })
	return events
}

// dailyCount spreads mean across 50%..150% of itself, never below one.
func dailyCount(rng *rand.Rand, mean int) int {
	if mean <= 1 {
		return 1
	}
	n := mean/2 + rng.IntN(mean+1)
	return max(n, 1)
}

func pickKind(rng *rand.Rand) model.EventKind {
	r := rng.Float64()
	for _, kw := range kindWeights {
		if r < kw.weight {
			return kw.kind
		}
		r -= kw.weight
	}
	return model.EventPush
}
