// Package feed fetches remote coding activity for a user.
package feed

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/petgotchi/petgotchi/internal/domain/model"
)

// Feed lists a user's activity events.
type Feed interface {
	// FetchEventsSince returns events created after since. A zero since
	// returns everything the source exposes. credential may be empty.
	FetchEventsSince(ctx context.Context, username, credential string, since time.Time) ([]model.Event, error)
}

// Static is an in-memory Feed used by the simulator and tests.
type Static struct {
	mu     sync.Mutex
	events map[string][]model.Event
	errs   map[string]error
}

// NewStatic creates an empty static feed.
func NewStatic() *Static {
	return &Static{
		events: make(map[string][]model.Event),
		errs:   make(map[string]error),
	}
}

// Add appends events for username.
func (s *Static) Add(username string, events ...model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[username] = append(s.events[username], events...)
}

// FailWith makes every fetch for username return err. A nil err clears it.
func (s *Static) FailWith(username string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.errs, username)
		return
	}
	s.errs[username] = err
}

// FetchEventsSince implements Feed.
func (s *Static) FetchEventsSince(ctx context.Context, username, _ string, since time.Time) ([]model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs[username]; err != nil {
		return nil, err
	}
	var out []model.Event
	for _, e := range s.events[username] {
		if since.IsZero() || e.CreatedAt.After(since) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

var _ Feed = (*Static)(nil)
