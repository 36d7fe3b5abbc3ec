// Package ledger tracks which activity events were already applied to a pet.
package ledger

import (
	"context"
	"sync"
	"time"
)

// Ledger records (event, user) pairs so each event is scored at most once.
type Ledger interface {
	// IsProcessed reports whether eventID was already applied for userID.
	IsProcessed(ctx context.Context, eventID, userID string) (bool, error)
	// MarkProcessed records eventID for userID. Marking twice is a no-op.
	MarkProcessed(ctx context.Context, eventID, userID string) error
}

// Record is a single processed-event marker.
type Record struct {
	EventID     string
	UserID      string
	ProcessedAt time.Time
}

type key struct {
	userID  string
	eventID string
}

// InMemory is a Ledger held in process memory.
//
// Markers are never evicted to make room: a marker only leaves through
// Unmark or Prune. In bounded mode (maxSize > 0) a full ledger refuses new
// markers with ErrFull. In unbounded mode (maxSize <= 0, the default) it
// grows until pruned.
type InMemory struct {
	mu      sync.Mutex
	entries map[key]struct{}
	byUser  map[string][]Record // per user, in marking order
	maxSize int
	now     func() time.Time
}

// NewInMemory creates an in-memory ledger.
func NewInMemory(opts ...Option) *InMemory {
	l := &InMemory{
		entries: make(map[key]struct{}),
		byUser:  make(map[string][]Record),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func validate(eventID, userID string) error {
	if eventID == "" || userID == "" {
		return ErrEmptyKey
	}
	return nil
}

// IsProcessed implements Ledger.
func (l *InMemory) IsProcessed(_ context.Context, eventID, userID string) (bool, error) {
	if err := validate(eventID, userID); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.entries[key{userID: userID, eventID: eventID}]
	return ok, nil
}

// MarkProcessed implements Ledger.
func (l *InMemory) MarkProcessed(_ context.Context, eventID, userID string) error {
	if err := validate(eventID, userID); err != nil {
		return err
	}
	k := key{userID: userID, eventID: eventID}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[k]; ok {
		return nil
	}
	if l.maxSize > 0 && len(l.entries) >= l.maxSize {
		return ErrFull
	}
	l.entries[k] = struct{}{}
	l.byUser[userID] = append(l.byUser[userID], Record{EventID: eventID, UserID: userID, ProcessedAt: l.now()})
	return nil
}

// Unmark removes a marker so the event becomes eligible again. Used to roll
// back marks made inside an aborted transaction.
func (l *InMemory) Unmark(_ context.Context, eventID, userID string) {
	k := key{userID: userID, eventID: eventID}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[k]; !ok {
		return
	}
	delete(l.entries, k)
	recs := l.byUser[userID]
	// rolled-back marks are the most recent ones
	for i := len(recs) - 1; i >= 0; i-- {
		if recs[i].EventID == eventID {
			l.byUser[userID] = append(recs[:i], recs[i+1:]...)
			break
		}
	}
}

// Prune drops userID's markers processed before cutoff and returns how many
// were removed. Callers must only pass a cutoff that no future feed read for
// userID can reach back past.
func (l *InMemory) Prune(_ context.Context, userID string, cutoff time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	recs := l.byUser[userID]
	removed, i := 0, 0
	for ; i < len(recs) && recs[i].ProcessedAt.Before(cutoff); i++ {
		delete(l.entries, key{userID: userID, eventID: recs[i].EventID})
		removed++
	}
	switch {
	case i == len(recs):
		delete(l.byUser, userID)
	case i > 0:
		l.byUser[userID] = append([]Record(nil), recs[i:]...)
	}
	return removed
}

// Size returns the number of markers held.
func (l *InMemory) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

var _ Ledger = (*InMemory)(nil)
