package repository

import (
	"time"

	"github.com/petgotchi/petgotchi/internal/domain/ledger"
)

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithLedger replaces the in-memory ledger, e.g. to cap its size.
func WithLedger(l *ledger.InMemory) Option {
	return func(s *MemoryStore) {
		if l != nil {
			s.ledger = l
		}
	}
}

// WithLedgerHorizon prunes a user's ledger markers older than the new
// watermark minus horizon each time the watermark advances. horizon must be
// at least the feed's lookback, and the ledger must share the sync clock.
func WithLedgerHorizon(horizon time.Duration) Option {
	return func(s *MemoryStore) {
		if horizon >= 0 {
			s.horizon = &horizon
		}
	}
}
