package service

import (
	"time"

	"github.com/petgotchi/petgotchi/internal/adapters/feed"
	"github.com/petgotchi/petgotchi/internal/adapters/repository"
	"github.com/petgotchi/petgotchi/internal/domain/decay"
	"github.com/petgotchi/petgotchi/internal/domain/scoring"
	"github.com/petgotchi/petgotchi/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence backend.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithFeed sets the activity source.
func WithFeed(f feed.Feed) Option {
	return func(s *Service) {
		if f != nil {
			s.feed = f
		}
	}
}

// WithScorer sets the event scorer.
func WithScorer(sc scoring.Scorer) Option {
	return func(s *Service) {
		if sc != nil {
			s.scorer = sc
		}
	}
}

// WithDecay sets the decay model.
func WithDecay(m *decay.Model) Option {
	return func(s *Service) {
		if m != nil {
			s.decay = m
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.clock = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithWorkerCount sets how many users are synced in parallel.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithBatchSize caps the users selected per batch.
func WithBatchSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// WithStaleAfter sets how old a watermark must be before a user is due.
func WithStaleAfter(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.staleAfter = d
		}
	}
}

// WithTokenKey sets the key used to encrypt stored feed credentials.
func WithTokenKey(key []byte) Option {
	return func(s *Service) {
		s.tokenKey = key
	}
}
