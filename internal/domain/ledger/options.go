package ledger

import "time"

// Option applies a configuration option to the InMemory ledger.
type Option func(*InMemory)

// WithMaxSize caps the number of markers kept. maxSize <= 0 means unbounded.
func WithMaxSize(maxSize int) Option {
	return func(l *InMemory) {
		l.maxSize = maxSize
	}
}

// WithClock sets the clock used to stamp markers.
func WithClock(now func() time.Time) Option {
	return func(l *InMemory) {
		if now != nil {
			l.now = now
		}
	}
}
