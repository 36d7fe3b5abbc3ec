package evolution

import (
	"github.com/petgotchi/petgotchi/internal/domain/model"
	"github.com/petgotchi/petgotchi/pkg/logger"
)

// Option configures a Machine.
type Option func(*Machine)

// WithThresholds replaces the transition table.
func WithThresholds(t map[model.Stage]Threshold) Option {
	return func(m *Machine) {
		if len(t) > 0 {
			m.thresholds = t
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}
