// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and PETGOTCHI_ environment variables on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/petgotchi/petgotchi/internal/domain/model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database file. Empty keeps state in memory.
	DBPath string `koanf:"db_path"`

	// WorkerCount bounds how many users are synced in parallel.
	WorkerCount int `koanf:"worker_count"`

	// BatchSize caps the users selected per batch.
	BatchSize int `koanf:"batch_size"`

	// StaleAfter is how old a watermark must be before a user is due.
	StaleAfter time.Duration `koanf:"stale_after"`

	// ScheduleInterval runs a batch periodically; zero disables the scheduler.
	ScheduleInterval time.Duration `koanf:"schedule_interval"`

	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	FeedBaseURL  string        `koanf:"feed_base_url"`
	FeedTimeout  time.Duration `koanf:"feed_timeout"`
	FeedLookback time.Duration `koanf:"feed_lookback"`

	// TokenEncryptionKey is the AES key for stored feed credentials:
	// 16, 24 or 32 bytes, or empty to store no credentials.
	TokenEncryptionKey string `koanf:"token_encryption_key"`

	// LedgerSize caps the in-memory idempotency ledger; 0 means unbounded.
	// A full ledger refuses new markers instead of forgetting old ones.
	LedgerSize int `koanf:"ledger_size"`

	// XPMultipliers and DecayMultipliers are keyed by difficulty.
	XPMultipliers    map[string]float64 `koanf:"xp_multipliers"`
	DecayMultipliers map[string]float64 `koanf:"decay_multipliers"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9080",
		WorkerCount:      runtime.NumCPU(),
		BatchSize:        50,
		StaleAfter:       30 * time.Minute,
		ScheduleInterval: 5 * time.Minute,
		ShutdownTimeout:  10 * time.Second,
		FeedBaseURL:      "https://api.github.com",
		FeedTimeout:      10 * time.Second,
		FeedLookback:     24 * time.Hour,
		LedgerSize:       0,
		XPMultipliers: map[string]float64{
			string(model.DifficultyEasy):   1.2,
			string(model.DifficultyNormal): 1.0,
			string(model.DifficultyHard):   0.8,
		},
		DecayMultipliers: map[string]float64{
			string(model.DifficultyEasy):   0.5,
			string(model.DifficultyNormal): 1.0,
			string(model.DifficultyHard):   2.0,
		},
	}
}

// TokenKey returns the credential encryption key as bytes.
func (c *Config) TokenKey() []byte {
	if c.TokenEncryptionKey == "" {
		return nil
	}
	return []byte(c.TokenEncryptionKey)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: batch_size must be positive", ErrInvalidConfig)
	case c.StaleAfter <= 0:
		return fmt.Errorf("%w: stale_after must be positive", ErrInvalidConfig)
	case c.ScheduleInterval < 0:
		return fmt.Errorf("%w: schedule_interval must not be negative", ErrInvalidConfig)
	case c.FeedTimeout <= 0:
		return fmt.Errorf("%w: feed_timeout must be positive", ErrInvalidConfig)
	case c.FeedLookback < 0:
		return fmt.Errorf("%w: feed_lookback must not be negative", ErrInvalidConfig)
	case c.LedgerSize < 0:
		return fmt.Errorf("%w: ledger_size must not be negative", ErrInvalidConfig)
	}
	switch len(c.TokenEncryptionKey) {
	case 0, 16, 24, 32:
	default:
		return fmt.Errorf("%w: token_encryption_key must be 16, 24 or 32 bytes", ErrInvalidConfig)
	}
	if err := validateMultipliers("xp_multipliers", c.XPMultipliers); err != nil {
		return err
	}
	return validateMultipliers("decay_multipliers", c.DecayMultipliers)
}

func validateMultipliers(name string, m map[string]float64) error {
	for k, v := range m {
		if !model.Difficulty(k).Valid() {
			return fmt.Errorf("%w: %s: unknown difficulty %q", ErrInvalidConfig, name, k)
		}
		if v <= 0 {
			return fmt.Errorf("%w: %s.%s must be positive", ErrInvalidConfig, name, k)
		}
	}
	return nil
}
