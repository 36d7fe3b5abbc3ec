package config_test

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/petgotchi/petgotchi/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.BatchSize, convey.ShouldEqual, 50)
			convey.So(cfg.StaleAfter, convey.ShouldEqual, 30*time.Minute)
			convey.So(cfg.FeedLookback, convey.ShouldEqual, 24*time.Hour)
			convey.So(cfg.LedgerSize, convey.ShouldEqual, 0)
			convey.So(cfg.XPMultipliers["hard"], convey.ShouldEqual, 0.8)
			convey.So(cfg.DecayMultipliers["hard"], convey.ShouldEqual, 2.0)
			convey.So(cfg.TokenKey(), convey.ShouldBeNil)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one bad setting each", t, func() {
		cases := map[string]func(*config.Config){
			"log level":          func(c *config.Config) { c.LogLevel = "loud" },
			"addr":               func(c *config.Config) { c.Addr = " " },
			"workers":            func(c *config.Config) { c.WorkerCount = 0 },
			"batch":              func(c *config.Config) { c.BatchSize = -1 },
			"stale":              func(c *config.Config) { c.StaleAfter = 0 },
			"schedule":           func(c *config.Config) { c.ScheduleInterval = -time.Second },
			"feed timeout":       func(c *config.Config) { c.FeedTimeout = 0 },
			"lookback":           func(c *config.Config) { c.FeedLookback = -time.Hour },
			"ledger":             func(c *config.Config) { c.LedgerSize = -1 },
			"key length":         func(c *config.Config) { c.TokenEncryptionKey = "short" },
			"xp tier":            func(c *config.Config) { c.XPMultipliers["nightmare"] = 1 },
			"decay non-positive": func(c *config.Config) { c.DecayMultipliers["easy"] = 0 },
		}

		for name, mutate := range cases {
			cfg := config.New()
			mutate(cfg)
			err := cfg.Validate()
			convey.So(name, convey.ShouldNotBeEmpty)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		}
	})

	convey.Convey("Given a 32 byte key", t, func() {
		cfg := config.New()
		cfg.TokenEncryptionKey = "0123456789abcdef0123456789abcdef"
		convey.So(cfg.Validate(), convey.ShouldBeNil)
		convey.So(len(cfg.TokenKey()), convey.ShouldEqual, 32)
	})
}
