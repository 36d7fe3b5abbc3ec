package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/petgotchi/petgotchi/internal/adapters/feed"
	"github.com/petgotchi/petgotchi/internal/adapters/http/api"
	"github.com/petgotchi/petgotchi/internal/adapters/http/swagger"
	"github.com/petgotchi/petgotchi/internal/adapters/repository"
	"github.com/petgotchi/petgotchi/internal/adapters/repository/sqlite"
	app "github.com/petgotchi/petgotchi/internal/app"
	"github.com/petgotchi/petgotchi/internal/config"
	"github.com/petgotchi/petgotchi/internal/domain/decay"
	"github.com/petgotchi/petgotchi/internal/domain/ledger"
	"github.com/petgotchi/petgotchi/internal/domain/scoring"
	"github.com/petgotchi/petgotchi/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Error(context.Background(), "petgotchi exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	log := logger.Get()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, closeStore, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.ScheduleInterval > 0 {
		go svc.Schedule(ctx, cfg.ScheduleInterval)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	log.Info(shutdownCtx, "server stopped")
	return nil
}

// build wires the store, feed and engine from cfg. The returned func releases
// the store.
func build(ctx context.Context, cfg *config.Config) (*app.Service, func(), error) {
	log := logger.Get()

	var (
		store     repository.Store
		closeFunc = func() {}
	)
	if cfg.DBPath != "" {
		db, err := sqlite.Open(ctx, cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open store: %w", err)
		}
		store = db
		closeFunc = func() {
			if err := db.Close(); err != nil {
				log.Error(context.Background(), "close store", logger.Error(err))
			}
		}
		log.Info(ctx, "using sqlite store", logger.String("path", cfg.DBPath))
	} else {
		store = repository.NewMemoryStore(
			repository.WithLedger(ledger.NewInMemory(ledger.WithMaxSize(cfg.LedgerSize))),
			repository.WithLedgerHorizon(cfg.FeedLookback),
		)
		log.Info(ctx, "using in-memory store")
	}

	github := feed.NewGitHub(
		feed.WithBaseURL(cfg.FeedBaseURL),
		feed.WithTimeout(cfg.FeedTimeout),
		feed.WithLookback(cfg.FeedLookback),
	)

	svc := app.New(
		app.WithStore(store),
		app.WithFeed(github),
		app.WithScorer(scoring.NewPolicyScorer(scoring.WithXPMultipliers(cfg.XPMultipliers))),
		app.WithDecay(decay.New(decay.WithMultipliers(cfg.DecayMultipliers))),
		app.WithLogger(log.Named("sync")),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithBatchSize(cfg.BatchSize),
		app.WithStaleAfter(cfg.StaleAfter),
		app.WithTokenKey(cfg.TokenKey()),
	)
	return svc, closeFunc, nil
}

func newMux(ctx context.Context, svc *app.Service) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc).Register(ctx, mux)
	return mux
}
