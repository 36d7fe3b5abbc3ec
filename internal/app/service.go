// Package service wires the pet engine together and implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/petgotchi/petgotchi/internal/adapters/feed"
	"github.com/petgotchi/petgotchi/internal/adapters/mq/queue"
	"github.com/petgotchi/petgotchi/internal/adapters/mq/worker"
	"github.com/petgotchi/petgotchi/internal/adapters/repository"
	"github.com/petgotchi/petgotchi/internal/adapters/vault"
	"github.com/petgotchi/petgotchi/internal/domain/decay"
	"github.com/petgotchi/petgotchi/internal/domain/evolution"
	"github.com/petgotchi/petgotchi/internal/domain/model"
	"github.com/petgotchi/petgotchi/internal/domain/prestige"
	"github.com/petgotchi/petgotchi/internal/domain/scoring"
	"github.com/petgotchi/petgotchi/internal/domain/traits"
	"github.com/petgotchi/petgotchi/pkg/logger"
	"github.com/petgotchi/petgotchi/pkg/metrics"
)

const (
	defaultBatchSize  = 50
	defaultStaleAfter = 30 * time.Minute
)

// Skip reasons reported in SyncResult.Reason.
const (
	SkipFresh = "fresh"
	SkipNoPet = "no_pet"
)

// BatchResult summarizes one RunBatch call.
type BatchResult struct {
	Selected int           `json:"selected"`
	Synced   int           `json:"synced"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// SyncResult describes one per-user pass.
type SyncResult struct {
	UserID  string     `json:"user_id"`
	Skipped bool       `json:"skipped"`
	Reason  string     `json:"reason,omitempty"`
	Events  int        `json:"events"`
	Evolved bool       `json:"evolved"`
	Pet     *model.Pet `json:"pet,omitempty"`
}

// Service implements the sync engine and the pet lifecycle operations.
type Service struct {
	store     repository.Store
	feed      feed.Feed
	scorer    scoring.Scorer
	decay     *decay.Model
	evolution *evolution.Machine
	prestige  *prestige.Service

	workerCount int
	batchSize   int
	staleAfter  time.Duration
	tokenKey    []byte
	clock       func() time.Time

	running atomic.Bool
	flight  singleflight.Group

	statsMu   sync.Mutex
	batches   int64
	synced    int64
	skipped   int64
	failed    int64
	lastBatch time.Time

	logger logger.Logger
}

// New constructs a Service. Without options it runs on an in-memory store
// and an empty static feed.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		batchSize:   defaultBatchSize,
		staleAfter:  defaultStaleAfter,
		clock:       time.Now,
		logger:      logger.Get().Named("sync"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.feed == nil {
		s.feed = feed.NewStatic()
	}
	if s.scorer == nil {
		s.scorer = scoring.NewPolicyScorer()
	}
	if s.decay == nil {
		s.decay = decay.New()
	}
	s.evolution = evolution.New(s.store)
	s.prestige = prestige.New(s.store, prestige.WithClock(s.clock))
	return s
}

// Store exposes the underlying persistence backend.
func (s *Service) Store() repository.Store { return s.store }

// RunBatch syncs every user whose watermark is older than the stale window,
// up to the batch size, oldest first. Per-user failures are logged and
// counted and never abort the batch.
func (s *Service) RunBatch(ctx context.Context) (BatchResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return BatchResult{}, ErrBatchInProgress
	}
	defer s.running.Store(false)

	start := s.clock()
	users, err := s.store.DueUsers(ctx, start.Add(-s.staleAfter), s.batchSize)
	if err != nil {
		return BatchResult{}, fmt.Errorf("select due users: %w", err)
	}
	metrics.RecordBatch(len(users))

	res := BatchResult{Selected: len(users)}
	if len(users) == 0 {
		s.recordBatch(res, start)
		return res, nil
	}

	q := queue.NewInMemoryQueue(queue.WithCapacity(len(users)))
	for _, u := range users {
		q.Enqueue(ctx, queue.Job{UserID: u.ID, EnqueuedAt: time.Now()})
	}
	_ = q.Close()

	var synced, skipped, failed atomic.Int64
	proc := worker.ProcessorFunc(func(ctx context.Context, job queue.Job) error {
		out, err := s.sync(ctx, job.UserID, true)
		switch {
		case err != nil:
			failed.Add(1)
			return err
		case out.Skipped:
			skipped.Add(1)
		default:
			synced.Add(1)
		}
		return nil
	})

	pool := worker.NewPool(min(s.workerCount, len(users)), q, proc, worker.WithLogger(s.logger))
	pool.Start(ctx)
	waitErr := pool.Wait(ctx)

	res.Synced = int(synced.Load())
	res.Skipped = int(skipped.Load())
	res.Failed = int(failed.Load())
	res.Duration = s.clock().Sub(start)
	s.recordBatch(res, start)

	s.logger.Info(ctx, "sync batch finished",
		logger.Int("selected", res.Selected),
		logger.Int("synced", res.Synced),
		logger.Int("skipped", res.Skipped),
		logger.Int("failed", res.Failed),
		logger.Time("started", start),
		logger.Duration("took", res.Duration),
	)
	return res, waitErr
}

// SyncUser runs one pass for userID now, whether or not its watermark is
// stale. Concurrent passes for the same user share one execution.
func (s *Service) SyncUser(ctx context.Context, userID string) (SyncResult, error) {
	return s.sync(ctx, userID, false)
}

func (s *Service) sync(ctx context.Context, userID string, onlyStale bool) (SyncResult, error) {
	v, err, _ := s.flight.Do(userID, func() (interface{}, error) {
		return s.syncUser(ctx, userID, onlyStale)
	})
	res, _ := v.(SyncResult)
	return res, err
}

func (s *Service) syncUser(ctx context.Context, userID string, onlyStale bool) (SyncResult, error) {
	start := s.clock()
	now := start.UTC()
	res := SyncResult{UserID: userID}
	log := s.logger.With(logger.String("user_id", userID))

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		metrics.RecordSyncFailure("user")
		return res, fmt.Errorf("load user: %w", err)
	}
	if onlyStale && !user.LastSync.Before(now.Add(-s.staleAfter)) {
		metrics.RecordUserSkipped(SkipFresh)
		res.Skipped, res.Reason = true, SkipFresh
		return res, nil
	}

	pet, err := s.store.GetPet(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		metrics.RecordUserSkipped(SkipNoPet)
		res.Skipped, res.Reason = true, SkipNoPet
		return res, s.advance(ctx, log, userID, now)
	}
	if err != nil {
		metrics.RecordSyncFailure("load_pet")
		_ = s.advance(ctx, log, userID, now)
		return res, fmt.Errorf("load pet: %w", err)
	}

	events := s.fetch(ctx, log, user)

	var kinds []model.EventKind
	var updated model.Pet
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		updated, kinds, err = s.apply(ctx, tx, user, pet.ID, events, now)
		return err
	})
	if err != nil {
		metrics.RecordSyncFailure("persist")
		log.Error(ctx, "persist pet stats", logger.Error(err))
		_ = s.advance(ctx, log, userID, now)
		return res, fmt.Errorf("persist pet stats: %w", err)
	}
	for _, k := range kinds {
		metrics.RecordEventScored(string(k))
	}
	res.Events = len(kinds)

	evo, err := s.evolution.Evaluate(ctx, updated, now)
	if err != nil {
		metrics.RecordSyncFailure("evolution")
		log.Error(ctx, "evaluate evolution", logger.Error(err))
	} else {
		updated = evo.Pet
		res.Evolved = evo.Evolved
	}
	res.Pet = &updated

	if err := s.advance(ctx, log, userID, now); err != nil {
		return res, err
	}
	metrics.RecordUserSynced()
	metrics.RecordSyncDuration(float64(s.clock().Sub(start).Milliseconds()))
	log.Debug(ctx, "user synced",
		logger.Int("events", res.Events),
		logger.Float64("hunger", updated.Hunger),
		logger.Float64("happiness", updated.Happiness),
		logger.Float64("health", updated.Health),
		logger.Float64("xp", updated.XP),
		logger.String("stage", updated.Stage.String()),
		logger.Bool("evolved", res.Evolved),
	)
	return res, nil
}

// fetch returns the user's new events. Credential and feed failures degrade
// to an empty list so decay still applies.
func (s *Service) fetch(ctx context.Context, log logger.Logger, user model.User) []model.Event {
	var credential string
	if user.TokenEncrypted != "" && len(s.tokenKey) > 0 {
		c, err := vault.Decrypt(user.TokenEncrypted, s.tokenKey)
		if err != nil {
			metrics.RecordSyncFailure("credential")
			log.Warn(ctx, "decrypt credential", logger.Error(err))
			return nil
		}
		credential = c
	}

	events, err := s.feed.FetchEventsSince(ctx, user.Username, credential, user.LastSync)
	if err != nil {
		metrics.RecordSyncFailure("feed")
		log.Warn(ctx, "fetch activity", logger.Error(err))
		return nil
	}
	return events
}

// apply scores unseen events, accumulates affinity, applies decay and writes
// the pet. It must run inside a transaction.
func (s *Service) apply(ctx context.Context, tx repository.Store, user model.User, petID string, events []model.Event, now time.Time) (model.Pet, []model.EventKind, error) {
	pet, err := tx.GetPetByID(ctx, petID)
	if err != nil {
		return model.Pet{}, nil, err
	}

	var (
		total scoring.Delta
		kinds []model.EventKind
	)
	for _, e := range events {
		if e.ID == "" {
			continue
		}
		seen, err := tx.IsProcessed(ctx, e.ID, user.ID)
		if err != nil {
			return model.Pet{}, nil, fmt.Errorf("check ledger: %w", err)
		}
		if seen {
			metrics.RecordEventDuplicate()
			continue
		}
		total = total.Add(s.scorer.Score(e, pet.Difficulty))
		if err := tx.MarkProcessed(ctx, e.ID, user.ID); err != nil {
			return model.Pet{}, nil, fmt.Errorf("mark processed: %w", err)
		}
		kinds = append(kinds, e.Kind)
	}

	if err := accumulate(ctx, tx, user.ID, total.Affinity, now); err != nil {
		return model.Pet{}, nil, err
	}

	from := user.LastSync
	if pet.BornAt.After(from) {
		from = pet.BornAt
	}
	loss := s.decay.Amount(decay.HoursSince(from, now), pet.Difficulty)

	hunger := model.ClampVital(pet.Hunger + total.Hunger - loss)
	happiness := model.ClampVital(pet.Happiness + total.Happiness - loss)
	health := model.ClampVital(pet.Health - loss)
	xp := pet.XP + total.XP
	u := model.PetUpdate{Hunger: &hunger, Happiness: &happiness, Health: &health, XP: &xp}

	if len(kinds) > 0 {
		cur, longest, day := nextStreak(pet, now)
		u.StreakCurrent, u.StreakLongest, u.StreakLastDate = &cur, &longest, &day
	}

	updated, err := tx.UpdatePet(ctx, pet.ID, u, now)
	if err != nil {
		return model.Pet{}, nil, fmt.Errorf("update pet: %w", err)
	}
	return updated, kinds, nil
}

func accumulate(ctx context.Context, tx repository.Store, userID string, affinity map[model.Affinity]float64, now time.Time) error {
	positive := false
	for _, v := range affinity {
		if v > 0 {
			positive = true
			break
		}
	}
	if !positive {
		return nil
	}

	tally, err := tx.GetTraitTally(ctx, userID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		tally = traits.NewTally(userID, now)
	case err != nil:
		return fmt.Errorf("get tally: %w", err)
	}
	if tally.Locked {
		return nil
	}
	if err := tx.UpsertTraitTally(ctx, traits.Accumulate(tally, affinity)); err != nil {
		return fmt.Errorf("upsert tally: %w", err)
	}
	return nil
}

func (s *Service) advance(ctx context.Context, log logger.Logger, userID string, now time.Time) error {
	if err := s.store.AdvanceWatermark(ctx, userID, now); err != nil {
		metrics.RecordSyncFailure("watermark")
		log.Error(ctx, "advance watermark", logger.Error(err))
		return fmt.Errorf("advance watermark: %w", err)
	}
	return nil
}

// RegisterUser creates or refreshes a user keyed by GitHub id. A non-empty
// token is encrypted before it is stored.
func (s *Service) RegisterUser(ctx context.Context, githubID int64, username, token string) (model.User, error) {
	username = strings.TrimSpace(username)
	if githubID <= 0 || username == "" {
		return model.User{}, fmt.Errorf("%w: github id and username are required", ErrInvalidArgument)
	}

	var sealed string
	if token != "" {
		if len(s.tokenKey) == 0 {
			return model.User{}, fmt.Errorf("%w: no token encryption key configured", ErrInvalidArgument)
		}
		var err error
		if sealed, err = vault.Encrypt(token, s.tokenKey); err != nil {
			return model.User{}, fmt.Errorf("encrypt token: %w", err)
		}
	}

	now := s.clock().UTC()
	return s.store.UpsertUser(ctx, model.User{
		GitHubID:       githubID,
		Username:       username,
		TokenEncrypted: sealed,
		CreatedAt:      now,
		LastActive:     now,
	})
}

// Adopt gives userID a new egg. A user owns at most one live pet.
func (s *Service) Adopt(ctx context.Context, userID, name string, difficulty model.Difficulty) (model.Pet, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Pet{}, fmt.Errorf("%w: name is required", ErrInvalidArgument)
	}
	if difficulty == "" {
		difficulty = model.DifficultyNormal
	}
	if !difficulty.Valid() {
		return model.Pet{}, fmt.Errorf("%w: unknown difficulty %q", ErrInvalidArgument, difficulty)
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return model.Pet{}, err
	}

	now := s.clock().UTC()
	pet := model.Pet{
		ID:         uuid.NewString(),
		UserID:     userID,
		Name:       name,
		Stage:      model.StageEgg,
		Hunger:     model.VitalMax,
		Happiness:  model.VitalMax,
		Health:     model.VitalMax,
		Difficulty: difficulty,
		BornAt:     now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreatePet(ctx, pet); err != nil {
		return model.Pet{}, err
	}
	metrics.RecordAdoption(string(difficulty))
	s.logger.Info(ctx, "pet adopted",
		logger.String("user_id", userID),
		logger.String("pet_id", pet.ID),
		logger.String("difficulty", string(difficulty)),
	)
	return pet, nil
}

// Retire moves a legendary pet to the hall of fame.
func (s *Service) Retire(ctx context.Context, petID string) (prestige.Retired, error) {
	return s.prestige.Retire(ctx, petID)
}

// GetPet returns the live pet of userID.
func (s *Service) GetPet(ctx context.Context, userID string) (model.Pet, error) {
	return s.store.GetPet(ctx, userID)
}

// HallOfFame lists userID's retired pets, newest first.
func (s *Service) HallOfFame(ctx context.Context, userID string) ([]model.HallOfFameEntry, error) {
	return s.store.ListHallOfFame(ctx, userID)
}

// Notifications lists userID's notifications, newest first. When markSeen is
// set, the returned unseen notifications are marked as seen.
func (s *Service) Notifications(ctx context.Context, userID string, unseenOnly, markSeen bool) ([]model.Notification, error) {
	out, err := s.store.ListNotifications(ctx, userID, unseenOnly)
	if err != nil {
		return nil, err
	}
	if markSeen && len(out) > 0 {
		if err := s.store.MarkNotificationsSeen(ctx, userID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Schedule runs a batch every interval until ctx is canceled.
func (s *Service) Schedule(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info(ctx, "sync scheduler started", logger.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info(context.Background(), "sync scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.RunBatch(ctx); err != nil {
				if errors.Is(err, ErrBatchInProgress) {
					s.logger.Debug(ctx, "previous batch still running")
					continue
				}
				s.logger.Error(ctx, "scheduled batch failed", logger.Error(err))
			}
		}
	}
}

func (s *Service) recordBatch(res BatchResult, at time.Time) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.batches++
	s.synced += int64(res.Synced)
	s.skipped += int64(res.Skipped)
	s.failed += int64(res.Failed)
	s.lastBatch = at
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	stats := map[string]interface{}{
		"running":     s.running.Load(),
		"workerCount": s.workerCount,
		"batchSize":   s.batchSize,
		"staleAfter":  s.staleAfter.String(),
		"batches":     s.batches,
		"synced":      s.synced,
		"skipped":     s.skipped,
		"failed":      s.failed,
	}
	if !s.lastBatch.IsZero() {
		stats["lastBatchAt"] = s.lastBatch.UTC()
	}
	metrics.UpdateSystemMetrics()
	return stats
}
