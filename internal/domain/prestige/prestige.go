// Package prestige retires legendary pets into the hall of fame.
package prestige

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/petgotchi/petgotchi/internal/adapters/repository"
	"github.com/petgotchi/petgotchi/internal/domain/model"
	"github.com/petgotchi/petgotchi/pkg/logger"
	"github.com/petgotchi/petgotchi/pkg/metrics"
)

// Retired reports a completed retirement.
type Retired struct {
	Retired bool                  `json:"retired"`
	Entry   model.HallOfFameEntry `json:"entry"`
}

// Service moves eligible pets to the hall of fame.
type Service struct {
	store  repository.Store
	clock  func() time.Time
	logger logger.Logger
}

// New creates a Service.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		clock:  time.Now,
		logger: logger.Get().Named("prestige"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Retire snapshots pet petID into the hall of fame and deletes it, both in
// one transaction. Only legends may retire.
func (s *Service) Retire(ctx context.Context, petID string) (Retired, error) {
	now := s.clock().UTC()
	var entry model.HallOfFameEntry

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		pet, err := tx.GetPetByID(ctx, petID)
		if err != nil {
			return err
		}
		if pet.Stage < model.MaxStage {
			return fmt.Errorf("%w: pet %s is %s", ErrIneligibleStage, petID, pet.Stage)
		}

		entry = Snapshot(pet, now)
		if err := tx.AddHallOfFameEntry(ctx, entry); err != nil {
			return fmt.Errorf("add hall of fame entry: %w", err)
		}
		if err := tx.DeletePet(ctx, pet.ID); err != nil {
			return fmt.Errorf("delete pet: %w", err)
		}
		return nil
	})
	if err != nil {
		return Retired{}, err
	}

	metrics.RecordRetirement()
	s.logger.Info(ctx, "pet retired",
		logger.String("pet_id", petID),
		logger.String("user_id", entry.UserID),
		logger.Float64("xp", entry.XP),
	)
	return Retired{Retired: true, Entry: entry}, nil
}

// Snapshot builds the hall of fame entry for p retired at now.
func Snapshot(p model.Pet, now time.Time) model.HallOfFameEntry {
	trait := p.Trait
	if trait == model.TraitNone {
		trait = model.DefaultTrait
	}
	return model.HallOfFameEntry{
		ID:            uuid.NewString(),
		UserID:        p.UserID,
		PetID:         p.ID,
		Name:          p.Name,
		Stage:         p.Stage,
		Trait:         trait,
		Difficulty:    p.Difficulty,
		XP:            p.XP,
		StreakLongest: p.StreakLongest,
		BornAt:        p.BornAt,
		RetiredAt:     now,
	}
}
