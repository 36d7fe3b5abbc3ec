// Package evolution advances pets through their life stages.
package evolution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/petgotchi/petgotchi/internal/adapters/repository"
	"github.com/petgotchi/petgotchi/internal/domain/model"
	"github.com/petgotchi/petgotchi/internal/domain/traits"
	"github.com/petgotchi/petgotchi/pkg/logger"
	"github.com/petgotchi/petgotchi/pkg/metrics"
)

const day = 24 * time.Hour

// Threshold gates the transition out of a stage. Both the age since birth
// and the xp floor must be met.
type Threshold struct {
	MinAge time.Duration
	MinXP  float64
}

// DefaultThresholds is keyed by the stage being left.
var DefaultThresholds = map[model.Stage]Threshold{
	model.StageEgg:       {MinAge: 3 * day, MinXP: 0},
	model.StageHatchling: {MinAge: 7 * day, MinXP: 100},
	model.StageJuvenile:  {MinAge: 30 * day, MinXP: 500},
	model.StageAdult:     {MinAge: 90 * day, MinXP: 1500},
	model.StageElder:     {MinAge: 365 * day, MinXP: 5000},
}

// Result describes the outcome of one evaluation.
type Result struct {
	Pet     model.Pet
	Evolved bool
	From    model.Stage
	To      model.Stage
	// TraitLocked is set when this step decided the pet's trait.
	TraitLocked bool
}

// Machine evaluates and applies stage transitions.
type Machine struct {
	store      repository.Store
	thresholds map[model.Stage]Threshold
	logger     logger.Logger
}

// New creates a Machine persisting through store.
func New(store repository.Store, opts ...Option) *Machine {
	m := &Machine{
		store:      store,
		thresholds: DefaultThresholds,
		logger:     logger.Get().Named("evolution"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Ready reports whether p meets the threshold of its current stage at now.
func (m *Machine) Ready(p model.Pet, now time.Time) bool {
	if p.Stage >= model.MaxStage {
		return false
	}
	t, ok := m.thresholds[p.Stage]
	if !ok {
		return false
	}
	return now.Sub(p.BornAt) >= t.MinAge && p.XP >= t.MinXP
}

// Evaluate advances pet by at most one stage. Entering the juvenile stage
// decides and locks the trait; the pet update, tally lock and notifications
// commit together.
func (m *Machine) Evaluate(ctx context.Context, pet model.Pet, now time.Time) (Result, error) {
	res := Result{Pet: pet, From: pet.Stage, To: pet.Stage}
	if !m.Ready(pet, now) {
		return res, nil
	}

	next := pet.Stage + 1
	u := model.PetUpdate{Stage: &next}
	if next == model.StageHatchling {
		u.HatchedAt = &now
	}

	err := m.store.InTx(ctx, func(tx repository.Store) error {
		if next == model.StageJuvenile && pet.Trait == model.TraitNone {
			trait, err := lockTrait(ctx, tx, pet.UserID, now)
			if err != nil {
				return err
			}
			u.Trait = &trait
			u.TraitLockedAt = &now
			res.TraitLocked = true
		}

		updated, err := tx.UpdatePet(ctx, pet.ID, u, now)
		if err != nil {
			return fmt.Errorf("update pet: %w", err)
		}
		res.Pet = updated

		return notify(ctx, tx, updated, pet.Stage, res.TraitLocked, now)
	})
	if err != nil {
		return Result{Pet: pet, From: pet.Stage, To: pet.Stage}, err
	}

	res.Evolved = true
	res.To = next
	metrics.RecordEvolution(next.String())
	m.logger.Info(ctx, "pet evolved",
		logger.String("pet_id", pet.ID),
		logger.String("from", pet.Stage.String()),
		logger.String("to", next.String()),
		logger.String("trait", string(res.Pet.Trait)),
	)
	return res, nil
}

func lockTrait(ctx context.Context, tx repository.Store, userID string, now time.Time) (model.Trait, error) {
	tally, err := tx.GetTraitTally(ctx, userID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		trait := traits.Decide(nil)
		if err := tx.UpsertTraitTally(ctx, traits.Lock(traits.NewTally(userID, now))); err != nil {
			return "", fmt.Errorf("lock tally: %w", err)
		}
		return trait, nil
	case err != nil:
		return "", fmt.Errorf("get tally: %w", err)
	}

	trait := traits.Decide(&tally)
	if tally.Locked {
		return trait, nil
	}
	if err := tx.UpsertTraitTally(ctx, traits.Lock(tally)); err != nil {
		return "", fmt.Errorf("lock tally: %w", err)
	}
	return trait, nil
}

type transitionPayload struct {
	PetID string `json:"pet_id"`
	Name  string `json:"name"`
	From  string `json:"from"`
	To    string `json:"to"`
	Trait string `json:"trait,omitempty"`
}

func notify(ctx context.Context, tx repository.Store, p model.Pet, from model.Stage, traitLocked bool, now time.Time) error {
	payload, err := json.Marshal(transitionPayload{
		PetID: p.ID,
		Name:  p.Name,
		From:  from.String(),
		To:    p.Stage.String(),
		Trait: string(p.Trait),
	})
	if err != nil {
		return err
	}

	kinds := []model.NotificationType{model.NotificationEvolved}
	if p.Stage == model.StageHatchling {
		kinds[0] = model.NotificationHatched
	}
	if traitLocked {
		kinds = append(kinds, model.NotificationTraitLocked)
	}
	for _, k := range kinds {
		n := model.Notification{
			ID:        uuid.NewString(),
			UserID:    p.UserID,
			Type:      k,
			Payload:   payload,
			CreatedAt: now,
		}
		if err := tx.CreateNotification(ctx, n); err != nil {
			return fmt.Errorf("create notification: %w", err)
		}
	}
	return nil
}
