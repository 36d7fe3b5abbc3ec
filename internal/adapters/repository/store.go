// Package repository defines the pet persistence contract and an in-memory
// implementation of it.
package repository

import (
	"context"
	"time"

	"github.com/petgotchi/petgotchi/internal/domain/ledger"
	"github.com/petgotchi/petgotchi/internal/domain/model"
)

// PetStore persists the one live pet each user may own.
type PetStore interface {
	// GetPet returns the live pet of userID or ErrNotFound.
	GetPet(ctx context.Context, userID string) (model.Pet, error)
	// GetPetByID returns a pet by its id or ErrNotFound.
	GetPetByID(ctx context.Context, petID string) (model.Pet, error)
	// CreatePet inserts pet. ErrAlreadyExists when the user already has one.
	CreatePet(ctx context.Context, pet model.Pet) error
	// UpdatePet applies a partial update and returns the stored result.
	// Updates that would break pet invariants fail with ErrInvariant.
	UpdatePet(ctx context.Context, petID string, u model.PetUpdate, now time.Time) (model.Pet, error)
	DeletePet(ctx context.Context, petID string) error
}

// TallyStore persists trait tallies.
type TallyStore interface {
	// GetTraitTally returns the tally of userID or ErrNotFound.
	GetTraitTally(ctx context.Context, userID string) (model.TraitTally, error)
	// UpsertTraitTally writes t. ErrTallyLocked when the stored tally is locked.
	UpsertTraitTally(ctx context.Context, t model.TraitTally) error
}

// HallOfFameStore persists retirement snapshots.
type HallOfFameStore interface {
	AddHallOfFameEntry(ctx context.Context, e model.HallOfFameEntry) error
	// ListHallOfFame returns the entries of userID, newest first.
	ListHallOfFame(ctx context.Context, userID string) ([]model.HallOfFameEntry, error)
}

// UserStore persists users and their sync watermark.
type UserStore interface {
	GetUser(ctx context.Context, userID string) (model.User, error)
	// UpsertUser inserts or refreshes a user keyed by GitHubID. The watermark
	// of an existing user is preserved.
	UpsertUser(ctx context.Context, u model.User) (model.User, error)
	// AdvanceWatermark sets the user's LastSync to at.
	AdvanceWatermark(ctx context.Context, userID string, at time.Time) error
	// DueUsers returns up to limit users whose watermark is before the given
	// instant, oldest watermark first.
	DueUsers(ctx context.Context, before time.Time, limit int) ([]model.User, error)
}

// NotificationStore persists lifecycle notifications.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n model.Notification) error
	// ListNotifications returns notifications newest first.
	ListNotifications(ctx context.Context, userID string, unseenOnly bool) ([]model.Notification, error)
	MarkNotificationsSeen(ctx context.Context, userID string) error
}

// Store is the full persistence contract consumed by the sync engine.
type Store interface {
	PetStore
	TallyStore
	HallOfFameStore
	UserStore
	NotificationStore
	ledger.Ledger

	// InTx runs fn against a transactional view of the store. All writes made
	// through the view commit together when fn returns nil and are discarded
	// otherwise.
	InTx(ctx context.Context, fn func(Store) error) error
}

// ValidatePetUpdate reports whether applying u to cur keeps pet invariants.
func ValidatePetUpdate(cur model.Pet, u model.PetUpdate) error {
	if u.Stage != nil && (*u.Stage < cur.Stage || *u.Stage > model.MaxStage) {
		return ErrInvariant
	}
	if u.Trait != nil && cur.Trait != model.TraitNone && *u.Trait != cur.Trait {
		return ErrInvariant
	}
	if u.XP != nil && *u.XP < cur.XP {
		return ErrInvariant
	}
	for _, v := range []*float64{u.Hunger, u.Happiness, u.Health} {
		if v != nil && (*v < model.VitalMin || *v > model.VitalMax) {
			return ErrInvariant
		}
	}
	return nil
}
