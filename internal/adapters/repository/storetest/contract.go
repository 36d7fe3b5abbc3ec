// Package storetest holds behaviour checks shared by every repository.Store
// implementation. It is imported only from tests.
package storetest

import (
	"context"
	"errors"
	"time"

	"github.com/petgotchi/petgotchi/internal/adapters/repository"
	"github.com/petgotchi/petgotchi/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// RunContract must be called inside a Convey block with a fresh, empty store.
func RunContract(store repository.Store) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	user, err := store.UpsertUser(ctx, model.User{GitHubID: 42, Username: "octo", CreatedAt: now})
	So(err, ShouldBeNil)
	So(user.ID, ShouldNotBeEmpty)

	pet := model.Pet{
		ID: "pet-1", UserID: user.ID, Name: "Bit", Difficulty: model.DifficultyNormal,
		Hunger: 100, Happiness: 100, Health: 100, BornAt: now, CreatedAt: now, UpdatedAt: now,
	}
	So(store.CreatePet(ctx, pet), ShouldBeNil)

	Convey("When fetching the pet", func() {
		byUser, err := store.GetPet(ctx, user.ID)
		So(err, ShouldBeNil)
		byID, err := store.GetPetByID(ctx, "pet-1")
		So(err, ShouldBeNil)

		So(byUser.Name, ShouldEqual, "Bit")
		So(byID.UserID, ShouldEqual, user.ID)
		So(byID.BornAt.Equal(now), ShouldBeTrue)

		_, err = store.GetPet(ctx, "nobody")
		So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
	})

	Convey("When adopting a second pet for the same user", func() {
		err := store.CreatePet(ctx, model.Pet{ID: "pet-2", UserID: user.ID, BornAt: now})
		So(errors.Is(err, repository.ErrAlreadyExists), ShouldBeTrue)
	})

	Convey("When updating the pet", func() {
		hunger, xp := 64.2, 10.0
		stage := model.StageHatchling
		hatched := now.Add(time.Hour)
		updated, err := store.UpdatePet(ctx, "pet-1",
			model.PetUpdate{Hunger: &hunger, XP: &xp, Stage: &stage, HatchedAt: &hatched}, now.Add(time.Hour))

		So(err, ShouldBeNil)
		So(updated.Hunger, ShouldEqual, 64.2)
		So(updated.Happiness, ShouldEqual, 100)
		So(updated.HatchedAt, ShouldNotBeNil)

		stored, _ := store.GetPetByID(ctx, "pet-1")
		So(stored.XP, ShouldEqual, 10)
		So(stored.Stage, ShouldEqual, model.StageHatchling)
		So(stored.UpdatedAt.Equal(now.Add(time.Hour)), ShouldBeTrue)

		Convey("Then a stage regression is rejected", func() {
			back := model.StageEgg
			_, err := store.UpdatePet(ctx, "pet-1", model.PetUpdate{Stage: &back}, now)
			So(errors.Is(err, repository.ErrInvariant), ShouldBeTrue)
		})

		Convey("Then out of range vitals are rejected", func() {
			bad := 101.0
			_, err := store.UpdatePet(ctx, "pet-1", model.PetUpdate{Health: &bad}, now)
			So(errors.Is(err, repository.ErrInvariant), ShouldBeTrue)
		})
	})

	Convey("When a trait is set", func() {
		trait := model.TraitCollaborator
		_, err := store.UpdatePet(ctx, "pet-1", model.PetUpdate{Trait: &trait}, now)
		So(err, ShouldBeNil)

		Convey("Then it cannot be replaced", func() {
			other := model.TraitLoneCoder
			_, err := store.UpdatePet(ctx, "pet-1", model.PetUpdate{Trait: &other}, now)
			So(errors.Is(err, repository.ErrInvariant), ShouldBeTrue)
		})
	})

	Convey("When writing tallies", func() {
		_, err := store.GetTraitTally(ctx, user.ID)
		So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

		tally := model.TraitTally{
			UserID:        user.ID,
			Scores:        map[model.Affinity]float64{model.AffinitySolo: 3, model.AffinitySocial: 1},
			TrackingUntil: now.Add(7 * 24 * time.Hour),
		}
		So(store.UpsertTraitTally(ctx, tally), ShouldBeNil)

		got, err := store.GetTraitTally(ctx, user.ID)
		So(err, ShouldBeNil)
		So(got.Score(model.AffinitySolo), ShouldEqual, 3)
		So(got.TrackingUntil.Equal(tally.TrackingUntil), ShouldBeTrue)

		Convey("Then a locked tally refuses further writes", func() {
			tally.Locked = true
			So(store.UpsertTraitTally(ctx, tally), ShouldBeNil)

			tally.Scores[model.AffinitySocial] = 99
			err := store.UpsertTraitTally(ctx, tally)
			So(errors.Is(err, repository.ErrTallyLocked), ShouldBeTrue)

			got, _ := store.GetTraitTally(ctx, user.ID)
			So(got.Locked, ShouldBeTrue)
			So(got.Score(model.AffinitySocial), ShouldEqual, 1)
		})
	})

	Convey("When marking events", func() {
		So(store.MarkProcessed(ctx, "evt-1", user.ID), ShouldBeNil)
		So(store.MarkProcessed(ctx, "evt-1", user.ID), ShouldBeNil)

		seen, err := store.IsProcessed(ctx, "evt-1", user.ID)
		So(err, ShouldBeNil)
		So(seen, ShouldBeTrue)
		other, _ := store.IsProcessed(ctx, "evt-2", user.ID)
		So(other, ShouldBeFalse)
	})

	Convey("When a transaction fails", func() {
		boom := errors.New("boom")
		err := store.InTx(ctx, func(tx repository.Store) error {
			h := 1.0
			if _, err := tx.UpdatePet(ctx, "pet-1", model.PetUpdate{Hunger: &h}, now); err != nil {
				return err
			}
			if err := tx.MarkProcessed(ctx, "evt-tx", user.ID); err != nil {
				return err
			}
			return boom
		})

		Convey("Then none of its writes are visible", func() {
			So(errors.Is(err, boom), ShouldBeTrue)
			p, _ := store.GetPetByID(ctx, "pet-1")
			So(p.Hunger, ShouldEqual, 100)
			seen, _ := store.IsProcessed(ctx, "evt-tx", user.ID)
			So(seen, ShouldBeFalse)
		})
	})

	Convey("When a transaction retires the pet", func() {
		err := store.InTx(ctx, func(tx repository.Store) error {
			if err := tx.AddHallOfFameEntry(ctx, model.HallOfFameEntry{
				ID: "hof-1", UserID: user.ID, PetID: "pet-1", Name: "Bit",
				Stage: model.StageLegend, Trait: model.TraitLoneCoder, BornAt: now, RetiredAt: now,
			}); err != nil {
				return err
			}
			return tx.DeletePet(ctx, "pet-1")
		})

		Convey("Then the snapshot exists and the pet is gone", func() {
			So(err, ShouldBeNil)
			_, err := store.GetPetByID(ctx, "pet-1")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			hof, err := store.ListHallOfFame(ctx, user.ID)
			So(err, ShouldBeNil)
			So(len(hof), ShouldEqual, 1)
			So(hof[0].Name, ShouldEqual, "Bit")
			So(hof[0].Stage, ShouldEqual, model.StageLegend)

			So(store.CreatePet(ctx, model.Pet{ID: "pet-3", UserID: user.ID, BornAt: now}), ShouldBeNil)
		})
	})

	Convey("When selecting due users", func() {
		second, err := store.UpsertUser(ctx, model.User{GitHubID: 7, Username: "gopher", CreatedAt: now})
		So(err, ShouldBeNil)
		So(store.AdvanceWatermark(ctx, user.ID, now.Add(-time.Hour)), ShouldBeNil)
		So(store.AdvanceWatermark(ctx, second.ID, now.Add(-2*time.Hour)), ShouldBeNil)

		due, err := store.DueUsers(ctx, now.Add(-30*time.Minute), 10)
		So(err, ShouldBeNil)
		So(len(due), ShouldEqual, 2)
		So(due[0].ID, ShouldEqual, second.ID)

		limited, _ := store.DueUsers(ctx, now.Add(-30*time.Minute), 1)
		So(len(limited), ShouldEqual, 1)

		fresh, _ := store.DueUsers(ctx, now.Add(-3*time.Hour), 10)
		So(len(fresh), ShouldEqual, 0)

		_, err = store.DueUsers(ctx, now, 0)
		So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)

		So(errors.Is(store.AdvanceWatermark(ctx, "ghost", now), repository.ErrNotFound), ShouldBeTrue)
	})

	Convey("When the same GitHub user logs in again", func() {
		So(store.AdvanceWatermark(ctx, user.ID, now), ShouldBeNil)
		again, err := store.UpsertUser(ctx, model.User{GitHubID: 42, Username: "octocat", TokenEncrypted: "t2"})

		Convey("Then the record is refreshed and the watermark kept", func() {
			So(err, ShouldBeNil)
			So(again.ID, ShouldEqual, user.ID)
			So(again.Username, ShouldEqual, "octocat")
			So(again.LastSync.Equal(now), ShouldBeTrue)
		})
	})

	Convey("When notifications are written", func() {
		So(store.CreateNotification(ctx, model.Notification{
			UserID: user.ID, Type: model.NotificationHatched, Payload: []byte(`{"stage":1}`), CreatedAt: now,
		}), ShouldBeNil)
		So(store.CreateNotification(ctx, model.Notification{
			UserID: user.ID, Type: model.NotificationEvolved, Payload: []byte(`{"stage":2}`), CreatedAt: now.Add(time.Minute),
		}), ShouldBeNil)

		list, err := store.ListNotifications(ctx, user.ID, true)
		So(err, ShouldBeNil)
		So(len(list), ShouldEqual, 2)
		So(list[0].Type, ShouldEqual, model.NotificationEvolved)
		So(list[0].ID, ShouldNotBeEmpty)

		So(store.MarkNotificationsSeen(ctx, user.ID), ShouldBeNil)
		unseen, _ := store.ListNotifications(ctx, user.ID, true)
		So(len(unseen), ShouldEqual, 0)
		all, _ := store.ListNotifications(ctx, user.ID, false)
		So(len(all), ShouldEqual, 2)
		So(all[1].Seen, ShouldBeTrue)
	})
}
