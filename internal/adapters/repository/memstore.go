package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/petgotchi/petgotchi/internal/domain/ledger"
	"github.com/petgotchi/petgotchi/internal/domain/model"
)

// MemoryStore is an in-memory Store. Transactions run against a copy of the
// data that is swapped in on commit; one transaction runs at a time.
type MemoryStore struct {
	mu      sync.Mutex
	data    *memData
	ledger  *ledger.InMemory
	horizon *time.Duration // nil keeps every marker
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		data:   newMemData(),
		ledger: ledger.NewInMemory(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type memData struct {
	pets          map[string]model.Pet // by pet id
	petByUser     map[string]string    // user id -> pet id
	tallies       map[string]model.TraitTally
	hallOfFame    map[string][]model.HallOfFameEntry
	users         map[string]model.User
	userByGitHub  map[int64]string
	notifications map[string][]model.Notification
}

func newMemData() *memData {
	return &memData{
		pets:          make(map[string]model.Pet),
		petByUser:     make(map[string]string),
		tallies:       make(map[string]model.TraitTally),
		hallOfFame:    make(map[string][]model.HallOfFameEntry),
		users:         make(map[string]model.User),
		userByGitHub:  make(map[int64]string),
		notifications: make(map[string][]model.Notification),
	}
}

func (d *memData) clone() *memData {
	c := newMemData()
	for k, v := range d.pets {
		c.pets[k] = v
	}
	for k, v := range d.petByUser {
		c.petByUser[k] = v
	}
	for k, v := range d.tallies {
		c.tallies[k] = v.Clone()
	}
	for k, v := range d.hallOfFame {
		c.hallOfFame[k] = append([]model.HallOfFameEntry(nil), v...)
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.userByGitHub {
		c.userByGitHub[k] = v
	}
	for k, v := range d.notifications {
		c.notifications[k] = append([]model.Notification(nil), v...)
	}
	return c
}

// memTx is the transactional view handed to InTx callbacks.
type memTx struct {
	data   *memData
	ledger *ledger.InMemory
	marked [][2]string // event id, user id
}

// InTx implements Store.
func (s *MemoryStore) InTx(ctx context.Context, fn func(Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{data: s.data.clone(), ledger: s.ledger}
	if err := fn(tx); err != nil {
		for _, m := range tx.marked {
			tx.ledger.Unmark(ctx, m[0], m[1])
		}
		return err
	}
	s.data = tx.data
	return nil
}

// InTx on an open transaction joins it.
func (t *memTx) InTx(_ context.Context, fn func(Store) error) error {
	return fn(t)
}

// do runs fn as a single-operation transaction.
func (s *MemoryStore) do(ctx context.Context, fn func(*memTx) error) error {
	return s.InTx(ctx, func(st Store) error { return fn(st.(*memTx)) })
}

// read runs fn against committed data without copying it.
func (s *MemoryStore) read(fn func(*memTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&memTx{data: s.data, ledger: s.ledger})
}

// Pets

func (t *memTx) GetPet(_ context.Context, userID string) (model.Pet, error) {
	id, ok := t.data.petByUser[userID]
	if !ok {
		return model.Pet{}, ErrNotFound
	}
	return t.data.pets[id], nil
}

func (t *memTx) GetPetByID(_ context.Context, petID string) (model.Pet, error) {
	p, ok := t.data.pets[petID]
	if !ok {
		return model.Pet{}, ErrNotFound
	}
	return p, nil
}

func (t *memTx) CreatePet(_ context.Context, pet model.Pet) error {
	if _, ok := t.data.petByUser[pet.UserID]; ok {
		return ErrAlreadyExists
	}
	if _, ok := t.data.pets[pet.ID]; ok {
		return ErrAlreadyExists
	}
	t.data.pets[pet.ID] = pet
	t.data.petByUser[pet.UserID] = pet.ID
	return nil
}

func (t *memTx) UpdatePet(_ context.Context, petID string, u model.PetUpdate, now time.Time) (model.Pet, error) {
	cur, ok := t.data.pets[petID]
	if !ok {
		return model.Pet{}, ErrNotFound
	}
	if err := ValidatePetUpdate(cur, u); err != nil {
		return model.Pet{}, err
	}
	next := u.Apply(cur)
	next.UpdatedAt = now
	t.data.pets[petID] = next
	return next, nil
}

func (t *memTx) DeletePet(_ context.Context, petID string) error {
	p, ok := t.data.pets[petID]
	if !ok {
		return ErrNotFound
	}
	delete(t.data.pets, petID)
	delete(t.data.petByUser, p.UserID)
	return nil
}

// Tallies

func (t *memTx) GetTraitTally(_ context.Context, userID string) (model.TraitTally, error) {
	tally, ok := t.data.tallies[userID]
	if !ok {
		return model.TraitTally{}, ErrNotFound
	}
	return tally.Clone(), nil
}

func (t *memTx) UpsertTraitTally(_ context.Context, tally model.TraitTally) error {
	if cur, ok := t.data.tallies[tally.UserID]; ok && cur.Locked {
		return ErrTallyLocked
	}
	t.data.tallies[tally.UserID] = tally.Clone()
	return nil
}

// Ledger

func (t *memTx) IsProcessed(ctx context.Context, eventID, userID string) (bool, error) {
	return t.ledger.IsProcessed(ctx, eventID, userID)
}

func (t *memTx) MarkProcessed(ctx context.Context, eventID, userID string) error {
	seen, err := t.ledger.IsProcessed(ctx, eventID, userID)
	if err != nil {
		return err
	}
	if seen {
		return nil
	}
	if err := t.ledger.MarkProcessed(ctx, eventID, userID); err != nil {
		return err
	}
	t.marked = append(t.marked, [2]string{eventID, userID})
	return nil
}

// Hall of fame

func (t *memTx) AddHallOfFameEntry(_ context.Context, e model.HallOfFameEntry) error {
	t.data.hallOfFame[e.UserID] = append(t.data.hallOfFame[e.UserID], e)
	return nil
}

func (t *memTx) ListHallOfFame(_ context.Context, userID string) ([]model.HallOfFameEntry, error) {
	out := append([]model.HallOfFameEntry(nil), t.data.hallOfFame[userID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].RetiredAt.After(out[j].RetiredAt) })
	return out, nil
}

// Users

func (t *memTx) GetUser(_ context.Context, userID string) (model.User, error) {
	u, ok := t.data.users[userID]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return u, nil
}

func (t *memTx) UpsertUser(_ context.Context, u model.User) (model.User, error) {
	if id, ok := t.data.userByGitHub[u.GitHubID]; ok {
		cur := t.data.users[id]
		cur.Username = u.Username
		cur.TokenEncrypted = u.TokenEncrypted
		cur.LastActive = u.LastActive
		t.data.users[id] = cur
		return cur, nil
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if _, ok := t.data.users[u.ID]; ok {
		return model.User{}, ErrAlreadyExists
	}
	t.data.users[u.ID] = u
	t.data.userByGitHub[u.GitHubID] = u.ID
	return u, nil
}

func (t *memTx) AdvanceWatermark(_ context.Context, userID string, at time.Time) error {
	u, ok := t.data.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.LastSync = at
	t.data.users[userID] = u
	return nil
}

func (t *memTx) DueUsers(_ context.Context, before time.Time, limit int) ([]model.User, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	var out []model.User
	for _, u := range t.data.users {
		if u.LastSync.Before(before) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastSync.Equal(out[j].LastSync) {
			return out[i].ID < out[j].ID
		}
		return out[i].LastSync.Before(out[j].LastSync)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Notifications

func (t *memTx) CreateNotification(_ context.Context, n model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	t.data.notifications[n.UserID] = append(t.data.notifications[n.UserID], n)
	return nil
}

func (t *memTx) ListNotifications(_ context.Context, userID string, unseenOnly bool) ([]model.Notification, error) {
	src := t.data.notifications[userID]
	out := make([]model.Notification, 0, len(src))
	for i := len(src) - 1; i >= 0; i-- {
		if unseenOnly && src[i].Seen {
			continue
		}
		out = append(out, src[i])
	}
	return out, nil
}

func (t *memTx) MarkNotificationsSeen(_ context.Context, userID string) error {
	list := t.data.notifications[userID]
	for i := range list {
		list[i].Seen = true
	}
	return nil
}

// MemoryStore delegates every operation to a transactional view.

func (s *MemoryStore) GetPet(ctx context.Context, userID string) (p model.Pet, err error) {
	err = s.read(func(t *memTx) error { p, err = t.GetPet(ctx, userID); return err })
	return p, err
}

func (s *MemoryStore) GetPetByID(ctx context.Context, petID string) (p model.Pet, err error) {
	err = s.read(func(t *memTx) error { p, err = t.GetPetByID(ctx, petID); return err })
	return p, err
}

func (s *MemoryStore) CreatePet(ctx context.Context, pet model.Pet) error {
	return s.do(ctx, func(t *memTx) error { return t.CreatePet(ctx, pet) })
}

func (s *MemoryStore) UpdatePet(ctx context.Context, petID string, u model.PetUpdate, now time.Time) (p model.Pet, err error) {
	err = s.do(ctx, func(t *memTx) error { p, err = t.UpdatePet(ctx, petID, u, now); return err })
	return p, err
}

func (s *MemoryStore) DeletePet(ctx context.Context, petID string) error {
	return s.do(ctx, func(t *memTx) error { return t.DeletePet(ctx, petID) })
}

func (s *MemoryStore) GetTraitTally(ctx context.Context, userID string) (tally model.TraitTally, err error) {
	err = s.read(func(t *memTx) error { tally, err = t.GetTraitTally(ctx, userID); return err })
	return tally, err
}

func (s *MemoryStore) UpsertTraitTally(ctx context.Context, tally model.TraitTally) error {
	return s.do(ctx, func(t *memTx) error { return t.UpsertTraitTally(ctx, tally) })
}

func (s *MemoryStore) IsProcessed(ctx context.Context, eventID, userID string) (bool, error) {
	return s.ledger.IsProcessed(ctx, eventID, userID)
}

func (s *MemoryStore) MarkProcessed(ctx context.Context, eventID, userID string) error {
	return s.ledger.MarkProcessed(ctx, eventID, userID)
}

func (s *MemoryStore) AddHallOfFameEntry(ctx context.Context, e model.HallOfFameEntry) error {
	return s.do(ctx, func(t *memTx) error { return t.AddHallOfFameEntry(ctx, e) })
}

func (s *MemoryStore) ListHallOfFame(ctx context.Context, userID string) (out []model.HallOfFameEntry, err error) {
	err = s.read(func(t *memTx) error { out, err = t.ListHallOfFame(ctx, userID); return err })
	return out, err
}

func (s *MemoryStore) GetUser(ctx context.Context, userID string) (u model.User, err error) {
	err = s.read(func(t *memTx) error { u, err = t.GetUser(ctx, userID); return err })
	return u, err
}

func (s *MemoryStore) UpsertUser(ctx context.Context, in model.User) (u model.User, err error) {
	err = s.do(ctx, func(t *memTx) error { u, err = t.UpsertUser(ctx, in); return err })
	return u, err
}

func (s *MemoryStore) AdvanceWatermark(ctx context.Context, userID string, at time.Time) error {
	if err := s.do(ctx, func(t *memTx) error { return t.AdvanceWatermark(ctx, userID, at) }); err != nil {
		return err
	}
	if s.horizon != nil {
		s.ledger.Prune(ctx, userID, at.Add(-*s.horizon))
	}
	return nil
}

func (s *MemoryStore) DueUsers(ctx context.Context, before time.Time, limit int) (out []model.User, err error) {
	err = s.read(func(t *memTx) error { out, err = t.DueUsers(ctx, before, limit); return err })
	return out, err
}

func (s *MemoryStore) CreateNotification(ctx context.Context, n model.Notification) error {
	return s.do(ctx, func(t *memTx) error { return t.CreateNotification(ctx, n) })
}

func (s *MemoryStore) ListNotifications(ctx context.Context, userID string, unseenOnly bool) (out []model.Notification, err error) {
	err = s.read(func(t *memTx) error { out, err = t.ListNotifications(ctx, userID, unseenOnly); return err })
	return out, err
}

func (s *MemoryStore) MarkNotificationsSeen(ctx context.Context, userID string) error {
	return s.do(ctx, func(t *memTx) error { return t.MarkNotificationsSeen(ctx, userID) })
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*memTx)(nil)
)
