// Package sqlite provides a SQLite-backed repository.Store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/petgotchi/petgotchi/internal/adapters/repository"
	"github.com/petgotchi/petgotchi/internal/adapters/repository/sqlite/migrations"
	"github.com/petgotchi/petgotchi/internal/domain/model"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store persists pets, tallies, users and the event ledger in SQLite.
type Store struct {
	sqlDB *sql.DB
	q     querier
	tx    *sql.Tx
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used to stamp ledger markers.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func toMillis(value time.Time) int64 {
	if value.IsZero() {
		return 0
	}
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return time.UnixMilli(value).UTC()
}

func toNullMillis(value *time.Time) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*value), Valid: true}
}

func fromNullMillis(value sql.NullInt64) *time.Time {
	if !value.Valid {
		return nil
	}
	t := fromMillis(value.Int64)
	return &t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// persistErr tags a driver failure with repository.ErrPersistence.
func persistErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, repository.ErrPersistence, err)
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// Open opens the database at path, creating parent directories and applying
// embedded migrations.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	dsn := fmt.Sprintf(
		"file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)",
		cleanPath,
	)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single writer connection keeps transactions serialized.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &Store{sqlDB: sqlDB, q: sqlDB, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil || s.tx != nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) withTx(tx *sql.Tx) *Store {
	cloned := *s
	cloned.q = tx
	cloned.tx = tx
	return &cloned
}

// InTx implements repository.Store. Nested calls join the open transaction.
func (s *Store) InTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("start transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(s.withTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return persistErr("commit transaction", err)
	}
	return nil
}

// Pets

const petColumns = `id, user_id, name, stage, trait, hunger, happiness, health, xp, difficulty,
	streak_current, streak_longest, streak_last_date, born_at, hatched_at, trait_locked_at,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPet(row rowScanner) (model.Pet, error) {
	var (
		p                    model.Pet
		stage                int
		trait, difficulty    string
		bornAt, created, upd int64
		hatchedAt, lockedAt  sql.NullInt64
	)
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &stage, &trait, &p.Hunger, &p.Happiness, &p.Health,
		&p.XP, &difficulty, &p.StreakCurrent, &p.StreakLongest, &p.StreakLastDate,
		&bornAt, &hatchedAt, &lockedAt, &created, &upd)
	if err != nil {
		return model.Pet{}, err
	}
	p.Stage = model.Stage(stage)
	p.Trait = model.Trait(trait)
	p.Difficulty = model.Difficulty(difficulty)
	p.BornAt = fromMillis(bornAt)
	p.HatchedAt = fromNullMillis(hatchedAt)
	p.TraitLockedAt = fromNullMillis(lockedAt)
	p.CreatedAt = fromMillis(created)
	p.UpdatedAt = fromMillis(upd)
	return p, nil
}

func (s *Store) getPetWhere(ctx context.Context, where string, arg string) (model.Pet, error) {
	p, err := scanPet(s.q.QueryRowContext(ctx, `SELECT `+petColumns+` FROM pets WHERE `+where+` = ?`, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Pet{}, repository.ErrNotFound
	}
	if err != nil {
		return model.Pet{}, persistErr("get pet", err)
	}
	return p, nil
}

// GetPet implements repository.PetStore.
func (s *Store) GetPet(ctx context.Context, userID string) (model.Pet, error) {
	return s.getPetWhere(ctx, "user_id", userID)
}

// GetPetByID implements repository.PetStore.
func (s *Store) GetPetByID(ctx context.Context, petID string) (model.Pet, error) {
	return s.getPetWhere(ctx, "id", petID)
}

// CreatePet implements repository.PetStore.
func (s *Store) CreatePet(ctx context.Context, p model.Pet) error {
	_, err := s.q.ExecContext(ctx, `INSERT INTO pets (`+petColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Name, int(p.Stage), string(p.Trait), p.Hunger, p.Happiness, p.Health,
		p.XP, string(p.Difficulty), p.StreakCurrent, p.StreakLongest, p.StreakLastDate,
		toMillis(p.BornAt), toNullMillis(p.HatchedAt), toNullMillis(p.TraitLockedAt),
		toMillis(p.CreatedAt), toMillis(p.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrAlreadyExists
		}
		return persistErr("create pet", err)
	}
	return nil
}

// UpdatePet implements repository.PetStore.
func (s *Store) UpdatePet(ctx context.Context, petID string, u model.PetUpdate, now time.Time) (model.Pet, error) {
	var out model.Pet
	err := s.InTx(ctx, func(st repository.Store) error {
		ts := st.(*Store)
		cur, err := ts.GetPetByID(ctx, petID)
		if err != nil {
			return err
		}
		if err := repository.ValidatePetUpdate(cur, u); err != nil {
			return err
		}
		next := u.Apply(cur)
		next.UpdatedAt = now
		_, err = ts.q.ExecContext(ctx, `UPDATE pets SET
			stage = ?, trait = ?, hunger = ?, happiness = ?, health = ?, xp = ?,
			streak_current = ?, streak_longest = ?, streak_last_date = ?,
			hatched_at = ?, trait_locked_at = ?, updated_at = ?
			WHERE id = ?`,
			int(next.Stage), string(next.Trait), next.Hunger, next.Happiness, next.Health, next.XP,
			next.StreakCurrent, next.StreakLongest, next.StreakLastDate,
			toNullMillis(next.HatchedAt), toNullMillis(next.TraitLockedAt), toMillis(next.UpdatedAt),
			petID,
		)
		if err != nil {
			return persistErr("update pet", err)
		}
		out = next
		return nil
	})
	return out, err
}

// DeletePet implements repository.PetStore.
func (s *Store) DeletePet(ctx context.Context, petID string) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM pets WHERE id = ?`, petID)
	if err != nil {
		return persistErr("delete pet", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Trait tallies

// GetTraitTally implements repository.TallyStore.
func (s *Store) GetTraitTally(ctx context.Context, userID string) (model.TraitTally, error) {
	var (
		solo, social  float64
		trackingUntil int64
		locked        int
	)
	err := s.q.QueryRowContext(ctx,
		`SELECT solo_score, social_score, tracking_until, is_locked FROM trait_tallies WHERE user_id = ?`,
		userID,
	).Scan(&solo, &social, &trackingUntil, &locked)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TraitTally{}, repository.ErrNotFound
	}
	if err != nil {
		return model.TraitTally{}, persistErr("get trait tally", err)
	}
	return model.TraitTally{
		UserID: userID,
		Scores: map[model.Affinity]float64{
			model.AffinitySolo:   solo,
			model.AffinitySocial: social,
		},
		TrackingUntil: fromMillis(trackingUntil),
		Locked:        locked != 0,
	}, nil
}

// UpsertTraitTally implements repository.TallyStore. The conflict clause
// leaves a locked row untouched, which surfaces as ErrTallyLocked.
func (s *Store) UpsertTraitTally(ctx context.Context, t model.TraitTally) error {
	res, err := s.q.ExecContext(ctx, `INSERT INTO trait_tallies
		(user_id, solo_score, social_score, tracking_until, is_locked)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			solo_score = excluded.solo_score,
			social_score = excluded.social_score,
			tracking_until = excluded.tracking_until,
			is_locked = excluded.is_locked
		WHERE trait_tallies.is_locked = 0`,
		t.UserID, t.Score(model.AffinitySolo), t.Score(model.AffinitySocial),
		toMillis(t.TrackingUntil), boolToInt(t.Locked),
	)
	if err != nil {
		return persistErr("upsert trait tally", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrTallyLocked
	}
	return nil
}

// Ledger

// IsProcessed implements ledger.Ledger.
func (s *Store) IsProcessed(ctx context.Context, eventID, userID string) (bool, error) {
	var n int
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM processed_events WHERE event_id = ? AND user_id = ?`,
		eventID, userID,
	).Scan(&n)
	if err != nil {
		return false, persistErr("check processed event", err)
	}
	return n > 0, nil
}

// MarkProcessed implements ledger.Ledger.
func (s *Store) MarkProcessed(ctx context.Context, eventID, userID string) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT OR IGNORE INTO processed_events (event_id, user_id, processed_at) VALUES (?, ?, ?)`,
		eventID, userID, toMillis(s.now()),
	)
	if err != nil {
		return persistErr("mark processed event", err)
	}
	return nil
}

// Hall of fame

// AddHallOfFameEntry implements repository.HallOfFameStore.
func (s *Store) AddHallOfFameEntry(ctx context.Context, e model.HallOfFameEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := s.q.ExecContext(ctx, `INSERT INTO hall_of_fame
		(id, user_id, pet_id, name, stage, trait, difficulty, xp, streak_longest, born_at, retired_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.PetID, e.Name, int(e.Stage), string(e.Trait), string(e.Difficulty),
		e.XP, e.StreakLongest, toMillis(e.BornAt), toMillis(e.RetiredAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrAlreadyExists
		}
		return persistErr("add hall of fame entry", err)
	}
	return nil
}

// ListHallOfFame implements repository.HallOfFameStore.
func (s *Store) ListHallOfFame(ctx context.Context, userID string) ([]model.HallOfFameEntry, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT id, user_id, pet_id, name, stage, trait, difficulty,
		xp, streak_longest, born_at, retired_at
		FROM hall_of_fame WHERE user_id = ? ORDER BY retired_at DESC, id`, userID)
	if err != nil {
		return nil, persistErr("list hall of fame", err)
	}
	defer rows.Close()

	var out []model.HallOfFameEntry
	for rows.Next() {
		var (
			e                 model.HallOfFameEntry
			stage             int
			trait, difficulty string
			born, retired     int64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.PetID, &e.Name, &stage, &trait, &difficulty,
			&e.XP, &e.StreakLongest, &born, &retired); err != nil {
			return nil, persistErr("scan hall of fame", err)
		}
		e.Stage = model.Stage(stage)
		e.Trait = model.Trait(trait)
		e.Difficulty = model.Difficulty(difficulty)
		e.BornAt = fromMillis(born)
		e.RetiredAt = fromMillis(retired)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate hall of fame", err)
	}
	return out, nil
}

// Users

const userColumns = `id, github_id, username, token_encrypted, created_at, last_active, last_sync`

func scanUser(row rowScanner) (model.User, error) {
	var (
		u                       model.User
		created, active, synced int64
	)
	if err := row.Scan(&u.ID, &u.GitHubID, &u.Username, &u.TokenEncrypted, &created, &active, &synced); err != nil {
		return model.User{}, err
	}
	u.CreatedAt = fromMillis(created)
	u.LastActive = fromMillis(active)
	u.LastSync = fromMillis(synced)
	return u, nil
}

// GetUser implements repository.UserStore.
func (s *Store) GetUser(ctx context.Context, userID string) (model.User, error) {
	u, err := scanUser(s.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, repository.ErrNotFound
	}
	if err != nil {
		return model.User{}, persistErr("get user", err)
	}
	return u, nil
}

// UpsertUser implements repository.UserStore.
func (s *Store) UpsertUser(ctx context.Context, u model.User) (model.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	var out model.User
	err := s.InTx(ctx, func(st repository.Store) error {
		ts := st.(*Store)
		if _, err := ts.q.ExecContext(ctx, `INSERT INTO users (`+userColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (github_id) DO UPDATE SET
				username = excluded.username,
				token_encrypted = excluded.token_encrypted,
				last_active = excluded.last_active`,
			u.ID, u.GitHubID, u.Username, u.TokenEncrypted,
			toMillis(u.CreatedAt), toMillis(u.LastActive), toMillis(u.LastSync),
		); err != nil {
			if isUniqueViolation(err) {
				return repository.ErrAlreadyExists
			}
			return persistErr("upsert user", err)
		}
		got, err := scanUser(ts.q.QueryRowContext(ctx,
			`SELECT `+userColumns+` FROM users WHERE github_id = ?`, u.GitHubID))
		if err != nil {
			return persistErr("reload user", err)
		}
		out = got
		return nil
	})
	return out, err
}

// AdvanceWatermark implements repository.UserStore.
func (s *Store) AdvanceWatermark(ctx context.Context, userID string, at time.Time) error {
	res, err := s.q.ExecContext(ctx, `UPDATE users SET last_sync = ? WHERE id = ?`, toMillis(at), userID)
	if err != nil {
		return persistErr("advance watermark", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DueUsers implements repository.UserStore.
func (s *Store) DueUsers(ctx context.Context, before time.Time, limit int) ([]model.User, error) {
	if limit <= 0 {
		return nil, repository.ErrInvalidLimit
	}
	rows, err := s.q.QueryContext(ctx, `SELECT `+userColumns+` FROM users
		WHERE last_sync < ? ORDER BY last_sync, id LIMIT ?`, toMillis(before), limit)
	if err != nil {
		return nil, persistErr("select due users", err)
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, persistErr("scan user", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate users", err)
	}
	return out, nil
}

// Notifications

// CreateNotification implements repository.NotificationStore.
func (s *Store) CreateNotification(ctx context.Context, n model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	payload := string(n.Payload)
	if payload == "" {
		payload = "{}"
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, type, payload, created_at, seen) VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, string(n.Type), payload, toMillis(n.CreatedAt), boolToInt(n.Seen),
	)
	if err != nil {
		return persistErr("create notification", err)
	}
	return nil
}

// ListNotifications implements repository.NotificationStore.
func (s *Store) ListNotifications(ctx context.Context, userID string, unseenOnly bool) ([]model.Notification, error) {
	query := `SELECT id, user_id, type, payload, created_at, seen FROM notifications WHERE user_id = ?`
	if unseenOnly {
		query += ` AND seen = 0`
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := s.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, persistErr("list notifications", err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var (
			n       model.Notification
			typ     string
			payload string
			created int64
			seen    int
		)
		if err := rows.Scan(&n.ID, &n.UserID, &typ, &payload, &created, &seen); err != nil {
			return nil, persistErr("scan notification", err)
		}
		n.Type = model.NotificationType(typ)
		n.Payload = []byte(payload)
		n.CreatedAt = fromMillis(created)
		n.Seen = seen != 0
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate notifications", err)
	}
	return out, nil
}

// MarkNotificationsSeen implements repository.NotificationStore.
func (s *Store) MarkNotificationsSeen(ctx context.Context, userID string) error {
	if _, err := s.q.ExecContext(ctx, `UPDATE notifications SET seen = 1 WHERE user_id = ?`, userID); err != nil {
		return persistErr("mark notifications seen", err)
	}
	return nil
}

var _ repository.Store = (*Store)(nil)
