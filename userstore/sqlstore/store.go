// Package sqlstore keeps user snapshots in a SQL table for use as the
// SerializeUser and DeserializeUser callbacks of a sessionless middleware.
//
// The queries use "?" placeholders and an ON CONFLICT upsert, which SQLite
// understands. The package is tested against modernc.org/sqlite.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/MrEthical07/sessionless"
)

// ErrEmptyID is returned when the id function yields "".
var ErrEmptyID = errors.New("user id is empty")

const defaultTable = "sessionless_users"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config configures a [Store].
type Config[U any] struct {
	// Table defaults to "sessionless_users".
	Table string
	// ID returns the key of a user. Required.
	ID  func(U) string
	Now func() time.Time
}

// Store persists JSON snapshots of U in one table.
type Store[U any] struct {
	db  *sql.DB
	id  func(U) string
	now func() time.Time

	createQuery string
	upsertQuery string
	selectQuery string
	deleteQuery string
}

// New returns a Store over db. Call [Store.Migrate] before first use.
func New[U any](db *sql.DB, cfg Config[U]) (*Store[U], error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if cfg.ID == nil {
		return nil, errors.New("id function is required")
	}
	table := cfg.Table
	if table == "" {
		table = defaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Store[U]{
		db:  db,
		id:  cfg.ID,
		now: cfg.Now,
		createQuery: fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id          TEXT PRIMARY KEY,
			data        BLOB NOT NULL,
			updated_at  INTEGER NOT NULL
		);`, table),
		upsertQuery: fmt.Sprintf(`
		INSERT INTO %s (id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at;`, table),
		selectQuery: fmt.Sprintf(`SELECT data FROM %s WHERE id = ?;`, table),
		deleteQuery: fmt.Sprintf(`DELETE FROM %s WHERE id = ?;`, table),
	}, nil
}

// Migrate creates the table if it does not exist.
func (s *Store[U]) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.createQuery); err != nil {
		return fmt.Errorf("failed to init user table schema: %w", err)
	}
	return nil
}

// Save writes the snapshot of user and returns its id.
func (s *Store[U]) Save(ctx context.Context, user U) (string, error) {
	id := s.id(user)
	if id == "" {
		return "", ErrEmptyID
	}
	data, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("encode user: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, s.upsertQuery, id, data, s.now().Unix()); err != nil {
		return "", fmt.Errorf("save user %s: %w", id, err)
	}
	return id, nil
}

// Get loads the snapshot for id. A missing row returns an error wrapping
// [sessionless.ErrUserNotFound].
func (s *Store[U]) Get(ctx context.Context, id string) (U, error) {
	var zero U
	if id == "" {
		return zero, sessionless.ErrUserNotFound
	}

	var data []byte
	err := s.db.QueryRowContext(ctx, s.selectQuery, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, fmt.Errorf("%w: %s", sessionless.ErrUserNotFound, id)
	}
	if err != nil {
		return zero, fmt.Errorf("load user %s: %w", id, err)
	}

	var user U
	if err := json.Unmarshal(data, &user); err != nil {
		return zero, fmt.Errorf("decode user %s: %w", id, err)
	}
	return user, nil
}

// Delete removes the row for id. Deleting a missing id is not an error.
func (s *Store[U]) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, s.deleteQuery, id); err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	return nil
}

// Serialize matches sessionless.SerializeUserFunc.
func (s *Store[U]) Serialize(ctx context.Context, user U) (string, error) {
	return s.Save(ctx, user)
}

// Deserialize matches sessionless.DeserializeUserFunc.
func (s *Store[U]) Deserialize(r *http.Request, subject string) (U, error) {
	return s.Get(r.Context(), subject)
}
