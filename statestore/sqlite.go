package statestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/profilewatch/dbopen"
	"github.com/hazyhaar/profilewatch/profile"
	"github.com/hazyhaar/profilewatch/protocol"
)

// Schema creates the pending state table.
const Schema = `CREATE TABLE IF NOT EXISTS pending_state (
	scope      TEXT NOT NULL,
	key        TEXT NOT NULL,
	body       TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (scope, key)
)`

// SQLite stores state in a database opened with dbopen.
type SQLite struct {
	db *sql.DB
}

// NewSQLite wraps db. The schema must already be applied (dbopen.WithSchema).
func NewSQLite(db *sql.DB) *SQLite { return &SQLite{db: db} }

// OpenSQLite opens path and applies Schema.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, err
	}
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error { return s.db.Close() }

// Save implements Store.
func (s *SQLite) Save(ctx context.Context, scope protocol.ContextID, st *profile.PhaseState) error {
	data, err := st.Encode()
	if err != nil {
		return err
	}
	_, err = dbopen.Exec(ctx, s.db,
		`INSERT INTO pending_state (scope, key, body, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(scope, key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		string(scope), profile.StateKey, string(data), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("statestore: sqlite save: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *SQLite) Load(ctx context.Context, scope protocol.ContextID) (*profile.PhaseState, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM pending_state WHERE scope = ? AND key = ?`,
		string(scope), profile.StateKey).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("statestore: sqlite load: %w", err)
	}
	return profile.DecodeState([]byte(body))
}

// Delete implements Store.
func (s *SQLite) Delete(ctx context.Context, scope protocol.ContextID) error {
	_, err := dbopen.Exec(ctx, s.db,
		`DELETE FROM pending_state WHERE scope = ? AND key = ?`,
		string(scope), profile.StateKey)
	if err != nil {
		return fmt.Errorf("statestore: sqlite delete: %w", err)
	}
	return nil
}
