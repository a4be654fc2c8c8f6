// Package results keeps the history of finished scrapes in SQLite. A Store
// is the broker's ResultSink and the HTTP transport's History.
package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/profilewatch/broker"
	"github.com/hazyhaar/profilewatch/dbopen"
	"github.com/hazyhaar/profilewatch/debuglog"
	"github.com/hazyhaar/profilewatch/profile"
	"github.com/hazyhaar/profilewatch/protocol"
)

// Schema creates the scrapes table.
const Schema = `
CREATE TABLE IF NOT EXISTS scrapes (
    request_id   TEXT PRIMARY KEY,
    url          TEXT NOT NULL,
    status       TEXT NOT NULL,
    code         TEXT NOT NULL DEFAULT '',
    reason       TEXT NOT NULL DEFAULT '',
    profile_json TEXT,
    debug_json   TEXT NOT NULL DEFAULT '[]',
    scraped_at   TEXT NOT NULL DEFAULT '',
    created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scrapes_created ON scrapes(created_at DESC);
`

// Summary is one row of the history listing.
type Summary struct {
	RequestID string    `json:"requestId"`
	URL       string    `json:"url"`
	Status    string    `json:"status"`
	Code      string    `json:"code,omitempty"`
	Name      string    `json:"name,omitempty"`
	ScrapedAt string    `json:"scrapedAt,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store reads and writes the scrapes table.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New wraps db. The schema must already be applied (dbopen.WithSchema).
func New(db *sql.DB) *Store { return &Store{db: db, now: time.Now} }

// Open opens path and applies Schema plus any extra schemas.
func Open(path string, extra ...string) (*Store, error) {
	opts := []dbopen.Option{dbopen.WithMkdirAll(), dbopen.WithSchema(Schema)}
	for _, s := range extra {
		opts = append(opts, dbopen.WithSchema(s))
	}
	db, err := dbopen.Open(path, opts...)
	if err != nil {
		return nil, fmt.Errorf("results: open: %w", err)
	}
	return New(db), nil
}

// DB exposes the underlying database, shared with other tables of the
// service such as rate limits.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// SaveResult implements broker.ResultSink. Responses without a request ID
// are not recorded.
func (s *Store) SaveResult(ctx context.Context, r protocol.Response) error {
	if r.RequestID == "" {
		return nil
	}
	var profileJSON sql.NullString
	if r.Profile != nil {
		data, err := json.Marshal(r.Profile)
		if err != nil {
			return fmt.Errorf("results: encode profile: %w", err)
		}
		profileJSON = sql.NullString{String: string(data), Valid: true}
	}
	debugJSON, err := json.Marshal(debuglog.Concat(r.Debug))
	if err != nil {
		return fmt.Errorf("results: encode debug: %w", err)
	}

	_, err = dbopen.Exec(ctx, s.db,
		`INSERT INTO scrapes (request_id, url, status, code, reason, profile_json, debug_json, scraped_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(request_id) DO UPDATE SET
		   status = excluded.status, code = excluded.code, reason = excluded.reason,
		   profile_json = excluded.profile_json, debug_json = excluded.debug_json,
		   scraped_at = excluded.scraped_at`,
		r.RequestID, r.URL, r.Status, r.Code, r.Reason, profileJSON, string(debugJSON), r.ScrapedAt,
		s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("results: save %s: %w", r.RequestID, err)
	}
	return nil
}

// Get implements broker.History.
func (s *Store) Get(ctx context.Context, requestID string) (protocol.Response, error) {
	var (
		r           protocol.Response
		profileJSON sql.NullString
		debugJSON   string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT request_id, url, status, code, reason, profile_json, debug_json, scraped_at
		 FROM scrapes WHERE request_id = ?`, requestID).
		Scan(&r.RequestID, &r.URL, &r.Status, &r.Code, &r.Reason, &profileJSON, &debugJSON, &r.ScrapedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return protocol.Response{}, fmt.Errorf("results: %s: %w", requestID, broker.ErrNotFound)
	}
	if err != nil {
		return protocol.Response{}, fmt.Errorf("results: get %s: %w", requestID, err)
	}
	if profileJSON.Valid {
		var p profile.Profile
		if err := json.Unmarshal([]byte(profileJSON.String), &p); err != nil {
			return protocol.Response{}, fmt.Errorf("results: decode profile %s: %w", requestID, err)
		}
		r.Profile = &p
	}
	if err := json.Unmarshal([]byte(debugJSON), &r.Debug); err != nil {
		return protocol.Response{}, fmt.Errorf("results: decode debug %s: %w", requestID, err)
	}
	r.Debug = debuglog.Concat(r.Debug)
	return r, nil
}

// Recent lists the latest scrapes, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT request_id, url, status, code, COALESCE(json_extract(profile_json, '$.name'), ''), scraped_at, created_at
		 FROM scrapes ORDER BY created_at DESC, request_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("results: recent: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var (
			sm Summary
			ms int64
		)
		if err := rows.Scan(&sm.RequestID, &sm.URL, &sm.Status, &sm.Code, &sm.Name, &sm.ScrapedAt, &ms); err != nil {
			return nil, fmt.Errorf("results: recent scan: %w", err)
		}
		sm.CreatedAt = time.UnixMilli(ms).UTC()
		out = append(out, sm)
	}
	return out, rows.Err()
}

// Prune deletes scrapes older than age and reports how many were removed.
func (s *Store) Prune(ctx context.Context, age time.Duration) (int64, error) {
	res, err := dbopen.Exec(ctx, s.db, `DELETE FROM scrapes WHERE created_at < ?`, s.now().Add(-age).UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("results: prune: %w", err)
	}
	return res.RowsAffected()
}
