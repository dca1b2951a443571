// Package archive persists breakthrough sessions and improvement events
// to a local sqlite database, with JSONL export for external tooling.
package archive

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/templetwo/breakthrough/internal/adaptive"
	"github.com/templetwo/breakthrough/internal/engine"
)

// ErrNotFound reports a missing session.
var ErrNotFound = errors.New("archive: session not found")

// Store is the sqlite-backed archive.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open opens (or creates) the archive at path and runs migrations.
// Parent directories are created as needed.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("archive: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=ON&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", path, err)
	}

	store := &Store{db: db, path: path, logger: logger}
	if err := store.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Migrate creates the schema when missing.
func (s *Store) Migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at TIMESTAMP NOT NULL,
	problem    TEXT NOT NULL,
	achieved   BOOLEAN NOT NULL,
	cycles     INTEGER NOT NULL,
	potential  REAL NOT NULL,
	data       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_at DESC);

CREATE TABLE IF NOT EXISTS improvement_events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at TIMESTAMP NOT NULL,
	data       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_created ON improvement_events(created_at DESC);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("archive: migrate: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SessionSummary is the list view of an archived session.
type SessionSummary struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Problem   string    `json:"problem"`
	Achieved  bool      `json:"achieved"`
	Cycles    int       `json:"cycles"`
	Potential float64   `json:"potential"`
}

// SaveSession archives a finished session and returns its row id.
func (s *Store) SaveSession(session *engine.Session) (int64, error) {
	if session == nil {
		return 0, fmt.Errorf("archive: nil session")
	}

	blob, err := json.Marshal(session)
	if err != nil {
		return 0, fmt.Errorf("archive: encode session: %w", err)
	}

	potential := 0.0
	if n := len(session.Cycles); n > 0 {
		potential = session.Cycles[n-1].Potential
	}

	res, err := s.db.Exec(
		`INSERT INTO sessions (created_at, problem, achieved, cycles, potential, data) VALUES (?, ?, ?, ?, ?, ?)`,
		session.StartTime, session.Problem, session.Achieved, len(session.Cycles), potential, string(blob),
	)
	if err != nil {
		return 0, fmt.Errorf("archive: insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("archive: session id: %w", err)
	}

	s.logger.Info("session archived",
		slog.Int64("id", id),
		slog.Bool("achieved", session.Achieved),
		slog.Int("cycles", len(session.Cycles)),
	)
	return id, nil
}

// GetSession loads a full session by id.
func (s *Store) GetSession(id int64) (*engine.Session, error) {
	var blob string
	err := s.db.QueryRow(`SELECT data FROM sessions WHERE id = ?`, id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("archive: query session %d: %w", id, err)
	}

	var session engine.Session
	if err := json.Unmarshal([]byte(blob), &session); err != nil {
		return nil, fmt.Errorf("archive: decode session %d: %w", id, err)
	}
	return &session, nil
}

// ListSessions returns up to limit session summaries, newest first.
// A non-positive limit returns everything.
func (s *Store) ListSessions(limit int) ([]SessionSummary, error) {
	query := `SELECT id, created_at, problem, achieved, cycles, potential FROM sessions ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("archive: list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		if err := rows.Scan(&sum.ID, &sum.CreatedAt, &sum.Problem, &sum.Achieved, &sum.Cycles, &sum.Potential); err != nil {
			return nil, fmt.Errorf("archive: scan session: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// SaveImprovementEvent appends one improvement event.
func (s *Store) SaveImprovementEvent(event adaptive.ImprovementEvent) error {
	blob, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("archive: encode event: %w", err)
	}
	if _, err := s.db.Exec(
		`INSERT INTO improvement_events (created_at, data) VALUES (?, ?)`,
		event.Timestamp, string(blob),
	); err != nil {
		return fmt.Errorf("archive: insert event: %w", err)
	}
	return nil
}

// ListImprovementEvents returns up to limit events, newest first.
// A non-positive limit returns everything.
func (s *Store) ListImprovementEvents(limit int) ([]adaptive.ImprovementEvent, error) {
	query := `SELECT data FROM improvement_events ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("archive: list events: %w", err)
	}
	defer rows.Close()

	var out []adaptive.ImprovementEvent
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("archive: scan event: %w", err)
		}
		var event adaptive.ImprovementEvent
		if err := json.Unmarshal([]byte(blob), &event); err != nil {
			return nil, fmt.Errorf("archive: decode event: %w", err)
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

// Stats summarizes the archive contents.
type Stats struct {
	Sessions          int `json:"sessions"`
	Achieved          int `json:"achieved"`
	ImprovementEvents int `json:"improvement_events"`
}

// GetStats returns archive counters.
func (s *Store) GetStats() (Stats, error) {
	var stats Stats
	if err := s.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(achieved), 0) FROM sessions`).Scan(&stats.Sessions, &stats.Achieved); err != nil {
		return stats, fmt.Errorf("archive: session stats: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM improvement_events`).Scan(&stats.ImprovementEvents); err != nil {
		return stats, fmt.Errorf("archive: event stats: %w", err)
	}
	return stats, nil
}
