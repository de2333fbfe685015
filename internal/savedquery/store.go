// Package savedquery persists named queries so users can recall and
// re-run them later.
package savedquery

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/seastack/discover/internal/discover"
)

// ErrNotFound is returned when no saved query has the requested name.
var ErrNotFound = errors.New("saved query not found")

// SavedQuery is a named, persisted wire query.
type SavedQuery struct {
	ID        string
	Name      string
	Query     discover.WireQuery
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is a sqlite-backed saved query store.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open opens (creating if needed) the store at path. Use ":memory:"
// for an ephemeral store.
func Open(path string, log zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open saved query store: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS saved_queries (
		id TEXT PRIMARY KEY,
		name TEXT UNIQUE NOT NULL,
		query TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create saved query schema: %w", err)
	}

	return &Store{
		db:  db,
		log: log.With().Str("component", "savedquery").Logger(),
	}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores q under name, replacing any previous query with that
// name.
func (s *Store) Save(name string, q discover.WireQuery) (SavedQuery, error) {
	if name == "" {
		return SavedQuery{}, fmt.Errorf("saved query name is required")
	}
	raw, err := json.Marshal(q)
	if err != nil {
		return SavedQuery{}, fmt.Errorf("marshal saved query: %w", err)
	}

	now := time.Now().UTC()
	id := uuid.NewString()
	_, err = s.db.Exec(`
		INSERT INTO saved_queries (id, name, query, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET query = excluded.query, updated_at = excluded.updated_at`,
		id, name, string(raw), now, now)
	if err != nil {
		return SavedQuery{}, fmt.Errorf("save query %q: %w", name, err)
	}

	s.log.Debug().Str("name", name).Msg("query saved")
	return s.Get(name)
}

// Get returns the saved query with the given name.
func (s *Store) Get(name string) (SavedQuery, error) {
	row := s.db.QueryRow(
		`SELECT id, name, query, created_at, updated_at FROM saved_queries WHERE name = ?`, name)
	return scanSaved(row)
}

// List returns all saved queries, most recently updated first.
func (s *Store) List() ([]SavedQuery, error) {
	rows, err := s.db.Query(
		`SELECT id, name, query, created_at, updated_at FROM saved_queries ORDER BY updated_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("list saved queries: %w", err)
	}
	defer rows.Close()

	var out []SavedQuery
	for rows.Next() {
		sq, err := scanSaved(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sq)
	}
	return out, rows.Err()
}

// Delete removes the saved query with the given name.
func (s *Store) Delete(name string) error {
	res, err := s.db.Exec(`DELETE FROM saved_queries WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete saved query %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSaved(row scanner) (SavedQuery, error) {
	var (
		sq  SavedQuery
		raw string
	)
	err := row.Scan(&sq.ID, &sq.Name, &raw, &sq.CreatedAt, &sq.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return SavedQuery{}, ErrNotFound
	}
	if err != nil {
		return SavedQuery{}, fmt.Errorf("scan saved query: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &sq.Query); err != nil {
		return SavedQuery{}, fmt.Errorf("decode saved query %q: %w", sq.Name, err)
	}
	return sq, nil
}
