// Package store persists venue specs in a local SQLite catalog.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/teslashibe/go-venue-acoustics/internal/config"
	"github.com/teslashibe/go-venue-acoustics/pkg/venue"
)

// ErrNotFound is returned when a venue id is not in the catalog.
var ErrNotFound = errors.New("store: venue not found")

// Entry is a catalog listing row.
type Entry struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	AudienceCapacity int     `json:"audience_capacity"`
	Volume           float64 `json:"volume"`
	Outdoor          bool    `json:"outdoor"`
	UpdatedAt        string  `json:"updated_at"`
}

// Store is a venue catalog backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the catalog at path.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := config.EnsureDir(path); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// SQLite serializes writers; one connection also keeps ":memory:" shared.
	db.SetMaxOpenConns(1)

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// OpenDefault opens the catalog at config.DBPath().
func OpenDefault() (*Store, error) {
	path, err := config.DBPath()
	if err != nil {
		return nil, err
	}
	return Open(path)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func ensureSchema(db *sql.DB) error {
	createTable := `
CREATE TABLE IF NOT EXISTS venues (
  id TEXT PRIMARY KEY,
  name TEXT,
  audience_capacity INTEGER,
  volume REAL,
  outdoor INTEGER,
  spec TEXT NOT NULL,
  updated_at TEXT
);`

	if _, err := db.Exec(createTable); err != nil {
		return fmt.Errorf("create venues table: %w", err)
	}

	if _, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_venues_name ON venues(name);"); err != nil {
		return fmt.Errorf("create venues index: %w", err)
	}

	return nil
}

// Put validates spec by building it and stores it, replacing any venue
// with the same id. A spec without an id is assigned the built venue's id,
// which is returned.
func (s *Store) Put(spec venue.Spec) (string, error) {
	v, err := spec.Build(nil)
	if err != nil {
		return "", err
	}
	spec.ID = v.ID()

	data, err := spec.Marshal()
	if err != nil {
		return "", err
	}

	query := `
INSERT OR REPLACE INTO venues (
  id, name, audience_capacity, volume, outdoor, spec, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?);`

	_, err = s.db.Exec(
		query,
		spec.ID,
		spec.Name,
		spec.AudienceCapacity,
		v.RoomVolume(),
		spec.Outdoor,
		string(data),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("store venue %s: %w", spec.ID, err)
	}
	return spec.ID, nil
}

// Get returns the stored spec for id.
func (s *Store) Get(id string) (venue.Spec, error) {
	var data string
	err := s.db.QueryRow("SELECT spec FROM venues WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return venue.Spec{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return venue.Spec{}, err
	}
	return venue.ParseSpec([]byte(data))
}

// Load builds the stored venue for id against the default registry.
func (s *Store) Load(id string) (*venue.Venue, error) {
	spec, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return spec.Build(nil)
}

// Remove deletes a venue and reports whether it existed.
func (s *Store) Remove(id string) (bool, error) {
	res, err := s.db.Exec("DELETE FROM venues WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// List returns all catalog entries ordered by name, then id.
func (s *Store) List() ([]Entry, error) {
	rows, err := s.db.Query(`
SELECT id, name, audience_capacity, volume, outdoor, updated_at
FROM venues
ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var name sql.NullString
		var updated sql.NullString
		if err := rows.Scan(&e.ID, &name, &e.AudienceCapacity, &e.Volume, &e.Outdoor, &updated); err != nil {
			return nil, err
		}
		if name.Valid {
			e.Name = name.String
		}
		if updated.Valid {
			e.UpdatedAt = updated.String
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// SeedPresets stores the built-in venues that are not yet in the catalog
// and returns how many were added.
func (s *Store) SeedPresets() (int, error) {
	added := 0
	for _, name := range venue.PresetNames() {
		if _, err := s.Get(name); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return added, err
		}
		spec, err := venue.PresetSpec(name)
		if err != nil {
			return added, err
		}
		if _, err := s.Put(spec); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}
