package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/brunobiangulo/healthmap/entity"
)

// Store persists one JSON document per entity under a single directory.
// Files are named by slug, so records dropped into the directory by hand
// are picked up exactly like records written through Save.
type Store struct {
	dir string
}

// New creates (if needed) the data directory and returns a store over it.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory records are stored in.
func (s *Store) Dir() string {
	return s.dir
}

// Slug converts a company name to its on-disk file stem: lowercased, with
// spaces and slashes replaced by underscores.
func Slug(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "_")
	slug = strings.ReplaceAll(slug, "/", "_")
	return slug
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, Slug(name)+".json")
}

// Save writes the record to <dir>/<slug>.json. The write goes through a
// temp file and a rename so a crash cannot leave a half-written entity.
func (s *Store) Save(rec *entity.Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling entity %q: %w", rec.Name, err)
	}

	tmp, err := os.CreateTemp(s.dir, "entity-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing entity %q: %w", rec.Name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(rec.Name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("saving entity %q: %w", rec.Name, err)
	}
	return nil
}

// Exists reports whether a record for the given name is on disk.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.path(name))
	return err == nil
}

// Load reads one record by company name (or slug; both resolve to the same
// file). Missing entities surface as fs.ErrNotExist. Records are normalized
// on the way in so downstream code never sees untrimmed fields or nil lists.
func (s *Store) Load(name string) (*entity.Record, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return nil, fmt.Errorf("loading entity %q: %w", name, err)
	}
	var rec entity.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing entity %q: %w", name, err)
	}
	return rec.Normalize(), nil
}

// LoadAll reads every entity record in the directory, ordered by file name
// so repeated calls return records in a stable order. Unreadable files are
// skipped with a warning rather than failing the whole load.
func (s *Store) LoadAll() ([]*entity.Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading data directory: %w", err)
	}

	records := make([]*entity.Record, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		rec, err := s.Load(strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			slog.Warn("store: skipping unreadable entity file", "file", e.Name(), "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// List returns the slugs of all stored entities, ordered by file name.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading data directory: %w", err)
	}

	slugs := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		slugs = append(slugs, strings.TrimSuffix(e.Name(), ".json"))
	}
	return slugs, nil
}

// Delete removes a record from disk. Missing entities surface as
// fs.ErrNotExist.
func (s *Store) Delete(name string) error {
	if err := os.Remove(s.path(name)); err != nil {
		return fmt.Errorf("deleting entity %q: %w", name, err)
	}
	return nil
}
