package scrape

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// defaultCacheTTL bounds how long a cached page is served before it is
// considered stale and refetched.
const defaultCacheTTL = 24 * time.Hour

// Cache is a SQLite-backed page cache keyed by URL. It keeps repeated runs
// from hammering Wikipedia while the same entities are re-processed.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
}

// NewCache opens (or creates) the cache database at dbPath. A ttl <= 0
// selects the default of 24 hours.
func NewCache(dbPath string, ttl time.Duration) (*Cache, error) {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging cache database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS pages (
			url        TEXT PRIMARY KEY,
			body       BLOB NOT NULL,
			fetched_at TIMESTAMP NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &Cache{db: db, ttl: ttl}, nil
}

// Get returns the cached body for a URL if present and fresh.
func (c *Cache) Get(ctx context.Context, url string) ([]byte, bool) {
	var body []byte
	var fetchedAt time.Time
	err := c.db.QueryRowContext(ctx,
		"SELECT body, fetched_at FROM pages WHERE url = ?", url,
	).Scan(&body, &fetchedAt)
	if err != nil {
		return nil, false
	}
	if time.Since(fetchedAt) > c.ttl {
		return nil, false
	}
	return body, true
}

// Put stores or refreshes the body for a URL.
func (c *Cache) Put(ctx context.Context, url string, body []byte) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO pages (url, body, fetched_at)
		VALUES (?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			body       = excluded.body,
			fetched_at = excluded.fetched_at
	`, url, body, time.Now())
	if err != nil {
		return fmt.Errorf("caching %s: %w", url, err)
	}
	return nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}
