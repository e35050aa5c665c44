//go:build cgo

package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	cache, err := NewCache(filepath.Join(t.TempDir(), "cache.db"), ttl)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestCachePutGet(t *testing.T) {
	cache := newTestCache(t, 0)
	ctx := context.Background()

	if err := cache.Put(ctx, "https://example.com/a", []byte("body a")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	body, ok := cache.Get(ctx, "https://example.com/a")
	if !ok {
		t.Fatal("Get: cached page not found")
	}
	if got, want := string(body), "body a"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCacheMiss(t *testing.T) {
	cache := newTestCache(t, 0)

	if _, ok := cache.Get(context.Background(), "https://example.com/missing"); ok {
		t.Fatal("Get returned a body for a URL never stored")
	}
}

func TestCachePutOverwrites(t *testing.T) {
	cache := newTestCache(t, 0)
	ctx := context.Background()

	if err := cache.Put(ctx, "https://example.com/a", []byte("old")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := cache.Put(ctx, "https://example.com/a", []byte("new")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	body, ok := cache.Get(ctx, "https://example.com/a")
	if !ok {
		t.Fatal("Get: cached page not found")
	}
	if got, want := string(body), "new"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCacheExpiry(t *testing.T) {
	cache := newTestCache(t, time.Nanosecond)
	ctx := context.Background()

	if err := cache.Put(ctx, "https://example.com/a", []byte("stale")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, ok := cache.Get(ctx, "https://example.com/a"); ok {
		t.Fatal("Get returned a body past its ttl")
	}
}

func TestCacheCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "cache.db")
	cache, err := NewCache(path, 0)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	defer cache.Close()

	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Errorf("parent directory missing: %v", err)
	}
}

func TestClientServesFromCache(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`{"query": {"search": []}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{
		WikiAPIURL: srv.URL,
		Cache:      newTestCache(t, 0),
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := c.Search(ctx, "Humana"); err != nil {
			t.Fatalf("Search: %v", err)
		}
	}

	if got, want := hits, 1; got != want {
		t.Errorf("server hit %d times, want %d", got, want)
	}
}
