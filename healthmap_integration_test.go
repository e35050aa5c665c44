//go:build integration && cgo

package healthmap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

const (
	ollamaURL   = "http://localhost:11434"
	chatModel   = "qwen3:8b"
	testTimeout = 10 * time.Minute
)

// shared holds the engine and the first processed entity, set up once for
// all tests. Integration runs hit live Wikipedia and a local Ollama.
var shared struct {
	once    sync.Once
	eng     Engine
	dataDir string
	cacheDB string
	err     error
}

func ollamaAvailable() bool {
	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(ollamaURL + "/api/tags")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// warmModel sends a tiny request to force Ollama to load a model into memory.
func warmModel(model string) error {
	body := fmt.Sprintf(`{"model":%q,"messages":[{"role":"user","content":"hi"}],"stream":false,"options":{"num_predict":1}}`, model)
	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Post(ollamaURL+"/api/chat", "application/json", strings.NewReader(body))
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// setupShared creates the shared engine and processes one entity once.
func setupShared(t *testing.T) {
	t.Helper()
	shared.once.Do(func() {
		if !ollamaAvailable() {
			shared.err = fmt.Errorf("ollama not available")
			return
		}

		t.Log("Warming up chat model...")
		if err := warmModel(chatModel); err != nil {
			shared.err = fmt.Errorf("warming chat model: %w", err)
			return
		}

		dir, err := os.MkdirTemp("", "healthmap-integration-*")
		if err != nil {
			shared.err = err
			return
		}
		shared.dataDir = filepath.Join(dir, "entities")
		shared.cacheDB = filepath.Join(dir, "cache.db")

		cfg := Config{
			DataDir: shared.dataDir,
			Chat: LLMConfig{
				Provider: "ollama",
				Model:    chatModel,
				BaseURL:  ollamaURL,
			},
			CacheDB: shared.cacheDB,
		}

		eng, err := New(cfg)
		if err != nil {
			shared.err = fmt.Errorf("creating engine: %w", err)
			return
		}
		shared.eng = eng

		ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
		defer cancel()

		t.Log("Processing UnitedHealth Group...")
		if _, err := eng.ProcessEntity(ctx, "UnitedHealth Group"); err != nil {
			shared.err = fmt.Errorf("processing entity: %w", err)
			eng.Close()
			return
		}
	})
}

func skipOrSetup(t *testing.T) {
	t.Helper()
	setupShared(t)
	if shared.err != nil {
		t.Skipf("shared setup failed: %v", shared.err)
	}
}

func TestIntegrationProcessEntity(t *testing.T) {
	skipOrSetup(t)

	ctx := context.Background()
	rec, err := shared.eng.GetEntity(ctx, "UnitedHealth Group")
	if err != nil {
		t.Fatalf("GetEntity: %v", err)
	}

	if rec.Name != "UnitedHealth Group" {
		t.Errorf("Name: got %q, want %q", rec.Name, "UnitedHealth Group")
	}
	if rec.Subsidiaries == nil || rec.Relationships == nil {
		t.Error("lists should be normalized, not nil")
	}

	if _, err := os.Stat(filepath.Join(shared.dataDir, "unitedhealth_group.json")); err != nil {
		t.Errorf("record file not written: %v", err)
	}

	t.Logf("Type: %s, Revenue: %s, Subsidiaries: %d, Relationships: %d",
		rec.Type, rec.Revenue, len(rec.Subsidiaries), len(rec.Relationships))
}

func TestIntegrationPageCacheWritten(t *testing.T) {
	skipOrSetup(t)

	info, err := os.Stat(shared.cacheDB)
	if err != nil {
		t.Fatalf("cache database not created: %v", err)
	}
	if info.Size() == 0 {
		t.Error("cache database is empty")
	}
}

func TestIntegrationSkipExisting(t *testing.T) {
	skipOrSetup(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// The entity is on file, so this must return without a model call.
	rec, err := shared.eng.ProcessEntity(ctx, "UnitedHealth Group", WithoutUpdate())
	if err != nil {
		t.Fatalf("ProcessEntity with WithoutUpdate: %v", err)
	}
	if rec.Name != "UnitedHealth Group" {
		t.Errorf("Name: got %q, want %q", rec.Name, "UnitedHealth Group")
	}
}

func TestIntegrationGraph(t *testing.T) {
	skipOrSetup(t)

	g, err := shared.eng.Graph(context.Background())
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	if len(g.Nodes) == 0 {
		t.Fatal("expected at least one node")
	}

	var found bool
	for _, n := range g.Nodes {
		if n.ID == "UnitedHealth Group" {
			found = true
			if n.Size < 5.0 || n.Size > 60.0 {
				t.Errorf("node size out of range: %f", n.Size)
			}
		}
	}
	if !found {
		t.Error("no node for the processed entity")
	}

	t.Logf("Graph: %d nodes, %d links", len(g.Nodes), len(g.Links))
}

func TestIntegrationInferRelationships(t *testing.T) {
	skipOrSetup(t)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	t.Log("Processing Cigna...")
	if _, err := shared.eng.ProcessEntity(ctx, "Cigna"); err != nil {
		t.Fatalf("processing second entity: %v", err)
	}

	changed, err := shared.eng.InferRelationships(ctx)
	if err != nil {
		t.Fatalf("InferRelationships: %v", err)
	}

	// Small local models may or may not add anything; the contract is that
	// every returned record matches a stored entity.
	names, err := shared.eng.ListEntities(ctx)
	if err != nil {
		t.Fatalf("ListEntities: %v", err)
	}
	stored := make(map[string]bool, len(names))
	for _, n := range names {
		stored[n] = true
	}
	for _, rec := range changed {
		if !stored[rec.Name] {
			t.Errorf("changed record %q does not match a stored entity", rec.Name)
		}
	}

	t.Logf("Inference updated %d of %d entities", len(changed), len(names))
}
