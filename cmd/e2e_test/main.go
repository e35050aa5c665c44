package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/brunobiangulo/healthmap"
)

// Live smoke run of the whole research pipeline against a throwaway data
// dir: scrape, enrich, save, graph. Defaults to a local Ollama instance;
// point HEALTHMAP_PROVIDER / HEALTHMAP_MODEL / HEALTHMAP_API_KEY at a
// hosted provider to exercise that path instead.
func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	name := "UnitedHealth Group"
	if len(os.Args) > 1 {
		name = os.Args[1]
	}

	tmpDir, _ := os.MkdirTemp("", "healthmap-e2e-*")
	defer os.RemoveAll(tmpDir)

	cfg := healthmap.DefaultConfig()
	cfg.DataDir = tmpDir + "/entities"
	cfg.CacheDB = tmpDir + "/cache.db"
	cfg.Chat = healthmap.LLMConfig{
		Provider: "ollama",
		Model:    "qwen3:8b",
	}
	if v := os.Getenv("HEALTHMAP_PROVIDER"); v != "" {
		cfg.Chat.Provider = v
	}
	if v := os.Getenv("HEALTHMAP_MODEL"); v != "" {
		cfg.Chat.Model = v
	}
	if v := os.Getenv("HEALTHMAP_BASE_URL"); v != "" {
		cfg.Chat.BaseURL = v
	}
	if v := os.Getenv("HEALTHMAP_API_KEY"); v != "" {
		cfg.Chat.APIKey = v
	}
	if v := os.Getenv("NEWS_API_KEY"); v != "" {
		cfg.NewsAPIKey = v
	}

	engine, err := healthmap.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Process
	fmt.Fprintf(os.Stderr, "\n=== PROCESSING %s ===\n", name)
	rec, err := engine.ProcessEntity(ctx, name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "process error: %v\n", err)
		os.Exit(1)
	}

	// Print the enriched record to stdout so it can be piped.
	out, _ := json.MarshalIndent(rec, "", "  ")
	fmt.Println(string(out))

	// Graph
	fmt.Fprintln(os.Stderr, "\n=== GRAPH ===")
	g, err := engine.Graph(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "graph error: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "nodes=%d links=%d\n", len(g.Nodes), len(g.Links))
	for _, l := range g.Links {
		fmt.Fprintf(os.Stderr, "  %s -[%s]-> %s\n", l.Source, l.Type, l.Target)
	}
}
