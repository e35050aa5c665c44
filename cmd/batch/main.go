// Command batch processes many healthcare entities concurrently.
//
// Entity names come from a spreadsheet, explicit flags, or both:
//
//	go run ./cmd/batch -file entities.csv
//	go run ./cmd/batch -entity Cigna -entity "CVS Health" -workers 8
//
// Write a per-entity results file:
//
//	go run ./cmd/batch -file entities.csv -output results.csv
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/brunobiangulo/healthmap"
	"github.com/brunobiangulo/healthmap/doc"
)

// stringSlice implements flag.Value for multi-value string flags.
type stringSlice []string

func (s *stringSlice) String() string { return strings.Join(*s, ", ") }
func (s *stringSlice) Set(val string) error {
	*s = append(*s, val)
	return nil
}

type result struct {
	entity string
	err    error
}

func main() {
	os.Exit(run())
}

func run() int {
	var entities stringSlice

	var (
		inputFile  = flag.String("file", "", "CSV or XLSX file with entity names in the first column")
		workers    = flag.Int("workers", 4, "Maximum number of concurrent workers")
		output     = flag.String("output", "", "Write per-entity results to this CSV file")
		noUpdate   = flag.Bool("no-update", false, "Keep existing entity records instead of refreshing them")
		configPath = flag.String("config", "", "Path to config file (JSON or YAML)")
		dataDir    = flag.String("data-dir", "", "Directory entity records are stored in")
		provider   = flag.String("provider", "", "Chat LLM provider (anthropic, openai, groq, ollama, ...)")
		model      = flag.String("model", "", "Chat model name")
		baseURL    = flag.String("base-url", "", "Chat provider base URL override")
		apiKey     = flag.String("api-key", "", "Chat provider API key (default: from env)")
		newsKey    = flag.String("news-api-key", "", "NewsAPI key (default: $NEWS_API_KEY; placeholder headlines without one)")
		cacheDB    = flag.String("cache-db", "", "Path to the SQLite page cache (empty disables caching)")
		debug      = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Var(&entities, "entity", "Entity name to process (repeatable)")
	flag.Parse()

	setupLogging(*debug)

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using system environment")
	}

	if *inputFile == "" && len(entities) == 0 {
		fmt.Fprintln(os.Stderr, "either -file or -entity must be provided")
		flag.Usage()
		return 2
	}
	if *workers < 1 {
		fmt.Fprintln(os.Stderr, "workers must be at least 1")
		return 2
	}

	names, err := gatherNames(*inputFile, entities)
	if err != nil {
		slog.Error("collecting entity names", "error", err)
		return 1
	}

	cfg, err := resolveConfig(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		return 1
	}

	// Flags win over config file and environment.
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *provider != "" {
		cfg.Chat.Provider = *provider
	}
	if *model != "" {
		cfg.Chat.Model = *model
	}
	if *baseURL != "" {
		cfg.Chat.BaseURL = *baseURL
	}
	if *apiKey != "" {
		cfg.Chat.APIKey = *apiKey
	}
	if *newsKey != "" {
		cfg.NewsAPIKey = *newsKey
	}
	if *cacheDB != "" {
		cfg.CacheDB = *cacheDB
	}

	eng, err := healthmap.New(cfg)
	if err != nil {
		slog.Error("creating engine", "error", err)
		return 1
	}
	defer eng.Close()

	var opts []healthmap.ProcessOption
	if *noUpdate {
		opts = append(opts, healthmap.WithoutUpdate())
	}

	slog.Info("processing entities", "entities", len(names), "workers", *workers)

	ctx := context.Background()
	results := make([]result, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*workers)
	for i, name := range names {
		g.Go(func() error {
			// Failures are recorded per entity so one bad name does
			// not cancel the rest of the batch.
			_, err := eng.ProcessEntity(gctx, name, opts...)
			results[i] = result{entity: name, err: err}
			if err != nil {
				slog.Error("processing entity failed", "entity", name, "error", err)
			}
			return nil
		})
	}
	g.Wait()

	succeeded, failed := 0, 0
	for _, r := range results {
		if r.err != nil {
			failed++
		} else {
			succeeded++
		}
	}
	slog.Info("batch processing complete", "succeeded", succeeded, "failed", failed)

	if *output != "" {
		if err := writeResults(*output, results); err != nil {
			slog.Error("writing results failed", "path", *output, "error", err)
			return 1
		}
		slog.Info("results written", "path", *output)
	}

	if failed > 0 {
		return 1
	}
	return 0
}

// gatherNames merges the first column of the input file with explicit
// -entity flags.
func gatherNames(file string, extra []string) ([]string, error) {
	var names []string
	if file != "" {
		fromFile, err := doc.Names(file)
		if err != nil {
			return nil, fmt.Errorf("reading entity names from %s: %w", file, err)
		}
		names = fromFile
	}
	names = append(names, extra...)
	if len(names) == 0 {
		return nil, healthmap.ErrNoInput
	}
	return names, nil
}

// writeResults keeps rows in input order so they line up with the
// source file.
func writeResults(path string, results []result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	w.Write([]string{"Entity", "Status", "Error"})
	for _, r := range results {
		status, detail := "Success", ""
		if r.err != nil {
			status, detail = "Failure", r.err.Error()
		}
		w.Write([]string{r.entity, status, detail})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// setupLogging installs a console handler; debug lowers the level.
func setupLogging(debug bool) {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	handler := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           level,
	})
	slog.SetDefault(slog.New(handler))
}

// resolveConfig layers the config file (when given) and environment
// overrides on top of the defaults. HEALTHMAP_* variables win over the
// generic ones.
func resolveConfig(path string) (healthmap.Config, error) {
	cfg := healthmap.DefaultConfig()
	if path != "" {
		var err error
		cfg, err = healthmap.LoadConfig(path)
		if err != nil {
			return cfg, err
		}
	}

	setFromEnv(&cfg.UserAgent, "USER_AGENT")
	setFromEnv(&cfg.NewsAPIKey, "NEWS_API_KEY")
	setFromEnv(&cfg.DataDir, "HEALTHMAP_DATA_DIR")
	setFromEnv(&cfg.Chat.Provider, "HEALTHMAP_PROVIDER")
	setFromEnv(&cfg.Chat.Model, "HEALTHMAP_MODEL")
	setFromEnv(&cfg.Chat.BaseURL, "HEALTHMAP_BASE_URL")
	setFromEnv(&cfg.Chat.APIKey, "HEALTHMAP_API_KEY")
	setFromEnv(&cfg.NewsAPIKey, "HEALTHMAP_NEWS_API_KEY")
	setFromEnv(&cfg.CacheDB, "HEALTHMAP_CACHE_DB")

	// Provider-specific key fallbacks.
	if cfg.Chat.APIKey == "" {
		switch cfg.Chat.Provider {
		case "anthropic":
			if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
				cfg.Chat.APIKey = key
			} else {
				cfg.Chat.APIKey = os.Getenv("CLAUDE_API_KEY")
			}
		case "openai":
			cfg.Chat.APIKey = os.Getenv("OPENAI_API_KEY")
		case "groq":
			cfg.Chat.APIKey = os.Getenv("GROQ_API_KEY")
		case "openrouter":
			cfg.Chat.APIKey = os.Getenv("OPENROUTER_API_KEY")
		case "gemini":
			cfg.Chat.APIKey = os.Getenv("GEMINI_API_KEY")
		case "xai":
			cfg.Chat.APIKey = os.Getenv("XAI_API_KEY")
		}
	}
	return cfg, nil
}

func setFromEnv(field *string, key string) {
	if v := os.Getenv(key); v != "" {
		*field = v
	}
}
