// Command healthmap researches healthcare companies and maintains the
// entity records behind the relationship graph.
//
// Process one or more entities:
//
//	go run ./cmd/healthmap "UnitedHealth Group" Cigna
//
// Attach an annual report to the research material:
//
//	go run ./cmd/healthmap -document ./reports/uhg-2024.pdf "UnitedHealth Group"
//
// Infer relationships across everything on file:
//
//	go run ./cmd/healthmap -infer
//
// List stored entities:
//
//	go run ./cmd/healthmap -list
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/brunobiangulo/healthmap"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = flag.String("config", "", "Path to config file (JSON or YAML)")
		dataDir    = flag.String("data-dir", "", "Directory entity records are stored in")
		provider   = flag.String("provider", "", "Chat LLM provider (anthropic, openai, groq, ollama, ...)")
		model      = flag.String("model", "", "Chat model name")
		baseURL    = flag.String("base-url", "", "Chat provider base URL override")
		apiKey     = flag.String("api-key", "", "Chat provider API key (default: from env)")
		newsKey    = flag.String("news-api-key", "", "NewsAPI key (default: $NEWS_API_KEY; placeholder headlines without one)")
		cacheDB    = flag.String("cache-db", "", "Path to the SQLite page cache (empty disables caching)")
		document   = flag.String("document", "", "Local file or URL added to the research material")
		noUpdate   = flag.Bool("no-update", false, "Keep existing entity records instead of refreshing them")
		force      = flag.Bool("force", false, "Rebuild entities from scratch, discarding stored records")
		infer      = flag.Bool("infer", false, "Infer relationships across all stored entities")
		list       = flag.Bool("list", false, "List all processed entities")
		debug      = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	setupLogging(*debug)

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using system environment")
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

	names := flag.Args()
	if len(names) == 0 && !*infer && !*list {
		flag.Usage()
		return 0
	}

	eng, err := healthmap.New(cfg)
	if err != nil {
		slog.Error("creating engine", "error", err)
		return 1
	}
	defer eng.Close()

	ctx := context.Background()

	if *list {
		return listEntities(ctx, eng)
	}

	var opts []healthmap.ProcessOption
	if *noUpdate {
		opts = append(opts, healthmap.WithoutUpdate())
	}
	if *force {
		opts = append(opts, healthmap.WithForce())
	}
	if *document != "" {
		opts = append(opts, healthmap.WithDocument(*document))
	}

	var failed int
	for _, name := range names {
		if _, err := eng.ProcessEntity(ctx, name, opts...); err != nil {
			slog.Error("processing entity failed", "entity", name, "error", err)
			failed++
		}
	}

	if *infer {
		stored, err := eng.ListEntities(ctx)
		if err != nil {
			slog.Error("listing entities", "error", err)
			return 1
		}
		if len(stored) == 0 {
			slog.Warn("no entities found to infer relationships")
			return 1
		}
		if _, err := eng.InferRelationships(ctx); err != nil {
			slog.Error("inferring relationships failed", "error", err)
			failed++
		}
	}

	if failed > 0 {
		return 1
	}
	return 0
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

func listEntities(ctx context.Context, eng healthmap.Engine) int {
	names, err := eng.ListEntities(ctx)
	if err != nil {
		slog.Error("listing entities", "error", err)
		return 1
	}
	if len(names) == 0 {
		fmt.Println("No entities processed yet.")
		return 0
	}

	fmt.Printf("Found %d processed entities:\n", len(names))
	for _, name := range names {
		rec, err := eng.GetEntity(ctx, name)
		if err != nil {
			slog.Warn("loading entity", "entity", name, "error", err)
			continue
		}
		typ := rec.Type
		if typ == "" {
			typ = "Unknown"
		}
		revenue := rec.Revenue
		if revenue == "" {
			revenue = "Unknown"
		}
		fmt.Printf("- %s (%s)\n", rec.Name, typ)
		fmt.Printf("  Revenue: %s\n", revenue)
		fmt.Printf("  Subsidiaries: %d\n", len(rec.Subsidiaries))
		fmt.Printf("  Relationships: %d\n", len(rec.Relationships))
		fmt.Println()
	}
	return 0
}
