package healthmap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/brunobiangulo/healthmap/doc"
	"github.com/brunobiangulo/healthmap/enrich"
	"github.com/brunobiangulo/healthmap/entity"
	"github.com/brunobiangulo/healthmap/graph"
	"github.com/brunobiangulo/healthmap/llm"
	"github.com/brunobiangulo/healthmap/scrape"
	"github.com/brunobiangulo/healthmap/store"
)

// Engine is the main entry point for the healthcare entity mapper.
type Engine interface {
	// ProcessEntity researches one company and saves its enriched record.
	// Returns the saved record.
	ProcessEntity(ctx context.Context, name string, opts ...ProcessOption) (*entity.Record, error)

	// AddEntity stores a hand-built record without running the pipeline.
	// Fails with ErrEntityExists unless force is set.
	AddEntity(ctx context.Context, rec *entity.Record, force bool) error

	// InferRelationships runs cross-entity inference over every stored
	// record and saves the additions. Returns the updated records.
	InferRelationships(ctx context.Context) ([]*entity.Record, error)

	// Graph rebuilds the force-directed graph from all stored records.
	Graph(ctx context.Context) (*graph.Graph, error)

	// ListEntities returns the names of all stored entities.
	ListEntities(ctx context.Context) ([]string, error)

	// GetEntity loads one stored record by name or slug.
	GetEntity(ctx context.Context, name string) (*entity.Record, error)

	// DeleteEntity removes a stored record.
	DeleteEntity(ctx context.Context, name string) error

	// Close cleanly shuts down the engine.
	Close() error
}

// ProcessOption configures a ProcessEntity run.
type ProcessOption func(*processOptions)

type processOptions struct {
	force    bool
	noUpdate bool
	document string
}

// WithForce discards any stored record and rebuilds the entity from
// scratch instead of merging onto it.
func WithForce() ProcessOption {
	return func(o *processOptions) { o.force = true }
}

// WithoutUpdate returns the stored record untouched when one exists,
// skipping the research pipeline entirely.
func WithoutUpdate() ProcessOption {
	return func(o *processOptions) { o.noUpdate = true }
}

// WithDocument adds text extracted from source to the research material.
// Source is a local file path (pdf, xlsx, txt, md) or an http(s) URL.
func WithDocument(source string) ProcessOption {
	return func(o *processOptions) { o.document = source }
}

// engine is the concrete implementation of Engine.
type engine struct {
	cfg      Config
	store    *store.Store
	cache    *scrape.Cache
	scraper  *scrape.Client
	chat     llm.Provider
	enricher *enrich.Enricher
}

// keylessProviders run locally or accept anonymous requests; everything
// else needs an API key before the first call.
var keylessProviders = map[string]bool{
	"ollama":   true,
	"lmstudio": true,
	"custom":   true,
}

// New creates a HealthMap engine with the given configuration.
func New(cfg Config) (Engine, error) {
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = filepath.Join("data", "entities")
	}

	s, err := store.New(dataDir)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	// Fail fast on a missing key rather than on the first enrichment call.
	if !keylessProviders[cfg.Chat.Provider] && cfg.Chat.APIKey == "" {
		return nil, fmt.Errorf("%w for provider %q", ErrAPIKeyMissing, cfg.Chat.Provider)
	}

	chat, err := llm.NewProvider(llm.Config{
		Provider: cfg.Chat.Provider,
		Model:    cfg.Chat.Model,
		BaseURL:  cfg.Chat.BaseURL,
		APIKey:   cfg.Chat.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating chat provider: %w", err)
	}

	var cache *scrape.Cache
	if cfg.CacheDB != "" {
		cache, err = scrape.NewCache(cfg.CacheDB, time.Duration(cfg.CacheTTLHours)*time.Hour)
		if err != nil {
			return nil, fmt.Errorf("opening page cache: %w", err)
		}
	}

	scraper := scrape.NewClient(scrape.Config{
		UserAgent:  cfg.UserAgent,
		Cache:      cache,
		NewsAPIKey: cfg.NewsAPIKey,
	})

	return &engine{
		cfg:      cfg,
		store:    s,
		cache:    cache,
		scraper:  scraper,
		chat:     chat,
		enricher: enrich.New(chat),
	}, nil
}

// ProcessEntity runs the research pipeline for one company: scrape profile
// and headlines, enrich via the chat model, merge onto any stored record,
// validate, save. Scrape failures degrade to enriching from the name alone;
// only enrichment failure aborts the run.
func (e *engine) ProcessEntity(ctx context.Context, name string, opts ...ProcessOption) (*entity.Record, error) {
	options := &processOptions{}
	for _, o := range opts {
		o(options)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("empty entity name")
	}

	// Load the stored record unless a forced rebuild discards it.
	var existing *entity.Record
	if !options.force && e.store.Exists(name) {
		rec, err := e.store.Load(name)
		switch {
		case err != nil:
			slog.Warn("process: stored record unreadable, rebuilding", "entity", name, "error", err)
		case options.noUpdate:
			slog.Info("process: entity already on file, skipping", "entity", name)
			return rec, nil
		default:
			existing = rec
		}
	}

	start := time.Now()
	slog.Info("process: researching entity", "entity", name)

	page, err := e.scraper.Page(ctx, name)
	if err != nil {
		slog.Warn("process: wikipedia lookup failed, continuing without profile",
			"entity", name, "error", err)
	}

	news, err := e.scraper.News(ctx, name)
	if err != nil {
		slog.Warn("process: news lookup failed, continuing without headlines",
			"entity", name, "error", err)
	}

	var document string
	if options.document != "" {
		document, err = e.documentText(ctx, options.document)
		if err != nil {
			return nil, fmt.Errorf("reading document %s: %w", options.document, err)
		}
	}

	research := enrich.BuildContext(page, news, document)
	if research == "" {
		slog.Warn("process: no research material found, enriching from name alone", "entity", name)
	}

	rec, err := e.enricher.Enrich(ctx, name, research)
	if err != nil {
		return nil, fmt.Errorf("enriching %q: %w", name, err)
	}

	if existing != nil {
		rec = entity.Merge(existing, rec)
	}

	for _, w := range rec.Validate() {
		slog.Warn("process: validation warning", "entity", name, "warning", w)
	}

	if err := e.store.Save(rec); err != nil {
		return nil, err
	}

	slog.Info("process: entity saved",
		"entity", name, "type", rec.Type,
		"subsidiaries", len(rec.Subsidiaries), "relationships", len(rec.Relationships),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return rec, nil
}

// documentText extracts research text from a supplemental source: web pages
// go through readability, local files through the document extractors.
func (e *engine) documentText(ctx context.Context, source string) (string, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return e.scraper.Article(ctx, source)
	}
	text, err := doc.Extract(ctx, source)
	if errors.Is(err, doc.ErrUnsupported) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(source))
	}
	return text, err
}

// AddEntity stores a hand-built record directly.
func (e *engine) AddEntity(ctx context.Context, rec *entity.Record, force bool) error {
	rec = rec.Clone().Normalize()
	if rec.Name == "" {
		return fmt.Errorf("entity has no name")
	}
	if !force && e.store.Exists(rec.Name) {
		return fmt.Errorf("%w: %s", ErrEntityExists, rec.Name)
	}
	for _, w := range rec.Validate() {
		slog.Warn("add: validation warning", "entity", rec.Name, "warning", w)
	}
	return e.store.Save(rec)
}

// InferRelationships asks the model for relationships across the whole
// stored entity set and merges the additions back in. Names the model
// returns that match no stored entity are dropped.
func (e *engine) InferRelationships(ctx context.Context) ([]*entity.Record, error) {
	records, err := e.store.LoadAll()
	if err != nil {
		return nil, err
	}

	slog.Info("infer: inferring relationships across entities", "entities", len(records))
	start := time.Now()

	updated, err := e.enricher.InferRelationships(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("inferring relationships: %w", err)
	}

	byName := make(map[string]*entity.Record, len(records))
	for _, r := range records {
		byName[r.Name] = r
	}

	changed := make([]*entity.Record, 0, len(updated))
	for _, u := range updated {
		base, ok := byName[u.Name]
		if !ok {
			slog.Warn("infer: dropping unknown entity in model output", "entity", u.Name)
			continue
		}
		merged := entity.Merge(base, u)
		if err := e.store.Save(merged); err != nil {
			return nil, err
		}
		changed = append(changed, merged)
	}

	slog.Info("infer: relationships updated",
		"entities", len(records), "updated", len(changed),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return changed, nil
}

// Graph rebuilds the full graph payload from the stored records. The build
// is recomputed on every call so edits dropped into the data directory by
// hand show up immediately.
func (e *engine) Graph(ctx context.Context) (*graph.Graph, error) {
	records, err := e.store.LoadAll()
	if err != nil {
		return nil, err
	}
	return graph.Build(records), nil
}

// ListEntities returns stored entity names in file order.
func (e *engine) ListEntities(ctx context.Context) ([]string, error) {
	records, err := e.store.LoadAll()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Name
	}
	return names, nil
}

// GetEntity loads one stored record by name or slug.
func (e *engine) GetEntity(ctx context.Context, name string) (*entity.Record, error) {
	rec, err := e.store.Load(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrEntityNotFound, name)
		}
		return nil, err
	}
	return rec, nil
}

// DeleteEntity removes a stored record.
func (e *engine) DeleteEntity(ctx context.Context, name string) error {
	if err := e.store.Delete(name); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrEntityNotFound, name)
		}
		return err
	}
	return nil
}

// Close shuts down the engine.
func (e *engine) Close() error {
	if e.cache != nil {
		return e.cache.Close()
	}
	return nil
}
