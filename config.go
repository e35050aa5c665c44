package healthmap

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the HealthMap engine.
type Config struct {
	// DataDir is the directory entity records live in, one JSON file per
	// entity. Defaults to data/entities under the working directory.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// Chat configures the model that turns scraped research into records.
	Chat LLMConfig `json:"chat" yaml:"chat"`

	// UserAgent identifies the scraper to Wikipedia. Defaults to
	// "HealthMap/1.0 (Research Project)".
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// NewsAPIKey enables live news lookups. Without one the pipeline uses
	// built-in placeholder headlines.
	NewsAPIKey string `json:"news_api_key" yaml:"news_api_key"`

	// CacheDB is the path of the SQLite page cache. Empty disables caching
	// and every fetch goes to the network.
	CacheDB string `json:"cache_db" yaml:"cache_db"`

	// CacheTTLHours is how long cached pages stay fresh (default 24).
	CacheTTLHours int `json:"cache_ttl_hours" yaml:"cache_ttl_hours"`
}

// LLMConfig configures a single LLM provider endpoint.
type LLMConfig struct {
	Provider string `json:"provider" yaml:"provider"` // anthropic, openai, groq, openrouter, gemini, xai, ollama, lmstudio, custom
	Model    string `json:"model" yaml:"model"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	APIKey   string `json:"api_key" yaml:"api_key"`
}

// DefaultConfig returns a Config with the pipeline defaults: Anthropic chat,
// records under data/entities, placeholder news, no page cache.
func DefaultConfig() Config {
	return Config{
		DataDir: filepath.Join("data", "entities"),
		Chat: LLMConfig{
			Provider: "anthropic",
			Model:    "claude-3-opus-20240229",
		},
	}
}

// LoadConfig reads a JSON or YAML configuration file layered over
// DefaultConfig, so fields the file leaves out keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	return cfg, nil
}
