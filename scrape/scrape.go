package scrape

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"codeberg.org/readeck/go-readability/v2"
	"golang.org/x/sync/singleflight"
)

// defaultUserAgent identifies the scraper to Wikipedia per its bot policy.
const defaultUserAgent = "HealthMap/1.0 (Research Project)"

// Config configures a scrape client. Zero values get defaults; the URL
// fields exist so tests can point the client at local servers.
type Config struct {
	UserAgent   string
	Cache       *Cache
	WikiBaseURL string
	WikiAPIURL  string
	NewsAPIURL  string
	NewsAPIKey  string
}

// Client fetches and parses the public sources entity research draws on:
// Wikipedia articles, the MediaWiki search API, news, and arbitrary web
// pages. Concurrent fetches of the same URL collapse into one request, and
// bodies are served from the page cache when one is configured.
type Client struct {
	cfg    Config
	client *http.Client
	group  singleflight.Group
}

// NewClient creates a scrape client.
func NewClient(cfg Config) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.WikiBaseURL == "" {
		cfg.WikiBaseURL = wikipediaBaseURL
	}
	if cfg.WikiAPIURL == "" {
		cfg.WikiAPIURL = wikipediaAPIURL
	}
	if cfg.NewsAPIURL == "" {
		cfg.NewsAPIURL = newsAPIURL
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if c.cfg.Cache != nil {
		if body, ok := c.cfg.Cache.Get(ctx, rawURL); ok {
			return body, nil
		}
	}

	v, err, _ := c.group.Do(rawURL, func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.cfg.UserAgent)

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetching %s: status %d", rawURL, resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", rawURL, err)
		}

		if c.cfg.Cache != nil {
			if err := c.cfg.Cache.Put(ctx, rawURL, body); err != nil {
				slog.Warn("scrape: caching page failed", "url", rawURL, "error", err)
			}
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Article fetches an arbitrary web page and extracts its readable main text
// for use as a supplemental research source.
func (c *Client) Article(ctx context.Context, rawURL string) (string, error) {
	body, err := c.fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing url %s: %w", rawURL, err)
	}
	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return "", fmt.Errorf("extracting article from %s: %w", rawURL, err)
	}

	var text strings.Builder
	if err := article.RenderText(&text); err != nil {
		return "", fmt.Errorf("rendering article text: %w", err)
	}
	return text.String(), nil
}
