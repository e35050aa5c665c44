package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

const (
	wikipediaBaseURL = "https://en.wikipedia.org/wiki/"
	wikipediaAPIURL  = "https://en.wikipedia.org/w/api.php"
)

// editLinkRe matches the bracketed "[edit]" suffix MediaWiki appends to
// section headings.
var editLinkRe = regexp.MustCompile(`\[\w+\]`)

// Page holds the structured content scraped from one Wikipedia article.
// Infobox rows and sections keep document order so prompts read the way the
// article does.
type Page struct {
	Title    string    `json:"title"`
	Summary  string    `json:"summary"`
	Infobox  []InfoRow `json:"infobox"`
	Sections []Section `json:"sections"`
}

// InfoRow is one label/value pair from the article infobox.
type InfoRow struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Section is one h2/h3 heading with its paragraph text.
type Section struct {
	Heading string `json:"heading"`
	Content string `json:"content"`
}

// SearchResult is one hit from the MediaWiki search API.
type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	PageID  int64  `json:"pageid"`
}

// Page scrapes the Wikipedia article for an entity. When the direct title
// lookup fails it falls back to the search API and scrapes the first hit.
func (c *Client) Page(ctx context.Context, name string) (*Page, error) {
	slog.Info("scrape: fetching wikipedia page", "entity", name)

	page, err := c.pageByTitle(ctx, name)
	if err == nil {
		return page, nil
	}

	slog.Warn("scrape: direct page lookup failed, trying search", "entity", name, "error", err)
	results, serr := c.Search(ctx, name)
	if serr != nil {
		return nil, fmt.Errorf("no wikipedia page for %q: %w", name, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no wikipedia page for %q: %w", name, err)
	}

	slog.Info("scrape: using first search result", "entity", name, "title", results[0].Title)
	page, err = c.pageByTitle(ctx, results[0].Title)
	if err != nil {
		return nil, fmt.Errorf("no wikipedia page for %q: %w", name, err)
	}
	return page, nil
}

func (c *Client) pageByTitle(ctx context.Context, title string) (*Page, error) {
	body, err := c.fetch(ctx, c.cfg.WikiBaseURL+url.PathEscape(strings.ReplaceAll(title, " ", "_")))
	if err != nil {
		return nil, err
	}
	return parsePage(body, title)
}

// Search queries the MediaWiki search API and returns up to five hits with
// their snippets stripped of highlight markup.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	q := url.Values{}
	q.Set("action", "query")
	q.Set("format", "json")
	q.Set("list", "search")
	q.Set("srsearch", query)
	q.Set("srlimit", "5")

	body, err := c.fetch(ctx, c.cfg.WikiAPIURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var resp struct {
		Query struct {
			Search []struct {
				Title   string `json:"title"`
				Snippet string `json:"snippet"`
				PageID  int64  `json:"pageid"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	results := make([]SearchResult, 0, len(resp.Query.Search))
	for _, hit := range resp.Query.Search {
		results = append(results, SearchResult{
			Title:   hit.Title,
			Snippet: strings.TrimSpace(stripTags(hit.Snippet)),
			PageID:  hit.PageID,
		})
	}
	return results, nil
}

func parsePage(body []byte, title string) (*Page, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing page html: %w", err)
	}

	content := findNode(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && attr(n, "id") == "mw-content-text"
	})
	if content == nil {
		return nil, fmt.Errorf("page %q has no article content", title)
	}

	page := &Page{
		Title:    title,
		Infobox:  []InfoRow{},
		Sections: []Section{},
	}

	// Summary is the first paragraph with actual text. Wikipedia often
	// starts with empty coordinate paragraphs.
	for _, p := range collectNodes(content, isElement("p")) {
		if text := strings.TrimSpace(textContent(p)); text != "" {
			page.Summary = text
			break
		}
	}

	if box := findNode(doc, func(n *html.Node) bool {
		return isElement("table")(n) && hasClass(n, "infobox")
	}); box != nil {
		for _, row := range collectNodes(box, isElement("tr")) {
			th := findNode(row, isElement("th"))
			td := findNode(row, isElement("td"))
			if th == nil || td == nil {
				continue
			}
			page.Infobox = append(page.Infobox, InfoRow{
				Key:   strings.TrimSpace(textContent(th)),
				Value: strings.TrimSpace(textContent(td)),
			})
		}
	}

	// Walk headings and paragraphs in document order, attaching each
	// paragraph to the last heading seen. Sections with no text are dropped.
	var current *Section
	flush := func() {
		if current != nil && strings.TrimSpace(current.Content) != "" {
			current.Content = strings.TrimSpace(current.Content)
			page.Sections = append(page.Sections, *current)
		}
		current = nil
	}
	for _, n := range collectNodes(content, func(n *html.Node) bool {
		return isElement("h2")(n) || isElement("h3")(n) || isElement("p")(n)
	}) {
		switch n.Data {
		case "h2", "h3":
			flush()
			heading := strings.TrimSpace(editLinkRe.ReplaceAllString(textContent(n), ""))
			if heading != "" {
				current = &Section{Heading: heading}
			}
		case "p":
			if current == nil {
				continue
			}
			if text := strings.TrimSpace(textContent(n)); text != "" {
				current.Content += text + "\n"
			}
		}
	}
	flush()

	return page, nil
}

// stripTags reduces an HTML fragment to its text content.
func stripTags(fragment string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return b.String()
		}
		if tt == html.TextToken {
			b.Write(z.Text())
		}
	}
}

func isElement(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == tag
	}
}

// findNode returns the first node in depth-first order matching the
// predicate, or nil.
func findNode(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findNode(child, match); found != nil {
			return found
		}
	}
	return nil
}

// collectNodes returns all nodes in depth-first order matching the
// predicate. Matching nodes are not descended into, so nested paragraphs
// inside a matched table row do not show up twice.
func collectNodes(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if match(child) {
			out = append(out, child)
			continue
		}
		out = append(out, collectNodes(child, match)...)
	}
	return out
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
