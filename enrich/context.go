package enrich

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/brunobiangulo/healthmap/scrape"
)

// maxContextTokens caps the assembled research context so the prompt stays
// well inside common model context windows.
const maxContextTokens = 6000

// BuildContext renders scraped research into the text block the enrichment
// prompt embeds: article summary, infobox lines, section excerpts, recent
// headlines, and optional local document text, capped to a token budget.
func BuildContext(page *scrape.Page, news []scrape.Article, document string) string {
	var b strings.Builder

	if page != nil {
		b.WriteString("SUMMARY:\n")
		b.WriteString(page.Summary)

		b.WriteString("\n\nINFOBOX DATA:\n")
		rows := make([]string, 0, len(page.Infobox))
		for _, row := range page.Infobox {
			rows = append(rows, row.Key+": "+row.Value)
		}
		b.WriteString(strings.Join(rows, "\n"))

		b.WriteString("\n\nADDITIONAL SECTIONS:\n")
		secs := make([]string, 0, len(page.Sections))
		for _, sec := range page.Sections {
			secs = append(secs, "## "+sec.Heading+"\n"+sec.Content)
		}
		b.WriteString(strings.Join(secs, "\n\n"))
	}

	if len(news) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("RECENT HEADLINES:\n")
		for _, a := range news {
			fmt.Fprintf(&b, "- %s (%s, %s): %s\n", a.Title, a.Source, a.Date, a.Summary)
		}
	}

	if document != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("DOCUMENT EXCERPT:\n")
		b.WriteString(document)
	}

	return truncateTokens(b.String(), maxContextTokens)
}

// estimateTokens approximates the token count of text using a simple
// word-based heuristic: tokens ~ words * 1.3.
func estimateTokens(text string) int {
	words := len(strings.Fields(text))
	return int(math.Ceil(float64(words) * 1.3))
}

// truncateTokens keeps the leading portion of text that fits the budget,
// cutting on a word boundary.
func truncateTokens(text string, budget int) string {
	total := estimateTokens(text)
	if total <= budget {
		return text
	}

	cut := len(text) * budget / total
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	if i := strings.LastIndexAny(text[:cut], " \n"); i > 0 {
		cut = i
	}
	return text[:cut]
}
