// Package enrich turns scraped research material into structured entity
// records by prompting a chat model and decoding its JSON output.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/kaptinlin/jsonrepair"

	"github.com/brunobiangulo/healthmap/entity"
	"github.com/brunobiangulo/healthmap/llm"
)

const enrichmentSystemPrompt = "You are a healthcare industry expert who extracts structured information about healthcare companies. IMPORTANT: Return ONLY the raw JSON object with no additional text, explanations, or markdown formatting."

const inferSystemPrompt = "You are a healthcare industry expert who infers relationships between healthcare companies. IMPORTANT: Return ONLY the raw JSON array with no additional text, explanations, or markdown formatting."

// enrichmentPrompt asks for one entity's profile. Placeholders: entity name
// twice, research context, entity name again (pre-filled in the example so
// the model echoes it), generated schema.
const enrichmentPrompt = `You are a healthcare industry expert. Based on the following information about %s, please identify:

1. Entity type (Payer, Provider, Vendor, or Integrated)
2. Parent company (if any)
3. Subsidiaries (list all that are mentioned)
4. Annual revenue (with B for billions or M for millions)
5. Key relationships with other healthcare entities

Information about %s:

%s

Return ONLY a JSON object following this exact schema, with no additional text:
{
  "name": %q,
  "type": "Entity Type",
  "parent": "Parent Company Name or null",
  "revenue": "Revenue with B/M suffix or null",
  "subsidiaries": ["Subsidiary1", "Subsidiary2"],
  "relationships": [
    {"target": "Company Name", "type": "relationship_type"}
  ]
}

The response must validate against this JSON Schema:
%s

For relationship types, use: owned_by, owns, partner, competitor, customer, vendor

If you're uncertain about any field, use your knowledge of the healthcare industry to make an educated guess, but mark uncertain fields with an asterisk (*) at the end.`

// inferPrompt asks for cross-entity relationship additions over the full
// entity set, rendered as indented JSON.
const inferPrompt = `You are a healthcare industry expert. Based on the following information about multiple healthcare entities, please infer additional relationships between them that might not be explicitly stated.

Entities:
%s

For each entity, add or update the "relationships" array with any additional relationships you can infer based on industry knowledge and the data provided.

Return ONLY a JSON array of the updated entities, with no additional text.

For relationship types, use: owned_by, owns, partner, competitor, customer, vendor`

const (
	enrichMaxTokens = 2000
	inferMaxTokens  = 4000
	chatTemperature = 0.2
)

// recordSchema is the reflection-generated JSON Schema for entity.Record,
// embedded in the enrichment prompt so the model sees the exact shape.
var recordSchema = generateRecordSchema()

func generateRecordSchema() string {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	data, _ := json.MarshalIndent(reflector.Reflect(&entity.Record{}), "", "  ")
	return string(data)
}

// Enricher produces entity records from research context via a chat provider.
type Enricher struct {
	chat llm.Provider
}

// New creates an Enricher on top of a chat provider.
func New(chat llm.Provider) *Enricher {
	return &Enricher{chat: chat}
}

// Enrich asks the model to identify type, parent, revenue, subsidiaries, and
// relationships for one entity from the assembled research context. The
// returned record always carries the requested name, regardless of what the
// model echoed, so file naming and merging stay stable.
func (e *Enricher) Enrich(ctx context.Context, name, research string) (*entity.Record, error) {
	slog.Info("enrich: requesting entity profile", "entity", name)

	prompt := fmt.Sprintf(enrichmentPrompt, name, name, research, name, recordSchema)

	resp, err := e.chat.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: enrichmentSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature:    chatTemperature,
		MaxTokens:      enrichMaxTokens,
		ResponseFormat: "json_object",
	})
	if err != nil {
		return nil, fmt.Errorf("enrichment llm chat: %w", err)
	}

	jsonStr, err := extractJSONObject(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("parsing enrichment result: %w", err)
	}

	var rec entity.Record
	if err := unmarshalFlexible(jsonStr, &rec); err != nil {
		return nil, fmt.Errorf("decoding enrichment result: %w", err)
	}

	rec.Name = name
	rec.Normalize()

	slog.Info("enrich: entity profile decoded", "entity", name,
		"type", rec.Type, "subsidiaries", len(rec.Subsidiaries), "relationships", len(rec.Relationships))
	return &rec, nil
}

// InferRelationships asks the model to add relationships it can infer across
// the whole entity set. It returns the decoded records with empty-named
// entries dropped; callers decide how to merge them back.
func (e *Enricher) InferRelationships(ctx context.Context, records []*entity.Record) ([]*entity.Record, error) {
	if len(records) == 0 {
		return nil, nil
	}
	slog.Info("enrich: inferring relationships", "entities", len(records))

	entitiesJSON, _ := json.MarshalIndent(records, "", "  ")
	prompt := fmt.Sprintf(inferPrompt, string(entitiesJSON))

	// No JSON response format here: json_object mode demands an object and
	// this call wants a bare array.
	resp, err := e.chat.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: inferSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: chatTemperature,
		MaxTokens:   inferMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("inference llm chat: %w", err)
	}

	jsonStr, err := extractJSONArray(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("parsing inference result: %w", err)
	}

	var updated []*entity.Record
	if err := unmarshalFlexible(jsonStr, &updated); err != nil {
		return nil, fmt.Errorf("decoding inference result: %w", err)
	}

	out := make([]*entity.Record, 0, len(updated))
	for _, rec := range updated {
		if rec == nil || strings.TrimSpace(rec.Name) == "" {
			continue
		}
		rec.Normalize()
		out = append(out, rec)
	}

	slog.Info("enrich: relationships inferred", "entities", len(out))
	return out, nil
}

// codeBlockRe strips markdown code fences from LLM output.
var codeBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// extractJSONObject finds a JSON object in LLM response text. It handles
// common model quirks: markdown code blocks, prose before or after the JSON.
func extractJSONObject(raw string) (string, error) {
	if m := codeBlockRe.FindStringSubmatch(raw); len(m) > 1 {
		raw = m[1]
	}

	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "{") {
		return raw, nil
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1], nil
	}

	return "", fmt.Errorf("no JSON object found in response")
}

// extractJSONArray is the array counterpart used by relationship inference.
func extractJSONArray(raw string) (string, error) {
	if m := codeBlockRe.FindStringSubmatch(raw); len(m) > 1 {
		raw = m[1]
	}

	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "[") {
		return raw, nil
	}

	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start >= 0 && end > start {
		return raw[start : end+1], nil
	}

	return "", fmt.Errorf("no JSON array found in response")
}

// unmarshalFlexible decodes model-produced JSON with fallbacks: standard
// decode, then double-encoded string, then jsonrepair for malformed output.
func unmarshalFlexible(input string, out any) error {
	input = strings.TrimSpace(input)

	if err := json.Unmarshal([]byte(input), out); err == nil {
		return nil
	}

	var asString string
	if err := json.Unmarshal([]byte(input), &asString); err == nil {
		asString = strings.TrimSpace(asString)
		if err := json.Unmarshal([]byte(asString), out); err == nil {
			return nil
		}
		input = asString
	}

	repaired, err := jsonrepair.JSONRepair(input)
	if err != nil {
		return fmt.Errorf("json repair failed: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("unmarshalling repaired json: %w", err)
	}
	return nil
}
