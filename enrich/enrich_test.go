package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/brunobiangulo/healthmap/entity"
	"github.com/brunobiangulo/healthmap/llm"
)

// fakeProvider records the last request and replies with canned content.
type fakeProvider struct {
	reply string
	err   error

	calls   int
	lastReq llm.ChatRequest
}

func (f *fakeProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatResponse{Content: f.reply}, nil
}

func TestEnrich(t *testing.T) {
	fake := &fakeProvider{reply: "```json\n" + `{
  "name": "UnitedHealth Group Incorporated",
  "type": "Payer",
  "parent": "",
  "revenue": "324.2B",
  "subsidiaries": ["Optum", "UnitedHealthcare"],
  "relationships": [
    {"target": "Epic Systems", "type": "customer"}
  ]
}` + "\n```"}

	rec, err := New(fake).Enrich(context.Background(), "UnitedHealth Group", "SUMMARY:\nA payer.")
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}

	t.Run("requested name wins over the echoed one", func(t *testing.T) {
		if got, want := rec.Name, "UnitedHealth Group"; got != want {
			t.Errorf("Name = %q, want %q", got, want)
		}
	})

	if got, want := rec.Type, "Payer"; got != want {
		t.Errorf("Type = %q, want %q", got, want)
	}
	if got, want := rec.Revenue, "324.2B"; got != want {
		t.Errorf("Revenue = %q, want %q", got, want)
	}
	if got, want := len(rec.Subsidiaries), 2; got != want {
		t.Errorf("got %d subsidiaries, want %d", got, want)
	}
	if got, want := len(rec.Relationships), 1; got != want {
		t.Fatalf("got %d relationships, want %d", got, want)
	}
	if got, want := rec.Relationships[0].Target, "Epic Systems"; got != want {
		t.Errorf("Target = %q, want %q", got, want)
	}

	t.Run("request shape", func(t *testing.T) {
		req := fake.lastReq
		if got, want := len(req.Messages), 2; got != want {
			t.Fatalf("got %d messages, want %d", got, want)
		}
		if got, want := req.Messages[0].Role, "system"; got != want {
			t.Errorf("first message role = %q, want %q", got, want)
		}
		if got, want := req.Messages[0].Content, enrichmentSystemPrompt; got != want {
			t.Errorf("system prompt = %q, want %q", got, want)
		}
		if got, want := req.MaxTokens, enrichMaxTokens; got != want {
			t.Errorf("MaxTokens = %d, want %d", got, want)
		}
		if got, want := req.Temperature, chatTemperature; got != want {
			t.Errorf("Temperature = %v, want %v", got, want)
		}
		if got, want := req.ResponseFormat, "json_object"; got != want {
			t.Errorf("ResponseFormat = %q, want %q", got, want)
		}

		user := req.Messages[1].Content
		for _, fragment := range []string{
			"Information about UnitedHealth Group:",
			"SUMMARY:\nA payer.",
			`"name": "UnitedHealth Group",`,
			"owned_by, owns, partner, competitor, customer, vendor",
			`"subsidiaries"`,
		} {
			if !strings.Contains(user, fragment) {
				t.Errorf("user prompt missing %q", fragment)
			}
		}
	})
}

func TestEnrichPlainJSONWithProse(t *testing.T) {
	fake := &fakeProvider{reply: `Here is the profile you asked for:

{"name": "Humana", "type": "Payer", "subsidiaries": [], "relationships": []}

Let me know if you need anything else.`}

	rec, err := New(fake).Enrich(context.Background(), "Humana", "")
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if got, want := rec.Type, "Payer"; got != want {
		t.Errorf("Type = %q, want %q", got, want)
	}
}

func TestEnrichRepairsMalformedJSON(t *testing.T) {
	// Unquoted keys and a trailing comma: invalid JSON that jsonrepair fixes.
	fake := &fakeProvider{reply: `{name: "Humana", type: "Payer", subsidiaries: [], relationships: [],}`}

	rec, err := New(fake).Enrich(context.Background(), "Humana", "")
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if got, want := rec.Type, "Payer"; got != want {
		t.Errorf("Type = %q, want %q", got, want)
	}
}

func TestEnrichDefaultsMissingFields(t *testing.T) {
	fake := &fakeProvider{reply: `{"name": "Cigna", "type": "Payer"}`}

	rec, err := New(fake).Enrich(context.Background(), "Cigna", "")
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if rec.Subsidiaries == nil || len(rec.Subsidiaries) != 0 {
		t.Errorf("Subsidiaries = %#v, want empty non-nil", rec.Subsidiaries)
	}
	if rec.Relationships == nil || len(rec.Relationships) != 0 {
		t.Errorf("Relationships = %#v, want empty non-nil", rec.Relationships)
	}
}

func TestEnrichChatError(t *testing.T) {
	fake := &fakeProvider{err: errors.New("boom")}

	if _, err := New(fake).Enrich(context.Background(), "Cigna", ""); err == nil {
		t.Fatal("expected error when the chat call fails")
	}
}

func TestEnrichNoJSON(t *testing.T) {
	fake := &fakeProvider{reply: "I cannot help with that."}

	if _, err := New(fake).Enrich(context.Background(), "Cigna", ""); err == nil {
		t.Fatal("expected error when the response has no JSON")
	}
}

func TestInferRelationships(t *testing.T) {
	fake := &fakeProvider{reply: `[
  {"name": "Optum", "type": "Provider", "subsidiaries": [], "relationships": [{"target": "Epic Systems", "type": "customer"}]},
  {"name": "Epic Systems", "type": "Vendor", "subsidiaries": [], "relationships": [{"target": "Optum", "type": "vendor"}]}
]`}

	in := []*entity.Record{
		{Name: "Optum", Type: "Provider"},
		{Name: "Epic Systems", Type: "Vendor"},
	}
	out, err := New(fake).InferRelationships(context.Background(), in)
	if err != nil {
		t.Fatalf("InferRelationships: %v", err)
	}
	if got, want := len(out), 2; got != want {
		t.Fatalf("got %d records, want %d", got, want)
	}
	if got, want := len(out[0].Relationships), 1; got != want {
		t.Errorf("got %d relationships, want %d", got, want)
	}

	t.Run("request shape", func(t *testing.T) {
		req := fake.lastReq
		if got, want := req.Messages[0].Content, inferSystemPrompt; got != want {
			t.Errorf("system prompt = %q, want %q", got, want)
		}
		if got, want := req.MaxTokens, inferMaxTokens; got != want {
			t.Errorf("MaxTokens = %d, want %d", got, want)
		}
		if req.ResponseFormat != "" {
			t.Errorf("ResponseFormat = %q, want empty for array output", req.ResponseFormat)
		}
		if !strings.Contains(req.Messages[1].Content, `"name": "Optum"`) {
			t.Error("prompt missing the serialized entity set")
		}
	})
}

func TestInferRelationshipsEmptyInput(t *testing.T) {
	fake := &fakeProvider{}

	out, err := New(fake).InferRelationships(context.Background(), nil)
	if err != nil {
		t.Fatalf("InferRelationships: %v", err)
	}
	if out != nil {
		t.Errorf("got %v, want nil", out)
	}
	if fake.calls != 0 {
		t.Errorf("chat called %d times, want 0", fake.calls)
	}
}

func TestInferRelationshipsDropsUnnamed(t *testing.T) {
	fake := &fakeProvider{reply: `[{"name": "Optum"}, {"name": "  "}, null]`}

	out, err := New(fake).InferRelationships(context.Background(), []*entity.Record{{Name: "Optum"}})
	if err != nil {
		t.Fatalf("InferRelationships: %v", err)
	}
	if got, want := len(out), 1; got != want {
		t.Fatalf("got %d records, want %d", got, want)
	}
	if got, want := out[0].Name, "Optum"; got != want {
		t.Errorf("Name = %q, want %q", got, want)
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"plain fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"prose around", `Sure! {"a": 1} Hope that helps.`, `{"a": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSONObject(tt.in)
			if err != nil {
				t.Fatalf("extractJSONObject: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := extractJSONObject("no json here"); err == nil {
		t.Error("expected error for input without an object")
	}
}

func TestExtractJSONArray(t *testing.T) {
	got, err := extractJSONArray("The updated entities are:\n```json\n[{\"name\": \"Optum\"}]\n```")
	if err != nil {
		t.Fatalf("extractJSONArray: %v", err)
	}
	if want := `[{"name": "Optum"}]`; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	if _, err := extractJSONArray("nothing structured"); err == nil {
		t.Error("expected error for input without an array")
	}
}

func TestRecordSchemaGenerated(t *testing.T) {
	if !json.Valid([]byte(recordSchema)) {
		t.Fatalf("recordSchema is not valid JSON: %s", recordSchema)
	}
	for _, field := range []string{`"name"`, `"subsidiaries"`, `"relationships"`} {
		if !strings.Contains(recordSchema, field) {
			t.Errorf("schema missing %s", field)
		}
	}
}
