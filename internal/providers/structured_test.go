package providers

import (
	"context"
	"encoding/json"
	"testing"
)

func TestParseStructuredJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{
			name:    "plain object",
			content: `{"needs_document": true}`,
			want:    `{"needs_document":true}`,
		},
		{
			name:    "code fence",
			content: "```json\n{\"needs_document\": false}\n```",
			want:    `{"needs_document":false}`,
		},
		{
			name:    "surrounding prose",
			content: "Here is the routing decision: {\"needs_document\": true} as requested.",
			want:    `{"needs_document":true}`,
		},
		{
			name:    "empty",
			content: "   ",
			wantErr: true,
		},
		{
			name:    "no json",
			content: "cannot answer",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseStructuredJSON(tt.content)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseStructuredJSON: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

const routingSchema = `{
  "name": "routing_decision",
  "strict": true,
  "schema": {
    "type": "object",
    "properties": {
      "needs_document": {"type": "boolean"},
      "needs_law": {"type": "boolean"}
    },
    "required": ["needs_document", "needs_law"],
    "additionalProperties": false
  }
}`

func TestValidateStructuredJSON(t *testing.T) {
	schema := json.RawMessage(routingSchema)

	valid := json.RawMessage(`{"needs_document": true, "needs_law": false}`)
	if err := validateStructuredJSON(schema, valid); err != nil {
		t.Errorf("valid document rejected: %v", err)
	}

	missing := json.RawMessage(`{"needs_document": true}`)
	if err := validateStructuredJSON(schema, missing); err == nil {
		t.Error("document missing required field accepted")
	}

	wrongType := json.RawMessage(`{"needs_document": "yes", "needs_law": false}`)
	if err := validateStructuredJSON(schema, wrongType); err == nil {
		t.Error("document with wrong type accepted")
	}
}

func TestMockClientStructured(t *testing.T) {
	mock := NewMockClient()
	mock.ResponseJSON = json.RawMessage(`{"needs_document": true, "needs_law": true}`)

	result, err := mock.Chat(context.Background(), &ChatRequest{
		Messages:       []Message{{Role: "user", Content: "route this"}},
		ResponseFormat: &ResponseFormat{Type: "json_schema", JSONSchema: json.RawMessage(routingSchema)},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	var decision struct {
		NeedsDocument bool `json:"needs_document"`
		NeedsLaw      bool `json:"needs_law"`
	}
	if err := json.Unmarshal(result.ParsedJSON, &decision); err != nil {
		t.Fatalf("unmarshal parsed JSON: %v", err)
	}
	if !decision.NeedsDocument || !decision.NeedsLaw {
		t.Errorf("decision = %+v", decision)
	}
}

func TestMockClientResponseQueue(t *testing.T) {
	mock := NewMockClient()
	mock.Responses = []string{"first", "second"}

	for i, want := range []string{"first", "second", "second"} {
		result, err := mock.Chat(context.Background(), &ChatRequest{})
		if err != nil {
			t.Fatalf("Chat %d: %v", i, err)
		}
		if result.Content != want {
			t.Errorf("call %d content = %q, want %q", i, result.Content, want)
		}
	}
	if mock.RequestCount() != 3 {
		t.Errorf("RequestCount = %d", mock.RequestCount())
	}
}
