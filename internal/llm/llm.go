// Package llm abstracts the generative-language capability behind a small
// client interface with two call shapes: free-text completion and
// schema-constrained JSON completion.
//
// Both shapes are synchronous and may fail. Degradation policy belongs to
// the call sites, not to this package: the conversation engine substitutes
// an apology string, the intent router falls back to its configured agent
// id, and the evaluation harness records a zero-score result. No llm error
// is expected to cross the orchestration boundary.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

// Request is a single call to the generative capability.
type Request struct {
	// Prompt is the full instruction text, including any linearized
	// conversation transcript.
	Prompt string

	// Temperature controls sampling randomness (0-2).
	Temperature float64

	// Schema, when set, constrains the response to a JSON object. Only
	// CompleteJSON honors it.
	Schema map[string]any
}

// Client is a driver for one generative-capability provider.
type Client interface {
	// Kind returns the provider kind ("gemini", "openai", "ollama").
	Kind() string

	// Complete returns free-form response text.
	Complete(ctx context.Context, req *Request) (string, error)

	// CompleteJSON returns a raw JSON object conforming to req.Schema.
	CompleteJSON(ctx context.Context, req *Request) (json.RawMessage, error)
}

// Config selects and configures a provider driver.
type Config struct {
	Provider string // "gemini", "openai", "ollama"
	APIKey   string
	Model    string
	Endpoint string // OpenAI-compatible base URL; ignored by gemini
}

// New creates a Client for the configured provider.
// An empty provider yields a disabled client whose calls always fail, so a
// server without credentials still boots and every consumer degrades along
// its normal failure path.
func New(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "gemini":
		return newGeminiClient(cfg)
	case "openai", "azure-openai":
		return newOpenAIClient(cfg), nil
	case "ollama":
		return newOllamaClient(cfg), nil
	case "":
		return disabledClient{}, nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}

// disabledClient is returned when no provider is configured.
type disabledClient struct{}

func (disabledClient) Kind() string { return "disabled" }

func (disabledClient) Complete(context.Context, *Request) (string, error) {
	return "", fmt.Errorf("llm: no provider configured")
}

func (disabledClient) CompleteJSON(context.Context, *Request) (json.RawMessage, error) {
	return nil, fmt.Errorf("llm: no provider configured")
}

// ── Schema reflection ───────────────────────────────────────

// SchemaFor reflects a JSON schema from a Go struct prototype. Fields
// marked with jsonschema:"required" become required properties. The result
// feeds the OpenAI response_format directly and is converted to a native
// schema by the Gemini driver.
func SchemaFor(v any) map[string]any {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}
	schema := reflector.Reflect(v)

	data, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{"type": "object"}
	}
	delete(m, "$schema")
	delete(m, "$id")
	return m
}
