package intent_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/agentflow/agentflow/internal/intent"
	"github.com/agentflow/agentflow/internal/llm"
	"github.com/agentflow/agentflow/pkg/models"
)

type stubClient struct {
	response string
	err      error
	lastReq  *llm.Request
}

func (c *stubClient) Kind() string { return "stub" }

func (c *stubClient) Complete(_ context.Context, req *llm.Request) (string, error) {
	c.lastReq = req
	return c.response, c.err
}

func (c *stubClient) CompleteJSON(_ context.Context, req *llm.Request) (json.RawMessage, error) {
	c.lastReq = req
	if c.err != nil {
		return nil, c.err
	}
	return json.RawMessage(c.response), nil
}

func testRouter() *models.RouterConfig {
	return &models.RouterConfig{
		ID:   "r1",
		Name: "front-desk",
		Rules: []models.RouterRule{
			{ID: "rule1", Intent: "billing", Description: "Questions about invoices", TargetAgentID: "agentA"},
			{ID: "rule2", Intent: "support", Description: "Product issues", TargetAgentID: "agentB"},
		},
		FallbackAgentID: "agentFallback",
	}
}

func TestRoute_ReturnsTarget(t *testing.T) {
	client := &stubClient{response: `{"targetAgentId":"agentA"}`}
	r := intent.NewRouter(client)

	got := r.Route(context.Background(), testRouter(), "My invoice is wrong")
	if got != "agentA" {
		t.Errorf("Route() = %q, want %q", got, "agentA")
	}
}

func TestRoute_PromptEnumeratesRules(t *testing.T) {
	client := &stubClient{response: `{"targetAgentId":"agentA"}`}
	r := intent.NewRouter(client)

	r.Route(context.Background(), testRouter(), "hello")

	prompt := client.lastReq.Prompt
	for _, want := range []string{"billing", "Questions about invoices", "agentA", "support", "agentB", "agentFallback"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestRoute_CallFailureFallsBack(t *testing.T) {
	client := &stubClient{err: errors.New("boom")}
	r := intent.NewRouter(client)

	got := r.Route(context.Background(), testRouter(), "hello")
	if got != "agentFallback" {
		t.Errorf("Route() on error = %q, want the fallback", got)
	}
}

func TestRoute_UnparsableFallsBack(t *testing.T) {
	client := &stubClient{response: "not json"}
	r := intent.NewRouter(client)

	got := r.Route(context.Background(), testRouter(), "hello")
	if got != "agentFallback" {
		t.Errorf("Route() on bad JSON = %q, want the fallback", got)
	}
}

func TestRoute_EmptyTargetFallsBack(t *testing.T) {
	client := &stubClient{response: `{"targetAgentId":""}`}
	r := intent.NewRouter(client)

	got := r.Route(context.Background(), testRouter(), "hello")
	if got != "agentFallback" {
		t.Errorf("Route() on empty target = %q, want the fallback", got)
	}
}

// With an empty rule list, classification cannot name a rule target, so
// the configured fallback wins no matter what the capability does.
func TestRoute_EmptyRulesUsesFallback(t *testing.T) {
	cfg := &models.RouterConfig{ID: "r2", Name: "bare", FallbackAgentID: "agentB"}

	for name, client := range map[string]*stubClient{
		"call error":   {err: errors.New("boom")},
		"empty target": {response: `{"targetAgentId":""}`},
	} {
		r := intent.NewRouter(client)
		if got := r.Route(context.Background(), cfg, "anything"); got != "agentB" {
			t.Errorf("%s: Route() = %q, want %q", name, got, "agentB")
		}
	}
}

// A router with no rules and no fallback routes to the empty id: "no route"
// is a valid outcome, not an error.
func TestRoute_NoRulesNoFallback(t *testing.T) {
	client := &stubClient{err: errors.New("boom")}
	r := intent.NewRouter(client)

	cfg := &models.RouterConfig{ID: "r2", Name: "empty"}
	got := r.Route(context.Background(), cfg, "hello")
	if got != "" {
		t.Errorf("Route() with no fallback = %q, want empty", got)
	}
}
