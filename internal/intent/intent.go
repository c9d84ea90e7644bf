// Package intent implements the message router: one schema-constrained
// classification call that maps a free-text message to a target agent id.
//
// The generative capability is the sole arbiter; there is no local keyword
// matching or tie-breaking. Every failure path degrades to the configured
// fallback id, which may itself be empty ("no route"). Route never returns
// an error to its caller.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agentflow/agentflow/internal/llm"
	"github.com/agentflow/agentflow/pkg/models"
	"github.com/rs/zerolog/log"
)

// Router classifies messages against a RouterConfig.
type Router struct {
	llm llm.Client
}

// NewRouter creates an intent router.
func NewRouter(client llm.Client) *Router {
	return &Router{llm: client}
}

// verdict is the structured classification result.
type verdict struct {
	TargetAgentID string `json:"targetAgentId" jsonschema:"required,description=The id of the agent that should handle the message"`
}

var verdictSchema = llm.SchemaFor(&verdict{})

// Route returns the target agent id for message. On classification failure,
// a malformed response, or an empty target, it returns the fallback id.
func (r *Router) Route(ctx context.Context, cfg *models.RouterConfig, message string) string {
	raw, err := r.llm.CompleteJSON(ctx, &llm.Request{
		Prompt: buildRoutingPrompt(cfg, message),
		Schema: verdictSchema,
	})
	if err != nil {
		log.Warn().Err(err).Str("router", cfg.ID).Msg("Routing call failed, using fallback")
		return cfg.FallbackAgentID
	}

	var v verdict
	if err := json.Unmarshal(raw, &v); err != nil {
		log.Warn().Err(err).Str("router", cfg.ID).Msg("Routing response unparsable, using fallback")
		return cfg.FallbackAgentID
	}
	if v.TargetAgentID == "" {
		return cfg.FallbackAgentID
	}
	return v.TargetAgentID
}

func buildRoutingPrompt(cfg *models.RouterConfig, message string) string {
	var b strings.Builder
	b.WriteString("You are a Neural Router. Your job is to classify the user's message into one of the following intents.\n")

	b.WriteString("\nROUTING RULES:\n")
	for _, rule := range cfg.Rules {
		fmt.Fprintf(&b, "- Intent: %q (%s) -> ID: %s\n", rule.Intent, rule.Description, rule.TargetAgentID)
	}

	fmt.Fprintf(&b, "\nUSER MESSAGE: %q\n", message)

	b.WriteString("\nINSTRUCTIONS:\n")
	b.WriteString("Return a JSON object with a single field \"targetAgentId\".\n")
	b.WriteString("If the message matches a rule, use that ID.\n")
	fmt.Fprintf(&b, "If it matches nothing, use the fallback ID: %q.\n", cfg.FallbackAgentID)
	return b.String()
}
