// Package chat implements the stateless conversation path for an agent.
//
// Every call recompiles the agent's instruction text against the live
// prompt-module collection, linearizes the caller-supplied transcript, and
// issues a single free-text completion. The engine holds no conversation
// state: the transcript is an explicit, immutable parameter.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentflow/agentflow/internal/compiler"
	"github.com/agentflow/agentflow/internal/llm"
	"github.com/agentflow/agentflow/internal/store"
	"github.com/agentflow/agentflow/pkg/models"
	"github.com/rs/zerolog/log"
)

// DefaultTemperature is the fixed sampling temperature for agent chat.
const DefaultTemperature = 0.7

// Failure strings returned in place of a response. Call sites never see an
// error from Respond; every failure degrades to one of these.
const (
	EmptyResponseApology = "I apologize, but I couldn't generate a response."
	CallFailureApology   = "Error connecting to the agent."
)

// Engine executes single chat turns against the generative capability.
type Engine struct {
	store store.Store
	llm   llm.Client
}

// NewEngine creates a chat engine.
func NewEngine(s store.Store, client llm.Client) *Engine {
	return &Engine{store: s, llm: client}
}

// Respond produces the agent's reply to message, given the prior transcript.
// It never returns an error: capability failures yield a fixed apology
// string so the caller always has text to record or display.
func (e *Engine) Respond(ctx context.Context, agent *models.AgentConfig, history []models.ChatTurn, message string) string {
	// Read modules fresh so edits made since the agent was saved are
	// reflected. A store failure degrades to compiling without modules.
	modules, err := e.store.ListPrompts(ctx)
	if err != nil {
		log.Warn().Err(err).Str("agent", agent.ID).Msg("Listing prompt modules failed, compiling without them")
		modules = nil
	}

	prompt := buildChatPrompt(compiler.Compile(agent, modules), history, message)

	text, err := e.llm.Complete(ctx, &llm.Request{
		Prompt:      prompt,
		Temperature: DefaultTemperature,
	})
	if err != nil {
		log.Warn().Err(err).Str("agent", agent.ID).Msg("Agent chat call failed")
		return CallFailureApology
	}
	if strings.TrimSpace(text) == "" {
		return EmptyResponseApology
	}
	return text
}

// buildChatPrompt concatenates the compiled instructions, the linearized
// transcript, and the new user message.
func buildChatPrompt(systemPrompt string, history []models.ChatTurn, message string) string {
	var b strings.Builder
	b.WriteString(systemPrompt)

	b.WriteString("\nPREVIOUS CONVERSATION:\n")
	for _, turn := range history {
		label := "Agent"
		if turn.Role == "user" {
			label = "User"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, turn.Content)
	}

	fmt.Fprintf(&b, "\nUSER: %s\nAGENT:", message)
	return b.String()
}
