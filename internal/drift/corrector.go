// Package drift turns failed evaluation results into corrective agent
// patches. The suggestion path is read-only analysis; the apply path is the
// only code in the system that mutates an agent as a side effect of
// evaluation.
package drift

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/agentflow/agentflow/internal/llm"
	"github.com/agentflow/agentflow/internal/store"
	"github.com/agentflow/agentflow/pkg/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Corrector analyzes failures and applies patch instructions.
type Corrector struct {
	store store.Store
	llm   llm.Client
}

// NewCorrector creates a drift corrector.
func NewCorrector(st store.Store, client llm.Client) *Corrector {
	return &Corrector{store: st, llm: client}
}

type suggestionVerdict struct {
	Suggestion       string `json:"suggestion" jsonschema:"required,description=Human-readable explanation of the root cause"`
	PatchInstruction string `json:"patchInstruction" jsonschema:"required,description=A single imperative instruction that would fix the failures"`
}

var suggestionSchema = llm.SchemaFor(&suggestionVerdict{})

type failureSample struct {
	Reason string `json:"reason"`
	Output string `json:"output"`
}

// SuggestFix analyzes failed results and proposes a single corrective
// instruction. Only failed results with their reasoning and output are
// considered; the agent's own configuration is deliberately not part of the
// analysis input.
func (c *Corrector) SuggestFix(ctx context.Context, failures []models.TestResult) models.DriftSuggestion {
	if len(failures) == 0 {
		return models.DriftSuggestion{Suggestion: "No failures to analyze.", PatchInstruction: ""}
	}

	samples := make([]failureSample, 0, len(failures))
	for _, f := range failures {
		samples = append(samples, failureSample{Reason: f.Reasoning, Output: f.ActualOutput})
	}
	encoded, err := json.Marshal(samples)
	if err != nil {
		return models.DriftSuggestion{Suggestion: "Could not generate suggestions.", PatchInstruction: ""}
	}

	raw, err := c.llm.CompleteJSON(ctx, &llm.Request{
		Prompt: buildSuggestionPrompt(encoded),
		Schema: suggestionSchema,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Drift suggestion call failed")
		return models.DriftSuggestion{Suggestion: "Could not generate suggestions.", PatchInstruction: ""}
	}

	var v suggestionVerdict
	if err := json.Unmarshal(raw, &v); err != nil {
		log.Warn().Err(err).Msg("Drift suggestion unparsable")
		return models.DriftSuggestion{Suggestion: "General fix recommended.", PatchInstruction: ""}
	}
	if v.Suggestion == "" {
		v.Suggestion = "General fix recommended."
	}
	return models.DriftSuggestion{Suggestion: v.Suggestion, PatchInstruction: v.PatchInstruction}
}

// ApplyFix injects a patch instruction into an agent as a high-priority
// knowledge source, bumps the version, and persists the result. The stored
// agent is the source of truth; the passed copy is never mutated.
func (c *Corrector) ApplyFix(ctx context.Context, agentID, patch string) (*models.AgentConfig, error) {
	agent, err := c.store.GetAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	source := models.KnowledgeSource{
		ID:      "patch_" + uuid.NewString(),
		Type:    models.KnowledgeText,
		Name:    "Auto-Fix: " + now.Format("2006-01-02"),
		Content: "CRITICAL INSTRUCTION: " + patch,
		Status:  models.KnowledgeIndexed,
	}

	version := agent.Version
	if version == 0 {
		version = 1
	}

	agent.Knowledge = append(agent.Knowledge, source)
	agent.Version = version + 1
	agent.LastUpdated = now

	if err := c.store.UpsertAgent(ctx, agent); err != nil {
		return nil, fmt.Errorf("persist patched agent: %w", err)
	}

	log.Info().
		Str("agent", agent.ID).
		Int("version", agent.Version).
		Msg("Applied drift fix")
	return agent, nil
}

func buildSuggestionPrompt(failures []byte) string {
	return fmt.Sprintf(`You are an AI behavior engineer. An agent failed the following evaluation cases.

FAILURES (JSON array of {reason, output} pairs):
%s

Diagnose the common root cause and propose exactly one imperative instruction sentence that, added to the agent's prompt, would fix these failures.`, failures)
}
