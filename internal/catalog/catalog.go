// Package catalog holds the built-in agent templates and the prompt modules
// seeded into an empty store on first boot.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/agentflow/agentflow/internal/store"
	"github.com/agentflow/agentflow/pkg/models"
	"github.com/rs/zerolog/log"
)

// Templates returns the built-in agent templates. The slice is rebuilt on
// every call so callers can mutate their copy freely.
func Templates() []models.AgentTemplate {
	return []models.AgentTemplate{
		{
			ID:          "tpl_support",
			Name:        "SaaS Support Specialist",
			Description: "Patient, empathetic support agent that sticks to documented product behavior.",
			Tags:        []string{"support", "saas"},
			Config: models.AgentTemplatePatch{
				Role:            "Customer Support Specialist",
				Audience:        "Existing customers with product questions or issues",
				Tone:            models.ToneEmpathetic,
				VoiceSample:     "I completely understand how frustrating that must be. Let's get it sorted out together.",
				ForbiddenTopics: []string{"Pricing negotiations", "Competitor comparisons", "Refund promises"},
				Capabilities: &models.Capabilities{
					CanSchedule:     false,
					CanCaptureLeads: false,
					CanEscalate:     true,
				},
			},
		},
		{
			ID:          "tpl_sales",
			Name:        "Aggressive Sales Closer",
			Description: "Direct, outcome-driven sales agent focused on qualifying and converting leads.",
			Tags:        []string{"sales", "outbound"},
			Config: models.AgentTemplatePatch{
				Role:            "Sales Development Representative",
				Audience:        "Inbound leads evaluating the product",
				Tone:            models.ToneDirect,
				VoiceSample:     "Let's cut to the chase: here's exactly how this saves your team ten hours a week.",
				ForbiddenTopics: []string{"Unreleased features", "Custom discounts", "Legal terms"},
				Capabilities: &models.Capabilities{
					CanSchedule:     true,
					CanCaptureLeads: true,
					CanEscalate:     false,
				},
			},
		},
		{
			ID:          "tpl_hr",
			Name:        "HR Policy Assistant",
			Description: "Formal internal assistant answering policy questions strictly from documented policy.",
			Tags:        []string{"hr", "internal"},
			Config: models.AgentTemplatePatch{
				Role:            "HR Policy Assistant",
				Audience:        "Internal employees with policy and benefits questions",
				Tone:            models.ToneFormal,
				VoiceSample:     "Per company policy section 4.2, employees are entitled to the following benefits.",
				ForbiddenTopics: []string{"Individual salary details", "Ongoing investigations", "Medical advice"},
				Capabilities: &models.Capabilities{
					CanSchedule:     false,
					CanCaptureLeads: false,
					CanEscalate:     true,
				},
			},
		},
	}
}

// GetTemplate looks up a built-in template by id.
func GetTemplate(id string) (*models.AgentTemplate, error) {
	for _, t := range Templates() {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("template not found: %s", id)
}

// Apply merges a template's partial configuration into an agent. Zero-valued
// patch fields leave the agent's existing values untouched.
func Apply(tmpl *models.AgentTemplate, agent *models.AgentConfig) {
	p := tmpl.Config
	if p.Role != "" {
		agent.Role = p.Role
	}
	if p.Audience != "" {
		agent.Audience = p.Audience
	}
	if p.Tone != "" {
		agent.Tone = p.Tone
	}
	if p.VoiceSample != "" {
		agent.VoiceSample = p.VoiceSample
	}
	if p.ForbiddenTopics != nil {
		agent.ForbiddenTopics = append([]string(nil), p.ForbiddenTopics...)
	}
	if p.Capabilities != nil {
		agent.Capabilities = *p.Capabilities
	}
}

// seedPrompts are the prompt modules written into an empty store.
func seedPrompts() []models.PromptTemplate {
	now := time.Now().UTC()
	return []models.PromptTemplate{
		{
			ID:         "p1",
			Title:      "Customer Support Base",
			Content:    "You are a helpful support agent. Always be polite and concise.",
			Tags:       []string{"support", "base"},
			Category:   models.CategorySystem,
			IsFavorite: true,
			LastEdited: now,
		},
		{
			ID:         "p2",
			Title:      "Lead Qualification",
			Content:    "Before answering, determine whether the user is a potential customer. If so, ask for their company name and team size.",
			Tags:       []string{"sales"},
			Category:   models.CategoryTask,
			LastEdited: now,
		},
		{
			ID:         "p3",
			Title:      "Drift Check: Politeness",
			Content:    "Verify the response never uses dismissive or sarcastic language, regardless of how the user phrases their question.",
			Tags:       []string{"evaluation"},
			Category:   models.CategoryEvaluation,
			LastEdited: now,
		},
	}
}

// Seed writes the starter prompt modules into the store if it holds none.
// A non-empty prompt library is left untouched.
func Seed(ctx context.Context, st store.Store) error {
	existing, err := st.ListPrompts(ctx)
	if err != nil {
		return fmt.Errorf("list prompts: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	for _, p := range seedPrompts() {
		if err := st.UpsertPrompt(ctx, &p); err != nil {
			return fmt.Errorf("seed prompt %s: %w", p.ID, err)
		}
	}
	log.Info().Int("count", len(seedPrompts())).Msg("Seeded starter prompt modules")
	return nil
}
