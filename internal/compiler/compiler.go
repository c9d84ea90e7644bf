// Package compiler turns an agent configuration plus the live prompt-module
// collection into a single instruction text for the generative capability.
//
// Compile is pure and side-effect free. It is re-evaluated on every call so
// that edits to a shared module are visible to all agents referencing it
// immediately; the agent's cached SystemPrompt snapshot is never consulted.
package compiler

import (
	"fmt"
	"strings"

	"github.com/agentflow/agentflow/pkg/models"
)

const (
	noModulesPlaceholder   = "No specific behavior modules attached."
	noKnowledgePlaceholder = "No specific knowledge base provided."
)

// Compile renders the instruction text for an agent. Section ordering is
// fixed: identity, tone, constraints, capabilities, behavior modules,
// knowledge, closing instruction.
//
// Module ids that do not resolve against the given collection are skipped
// silently; empty module and knowledge lists degrade to placeholder
// sentences, never to empty sections. Inputs are not mutated.
func Compile(agent *models.AgentConfig, modules []models.PromptTemplate) string {
	var b strings.Builder

	// 1. Identity
	fmt.Fprintf(&b, "You are %s, a specialized AI agent acting as: %s.\n", agent.Name, agent.Role)
	fmt.Fprintf(&b, "Your audience is: %s.\n", agent.Audience)

	// 2. Tone and style
	b.WriteString("\nTONE AND STYLE:\n")
	fmt.Fprintf(&b, "You must adopt a %s tone.\n", agent.Tone)
	fmt.Fprintf(&b, "Voice Guide Sample: %q\n", agent.VoiceSample)

	// 3. Constraints. An empty topic list renders as an empty
	// enumeration, not an omitted rule.
	b.WriteString("\nCONSTRAINTS & SAFETY:\n")
	fmt.Fprintf(&b, "- You must NOT discuss: %s.\n", strings.Join(agent.ForbiddenTopics, ", "))
	b.WriteString("- If you do not know the answer based on the provided context, admit it gracefully.\n")
	b.WriteString("- Do NOT provide medical, legal, or financial advice.\n")

	// 4. Capabilities, rendered literally including false values.
	b.WriteString("\nCAPABILITIES:\n")
	fmt.Fprintf(&b, "- Can Schedule: %t\n", agent.Capabilities.CanSchedule)
	fmt.Fprintf(&b, "- Can Capture Leads: %t\n", agent.Capabilities.CanCaptureLeads)
	fmt.Fprintf(&b, "- Can Escalate to Human: %t\n", agent.Capabilities.CanEscalate)

	// 5. Behavior modules, resolved in attachment order.
	b.WriteString("\nBEHAVIOR MODULES (Specific Instructions):\n")
	b.WriteString(renderModules(agent.PromptTemplateIDs, modules))
	b.WriteString("\n")

	// 6. Knowledge base.
	b.WriteString("\nKNOWLEDGE BASE:\n")
	b.WriteString(renderKnowledge(agent.Knowledge))
	b.WriteString("\n")

	// 7. Closing instruction.
	b.WriteString("\nINSTRUCTIONS:\n")
	b.WriteString("Answer user queries based on the above persona, behavior modules, and knowledge.\n")

	return b.String()
}

func renderModules(ids []string, modules []models.PromptTemplate) string {
	byID := make(map[string]*models.PromptTemplate, len(modules))
	for i := range modules {
		byID[modules[i].ID] = &modules[i]
	}

	var sections []string
	for _, id := range ids {
		mod, ok := byID[id]
		if !ok {
			// Dangling reference: the module was deleted after
			// attachment. Tolerated, not an error.
			continue
		}
		sections = append(sections, fmt.Sprintf("[Module: %s]\n%s", mod.Title, mod.Content))
	}

	if len(sections) == 0 {
		return noModulesPlaceholder
	}
	return strings.Join(sections, "\n\n")
}

func renderKnowledge(sources []models.KnowledgeSource) string {
	if len(sources) == 0 {
		return noKnowledgePlaceholder
	}

	sections := make([]string, 0, len(sources))
	for _, k := range sources {
		sections = append(sections, fmt.Sprintf("[Source: %s (%s)]\n%s", k.Name, k.Type, k.Content))
	}
	return strings.Join(sections, "\n\n")
}
