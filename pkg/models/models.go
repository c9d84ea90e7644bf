// Package models defines the shared data model for the AgentFlow control plane:
// agent configurations, prompt modules, intent routers, and evaluation suites.
package models

import "time"

// ── Agent ────────────────────────────────────────────────────

// AgentTone is the persona tone an agent adopts in every response.
type AgentTone string

const (
	ToneFormal     AgentTone = "Formal"
	ToneFriendly   AgentTone = "Friendly"
	TonePlayful    AgentTone = "Playful"
	ToneExpert     AgentTone = "Expert"
	ToneEmpathetic AgentTone = "Empathetic"
	ToneDirect     AgentTone = "Direct"
)

// AgentChannel is a surface an agent is exposed on.
type AgentChannel string

const (
	ChannelWebsiteWidget AgentChannel = "Website Widget"
	ChannelShareableLink AgentChannel = "Shareable Link"
	ChannelInternal      AgentChannel = "Internal Tool"
	ChannelAPI           AgentChannel = "API"
)

// KnowledgeType describes where a knowledge source came from.
type KnowledgeType string

const (
	KnowledgeText KnowledgeType = "text"
	KnowledgeURL  KnowledgeType = "url"
	KnowledgeFile KnowledgeType = "file"
)

// KnowledgeStatus is reserved for a future indexing pipeline. Sources are
// always written as "indexed" today; "pending" is an unused state.
type KnowledgeStatus string

const (
	KnowledgeIndexed KnowledgeStatus = "indexed"
	KnowledgePending KnowledgeStatus = "pending"
)

// KnowledgeSource is a verbatim piece of context owned by exactly one agent.
// Immutable once created except by deletion.
type KnowledgeSource struct {
	ID      string          `json:"id"`
	Type    KnowledgeType   `json:"type"`
	Name    string          `json:"name"`
	Content string          `json:"content"`
	Status  KnowledgeStatus `json:"status"`
}

// Capabilities is the closed set of agent capability flags. The compiler
// renders all three literally, including false values.
type Capabilities struct {
	CanSchedule     bool `json:"canSchedule"`
	CanCaptureLeads bool `json:"canCaptureLeads"`
	CanEscalate     bool `json:"canEscalate"`
}

// AgentConfig is a full agent definition: persona, constraints, knowledge,
// attached prompt modules, and capability flags.
//
// PromptTemplateIDs reference independently stored prompt modules by id.
// This is not an ownership relation: deleting a module leaves a dangling id
// behind, which the compiler skips silently.
//
// SystemPrompt is a cached snapshot of the last compiled prompt, kept for
// display only. The live conversation path always recompiles.
type AgentConfig struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Role              string            `json:"role"`
	Audience          string            `json:"audience"`
	Tone              AgentTone         `json:"tone"`
	VoiceSample       string            `json:"voiceSample"`
	ForbiddenTopics   []string          `json:"forbiddenTopics"`
	Channels          []AgentChannel    `json:"channels"`
	Knowledge         []KnowledgeSource `json:"knowledge"`
	PromptTemplateIDs []string          `json:"promptTemplateIds,omitempty"`
	Capabilities      Capabilities      `json:"capabilities"`
	SystemPrompt      string            `json:"systemPrompt,omitempty"`
	Created           time.Time         `json:"created"`
	LastUpdated       time.Time         `json:"lastUpdated"`

	// Version is a monotonic counter. Every drift patch bumps it by
	// exactly 1. It is informational, not an optimistic-concurrency
	// guard; concurrent saves are last-write-wins.
	Version int `json:"version"`
}

// ── Prompt Modules ───────────────────────────────────────────

// PromptCategory classifies a prompt module.
type PromptCategory string

const (
	CategorySystem     PromptCategory = "System"
	CategoryTask       PromptCategory = "Task"
	CategoryEvaluation PromptCategory = "Evaluation"
)

// PromptTemplate is a reusable instruction fragment attachable to any
// number of agents by reference.
type PromptTemplate struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Content    string         `json:"content"`
	Tags       []string       `json:"tags"`
	Category   PromptCategory `json:"category"`
	IsFavorite bool           `json:"isFavorite"`
	LastEdited time.Time      `json:"lastEdited"`
}

// ── Intent Router ────────────────────────────────────────────

// RouterRule maps a described intent to a target agent id.
type RouterRule struct {
	ID            string `json:"id"`
	Intent        string `json:"intent"`
	Description   string `json:"description"`
	TargetAgentID string `json:"targetAgentId"`
}

// RouterConfig is an ordered rule list plus an optional fallback agent.
// An empty fallback means "no route" when nothing matches.
type RouterConfig struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Description     string       `json:"description"`
	Rules           []RouterRule `json:"rules"`
	FallbackAgentID string       `json:"fallbackAgentId,omitempty"`
}

// ── Evaluation ───────────────────────────────────────────────

// TestCase pairs an input message with a free-text rubric. The rubric is
// judged by the generative capability, never machine-parsed.
type TestCase struct {
	ID               string `json:"id"`
	Input            string `json:"input"`
	ExpectedCriteria string `json:"expectedCriteria"`
}

// TestResult is the judged outcome for one case. Derived, never hand-edited.
type TestResult struct {
	TestCaseID   string `json:"testCaseId"`
	ActualOutput string `json:"actualOutput"`
	Score        int    `json:"score"` // 0-100
	Pass         bool   `json:"pass"`
	Reasoning    string `json:"reasoning"`
}

// TestRun is one complete pass over a suite. Immutable once created.
// AverageScore is the rounded integer mean of per-case scores.
type TestRun struct {
	ID           string       `json:"id"`
	AgentID      string       `json:"agentId"`
	Timestamp    time.Time    `json:"timestamp"`
	AverageScore int          `json:"averageScore"`
	Results      []TestResult `json:"results"`
}

// TestSuite owns an ordered, mutable case list and an append-only run
// history. History is never reordered, truncated, or mutated in place.
type TestSuite struct {
	ID      string     `json:"id"`
	AgentID string     `json:"agentId"`
	Name    string     `json:"name"`
	Cases   []TestCase `json:"cases"`
	History []TestRun  `json:"history"`
}

// ── Drift Correction ─────────────────────────────────────────

// DriftSuggestion is the corrector's output: a human-readable explanation
// and a single imperative instruction sentence to inject into the agent.
type DriftSuggestion struct {
	Suggestion       string `json:"suggestion"`
	PatchInstruction string `json:"patchInstruction"`
}

// ── Conversation ─────────────────────────────────────────────

// ChatTurn is one element of a conversation transcript. Transcripts are
// ordered, immutable sequences passed explicitly into every chat call;
// the engine itself holds no conversation state.
type ChatTurn struct {
	Role    string `json:"role"` // "user" or "agent"
	Content string `json:"content"`
}

// ── Agent Templates ──────────────────────────────────────────

// AgentTemplatePatch is the partial configuration carried by a template.
// Applying it is a field-level merge: zero-valued fields leave the target
// untouched.
type AgentTemplatePatch struct {
	Role            string        `json:"role,omitempty"`
	Audience        string        `json:"audience,omitempty"`
	Tone            AgentTone     `json:"tone,omitempty"`
	VoiceSample     string        `json:"voiceSample,omitempty"`
	ForbiddenTopics []string      `json:"forbiddenTopics,omitempty"`
	Capabilities    *Capabilities `json:"capabilities,omitempty"`
}

// AgentTemplate is a built-in starting point for a new agent.
type AgentTemplate struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Config      AgentTemplatePatch `json:"config"`
	Tags        []string           `json:"tags"`
}
