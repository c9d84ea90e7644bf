// Package handlers implements the HTTP handlers for the AgentFlow control
// plane: agent, prompt module, router, and test suite CRUD plus the
// operational endpoints (chat, compile, route, run, drift correction).
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/agentflow/agentflow/internal/catalog"
	"github.com/agentflow/agentflow/internal/chat"
	"github.com/agentflow/agentflow/internal/compiler"
	"github.com/agentflow/agentflow/internal/drift"
	"github.com/agentflow/agentflow/internal/evaluation"
	"github.com/agentflow/agentflow/internal/intent"
	"github.com/agentflow/agentflow/internal/store"
	"github.com/agentflow/agentflow/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Handlers holds all handler dependencies.
type Handlers struct {
	Store     store.Store
	Chat      *chat.Engine
	Intent    *intent.Router
	Harness   *evaluation.Harness
	Corrector *drift.Corrector
}

// New creates a new Handlers instance with all dependencies.
func New(s store.Store, engine *chat.Engine, rt *intent.Router, h *evaluation.Harness, c *drift.Corrector) *Handlers {
	return &Handlers{
		Store:     s,
		Chat:      engine,
		Intent:    rt,
		Harness:   h,
		Corrector: c,
	}
}

// ══════════════════════════════════════════════════════════════
// ── Agent Handlers ───────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

func (h *Handlers) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.Store.ListAgents(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if agents == nil {
		agents = []models.AgentConfig{}
	}
	respondJSON(w, http.StatusOK, agents)
}

func (h *Handlers) CreateAgent(w http.ResponseWriter, r *http.Request) {
	var req models.AgentConfig
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "Agent name is required")
		return
	}

	req.ID = uuid.New().String()
	req.Created = time.Now().UTC()
	req.LastUpdated = req.Created
	if req.Version <= 0 {
		req.Version = 1
	}

	if err := h.Store.UpsertAgent(r.Context(), &req); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Info().Str("agent", req.Name).Str("id", req.ID).Msg("Agent created")
	respondJSON(w, http.StatusCreated, req)
}

func (h *Handlers) GetAgent(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentId")

	agent, err := h.Store.GetAgent(r.Context(), agentID)
	if err != nil {
		if _, ok := err.(*store.ErrNotFound); ok {
			respondError(w, http.StatusNotFound, err.Error())
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	respondJSON(w, http.StatusOK, agent)
}

func (h *Handlers) UpdateAgent(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentId")

	existing, err := h.Store.GetAgent(r.Context(), agentID)
	if err != nil {
		if _, ok := err.(*store.ErrNotFound); ok {
			respondError(w, http.StatusNotFound, err.Error())
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	var req models.AgentConfig
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Identity and provenance fields are server-owned.
	req.ID = existing.ID
	req.Created = existing.Created
	req.LastUpdated = time.Now().UTC()
	if req.Version <= 0 {
		req.Version = existing.Version
	}

	if err := h.Store.UpsertAgent(r.Context(), &req); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, req)
}

func (h *Handlers) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentId")

	if err := h.Store.DeleteAgent(r.Context(), agentID); err != nil {
		if _, ok := err.(*store.ErrNotFound); ok {
			respondError(w, http.StatusNotFound, err.Error())
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	log.Info().Str("agent", agentID).Msg("Agent deleted")
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted", "agent": agentID})
}

// ChatAgent runs one conversational turn against an agent. The transcript is
// supplied by the caller on every request; the server keeps no session state.
func (h *Handlers) ChatAgent(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentId")

	agent, err := h.Store.GetAgent(r.Context(), agentID)
	if err != nil {
		if _, ok := err.(*store.ErrNotFound); ok {
			respondError(w, http.StatusNotFound, err.Error())
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	var req struct {
		Message string            `json:"message"`
		History []models.ChatTurn `json:"history"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		respondError(w, http.StatusBadRequest, "Request must include a non-empty 'message' field")
		return
	}

	response := h.Chat.Respond(r.Context(), agent, req.History, req.Message)
	respondJSON(w, http.StatusOK, map[string]string{
		"agentId":  agentID,
		"response": response,
	})
}

// CompileAgent recompiles the agent's system prompt from its current
// configuration and the live prompt module library, caches it on the agent,
// and returns it.
func (h *Handlers) CompileAgent(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentId")

	agent, err := h.Store.GetAgent(r.Context(), agentID)
	if err != nil {
		if _, ok := err.(*store.ErrNotFound); ok {
			respondError(w, http.StatusNotFound, err.Error())
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	modules, err := h.Store.ListPrompts(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	compiled := compiler.Compile(agent, modules)

	agent.SystemPrompt = compiled
	agent.LastUpdated = time.Now().UTC()
	if err := h.Store.UpsertAgent(r.Context(), agent); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"agentId":      agentID,
		"systemPrompt": compiled,
	})
}

// ApplyTemplate merges a built-in template into an existing agent.
func (h *Handlers) ApplyTemplate(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentId")

	agent, err := h.Store.GetAgent(r.Context(), agentID)
	if err != nil {
		if _, ok := err.(*store.ErrNotFound); ok {
			respondError(w, http.StatusNotFound, err.Error())
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	var req struct {
		TemplateID string `json:"templateId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TemplateID == "" {
		respondError(w, http.StatusBadRequest, "Request must include a 'templateId' field")
		return
	}

	tmpl, err := catalog.GetTemplate(req.TemplateID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	catalog.Apply(tmpl, agent)
	agent.LastUpdated = time.Now().UTC()

	if err := h.Store.UpsertAgent(r.Context(), agent); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Info().Str("agent", agentID).Str("template", tmpl.ID).Msg("Template applied")
	respondJSON(w, http.StatusOK, agent)
}

// ApplyFix injects a drift patch instruction into an agent.
func (h *Handlers) ApplyFix(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentId")

	var req struct {
		PatchInstruction string `json:"patchInstruction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PatchInstruction == "" {
		respondError(w, http.StatusBadRequest, "Request must include a 'patchInstruction' field")
		return
	}

	agent, err := h.Corrector.ApplyFix(r.Context(), agentID, req.PatchInstruction)
	if err != nil {
		if _, ok := err.(*store.ErrNotFound); ok {
			respondError(w, http.StatusNotFound, err.Error())
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	respondJSON(w, http.StatusOK, agent)
}

// ══════════════════════════════════════════════════════════════
// ── Prompt Module Handlers ───────────────────────────────────
// ══════════════════════════════════════════════════════════════

func (h *Handlers) ListPrompts(w http.ResponseWriter, r *http.Request) {
	prompts, err := h.Store.ListPrompts(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if prompts == nil {
		prompts = []models.PromptTemplate{}
	}
	respondJSON(w, http.StatusOK, prompts)
}

func (h *Handlers) CreatePrompt(w http.ResponseWriter, r *http.Request) {
	var req models.PromptTemplate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Title == "" {
		respondError(w, http.StatusBadRequest, "Prompt title is required")
		return
	}

	req.ID = uuid.New().String()
	req.LastEdited = time.Now().UTC()

	if err := h.Store.UpsertPrompt(r.Context(), &req); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Info().Str("prompt", req.Title).Str("id", req.ID).Msg("Prompt module created")
	respondJSON(w, http.StatusCreated, req)
}

func (h *Handlers) GetPrompt(w http.ResponseWriter, r *http.Request) {
	promptID := chi.URLParam(r, "promptId")

	prompt, err := h.Store.GetPrompt(r.Context(), promptID)
	if err != nil {
		if _, ok := err.(*store.ErrNotFound); ok {
			respondError(w, http.StatusNotFound, err.Error())
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	respondJSON(w, http.StatusOK, prompt)
}

func (h *Handlers) UpdatePrompt(w http.ResponseWriter, r *http.Request) {
	promptID := chi.URLParam(r, "promptId")

	existing, err := h.Store.GetPrompt(r.Context(), promptID)
	if err != nil {
		if _, ok := err.(*store.ErrNotFound); ok {
			respondError(w, http.StatusNotFound, err.Error())
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	var req models.PromptTemplate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.ID = existing.ID
	req.LastEdited = time.Now().UTC()

	if err := h.Store.UpsertPrompt(r.Context(), &req); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, req)
}

// DeletePrompt removes a module from the shared library. Agents that
// reference it keep a dangling id; the compiler skips those silently.
func (h *Handlers) DeletePrompt(w http.ResponseWriter, r *http.Request) {
	promptID := chi.URLParam(r, "promptId")

	if err := h.Store.DeletePrompt(r.Context(), promptID); err != nil {
		if _, ok := err.(*store.ErrNotFound); ok {
			respondError(w, http.StatusNotFound, err.Error())
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ══════════════════════════════════════════════════════════════
// ── Intent Router Handlers ───────────────────────────────────
// ══════════════════════════════════════════════════════════════

func (h *Handlers) ListRouters(w http.ResponseWriter, r *http.Request) {
	routers, err := h.Store.ListRouters(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if routers == nil {
		routers = []models.RouterConfig{}
	}
	respondJSON(w, http.StatusOK, routers)
}

func (h *Handlers) CreateRouter(w http.ResponseWriter, r *http.Request) {
	var req models.RouterConfig
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "Router name is required")
		return
	}

	req.ID = uuid.New().String()
	for i := range req.Rules {
		if req.Rules[i].ID == "" {
			req.Rules[i].ID = uuid.New().String()
		}
	}

	if err := h.Store.UpsertRouter(r.Context(), &req); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Info().Str("router", req.Name).Str("id", req.ID).Msg("Router created")
	respondJSON(w, http.StatusCreated, req)
}

func (h *Handlers) GetRouter(w http.ResponseWriter, r *http.Request) {
	routerID := chi.URLParam(r, "routerId")

	router, err := h.Store.GetRouter(r.Context(), routerID)
	if err != nil {
		if _, ok := err.(*store.ErrNotFound); ok {
			respondError(w, http.StatusNotFound, err.Error())
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	respondJSON(w, http.StatusOK, router)
}

func (h *Handlers) UpdateRouter(w http.ResponseWriter, r *http.Request) {
	routerID := chi.URLParam(r, "routerId")

	existing, err := h.Store.GetRouter(r.Context(), routerID)
	if err != nil {
		if _, ok := err.(*store.ErrNotFound); ok {
			respondError(w, http.StatusNotFound, err.Error())
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	var req models.RouterConfig
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.ID = existing.ID
	for i := range req.Rules {
		if req.Rules[i].ID == "" {
			req.Rules[i].ID = uuid.New().String()
		}
	}

	if err := h.Store.UpsertRouter(r.Context(), &req); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, req)
}

func (h *Handlers) DeleteRouter(w http.ResponseWriter, r *http.Request) {
	routerID := chi.URLParam(r, "routerId")

	if err := h.Store.DeleteRouter(r.Context(), routerID); err != nil {
		if _, ok := err.(*store.ErrNotFound); ok {
			respondError(w, http.StatusNotFound, err.Error())
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RouteMessage classifies a message against a router's rules and returns
// the target agent id. Classification failures fall back to the router's
// configured fallback; this endpoint never returns a routing error.
func (h *Handlers) RouteMessage(w http.ResponseWriter, r *http.Request) {
	routerID := chi.URLParam(r, "routerId")

	router, err := h.Store.GetRouter(r.Context(), routerID)
	if err != nil {
		if _, ok := err.(*store.ErrNotFound); ok {
			respondError(w, http.StatusNotFound, err.Error())
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		respondError(w, http.StatusBadRequest, "Request must include a non-empty 'message' field")
		return
	}

	targetID := h.Intent.Route(r.Context(), router, req.Message)
	respondJSON(w, http.StatusOK, map[string]string{
		"routerId":      routerID,
		"targetAgentId": targetID,
	})
}

// ══════════════════════════════════════════════════════════════
// ── Test Suite Handlers ──────────────────────────────────────
// ══════════════════════════════════════════════════════════════

func (h *Handlers) ListSuites(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agent_id")

	suites, err := h.Store.ListSuites(r.Context(), agentID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if suites == nil {
		suites = []models.TestSuite{}
	}
	respondJSON(w, http.StatusOK, suites)
}

func (h *Handlers) CreateSuite(w http.ResponseWriter, r *http.Request) {
	var req models.TestSuite
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.AgentID == "" {
		respondError(w, http.StatusBadRequest, "Suite must reference an agent")
		return
	}

	req.ID = uuid.New().String()
	req.History = nil
	for i := range req.Cases {
		if req.Cases[i].ID == "" {
			req.Cases[i].ID = uuid.New().String()
		}
	}

	if err := h.Store.UpsertSuite(r.Context(), &req); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Info().Str("suite", req.Name).Str("agent", req.AgentID).Msg("Test suite created")
	respondJSON(w, http.StatusCreated, req)
}

func (h *Handlers) GetSuite(w http.ResponseWriter, r *http.Request) {
	suiteID := chi.URLParam(r, "suiteId")

	suite, err := h.Store.GetSuite(r.Context(), suiteID)
	if err != nil {
		if _, ok := err.(*store.ErrNotFound); ok {
			respondError(w, http.StatusNotFound, err.Error())
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	respondJSON(w, http.StatusOK, suite)
}

// UpdateSuite replaces a suite's name and case list. Run history is owned
// by the server; the store refuses to shrink it on upsert.
func (h *Handlers) UpdateSuite(w http.ResponseWriter, r *http.Request) {
	suiteID := chi.URLParam(r, "suiteId")

	existing, err := h.Store.GetSuite(r.Context(), suiteID)
	if err != nil {
		if _, ok := err.(*store.ErrNotFound); ok {
			respondError(w, http.StatusNotFound, err.Error())
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	var req models.TestSuite
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.ID = existing.ID
	if req.AgentID == "" {
		req.AgentID = existing.AgentID
	}
	req.History = existing.History
	for i := range req.Cases {
		if req.Cases[i].ID == "" {
			req.Cases[i].ID = uuid.New().String()
		}
	}

	if err := h.Store.UpsertSuite(r.Context(), &req); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, req)
}

func (h *Handlers) DeleteSuite(w http.ResponseWriter, r *http.Request) {
	suiteID := chi.URLParam(r, "suiteId")

	if err := h.Store.DeleteSuite(r.Context(), suiteID); err != nil {
		if _, ok := err.(*store.ErrNotFound); ok {
			respondError(w, http.StatusNotFound, err.Error())
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RunSuite executes every case in the suite against its agent, appends the
// run to history, and returns it with a drift flag.
func (h *Handlers) RunSuite(w http.ResponseWriter, r *http.Request) {
	suiteID := chi.URLParam(r, "suiteId")

	suite, err := h.Store.GetSuite(r.Context(), suiteID)
	if err != nil {
		if _, ok := err.(*store.ErrNotFound); ok {
			respondError(w, http.StatusNotFound, err.Error())
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	agent, err := h.Store.GetAgent(r.Context(), suite.AgentID)
	if err != nil {
		if _, ok := err.(*store.ErrNotFound); ok {
			respondError(w, http.StatusNotFound, err.Error())
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	run, err := h.Harness.RunSuite(r.Context(), agent, suite)
	if err != nil {
		if err == evaluation.ErrNoCases {
			respondError(w, http.StatusBadRequest, err.Error())
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"run":      run,
		"degraded": evaluation.Degraded(run),
	})
}

// SuggestFix analyzes the failed results of the suite's most recent run and
// returns a corrective suggestion. Nothing is mutated; applying the patch is
// a separate call on the agent.
func (h *Handlers) SuggestFix(w http.ResponseWriter, r *http.Request) {
	suiteID := chi.URLParam(r, "suiteId")

	suite, err := h.Store.GetSuite(r.Context(), suiteID)
	if err != nil {
		if _, ok := err.(*store.ErrNotFound); ok {
			respondError(w, http.StatusNotFound, err.Error())
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	var failures []models.TestResult
	if len(suite.History) > 0 {
		latest := suite.History[len(suite.History)-1]
		for _, res := range latest.Results {
			if !res.Pass {
				failures = append(failures, res)
			}
		}
	}

	suggestion := h.Corrector.SuggestFix(r.Context(), failures)
	respondJSON(w, http.StatusOK, suggestion)
}

// ══════════════════════════════════════════════════════════════
// ── Template Handlers ────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

func (h *Handlers) ListTemplates(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, catalog.Templates())
}

// ── Helpers ─────────────────────────────────────────────────

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
