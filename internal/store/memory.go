// In-memory Store implementation with JSON snapshot persistence.
// Used for local development and tests. Supports file-based snapshot
// persistence so data survives restarts.
package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/agentflow/agentflow/pkg/models"
	"github.com/rs/zerolog/log"
)

// snapshot is the JSON-serializable shape written to disk.
type snapshot struct {
	Agents  map[string]*models.AgentConfig    `json:"agents"`
	Prompts map[string]*models.PromptTemplate `json:"prompts"`
	Routers map[string]*models.RouterConfig   `json:"routers"`
	Suites  map[string]*models.TestSuite      `json:"suites"`
}

// MemoryStore implements Store with in-memory maps.
type MemoryStore struct {
	mu      sync.RWMutex
	agents  map[string]*models.AgentConfig    // key: id
	prompts map[string]*models.PromptTemplate // key: id
	routers map[string]*models.RouterConfig   // key: id
	suites  map[string]*models.TestSuite      // key: id

	// Persistence
	snapshotPath string        // empty = no persistence
	saveMu       sync.Mutex    // guards file writes
	saveCh       chan struct{} // debounce channel
	doneCh       chan struct{} // signals the save goroutine to stop
}

// NewMemoryStore creates a new in-memory store.
// If AGENTFLOW_DATA_DIR is set, data is persisted to a JSON file in that
// directory. Otherwise defaults to ~/.agentflow/data.json.
func NewMemoryStore() *MemoryStore {
	m := &MemoryStore{
		agents:  make(map[string]*models.AgentConfig),
		prompts: make(map[string]*models.PromptTemplate),
		routers: make(map[string]*models.RouterConfig),
		suites:  make(map[string]*models.TestSuite),
		saveCh:  make(chan struct{}, 1),
		doneCh:  make(chan struct{}),
	}

	dataDir := os.Getenv("AGENTFLOW_DATA_DIR")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			dataDir = filepath.Join(home, ".agentflow")
		}
	}
	if dataDir != "" {
		m.snapshotPath = filepath.Join(dataDir, "data.json")
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			log.Warn().Err(err).Str("dir", dataDir).Msg("Cannot create data dir, persistence disabled")
			m.snapshotPath = ""
		}
	}

	if m.snapshotPath != "" {
		m.loadSnapshot()
		go m.saveLoop()
	}

	log.Info().Str("snapshot", m.snapshotPath).Msg("Memory store configured")
	return m
}

// requestSave signals the background goroutine to persist data.
// Non-blocking: coalesces multiple rapid writes into one disk flush.
func (m *MemoryStore) requestSave() {
	if m.snapshotPath == "" {
		return
	}
	select {
	case m.saveCh <- struct{}{}:
	default:
		// Already pending
	}
}

// saveLoop runs in a goroutine, debouncing save requests (max 1 write per 500ms).
func (m *MemoryStore) saveLoop() {
	for {
		select {
		case <-m.doneCh:
			return
		case <-m.saveCh:
			time.Sleep(500 * time.Millisecond) // debounce
			m.saveSnapshot()
		}
	}
}

// saveSnapshot persists all data to disk as JSON.
func (m *MemoryStore) saveSnapshot() {
	m.mu.RLock()
	snap := snapshot{
		Agents:  m.agents,
		Prompts: m.prompts,
		Routers: m.routers,
		Suites:  m.suites,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	m.mu.RUnlock()

	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal snapshot")
		return
	}

	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	// Write to temp file then rename for atomicity
	tmp := m.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		log.Error().Err(err).Str("path", tmp).Msg("Failed to write snapshot tmp")
		return
	}
	if err := os.Rename(tmp, m.snapshotPath); err != nil {
		log.Error().Err(err).Str("path", m.snapshotPath).Msg("Failed to rename snapshot")
		return
	}

	log.Debug().Str("path", m.snapshotPath).Msg("Snapshot saved")
}

// loadSnapshot reads data from disk on startup.
func (m *MemoryStore) loadSnapshot() {
	data, err := os.ReadFile(m.snapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", m.snapshotPath).Msg("No snapshot file found, starting fresh")
			return
		}
		log.Warn().Err(err).Str("path", m.snapshotPath).Msg("Failed to read snapshot")
		return
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Error().Err(err).Str("path", m.snapshotPath).Msg("Failed to parse snapshot, starting fresh")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if snap.Agents != nil {
		m.agents = snap.Agents
	}
	if snap.Prompts != nil {
		m.prompts = snap.Prompts
	}
	if snap.Routers != nil {
		m.routers = snap.Routers
	}
	if snap.Suites != nil {
		m.suites = snap.Suites
	}

	log.Info().
		Int("agents", len(m.agents)).
		Int("prompts", len(m.prompts)).
		Int("routers", len(m.routers)).
		Int("suites", len(m.suites)).
		Str("path", m.snapshotPath).
		Msg("Snapshot loaded")
}

func (m *MemoryStore) Ping(_ context.Context) error { return nil }

// Close stops the save goroutine and forces a final snapshot write.
// Safe to call multiple times (second call is a no-op).
func (m *MemoryStore) Close() error {
	select {
	case <-m.doneCh:
		// Already closed
		return nil
	default:
		close(m.doneCh)
	}

	if m.snapshotPath != "" {
		m.saveSnapshot()
	}

	log.Info().Msg("Memory store closed")
	return nil
}

// ── Agent Store ─────────────────────────────────────────────

func (m *MemoryStore) ListAgents(_ context.Context) ([]models.AgentConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]models.AgentConfig, 0, len(m.agents))
	for _, a := range m.agents {
		result = append(result, *a)
	}
	return result, nil
}

func (m *MemoryStore) GetAgent(_ context.Context, id string) (*models.AgentConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.agents[id]
	if !ok {
		return nil, &ErrNotFound{Entity: "agent", Key: id}
	}
	copy := *a
	return &copy, nil
}

func (m *MemoryStore) UpsertAgent(_ context.Context, agent *models.AgentConfig) error {
	m.mu.Lock()
	copy := *agent
	m.agents[agent.ID] = &copy
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) DeleteAgent(_ context.Context, id string) error {
	m.mu.Lock()
	if _, ok := m.agents[id]; !ok {
		m.mu.Unlock()
		return &ErrNotFound{Entity: "agent", Key: id}
	}
	delete(m.agents, id)
	m.mu.Unlock()
	m.requestSave()
	return nil
}

// ── Prompt Module Store ─────────────────────────────────────

func (m *MemoryStore) ListPrompts(_ context.Context) ([]models.PromptTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]models.PromptTemplate, 0, len(m.prompts))
	for _, p := range m.prompts {
		result = append(result, *p)
	}
	return result, nil
}

func (m *MemoryStore) GetPrompt(_ context.Context, id string) (*models.PromptTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.prompts[id]
	if !ok {
		return nil, &ErrNotFound{Entity: "prompt", Key: id}
	}
	copy := *p
	return &copy, nil
}

func (m *MemoryStore) UpsertPrompt(_ context.Context, prompt *models.PromptTemplate) error {
	m.mu.Lock()
	copy := *prompt
	m.prompts[prompt.ID] = &copy
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) DeletePrompt(_ context.Context, id string) error {
	m.mu.Lock()
	if _, ok := m.prompts[id]; !ok {
		m.mu.Unlock()
		return &ErrNotFound{Entity: "prompt", Key: id}
	}
	// Agents referencing this module keep the dangling id; the
	// compiler skips ids that no longer resolve.
	delete(m.prompts, id)
	m.mu.Unlock()
	m.requestSave()
	return nil
}

// ── Router Store ────────────────────────────────────────────

func (m *MemoryStore) ListRouters(_ context.Context) ([]models.RouterConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]models.RouterConfig, 0, len(m.routers))
	for _, r := range m.routers {
		result = append(result, *r)
	}
	return result, nil
}

func (m *MemoryStore) GetRouter(_ context.Context, id string) (*models.RouterConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.routers[id]
	if !ok {
		return nil, &ErrNotFound{Entity: "router", Key: id}
	}
	copy := *r
	return &copy, nil
}

func (m *MemoryStore) UpsertRouter(_ context.Context, router *models.RouterConfig) error {
	m.mu.Lock()
	copy := *router
	m.routers[router.ID] = &copy
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) DeleteRouter(_ context.Context, id string) error {
	m.mu.Lock()
	if _, ok := m.routers[id]; !ok {
		m.mu.Unlock()
		return &ErrNotFound{Entity: "router", Key: id}
	}
	delete(m.routers, id)
	m.mu.Unlock()
	m.requestSave()
	return nil
}

// ── Test Suite Store ────────────────────────────────────────

func (m *MemoryStore) ListSuites(_ context.Context, agentID string) ([]models.TestSuite, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []models.TestSuite
	for _, s := range m.suites {
		if agentID == "" || s.AgentID == agentID {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (m *MemoryStore) GetSuite(_ context.Context, id string) (*models.TestSuite, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.suites[id]
	if !ok {
		return nil, &ErrNotFound{Entity: "suite", Key: id}
	}
	copy := *s
	return &copy, nil
}

func (m *MemoryStore) UpsertSuite(_ context.Context, suite *models.TestSuite) error {
	m.mu.Lock()
	copy := *suite
	// Upserts carry case edits, never history rewrites: the stored
	// history is authoritative and survives a caller sending a stale
	// or empty history slice.
	if existing, ok := m.suites[suite.ID]; ok && len(copy.History) < len(existing.History) {
		copy.History = existing.History
	}
	m.suites[suite.ID] = &copy
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) DeleteSuite(_ context.Context, id string) error {
	m.mu.Lock()
	if _, ok := m.suites[id]; !ok {
		m.mu.Unlock()
		return &ErrNotFound{Entity: "suite", Key: id}
	}
	delete(m.suites, id)
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) AppendRun(_ context.Context, suiteID string, run *models.TestRun) error {
	m.mu.Lock()
	s, ok := m.suites[suiteID]
	if !ok {
		m.mu.Unlock()
		return &ErrNotFound{Entity: "suite", Key: suiteID}
	}
	s.History = append(s.History, *run)
	m.mu.Unlock()
	m.requestSave()
	return nil
}

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
