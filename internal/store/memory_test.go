package store_test

import (
	"context"
	"testing"

	"github.com/agentflow/agentflow/internal/store"
	"github.com/agentflow/agentflow/pkg/models"
)

func newTestStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	// Use temp dir to avoid loading persistent data from ~/.agentflow/
	t.Setenv("AGENTFLOW_DATA_DIR", t.TempDir())
	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAgentCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	agent := &models.AgentConfig{ID: "a1", Name: "Support Bot", Version: 1}
	if err := s.UpsertAgent(ctx, agent); err != nil {
		t.Fatalf("UpsertAgent() error = %v", err)
	}

	got, err := s.GetAgent(ctx, "a1")
	if err != nil {
		t.Fatalf("GetAgent() error = %v", err)
	}
	if got.Name != "Support Bot" {
		t.Errorf("GetAgent().Name = %q, want %q", got.Name, "Support Bot")
	}

	// Upsert replaces
	agent.Name = "Renamed"
	if err := s.UpsertAgent(ctx, agent); err != nil {
		t.Fatalf("UpsertAgent() replace error = %v", err)
	}
	got, _ = s.GetAgent(ctx, "a1")
	if got.Name != "Renamed" {
		t.Errorf("after replace, Name = %q, want %q", got.Name, "Renamed")
	}

	agents, err := s.ListAgents(ctx)
	if err != nil {
		t.Fatalf("ListAgents() error = %v", err)
	}
	if len(agents) != 1 {
		t.Errorf("ListAgents() returned %d agents, want 1", len(agents))
	}

	if err := s.DeleteAgent(ctx, "a1"); err != nil {
		t.Fatalf("DeleteAgent() error = %v", err)
	}
	if _, err := s.GetAgent(ctx, "a1"); err == nil {
		t.Error("GetAgent() after delete should fail")
	}
}

func TestGetAgent_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetAgent(context.Background(), "missing")
	if err == nil {
		t.Fatal("GetAgent() for missing id should fail")
	}
	if _, ok := err.(*store.ErrNotFound); !ok {
		t.Errorf("GetAgent() error type = %T, want *store.ErrNotFound", err)
	}
}

func TestCopyOnRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	agent := &models.AgentConfig{ID: "a1", Name: "Original"}
	if err := s.UpsertAgent(ctx, agent); err != nil {
		t.Fatalf("UpsertAgent() error = %v", err)
	}

	got, _ := s.GetAgent(ctx, "a1")
	got.Name = "Mutated"

	again, _ := s.GetAgent(ctx, "a1")
	if again.Name != "Original" {
		t.Errorf("mutating a read copy leaked: Name = %q", again.Name)
	}
}

func TestListSuites_FilterByAgent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.UpsertSuite(ctx, &models.TestSuite{ID: "s1", AgentID: "a1", Name: "one"})
	s.UpsertSuite(ctx, &models.TestSuite{ID: "s2", AgentID: "a2", Name: "two"})

	all, err := s.ListSuites(ctx, "")
	if err != nil {
		t.Fatalf("ListSuites() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("ListSuites(\"\") returned %d suites, want 2", len(all))
	}

	only, err := s.ListSuites(ctx, "a2")
	if err != nil {
		t.Fatalf("ListSuites(a2) error = %v", err)
	}
	if len(only) != 1 || only[0].ID != "s2" {
		t.Errorf("ListSuites(a2) = %v, want only s2", only)
	}
}

func TestAppendRun_HistoryGrows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	suite := &models.TestSuite{ID: "s1", AgentID: "a1", Name: "regression"}
	if err := s.UpsertSuite(ctx, suite); err != nil {
		t.Fatalf("UpsertSuite() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		run := &models.TestRun{ID: "r" + string(rune('1'+i)), AgentID: "a1", AverageScore: 80}
		if err := s.AppendRun(ctx, "s1", run); err != nil {
			t.Fatalf("AppendRun(%d) error = %v", i, err)
		}
	}

	got, _ := s.GetSuite(ctx, "s1")
	if len(got.History) != 3 {
		t.Fatalf("History length = %d, want 3", len(got.History))
	}
	if got.History[0].ID != "r1" || got.History[2].ID != "r3" {
		t.Errorf("History order = %v, want r1..r3 in append order", got.History)
	}
}

func TestUpsertSuite_CannotShrinkHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	suite := &models.TestSuite{ID: "s1", AgentID: "a1", Name: "regression"}
	s.UpsertSuite(ctx, suite)
	s.AppendRun(ctx, "s1", &models.TestRun{ID: "r1", AgentID: "a1"})

	// A client update carrying stale (empty) history must not erase runs.
	stale := &models.TestSuite{ID: "s1", AgentID: "a1", Name: "renamed"}
	if err := s.UpsertSuite(ctx, stale); err != nil {
		t.Fatalf("UpsertSuite() error = %v", err)
	}

	got, _ := s.GetSuite(ctx, "s1")
	if got.Name != "renamed" {
		t.Errorf("Name = %q, want %q", got.Name, "renamed")
	}
	if len(got.History) != 1 {
		t.Errorf("History length after stale upsert = %d, want 1", len(got.History))
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AGENTFLOW_DATA_DIR", dir)

	ctx := context.Background()
	s := store.NewMemoryStore()
	s.UpsertAgent(ctx, &models.AgentConfig{ID: "a1", Name: "Persisted", Version: 2})
	s.UpsertPrompt(ctx, &models.PromptTemplate{ID: "p1", Title: "Persisted Module"})
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s2 := store.NewMemoryStore()
	defer s2.Close()

	agent, err := s2.GetAgent(ctx, "a1")
	if err != nil {
		t.Fatalf("GetAgent() after reload error = %v", err)
	}
	if agent.Name != "Persisted" || agent.Version != 2 {
		t.Errorf("reloaded agent = %+v, want Name=Persisted Version=2", agent)
	}
	if _, err := s2.GetPrompt(ctx, "p1"); err != nil {
		t.Errorf("GetPrompt() after reload error = %v", err)
	}
}
