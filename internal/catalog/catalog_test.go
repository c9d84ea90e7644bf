package catalog_test

import (
	"context"
	"testing"

	"github.com/agentflow/agentflow/internal/catalog"
	"github.com/agentflow/agentflow/internal/store"
	"github.com/agentflow/agentflow/pkg/models"
)

func newTestStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	t.Setenv("AGENTFLOW_DATA_DIR", t.TempDir())
	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetTemplate(t *testing.T) {
	tmpl, err := catalog.GetTemplate("tpl_support")
	if err != nil {
		t.Fatalf("GetTemplate() error = %v", err)
	}
	if tmpl.Name != "SaaS Support Specialist" {
		t.Errorf("Name = %q, want %q", tmpl.Name, "SaaS Support Specialist")
	}

	if _, err := catalog.GetTemplate("nonexistent"); err == nil {
		t.Error("GetTemplate() for unknown id should fail")
	}
}

func TestApply_MergesOnlySetFields(t *testing.T) {
	tmpl, err := catalog.GetTemplate("tpl_sales")
	if err != nil {
		t.Fatalf("GetTemplate() error = %v", err)
	}

	agent := &models.AgentConfig{
		ID:       "a1",
		Name:     "Keep This Name",
		Audience: "original audience",
		Version:  5,
	}
	catalog.Apply(tmpl, agent)

	// Template fields land
	if agent.Role != "Sales Development Representative" {
		t.Errorf("Role = %q, want the template role", agent.Role)
	}
	if agent.Tone != models.ToneDirect {
		t.Errorf("Tone = %q, want %q", agent.Tone, models.ToneDirect)
	}
	if !agent.Capabilities.CanSchedule || !agent.Capabilities.CanCaptureLeads {
		t.Errorf("Capabilities = %+v, want sales capabilities", agent.Capabilities)
	}

	// Fields the template doesn't carry stay put
	if agent.Name != "Keep This Name" {
		t.Errorf("Name = %q, template apply must not rename the agent", agent.Name)
	}
	if agent.Version != 5 {
		t.Errorf("Version = %d, template apply must not touch the version", agent.Version)
	}
}

func TestSeed_PopulatesEmptyStore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := catalog.Seed(ctx, s); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	prompts, err := s.ListPrompts(ctx)
	if err != nil {
		t.Fatalf("ListPrompts() error = %v", err)
	}
	if len(prompts) != 3 {
		t.Errorf("seeded %d prompts, want 3", len(prompts))
	}
}

func TestSeed_LeavesPopulatedStoreAlone(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	existing := &models.PromptTemplate{ID: "mine", Title: "User Authored"}
	if err := s.UpsertPrompt(ctx, existing); err != nil {
		t.Fatalf("UpsertPrompt() error = %v", err)
	}

	if err := catalog.Seed(ctx, s); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	prompts, _ := s.ListPrompts(ctx)
	if len(prompts) != 1 {
		t.Errorf("Seed() into a populated store changed it: %d prompts, want 1", len(prompts))
	}
}
