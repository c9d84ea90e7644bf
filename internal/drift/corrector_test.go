package drift_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/agentflow/agentflow/internal/drift"
	"github.com/agentflow/agentflow/internal/llm"
	"github.com/agentflow/agentflow/internal/store"
	"github.com/agentflow/agentflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	response string
	err      error
	calls    int
	lastReq  *llm.Request
}

func (c *stubClient) Kind() string { return "stub" }

func (c *stubClient) Complete(_ context.Context, req *llm.Request) (string, error) {
	c.calls++
	c.lastReq = req
	return c.response, c.err
}

func (c *stubClient) CompleteJSON(_ context.Context, req *llm.Request) (json.RawMessage, error) {
	c.calls++
	c.lastReq = req
	if c.err != nil {
		return nil, c.err
	}
	return json.RawMessage(c.response), nil
}

func newTestStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	t.Setenv("AGENTFLOW_DATA_DIR", t.TempDir())
	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSuggestFix_Success(t *testing.T) {
	s := newTestStore(t)
	client := &stubClient{response: `{"suggestion":"The agent is too curt.","patchInstruction":"Always close with an offer to help further."}`}
	c := drift.NewCorrector(s, client)

	failures := []models.TestResult{
		{TestCaseID: "c1", ActualOutput: "No.", Reasoning: "Dismissive tone.", Score: 30},
	}
	got := c.SuggestFix(context.Background(), failures)

	assert.Equal(t, "The agent is too curt.", got.Suggestion)
	assert.Equal(t, "Always close with an offer to help further.", got.PatchInstruction)

	// Only reasoning and output feed the analysis, not scores or case ids.
	assert.Contains(t, client.lastReq.Prompt, "Dismissive tone.")
	assert.Contains(t, client.lastReq.Prompt, "No.")
}

func TestSuggestFix_NoFailuresSkipsCall(t *testing.T) {
	s := newTestStore(t)
	client := &stubClient{response: `{}`}
	c := drift.NewCorrector(s, client)

	got := c.SuggestFix(context.Background(), nil)

	assert.Equal(t, "No failures to analyze.", got.Suggestion)
	assert.Empty(t, got.PatchInstruction)
	assert.Zero(t, client.calls, "empty failure set must not reach the capability")
}

func TestSuggestFix_CallFailure(t *testing.T) {
	s := newTestStore(t)
	client := &stubClient{err: errors.New("boom")}
	c := drift.NewCorrector(s, client)

	got := c.SuggestFix(context.Background(), []models.TestResult{{Reasoning: "bad"}})
	assert.Equal(t, "Could not generate suggestions.", got.Suggestion)
	assert.Empty(t, got.PatchInstruction)
}

func TestSuggestFix_UnparsableDefaults(t *testing.T) {
	s := newTestStore(t)
	client := &stubClient{response: "not json"}
	c := drift.NewCorrector(s, client)

	got := c.SuggestFix(context.Background(), []models.TestResult{{Reasoning: "bad"}})
	assert.Equal(t, "General fix recommended.", got.Suggestion)
	assert.Empty(t, got.PatchInstruction)
}

func TestApplyFix_PatchShape(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertAgent(ctx, &models.AgentConfig{
		ID:      "a1",
		Name:    "Aria",
		Version: 3,
		Knowledge: []models.KnowledgeSource{
			{ID: "k1", Type: models.KnowledgeText, Name: "Policy", Content: "existing"},
		},
	}))

	c := drift.NewCorrector(s, &stubClient{})
	updated, err := c.ApplyFix(ctx, "a1", "Always be polite.")
	require.NoError(t, err)

	// Exactly one source appended, version bumped by exactly 1,
	// everything else untouched.
	require.Len(t, updated.Knowledge, 2)
	assert.Equal(t, 4, updated.Version)
	assert.Equal(t, "Aria", updated.Name)
	assert.Equal(t, "existing", updated.Knowledge[0].Content)

	patch := updated.Knowledge[1]
	assert.True(t, strings.HasPrefix(patch.ID, "patch_"))
	assert.Equal(t, models.KnowledgeText, patch.Type)
	assert.True(t, strings.HasPrefix(patch.Name, "Auto-Fix: "))
	assert.Equal(t, "CRITICAL INSTRUCTION: Always be polite.", patch.Content)
	assert.Equal(t, models.KnowledgeIndexed, patch.Status)

	// Persisted, not just returned.
	stored, err := s.GetAgent(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 4, stored.Version)
	assert.Len(t, stored.Knowledge, 2)
}

// Legacy records with a zero version bump as if they were at version 1.
func TestApplyFix_ZeroVersionTreatedAsOne(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertAgent(ctx, &models.AgentConfig{ID: "a1", Name: "Aria"}))

	c := drift.NewCorrector(s, &stubClient{})
	updated, err := c.ApplyFix(ctx, "a1", "patch")
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
}

func TestApplyFix_MissingAgent(t *testing.T) {
	s := newTestStore(t)
	c := drift.NewCorrector(s, &stubClient{})

	_, err := c.ApplyFix(context.Background(), "missing", "patch")
	require.Error(t, err)
	var notFound *store.ErrNotFound
	assert.ErrorAs(t, err, &notFound)
}

// Applying the same patch twice appends twice and bumps twice; fixes are
// never deduplicated.
func TestApplyFix_Monotonic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertAgent(ctx, &models.AgentConfig{ID: "a1", Name: "Aria", Version: 1}))

	c := drift.NewCorrector(s, &stubClient{})
	_, err := c.ApplyFix(ctx, "a1", "patch")
	require.NoError(t, err)
	updated, err := c.ApplyFix(ctx, "a1", "patch")
	require.NoError(t, err)

	assert.Equal(t, 3, updated.Version)
	assert.Len(t, updated.Knowledge, 2)
}
