// Package evaluation runs test suites against agents and records scored
// run history. Each case is a two-step cycle: elicit a fresh response from
// the agent under test, then have the generative capability judge that
// response against the case's free-text rubric.
package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/agentflow/agentflow/internal/chat"
	"github.com/agentflow/agentflow/internal/llm"
	"github.com/agentflow/agentflow/internal/store"
	"github.com/agentflow/agentflow/pkg/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DriftThreshold is the average score strictly below which a run counts as
// degraded. A run averaging exactly DriftThreshold is not degraded.
const DriftThreshold = 70

// ErrNoCases is returned when a suite with zero cases is run. An empty run
// would be recorded with an undefined average otherwise.
var ErrNoCases = errors.New("evaluation: suite has no test cases")

// Harness executes suites. Cases run strictly sequentially; a judge failure
// on one case never aborts the remainder of the run.
type Harness struct {
	store store.Store
	chat  *chat.Engine
	llm   llm.Client
}

// NewHarness creates an evaluation harness.
func NewHarness(st store.Store, engine *chat.Engine, client llm.Client) *Harness {
	return &Harness{store: st, chat: engine, llm: client}
}

// judgeVerdict is the structured output demanded of the judge call.
type judgeVerdict struct {
	Score     int    `json:"score" jsonschema:"required,description=Score from 0 to 100"`
	Pass      bool   `json:"pass" jsonschema:"required,description=Whether the response meets the criteria"`
	Reasoning string `json:"reasoning" jsonschema:"required,description=One or two sentences explaining the score"`
}

var judgeSchema = llm.SchemaFor(&judgeVerdict{})

// RunCase evaluates a single case: empty transcript, fresh response, one
// judge call. Judge failures degrade to a zero-score result rather than an
// error, so a flaky judge cannot poison a whole run.
func (h *Harness) RunCase(ctx context.Context, agent *models.AgentConfig, tc models.TestCase) models.TestResult {
	output := h.chat.Respond(ctx, agent, nil, tc.Input)

	result := models.TestResult{
		TestCaseID:   tc.ID,
		ActualOutput: output,
	}

	raw, err := h.llm.CompleteJSON(ctx, &llm.Request{
		Prompt: buildJudgePrompt(tc, output),
		Schema: judgeSchema,
	})
	if err != nil {
		log.Warn().Err(err).Str("case", tc.ID).Msg("Judge call failed")
		result.Score = 0
		result.Pass = false
		result.Reasoning = "System error during evaluation."
		return result
	}

	var v judgeVerdict
	if err := json.Unmarshal(raw, &v); err != nil {
		log.Warn().Err(err).Str("case", tc.ID).Msg("Judge response unparsable")
		result.Score = 0
		result.Pass = false
		result.Reasoning = "Evaluation failed to parse."
		return result
	}

	result.Score = v.Score
	result.Pass = v.Pass
	result.Reasoning = v.Reasoning
	return result
}

// RunSuite executes every case in order, computes the rounded average,
// appends the run to the suite's history, and returns it.
func (h *Harness) RunSuite(ctx context.Context, agent *models.AgentConfig, suite *models.TestSuite) (*models.TestRun, error) {
	if len(suite.Cases) == 0 {
		return nil, ErrNoCases
	}

	results := make([]models.TestResult, 0, len(suite.Cases))
	sum := 0
	for _, tc := range suite.Cases {
		r := h.RunCase(ctx, agent, tc)
		results = append(results, r)
		sum += r.Score
	}

	run := &models.TestRun{
		ID:           uuid.NewString(),
		AgentID:      agent.ID,
		Timestamp:    time.Now().UTC(),
		AverageScore: int(math.Round(float64(sum) / float64(len(results)))),
		Results:      results,
	}

	if err := h.store.AppendRun(ctx, suite.ID, run); err != nil {
		return nil, fmt.Errorf("append run: %w", err)
	}

	log.Info().
		Str("suite", suite.ID).
		Str("agent", agent.ID).
		Int("averageScore", run.AverageScore).
		Int("cases", len(results)).
		Msg("Suite run complete")
	return run, nil
}

// Degraded reports whether a run's average falls below the drift threshold.
func Degraded(run *models.TestRun) bool {
	return run.AverageScore < DriftThreshold
}

func buildJudgePrompt(tc models.TestCase, output string) string {
	return fmt.Sprintf(`You are a strict QA evaluator for AI agents.

USER INPUT:
%s

AGENT RESPONSE:
%s

EXPECTED CRITERIA:
%s

Score the response from 0 to 100 against the criteria, decide pass or fail, and explain briefly.`, tc.Input, output, tc.ExpectedCriteria)
}
