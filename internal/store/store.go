// Package store provides the storage interface and implementations for the
// AgentFlow control plane. All handler and orchestration code depends on the
// Store interface, making it easy to swap between in-memory (tests, local
// dev) and future database-backed implementations.
package store

import (
	"context"

	"github.com/agentflow/agentflow/pkg/models"
)

// Store is the primary storage interface for the control plane.
//
// Writes are last-write-wins: there is no locking or version-guarded update.
// Concurrent writers to the same record (an operator saving edits while a
// drift patch is applied) simply race, and the later write survives. The
// AgentConfig.Version counter is informational, not a concurrency guard.
type Store interface {
	AgentStore
	PromptStore
	RouterStore
	SuiteStore

	// Ping checks if the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the store.
	Close() error
}

// ── Agent Store ─────────────────────────────────────────────

type AgentStore interface {
	ListAgents(ctx context.Context) ([]models.AgentConfig, error)
	GetAgent(ctx context.Context, id string) (*models.AgentConfig, error)

	// UpsertAgent inserts if the id is absent, replaces otherwise.
	UpsertAgent(ctx context.Context, agent *models.AgentConfig) error
	DeleteAgent(ctx context.Context, id string) error
}

// ── Prompt Module Store ─────────────────────────────────────

// PromptStore manages the shared library of prompt modules. Deleting a
// module does not cascade into agents that reference it; they keep a
// dangling id, which the compiler tolerates.
type PromptStore interface {
	ListPrompts(ctx context.Context) ([]models.PromptTemplate, error)
	GetPrompt(ctx context.Context, id string) (*models.PromptTemplate, error)
	UpsertPrompt(ctx context.Context, prompt *models.PromptTemplate) error
	DeletePrompt(ctx context.Context, id string) error
}

// ── Router Store ────────────────────────────────────────────

type RouterStore interface {
	ListRouters(ctx context.Context) ([]models.RouterConfig, error)
	GetRouter(ctx context.Context, id string) (*models.RouterConfig, error)
	UpsertRouter(ctx context.Context, router *models.RouterConfig) error
	DeleteRouter(ctx context.Context, id string) error
}

// ── Test Suite Store ────────────────────────────────────────

type SuiteStore interface {
	// ListSuites returns suites owned by the given agent; an empty
	// agentID returns every suite.
	ListSuites(ctx context.Context, agentID string) ([]models.TestSuite, error)
	GetSuite(ctx context.Context, id string) (*models.TestSuite, error)
	UpsertSuite(ctx context.Context, suite *models.TestSuite) error
	DeleteSuite(ctx context.Context, id string) error

	// AppendRun appends a completed run to the suite's history. History
	// is append-only: existing runs are never rewritten or pruned.
	AppendRun(ctx context.Context, suiteID string, run *models.TestRun) error
}

// ── Errors ──────────────────────────────────────────────────

// ErrNotFound is returned when a requested entity does not exist.
type ErrNotFound struct {
	Entity string
	Key    string
}

func (e *ErrNotFound) Error() string {
	return e.Entity + " not found: " + e.Key
}
