// Package server provides the public entry point for initializing the
// AgentFlow control plane server.
//
// Usage:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(":8080", srv.Handler)
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/agentflow/agentflow/internal/api"
	"github.com/agentflow/agentflow/internal/api/handlers"
	"github.com/agentflow/agentflow/internal/catalog"
	"github.com/agentflow/agentflow/internal/chat"
	"github.com/agentflow/agentflow/internal/config"
	"github.com/agentflow/agentflow/internal/drift"
	"github.com/agentflow/agentflow/internal/evaluation"
	"github.com/agentflow/agentflow/internal/intent"
	"github.com/agentflow/agentflow/internal/llm"
	"github.com/agentflow/agentflow/internal/store"
	"github.com/agentflow/agentflow/internal/telemetry"

	"github.com/rs/zerolog/log"
)

// Server holds the initialized AgentFlow control plane.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Store is the data store.
	Store store.Store

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown to flush telemetry.
	ShutdownFunc func(context.Context) error
}

// New initializes all control plane components from the environment and
// returns a ready Server.
func New(ctx context.Context) (*Server, error) {
	return NewWithConfig(ctx, config.Load())
}

// NewWithConfig initializes the control plane with an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	shutdown, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	dataStore := store.NewMemoryStore()
	log.Info().Msg("In-memory store initialized")

	if err := catalog.Seed(ctx, dataStore); err != nil {
		log.Warn().Err(err).Msg("Failed to seed prompt library")
	}

	client, err := llm.New(llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		Endpoint: cfg.LLM.Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("init llm client: %w", err)
	}
	log.Info().Str("provider", client.Kind()).Msg("Generative client initialized")

	engine := chat.NewEngine(dataStore, client)
	router := intent.NewRouter(client)
	harness := evaluation.NewHarness(dataStore, engine, client)
	corrector := drift.NewCorrector(dataStore, client)

	h := handlers.New(dataStore, engine, router, harness, corrector)

	return &Server{
		Handler:      api.NewRouter(cfg, h),
		Store:        dataStore,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}
