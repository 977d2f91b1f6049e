// Package app provides application initialization and dependency wiring.
//
// App is the container every entry point (CLI commands, the MCP server)
// builds from: configuration, Genkit, the database pool, the knowledge
// store, the retrieval bridge, the indexer, the LLM client, and the
// analysis crew. Setup wires them manually, in dependency order, with a
// cleanup path that unwinds whatever was already initialized when a later
// step fails.
package app

import (
	"context"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kbcrew/kbcrew/internal/bridge"
	"github.com/kbcrew/kbcrew/internal/config"
	"github.com/kbcrew/kbcrew/internal/crew"
	"github.com/kbcrew/kbcrew/internal/indexer"
	"github.com/kbcrew/kbcrew/internal/knowledge"
	"github.com/kbcrew/kbcrew/internal/llm"
	"github.com/kbcrew/kbcrew/internal/tools"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	Knowledge *knowledge.Store
	Bridge    *bridge.Bridge
	Retriever ai.Retriever
	Indexer   *indexer.Indexer
	LLM       *llm.Client
	Crew      *crew.Crew

	KnowledgeTools *tools.Knowledge
	Tools          []ai.Tool

	otelCleanup func()
	dbCleanup   func()
}

// Close releases all resources in reverse initialization order. Safe to
// call on a partially initialized App.
func (a *App) Close() error {
	a.logger().Info("shutting down")

	if a.dbCleanup != nil {
		a.dbCleanup()
		a.logger().Debug("database pool closed")
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}

func (a *App) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

// SearchContext runs one retrieval through the bridge, the same path crew
// tasks and MCP clients use.
func (a *App) SearchContext(ctx context.Context, query string, opts ...bridge.SearchOption) (bridge.Result, error) {
	return a.Bridge.Search(ctx, query, opts...)
}

// Analyze runs the full analysis workflow for a topic and returns the
// final markdown report.
func (a *App) Analyze(ctx context.Context, topic string) (string, error) {
	return a.Crew.Analyze(ctx, topic)
}
