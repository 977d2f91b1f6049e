package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/kbcrew/kbcrew/db"
	"github.com/kbcrew/kbcrew/internal/bridge"
	"github.com/kbcrew/kbcrew/internal/config"
	"github.com/kbcrew/kbcrew/internal/crew"
	"github.com/kbcrew/kbcrew/internal/indexer"
	"github.com/kbcrew/kbcrew/internal/knowledge"
	"github.com/kbcrew/kbcrew/internal/llm"
	"github.com/kbcrew/kbcrew/internal/observability"
	"github.com/kbcrew/kbcrew/internal/tools"
)

// RetrieverName is the Genkit retriever registered for the bridge.
const RetrieverName = "knowledge_base"

// Setup creates and initializes the application. On failure everything
// already initialized is released before the error returns.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	// Tracing must be ready before Genkit initializes its TracerProvider.
	a.otelCleanup = provideOtelCleanup(ctx, cfg, logger)

	pool, dbCleanup, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.dbCleanup = dbCleanup
	a.DBPool = pool

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	a.Knowledge = knowledge.New(knowledge.NewQueries(pool), embedder, logger)

	a.Bridge = bridge.New(
		bridge.StoreSearcher{Store: a.Knowledge, Timeout: cfg.Bridge.Timeout()},
		bridgeConfig(cfg.Bridge),
		logger,
	)
	a.Retriever = bridge.DefineRetriever(g, RetrieverName, a.Bridge)

	idx, err := provideIndexer(a.Knowledge, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Indexer = idx

	a.LLM = llm.New(g, llm.Config{
		Model:       cfg.FullModelName(),
		Temperature: float64(cfg.Temperature),
		MaxTokens:   cfg.MaxTokens,
	}, logger)

	a.Crew = crew.New(a.LLM, crew.RetrieverFrom(a.Bridge), logger)

	if err := provideTools(a); err != nil {
		return nil, err
	}

	return a, nil
}

// provideOtelCleanup sets up trace export and returns a teardown that
// flushes pending spans with its own deadline, since the parent context
// is usually canceled by the time teardown runs.
func provideOtelCleanup(ctx context.Context, cfg *config.Config, logger *slog.Logger) func() {
	shutdown, err := observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.Otel.Endpoint,
		Environment: cfg.Otel.Environment,
		ServiceName: cfg.Otel.ServiceName,
	}, logger)
	if err != nil {
		logger.Warn("trace export setup failed, tracing disabled", "error", err)
		return func() {}
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool runs migrations and creates the connection pool. Every
// connection registers the pgvector types so embedding columns scan
// directly into pgvector.Vector.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, func(), error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, pool.Close, nil
}

// provideGenkit initializes Genkit with the configured AI provider plugin.
// Supports gemini (default), ollama, and openai.
func provideGenkit(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*genkit.Genkit, error) {
	var g *genkit.Genkit

	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama has no model auto-discovery.
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		logger.Info("initialized Genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)

	case config.ProviderOpenAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized Genkit with openai provider", "model", cfg.ModelName)

	default: // gemini and googleai
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized Genkit with gemini provider", "model", cfg.ModelName)
	}

	return g, nil
}

// provideEmbedder looks up the embedder registered by the provider plugin.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderOllama:
		// Ollama embedders are keyed by server address.
		return ollama.Embedder(g, cfg.OllamaHost)
	case config.ProviderOpenAI:
		return genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
	default:
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	}
}

// provideIndexer builds the knowledge base indexer with the writer lock
// under the config directory.
func provideIndexer(store *knowledge.Store, cfg *config.Config, logger *slog.Logger) (*indexer.Indexer, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	return indexer.New(store, indexer.Config{
		Extensions:   cfg.Indexer.Extensions,
		ChunkSize:    cfg.Indexer.ChunkSize,
		ChunkOverlap: cfg.Indexer.ChunkOverlap,
		MaxFileSize:  cfg.Indexer.MaxFileSize,
		LockPath:     filepath.Join(home, ".kbcrew", "index.lock"),
	}, logger), nil
}

// provideTools registers the knowledge tools with Genkit.
func provideTools(a *App) error {
	kt, err := tools.NewKnowledge(a.Bridge, a.Logger)
	if err != nil {
		return fmt.Errorf("creating knowledge tools: %w", err)
	}
	a.KnowledgeTools = kt

	registered, err := tools.RegisterKnowledge(a.Genkit, kt)
	if err != nil {
		return fmt.Errorf("registering knowledge tools: %w", err)
	}
	a.Tools = registered

	a.Logger.Info("tools registered", "count", len(registered))
	return nil
}

// NewScraper builds the web page fetcher from scraper config.
func NewScraper(cfg config.WebScraperConfig) *indexer.CollyFetcher {
	return indexer.NewCollyFetcher(indexer.ScraperConfig{
		Parallelism: cfg.Parallelism,
		Delay:       cfg.Delay(),
		Timeout:     cfg.Timeout(),
		MaxBodySize: cfg.MaxBodySize,
	})
}

// bridgeConfig maps the loaded configuration onto the bridge's own config.
func bridgeConfig(cfg config.BridgeConfig) bridge.Config {
	out := bridge.DefaultConfig()
	if cfg.TimeoutMs > 0 {
		out.Timeout = cfg.Timeout()
	}
	if cfg.DefaultTopK > 0 {
		out.DefaultTopK = int32(cfg.DefaultTopK) // #nosec G115 -- validated range
	}
	if cfg.MaxTopK > 0 {
		out.MaxTopK = int32(cfg.MaxTopK) // #nosec G115 -- validated range
	}
	if cfg.RateLimit > 0 {
		out.RateLimit = cfg.RateLimit
	}
	if cfg.RateBurst > 0 {
		out.RateBurst = cfg.RateBurst
	}
	return out
}
