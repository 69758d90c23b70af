package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/advogai/juris-rag/internal/config"
	"github.com/advogai/juris-rag/internal/core/ports"
	"github.com/advogai/juris-rag/internal/core/usecase"
	"github.com/advogai/juris-rag/internal/infrastructure/cache"
	"github.com/advogai/juris-rag/internal/infrastructure/graph/neo4j"
	"github.com/advogai/juris-rag/internal/infrastructure/lexical/opensearch"
	"github.com/advogai/juris-rag/internal/infrastructure/llm/ollama"
	"github.com/advogai/juris-rag/internal/infrastructure/queue/nats"
	"github.com/advogai/juris-rag/internal/infrastructure/repository/postgres"
	"github.com/advogai/juris-rag/internal/infrastructure/resilience"
	"github.com/advogai/juris-rag/internal/infrastructure/vector/qdrant"
	"github.com/advogai/juris-rag/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Retrieval   ports.RetrievalService
	Invalidator ports.CacheInvalidator
	Metrics     *metrics.ServerMetrics

	bus     *nats.Bus
	cache   *cache.ResultCache
	logger  *slog.Logger
	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	chunkStore := postgres.NewChunkStore(db)
	if err := chunkStore.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	bus, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSInvalidateSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init invalidation bus: %w", err)
	}

	graphStore, err := neo4j.New(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
	if err != nil {
		return nil, fmt.Errorf("init graph store: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel).WithExecutor(executor)
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewExpander(ollamaClient)

	lexical := opensearch.New(cfg.OpenSearchURL, cfg.OpenSearchIndexPrefix)
	vector := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, embedder)

	profiles, err := cfg.LoadProfiles()
	if err != nil {
		return nil, fmt.Errorf("load retrieval profiles: %w", err)
	}

	resultCache := cache.NewResultCache(
		time.Duration(cfg.CacheTTLSeconds)*time.Second,
		cfg.CacheMaxSize,
	)
	serverMetrics := metrics.NewServerMetrics("api")

	expander := usecase.NewQueryExpander(generator, cfg.RAGMultiQueryMax, logger)
	classifier := usecase.NewKeywordIntentClassifier()

	retrieveUC := usecase.NewRetrieveUseCase(
		lexical,
		vector,
		graphStore,
		classifier,
		expander,
		chunkStore,
		resultCache,
		profiles,
		usecase.RetrieveConfig{
			TopK:               cfg.RAGTopK,
			CandidateK:         cfg.RAGCandidates,
			RRFK:               cfg.RAGRRFK,
			LexicalWeight:      cfg.RAGRRFLexicalWeight,
			VectorWeight:       cfg.RAGRRFVectorWeight,
			BackendTimeout:     time.Duration(cfg.BackendTimeoutMS) * time.Millisecond,
			MultiQueryMax:      cfg.RAGMultiQueryMax,
			ParentChildWindow:  cfg.RAGParentWindow,
			ParentChildMax:     cfg.RAGParentMaxExtra,
			GraphHops:          cfg.RAGGraphHops,
			VectorCollection:   cfg.QdrantCollection,
			LexicalIndexPrefix: cfg.OpenSearchIndexPrefix,
		},
		serverMetrics,
		logger,
	)

	return &App{
		Config:      cfg,
		Retrieval:   retrieveUC,
		Invalidator: nats.NewInvalidator(bus),
		Metrics:     serverMetrics,

		bus:    bus,
		cache:  resultCache,
		logger: logger,

		closeFn: func() {
			bus.Close()
			_ = db.Close()

			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = graphStore.Close(closeCtx)
		},
	}, nil
}

// RunInvalidationListener blocks until ctx is done, clearing the local
// result cache on every tenant or case invalidation event.
func (a *App) RunInvalidationListener(ctx context.Context) error {
	return a.bus.SubscribeInvalidation(ctx, func(_ context.Context, tenantID, caseID string) {
		if caseID != "" {
			a.cache.InvalidateCase(tenantID, caseID)
		} else {
			a.cache.InvalidateTenant(tenantID)
		}
		a.logger.Info("cache_invalidated", "tenant_id", tenantID, "case_id", caseID)
	})
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
