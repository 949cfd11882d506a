package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/ministryofjustice/rd-search-backend/internal/config"
	"github.com/ministryofjustice/rd-search-backend/internal/core/ports"
	"github.com/ministryofjustice/rd-search-backend/internal/core/usecase"
	"github.com/ministryofjustice/rd-search-backend/internal/infrastructure/chunking"
	"github.com/ministryofjustice/rd-search-backend/internal/infrastructure/llm/openai"
	"github.com/ministryofjustice/rd-search-backend/internal/infrastructure/queue/nats"
	"github.com/ministryofjustice/rd-search-backend/internal/infrastructure/repository/postgres"
	"github.com/ministryofjustice/rd-search-backend/internal/infrastructure/resilience"
	"github.com/ministryofjustice/rd-search-backend/internal/infrastructure/rerank/tei"
	"github.com/ministryofjustice/rd-search-backend/internal/infrastructure/search/opensearch"
	"github.com/ministryofjustice/rd-search-backend/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue    ports.MessageQueue
	Registry *postgres.CorpusRepository
	Store    ports.DocumentStore
	LLM      *openai.Client
	Reranker ports.Reranker

	Searcher  *usecase.SearchService
	Answerer  *usecase.AskUseCase
	Rebuilder *usecase.RebuildUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	registry := postgres.NewCorpusRepository(db)
	if err := registry.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	llm := openai.New(openai.Config{
		BaseURL:    cfg.LLMBaseURL,
		APIKey:     cfg.LLMAPIKey,
		EmbedModel: cfg.EmbedModel,
		GenModel:   cfg.GenModel,
		Dimensions: cfg.EmbedDimension,
	})
	// A model/index dimension mismatch breaks every dense query, so it
	// fails boot rather than the first request.
	if err := llm.ValidateDimension(ctx); err != nil {
		return nil, fmt.Errorf("validate embedding dimension: %w", err)
	}

	store := resilience.NewGuardedStore(
		opensearch.New(cfg.OpenSearchURL, cfg.OpenSearchIndex, cfg.OpenSearchUser, cfg.OpenSearchPassword),
		executorWithTimeout(10*time.Second),
	)
	embedder := resilience.NewGuardedEmbedder(llm, executorWithTimeout(30*time.Second))
	reranker := resilience.NewGuardedReranker(tei.New(cfg.RerankURL), executorWithTimeout(30*time.Second))
	generator := resilience.NewGuardedGenerator(llm, executorWithTimeout(60*time.Second))

	bm25Pipeline, err := usecase.NewBM25Pipeline(store)
	if err != nil {
		return nil, fmt.Errorf("wire bm25 pipeline: %w", err)
	}
	semanticPipeline, err := usecase.NewSemanticPipeline(store, embedder, reranker)
	if err != nil {
		return nil, fmt.Errorf("wire semantic pipeline: %w", err)
	}
	hybridPipeline, err := usecase.NewHybridPipeline(store, embedder, reranker, cfg.RRFK)
	if err != nil {
		return nil, fmt.Errorf("wire hybrid pipeline: %w", err)
	}

	searcher := usecase.NewSearchService(bm25Pipeline, semanticPipeline, hybridPipeline)
	answerer := usecase.NewAskUseCase(searcher, generator, usecase.AskOptions{
		TopK:         cfg.HybridTopK,
		BM25TopK:     cfg.BM25TopK,
		SemanticTopK: cfg.SemanticTopK,
		Threshold:    cfg.ScoreThreshold,
	})
	rebuilder := usecase.NewRebuildUseCase(
		storage,
		store,
		embedder,
		chunking.NewSplitter(cfg.ChunkWords, cfg.ChunkOverlapWords),
		registry,
		cfg.IndexBatchSize,
	)

	return &App{
		Config: cfg,

		Queue:    queue,
		Registry: registry,
		Store:    store,
		LLM:      llm,
		Reranker: reranker,

		Searcher:  searcher,
		Answerer:  answerer,
		Rebuilder: rebuilder,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func executorWithTimeout(timeout time.Duration) *resilience.Executor {
	cfg := resilience.DefaultConfig()
	cfg.AttemptTimeout = timeout
	return resilience.NewExecutor(cfg)
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
