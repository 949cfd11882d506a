package resilience

import (
	"context"
	"errors"

	"github.com/ministryofjustice/rd-search-backend/internal/core/domain"
	"github.com/ministryofjustice/rd-search-backend/internal/core/ports"
)

// classifyDependencyError treats everything except caller cancellation
// and caller mistakes as retryable: retrieval dependencies are remote
// services whose failures are usually transient.
func classifyDependencyError(err error) ErrorClassification {
	if err == nil {
		return ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) {
		return ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if domain.IsKind(err, domain.ErrInvalidInput) {
		return ErrorClassification{Retryable: false, RecordFailure: false}
	}
	return ErrorClassification{Retryable: true, RecordFailure: true}
}

// GuardedStore wraps a document store with the executor's timeout,
// retry and breaker policy.
type GuardedStore struct {
	inner ports.DocumentStore
	exec  *Executor
}

func NewGuardedStore(inner ports.DocumentStore, exec *Executor) *GuardedStore {
	return &GuardedStore{inner: inner, exec: exec}
}

func (s *GuardedStore) SearchBM25(ctx context.Context, query string, filter domain.Filter, topK int) ([]domain.Document, error) {
	var docs []domain.Document
	err := s.exec.Execute(ctx, "store.search_bm25", func(ctx context.Context) error {
		var err error
		docs, err = s.inner.SearchBM25(ctx, query, filter, topK)
		return err
	}, classifyDependencyError)
	return docs, err
}

func (s *GuardedStore) SearchDense(ctx context.Context, vector []float32, filter domain.Filter, topK int) ([]domain.Document, error) {
	var docs []domain.Document
	err := s.exec.Execute(ctx, "store.search_dense", func(ctx context.Context) error {
		var err error
		docs, err = s.inner.SearchDense(ctx, vector, filter, topK)
		return err
	}, classifyDependencyError)
	return docs, err
}

func (s *GuardedStore) Index(ctx context.Context, docs []domain.Document, vectors [][]float32) error {
	return s.exec.Execute(ctx, "store.index", func(ctx context.Context) error {
		return s.inner.Index(ctx, docs, vectors)
	}, classifyDependencyError)
}

func (s *GuardedStore) Delete(ctx context.Context, ids []string) error {
	return s.exec.Execute(ctx, "store.delete", func(ctx context.Context) error {
		return s.inner.Delete(ctx, ids)
	}, classifyDependencyError)
}

func (s *GuardedStore) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// GuardedEmbedder wraps an embedder the same way.
type GuardedEmbedder struct {
	inner ports.Embedder
	exec  *Executor
}

func NewGuardedEmbedder(inner ports.Embedder, exec *Executor) *GuardedEmbedder {
	return &GuardedEmbedder{inner: inner, exec: exec}
}

func (e *GuardedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := e.exec.Execute(ctx, "embedder.embed", func(ctx context.Context) error {
		var err error
		vectors, err = e.inner.Embed(ctx, texts)
		return err
	}, classifyDependencyError)
	return vectors, err
}

func (e *GuardedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := e.exec.Execute(ctx, "embedder.embed_query", func(ctx context.Context) error {
		var err error
		vector, err = e.inner.EmbedQuery(ctx, text)
		return err
	}, classifyDependencyError)
	return vector, err
}

// GuardedReranker wraps a reranker.
type GuardedReranker struct {
	inner ports.Reranker
	exec  *Executor
}

func NewGuardedReranker(inner ports.Reranker, exec *Executor) *GuardedReranker {
	return &GuardedReranker{inner: inner, exec: exec}
}

func (r *GuardedReranker) Rerank(ctx context.Context, query string, docs []domain.Document) ([]domain.Document, error) {
	var out []domain.Document
	err := r.exec.Execute(ctx, "reranker.rerank", func(ctx context.Context) error {
		var err error
		out, err = r.inner.Rerank(ctx, query, docs)
		return err
	}, classifyDependencyError)
	return out, err
}

// GuardedGenerator wraps the answer generator. Generation is not
// retried beyond the executor policy: a slow model must fail the stage,
// and the caller falls back to sources-only.
type GuardedGenerator struct {
	inner ports.AnswerGenerator
	exec  *Executor
}

func NewGuardedGenerator(inner ports.AnswerGenerator, exec *Executor) *GuardedGenerator {
	return &GuardedGenerator{inner: inner, exec: exec}
}

func (g *GuardedGenerator) GenerateAnswer(ctx context.Context, question string, docs []domain.Document) (string, error) {
	var text string
	err := g.exec.Execute(ctx, "generator.answer", func(ctx context.Context) error {
		var err error
		text, err = g.inner.GenerateAnswer(ctx, question, docs)
		return err
	}, classifyDependencyError)
	return text, err
}
