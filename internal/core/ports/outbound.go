package ports

import (
	"context"

	"github.com/ministryofjustice/rd-search-backend/internal/core/domain"
)

// DocumentStore is the indexed corpus with both a sparse full-text index
// and a dense vector index. topK <= 0 on the sparse search means all
// matches (the hybrid pipeline must not pre-truncate the sparse branch).
type DocumentStore interface {
	SearchBM25(ctx context.Context, query string, filter domain.Filter, topK int) ([]domain.Document, error)
	SearchDense(ctx context.Context, queryVector []float32, filter domain.Filter, topK int) ([]domain.Document, error)
	Index(ctx context.Context, docs []domain.Document, vectors [][]float32) error
	Delete(ctx context.Context, ids []string) error
	Ping(ctx context.Context) error
}

// Embedder builds dense vectors for corpus chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Reranker rescores (query, candidate) pairs with a cross-encoder model,
// overwriting each score with a value in [0,1] and re-sorting descending.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []domain.Document) ([]domain.Document, error)
}

// AnswerGenerator produces the grounded natural-language answer.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, docs []domain.Document) (string, error)
}

// ObjectStorage holds the raw policy corpus files.
type ObjectStorage interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}

// MessageQueue carries index-rebuild requests from the API to the worker.
type MessageQueue interface {
	PublishRebuildRequested(ctx context.Context, prefix string) error
	SubscribeRebuildRequested(ctx context.Context, handler func(context.Context, string) error) error
	Close()
}

// Chunker splits passage text into indexable chunks.
type Chunker interface {
	Split(text string) []string
}

// CorpusRegistry records which corpus files have been indexed and how.
type CorpusRegistry interface {
	EnsureSchema(ctx context.Context) error
	Upsert(ctx context.Context, rec *domain.CorpusRecord) error
	List(ctx context.Context) ([]domain.CorpusRecord, error)
}
