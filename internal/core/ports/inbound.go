package ports

import (
	"context"

	"github.com/ministryofjustice/rd-search-backend/internal/core/domain"
)

// Searcher is the inbound contract for the three search topologies.
type Searcher interface {
	BM25Search(ctx context.Context, query string, filter domain.Filter, topK int) ([]domain.Document, error)
	SemanticSearch(ctx context.Context, query string, filter domain.Filter, topK int, threshold float64) ([]domain.Document, error)
	HybridSearch(ctx context.Context, query string, filter domain.Filter, opts domain.HybridOpts) ([]domain.Document, error)
}

// QuestionAnswerer is the inbound contract for grounded question answering.
type QuestionAnswerer interface {
	Ask(ctx context.Context, question string) (*domain.Answer, error)
}

// IndexRebuilder is the inbound contract for corpus (re)indexing.
type IndexRebuilder interface {
	Rebuild(ctx context.Context, prefix string) error
}
