package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/ministryofjustice/rd-search-backend/internal/core/domain"
)

// PipelineRunner is what the facade needs from a wired pipeline.
type PipelineRunner interface {
	Topology() Topology
	Run(ctx context.Context, req Request) (*Outcome, error)
}

// SearchService is the public search facade. It validates input, runs
// the wired pipeline for the requested topology, defensively unwraps the
// outcome and applies overall top-k truncation after fusion. Results are
// never nil; queries of one character or less yield an empty result
// rather than an error.
type SearchService struct {
	bm25     PipelineRunner
	semantic PipelineRunner
	hybrid   PipelineRunner
}

func NewSearchService(bm25, semantic, hybrid PipelineRunner) *SearchService {
	return &SearchService{bm25: bm25, semantic: semantic, hybrid: hybrid}
}

func (s *SearchService) BM25Search(ctx context.Context, query string, filter domain.Filter, topK int) ([]domain.Document, error) {
	if tooShort(query) {
		return []domain.Document{}, nil
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return s.execute(ctx, s.bm25, TopologyBM25, Request{
		Query:    query,
		Filter:   filter,
		BM25TopK: topK,
	}, 0)
}

func (s *SearchService) SemanticSearch(ctx context.Context, query string, filter domain.Filter, topK int, threshold float64) ([]domain.Document, error) {
	if tooShort(query) {
		return []domain.Document{}, nil
	}
	if err := validateThreshold(threshold); err != nil {
		return nil, err
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return s.execute(ctx, s.semantic, TopologySemantic, Request{
		Query:        query,
		Filter:       filter,
		SemanticTopK: topK,
		Threshold:    threshold,
	}, 0)
}

func (s *SearchService) HybridSearch(ctx context.Context, query string, filter domain.Filter, opts domain.HybridOpts) ([]domain.Document, error) {
	if tooShort(query) {
		return []domain.Document{}, nil
	}
	if err := validateThreshold(opts.Threshold); err != nil {
		return nil, err
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return s.execute(ctx, s.hybrid, TopologyHybrid, Request{
		Query:        query,
		Filter:       filter,
		BM25TopK:     opts.BM25TopK,
		SemanticTopK: opts.SemanticTopK,
		Threshold:    opts.Threshold,
	}, opts.TopK)
}

// execute runs the pipeline and unwraps its outcome. The pipeline's
// internal wiring is treated as a black box: a missing outcome, a
// topology mismatch or an absent document list degrades to an empty
// result instead of an error. Retrieval errors still propagate.
func (s *SearchService) execute(ctx context.Context, runner PipelineRunner, want Topology, req Request, topK int) ([]domain.Document, error) {
	if runner == nil {
		return []domain.Document{}, nil
	}

	outcome, err := runner.Run(ctx, req)
	if err != nil {
		return nil, err
	}

	switch {
	case outcome == nil:
		return []domain.Document{}, nil
	case outcome.Topology != want:
		return []domain.Document{}, nil
	case outcome.Documents == nil:
		return []domain.Document{}, nil
	}

	return truncate(outcome.Documents, topK), nil
}

func tooShort(query string) bool {
	return len(strings.TrimSpace(query)) <= 1
}

func validateThreshold(threshold float64) error {
	if threshold < 0 || threshold > 1 {
		return domain.WrapError(
			domain.ErrInvalidInput,
			"validate threshold",
			fmt.Errorf("score threshold must be between 0 and 1 inclusive, got %v", threshold),
		)
	}
	return nil
}
