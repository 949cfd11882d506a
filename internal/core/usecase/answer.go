package usecase

import (
	"context"
	"errors"

	"github.com/ministryofjustice/rd-search-backend/internal/core/domain"
	"github.com/ministryofjustice/rd-search-backend/internal/core/ports"
)

// invalidQueryAnswer is the fixed response served when sanitation rejects
// the input. It is an answer, not an error: bad queries must never reach
// the pipeline or surface as a 500.
const invalidQueryAnswer = "Invalid query. Please try again."

// excerptLength caps how much of a grounding document is echoed back as a
// source excerpt.
const excerptLength = 200

// HybridSearcher is the slice of the search facade the ask flow needs.
type HybridSearcher interface {
	HybridSearch(ctx context.Context, query string, filter domain.Filter, opts domain.HybridOpts) ([]domain.Document, error)
}

// AskOptions sets the retrieval knobs for question answering.
type AskOptions struct {
	TopK         int
	BM25TopK     int
	SemanticTopK int
	Threshold    float64
}

// AskUseCase answers a policy question: sanitise, retrieve via the hybrid
// pipeline, then generate a grounded answer over the top passages.
type AskUseCase struct {
	search    HybridSearcher
	generator ports.AnswerGenerator
	opts      AskOptions
}

func NewAskUseCase(search HybridSearcher, generator ports.AnswerGenerator, opts AskOptions) *AskUseCase {
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	if opts.SemanticTopK <= 0 {
		opts.SemanticTopK = opts.TopK
	}
	if opts.Threshold <= 0 {
		opts.Threshold = 0.5
	}
	return &AskUseCase{search: search, generator: generator, opts: opts}
}

// Ask returns the generated answer with its sources. A rejected query
// yields the fixed invalid-query answer; no matching documents yields
// ErrNoAnswer; a generation failure returns the sources that were
// retrieved together with ErrGeneration so the caller can still show
// them, never a fabricated answer.
func (uc *AskUseCase) Ask(ctx context.Context, question string) (*domain.Answer, error) {
	cleaned := CleanQuery(question)
	if DetectBadQuery(cleaned) {
		return &domain.Answer{Text: invalidQueryAnswer, Sources: []domain.Source{}}, nil
	}

	docs, err := uc.search.HybridSearch(ctx, cleaned, domain.Filter{}, domain.HybridOpts{
		TopK:         uc.opts.TopK,
		BM25TopK:     uc.opts.BM25TopK,
		SemanticTopK: uc.opts.SemanticTopK,
		Threshold:    uc.opts.Threshold,
	})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, domain.WrapError(domain.ErrNoAnswer, "ask", errors.New("no documents matched the query"))
	}

	sources := buildSources(docs)

	text, err := uc.generator.GenerateAnswer(ctx, cleaned, docs)
	if err != nil {
		return &domain.Answer{Sources: sources}, domain.WrapError(domain.ErrGeneration, "generate answer", err)
	}

	return &domain.Answer{Text: text, Sources: sources}, nil
}

func buildSources(docs []domain.Document) []domain.Source {
	sources := make([]domain.Source, 0, len(docs))
	for _, doc := range docs {
		sources = append(sources, domain.Source{
			Title:       doc.Title(),
			Score:       doc.Score,
			TextExcerpt: doc.Excerpt(excerptLength),
		})
	}
	return sources
}
