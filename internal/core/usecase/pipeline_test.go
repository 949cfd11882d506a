package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/ministryofjustice/rd-search-backend/internal/core/domain"
)

type fakeStore struct {
	bm25Docs  []domain.Document
	bm25Err   error
	denseDocs []domain.Document
	denseErr  error

	gotQuery    string
	gotVector   []float32
	gotBM25TopK int
}

func (f *fakeStore) SearchBM25(_ context.Context, query string, _ domain.Filter, topK int) ([]domain.Document, error) {
	f.gotQuery = query
	f.gotBM25TopK = topK
	return f.bm25Docs, f.bm25Err
}

func (f *fakeStore) SearchDense(_ context.Context, vector []float32, _ domain.Filter, _ int) ([]domain.Document, error) {
	f.gotVector = vector
	return f.denseDocs, f.denseErr
}

func (f *fakeStore) Index(context.Context, []domain.Document, [][]float32) error { return nil }
func (f *fakeStore) Delete(context.Context, []string) error                      { return nil }
func (f *fakeStore) Ping(context.Context) error                                  { return nil }

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = f.vector
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return f.vector, f.err
}

// fakeReranker overwrites scores from its score list, preserving order.
type fakeReranker struct {
	scores []float64
	err    error
}

func (f *fakeReranker) Rerank(_ context.Context, _ string, docs []domain.Document) ([]domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.Document, len(docs))
	copy(out, docs)
	for i := range out {
		if i < len(f.scores) {
			out[i].Score = f.scores[i]
		}
	}
	return out, nil
}

func TestPipelineConstructorsRejectNilDependencies(t *testing.T) {
	if _, err := NewBM25Pipeline(nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("NewBM25Pipeline(nil): expected ErrInvalidInput, got %v", err)
	}
	if _, err := NewSemanticPipeline(&fakeStore{}, nil, &fakeReranker{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("NewSemanticPipeline without embedder: expected ErrInvalidInput, got %v", err)
	}
	if _, err := NewHybridPipeline(&fakeStore{}, &fakeEmbedder{}, nil, 60); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("NewHybridPipeline without reranker: expected ErrInvalidInput, got %v", err)
	}
}

func TestBM25PipelinePassesThroughStoreOrder(t *testing.T) {
	store := &fakeStore{bm25Docs: []domain.Document{
		{ID: "a", Score: 9.1},
		{ID: "b", Score: 4.2},
	}}
	p, err := NewBM25Pipeline(store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	outcome, err := p.Run(context.Background(), Request{Query: "annual leave", BM25TopK: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Topology != TopologyBM25 {
		t.Fatalf("outcome topology = %v, want bm25", outcome.Topology)
	}
	if len(outcome.Documents) != 2 || outcome.Documents[0].ID != "a" {
		t.Fatalf("unexpected documents: %+v", outcome.Documents)
	}
	if store.gotQuery != "annual leave" || store.gotBM25TopK != 5 {
		t.Fatalf("store called with query=%q topK=%d", store.gotQuery, store.gotBM25TopK)
	}
}

func TestSemanticPipelineRunsEmbedRetrieveRerankThreshold(t *testing.T) {
	store := &fakeStore{denseDocs: []domain.Document{
		{ID: "a", Score: 0.2},
		{ID: "b", Score: 0.1},
	}}
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2}}
	reranker := &fakeReranker{scores: []float64{0.9, 0.3}}

	p, err := NewSemanticPipeline(store, embedder, reranker)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	outcome, err := p.Run(context.Background(), Request{Query: "sick pay", SemanticTopK: 10, Threshold: 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outcome.Documents) != 1 || outcome.Documents[0].ID != "a" {
		t.Fatalf("expected only document a above threshold, got %+v", outcome.Documents)
	}
	if outcome.Documents[0].Score != 0.9 {
		t.Fatalf("expected rerank score to replace retrieval score, got %v", outcome.Documents[0].Score)
	}
	if store.gotVector == nil {
		t.Fatal("dense retrieval was not called with the query vector")
	}
}

func TestHybridPipelineFusesBothBranches(t *testing.T) {
	store := &fakeStore{
		bm25Docs: []domain.Document{
			{ID: "shared", Score: 11.0},
			{ID: "sparse-only", Score: 3.0},
		},
		denseDocs: []domain.Document{
			{ID: "shared", Score: 0.4},
			{ID: "dense-only", Score: 0.3},
		},
	}
	embedder := &fakeEmbedder{vector: []float32{0.5}}
	reranker := &fakeReranker{scores: []float64{0.95, 0.85}}

	p, err := NewHybridPipeline(store, embedder, reranker, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	outcome, err := p.Run(context.Background(), Request{Query: "pension", Threshold: 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Topology != TopologyHybrid {
		t.Fatalf("outcome topology = %v, want hybrid", outcome.Topology)
	}
	// shared appears in both branches at rank 1, so it must fuse first.
	if len(outcome.Documents) != 3 || outcome.Documents[0].ID != "shared" {
		t.Fatalf("unexpected fused documents: %+v", outcome.Documents)
	}
}

func TestHybridPipelineThresholdAppliesToDenseBranchOnly(t *testing.T) {
	store := &fakeStore{
		bm25Docs:  []domain.Document{{ID: "sparse", Score: 2.0}},
		denseDocs: []domain.Document{{ID: "dense", Score: 0.9}},
	}
	// Rerank drags the dense hit under the threshold.
	reranker := &fakeReranker{scores: []float64{0.1}}

	p, err := NewHybridPipeline(store, &fakeEmbedder{vector: []float32{1}}, reranker, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	outcome, err := p.Run(context.Background(), Request{Query: "overtime", Threshold: 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outcome.Documents) != 1 || outcome.Documents[0].ID != "sparse" {
		t.Fatalf("sparse hit must survive regardless of threshold, got %+v", outcome.Documents)
	}
}

func TestPipelineWrapsStageFailures(t *testing.T) {
	storeErr := errors.New("search backend down")

	t.Run("bm25 store failure", func(t *testing.T) {
		p, _ := NewBM25Pipeline(&fakeStore{bm25Err: storeErr})
		_, err := p.Run(context.Background(), Request{Query: "q"})
		if !errors.Is(err, domain.ErrRetrieval) || !errors.Is(err, storeErr) {
			t.Fatalf("expected wrapped ErrRetrieval, got %v", err)
		}
	})

	t.Run("embedder failure", func(t *testing.T) {
		p, _ := NewSemanticPipeline(&fakeStore{}, &fakeEmbedder{err: errors.New("embed down")}, &fakeReranker{})
		_, err := p.Run(context.Background(), Request{Query: "q"})
		if !errors.Is(err, domain.ErrRetrieval) {
			t.Fatalf("expected ErrRetrieval, got %v", err)
		}
	})

	t.Run("hybrid dense failure surfaces", func(t *testing.T) {
		p, _ := NewHybridPipeline(&fakeStore{denseErr: storeErr}, &fakeEmbedder{vector: []float32{1}}, &fakeReranker{}, 60)
		_, err := p.Run(context.Background(), Request{Query: "q"})
		if !errors.Is(err, domain.ErrRetrieval) {
			t.Fatalf("expected ErrRetrieval, got %v", err)
		}
	})
}

func TestUnwiredPipelineRefusesToRun(t *testing.T) {
	var p Pipeline
	_, err := p.Run(context.Background(), Request{Query: "q"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput from unwired pipeline, got %v", err)
	}
}
