package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ministryofjustice/rd-search-backend/internal/core/domain"
	"github.com/ministryofjustice/rd-search-backend/internal/core/ports"
)

// Topology names the stage graph a pipeline was wired with. It is fixed
// at construction; running a differently-shaped search needs a new
// pipeline instance.
type Topology int

const (
	TopologyBM25 Topology = iota + 1
	TopologySemantic
	TopologyHybrid
)

func (t Topology) String() string {
	switch t {
	case TopologyBM25:
		return "bm25"
	case TopologySemantic:
		return "semantic"
	case TopologyHybrid:
		return "hybrid"
	default:
		return "unwired"
	}
}

// Request carries the per-call retrieval parameters. BM25TopK <= 0 asks
// the sparse retriever for all matches.
type Request struct {
	Query        string
	Filter       domain.Filter
	BM25TopK     int
	SemanticTopK int
	Threshold    float64
}

// Outcome is the typed result of a pipeline run: the terminal stage's
// document list, tagged with the topology that produced it.
type Outcome struct {
	Topology  Topology
	Documents []domain.Document
}

// Pipeline executes one of the three retrieval topologies against the
// document store. The wired stage graph holds no per-query state, so a
// single pipeline is safe for concurrent runs.
type Pipeline struct {
	topology Topology
	store    ports.DocumentStore
	embedder ports.Embedder
	reranker ports.Reranker
	rrfK     int
}

// NewBM25Pipeline wires the sparse retriever only.
func NewBM25Pipeline(store ports.DocumentStore) (*Pipeline, error) {
	if store == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "wire bm25 pipeline", errors.New("document store is required"))
	}
	return &Pipeline{topology: TopologyBM25, store: store}, nil
}

// NewSemanticPipeline wires dense retrieval, rerank and threshold filter.
func NewSemanticPipeline(store ports.DocumentStore, embedder ports.Embedder, reranker ports.Reranker) (*Pipeline, error) {
	if store == nil || embedder == nil || reranker == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "wire semantic pipeline", errors.New("store, embedder and reranker are required"))
	}
	return &Pipeline{topology: TopologySemantic, store: store, embedder: embedder, reranker: reranker}, nil
}

// NewHybridPipeline wires the sparse branch and the dense branch
// (retrieve, rerank, threshold) feeding reciprocal rank fusion. The
// reranker runs only on the dense branch: the sparse branch may return
// all matches, and cross-encoder scoring an uncapped list is too slow.
func NewHybridPipeline(store ports.DocumentStore, embedder ports.Embedder, reranker ports.Reranker, rrfK int) (*Pipeline, error) {
	if store == nil || embedder == nil || reranker == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "wire hybrid pipeline", errors.New("store, embedder and reranker are required"))
	}
	if rrfK <= 0 {
		rrfK = defaultRRFK
	}
	return &Pipeline{topology: TopologyHybrid, store: store, embedder: embedder, reranker: reranker, rrfK: rrfK}, nil
}

func (p *Pipeline) Topology() Topology {
	return p.topology
}

// Run executes the wired stage graph for one query.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Outcome, error) {
	switch p.topology {
	case TopologyBM25:
		return p.runBM25(ctx, req)
	case TopologySemantic:
		return p.runSemantic(ctx, req)
	case TopologyHybrid:
		return p.runHybrid(ctx, req)
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "run pipeline", errors.New("pipeline is not wired"))
	}
}

func (p *Pipeline) runBM25(ctx context.Context, req Request) (*Outcome, error) {
	docs, err := p.sparseBranch(ctx, req)
	if err != nil {
		return nil, err
	}
	return &Outcome{Topology: TopologyBM25, Documents: docs}, nil
}

func (p *Pipeline) runSemantic(ctx context.Context, req Request) (*Outcome, error) {
	docs, err := p.denseBranch(ctx, req)
	if err != nil {
		return nil, err
	}
	return &Outcome{Topology: TopologySemantic, Documents: docs}, nil
}

func (p *Pipeline) runHybrid(ctx context.Context, req Request) (*Outcome, error) {
	var (
		wg        sync.WaitGroup
		sparse    []domain.Document
		dense     []domain.Document
		sparseErr error
		denseErr  error
	)

	// The two branches share no state until fusion, so they run in
	// parallel and join here.
	wg.Add(2)
	go func() {
		defer wg.Done()
		sparse, sparseErr = p.sparseBranch(ctx, req)
	}()
	go func() {
		defer wg.Done()
		dense, denseErr = p.denseBranch(ctx, req)
	}()
	wg.Wait()

	if sparseErr != nil {
		return nil, sparseErr
	}
	if denseErr != nil {
		return nil, denseErr
	}

	return &Outcome{
		Topology:  TopologyHybrid,
		Documents: fuseReciprocalRank(sparse, dense, p.rrfK),
	}, nil
}

func (p *Pipeline) sparseBranch(ctx context.Context, req Request) ([]domain.Document, error) {
	docs, err := p.store.SearchBM25(ctx, req.Query, req.Filter, req.BM25TopK)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrieval, "bm25 retrieval", err)
	}
	return docs, nil
}

func (p *Pipeline) denseBranch(ctx context.Context, req Request) ([]domain.Document, error) {
	queryVector, err := p.embedder.EmbedQuery(ctx, req.Query)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrieval, "embed query", err)
	}

	docs, err := p.store.SearchDense(ctx, queryVector, req.Filter, req.SemanticTopK)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrieval, "dense retrieval", err)
	}

	reranked, err := p.reranker.Rerank(ctx, req.Query, docs)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrieval, "rerank", err)
	}

	filtered, err := thresholdFilter(reranked, req.Threshold)
	if err != nil {
		return nil, fmt.Errorf("dense branch: %w", err)
	}
	return filtered, nil
}
