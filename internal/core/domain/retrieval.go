package domain

import "time"

// HybridOpts carries the per-branch knobs for a hybrid search. A zero
// BM25TopK means the sparse branch returns all matches; TopK == 0 leaves
// the fused list untruncated.
type HybridOpts struct {
	BM25TopK     int
	SemanticTopK int
	TopK         int
	Threshold    float64
}

// CorpusRecord tracks one indexed corpus file.
type CorpusRecord struct {
	ID         string    `json:"id"`
	SourceKey  string    `json:"source_key"`
	Title      string    `json:"title"`
	ChunkCount int       `json:"chunk_count"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	IndexedAt  time.Time `json:"indexed_at"`
}

const (
	CorpusStatusIndexed = "indexed"
	CorpusStatusFailed  = "failed"
)
