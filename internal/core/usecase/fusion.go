package usecase

import (
	"sort"

	"github.com/ministryofjustice/rd-search-backend/internal/core/domain"
)

// defaultRRFK dampens the dominance of rank-1 hits; 60 is the standard
// choice across search engines.
const defaultRRFK = 60

type fusedCandidate struct {
	doc       domain.Document
	score     float64
	firstSeen int
}

// fuseReciprocalRank merges the sparse and dense result lists by
// reciprocal rank fusion: each document scores sum(1/(k+rank)) over the
// branches it appears in, with 1-indexed ranks. BM25 and rerank scores
// are on incomparable scales, so fusion is rank-based rather than
// score-based. Ties keep first-seen order.
func fuseReciprocalRank(sparse, dense []domain.Document, rrfK int) []domain.Document {
	if rrfK <= 0 {
		rrfK = defaultRRFK
	}

	acc := make(map[string]fusedCandidate, len(sparse)+len(dense))
	order := 0
	addBranch := func(docs []domain.Document) {
		for rank, doc := range docs {
			key := fusionKey(doc)
			candidate, seen := acc[key]
			if !seen {
				candidate.doc = doc
				candidate.firstSeen = order
				order++
			}
			candidate.score += 1.0 / float64(rrfK+rank+1)
			acc[key] = candidate
		}
	}

	addBranch(sparse)
	addBranch(dense)

	out := make([]fusedCandidate, 0, len(acc))
	for _, c := range acc {
		c.doc.Score = c.score
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].firstSeen < out[j].firstSeen
	})

	docs := make([]domain.Document, 0, len(out))
	for _, c := range out {
		docs = append(docs, c.doc)
	}
	return docs
}

func fusionKey(doc domain.Document) string {
	if doc.ID != "" {
		return doc.ID
	}
	return doc.Content
}

// truncate caps a ranked list at limit; limit <= 0 means no cap.
func truncate(docs []domain.Document, limit int) []domain.Document {
	if limit <= 0 || len(docs) <= limit {
		return docs
	}
	return docs[:limit]
}
