package usecase

import (
	"math"
	"testing"

	"github.com/ministryofjustice/rd-search-backend/internal/core/domain"
)

func TestFuseReciprocalRankSumsOverBranches(t *testing.T) {
	sparse := []domain.Document{
		{ID: "shared", Score: 12.3},
		{ID: "sparse-only", Score: 4.1},
	}
	dense := []domain.Document{
		{ID: "dense-only", Score: 0.91},
		{ID: "shared", Score: 0.85},
	}

	got := fuseReciprocalRank(sparse, dense, 60)
	if len(got) != 3 {
		t.Fatalf("expected 3 fused documents, got %d", len(got))
	}

	// shared: rank 1 sparse + rank 2 dense.
	if got[0].ID != "shared" {
		t.Fatalf("expected shared document first, got %s", got[0].ID)
	}
	wantShared := 1.0/61 + 1.0/62
	if math.Abs(got[0].Score-wantShared) > 1e-12 {
		t.Fatalf("shared score = %v, want %v", got[0].Score, wantShared)
	}

	// Both single-branch rank-1 hits score 1/61; the sparse one was seen
	// first, so the tie keeps it ahead.
	if got[1].ID != "dense-only" {
		t.Fatalf("expected dense-only second, got %s", got[1].ID)
	}
}

func TestFuseReciprocalRankTieKeepsFirstSeen(t *testing.T) {
	sparse := []domain.Document{{ID: "a"}, {ID: "b"}}
	dense := []domain.Document{{ID: "c"}, {ID: "d"}}

	got := fuseReciprocalRank(sparse, dense, 60)

	// a and c tie at 1/61, b and d at 1/62.
	wantOrder := []string{"a", "c", "b", "d"}
	for i, want := range wantOrder {
		if got[i].ID != want {
			t.Fatalf("position %d: got %s, want %s", i, got[i].ID, want)
		}
	}
}

func TestFuseReciprocalRankEmptyBranches(t *testing.T) {
	if got := fuseReciprocalRank(nil, nil, 60); len(got) != 0 {
		t.Fatalf("expected empty fusion of empty branches, got %+v", got)
	}

	sparse := []domain.Document{{ID: "a"}, {ID: "b"}}
	got := fuseReciprocalRank(sparse, nil, 60)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("single-branch fusion must preserve branch order, got %+v", got)
	}
}

func TestFuseReciprocalRankFallsBackToContentKey(t *testing.T) {
	sparse := []domain.Document{{Content: "same text"}}
	dense := []domain.Document{{Content: "same text"}}

	got := fuseReciprocalRank(sparse, dense, 60)
	if len(got) != 1 {
		t.Fatalf("documents without IDs must merge on content, got %d results", len(got))
	}
}

func TestTruncate(t *testing.T) {
	docs := []domain.Document{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	if got := truncate(docs, 2); len(got) != 2 || got[0].ID != "a" {
		t.Fatalf("truncate(3 docs, 2) = %+v", got)
	}
	if got := truncate(docs, 0); len(got) != 3 {
		t.Fatalf("limit 0 must not cap, got %d", len(got))
	}
	if got := truncate(docs, 5); len(got) != 3 {
		t.Fatalf("limit beyond length must be a no-op, got %d", len(got))
	}
}
