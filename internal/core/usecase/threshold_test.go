package usecase

import (
	"errors"
	"testing"

	"github.com/ministryofjustice/rd-search-backend/internal/core/domain"
)

func TestThresholdFilterKeepsStrictlyGreater(t *testing.T) {
	docs := []domain.Document{
		{ID: "a", Score: 0.8},
		{ID: "b", Score: 0.4},
	}

	got, err := thresholdFilter(docs, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("expected only document a to survive threshold 0.5, got %+v", got)
	}

	got, err = thresholdFilter(docs, 0.9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result for threshold 0.9, got %+v", got)
	}
}

func TestThresholdFilterBoundaryIsExclusive(t *testing.T) {
	docs := []domain.Document{{ID: "a", Score: 0.5}}

	got, err := thresholdFilter(docs, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("score equal to threshold must be dropped, got %+v", got)
	}
}

func TestThresholdFilterEmptyInputSkipsRangeCheck(t *testing.T) {
	// An empty list short-circuits before the threshold is validated.
	got, err := thresholdFilter(nil, 1.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}

func TestThresholdFilterRejectsOutOfRange(t *testing.T) {
	docs := []domain.Document{{ID: "a", Score: 0.8}}

	for _, threshold := range []float64{-0.1, 1.1} {
		_, err := thresholdFilter(docs, threshold)
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("threshold %v: expected ErrInvalidInput, got %v", threshold, err)
		}
	}
}

func TestThresholdFilterIdempotent(t *testing.T) {
	docs := []domain.Document{
		{ID: "a", Score: 0.9},
		{ID: "b", Score: 0.7},
		{ID: "c", Score: 0.2},
	}

	once, err := thresholdFilter(docs, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	twice, err := thresholdFilter(once, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(once) != len(twice) {
		t.Fatalf("second application changed the result: %d vs %d documents", len(once), len(twice))
	}
	for i := range once {
		if once[i].ID != twice[i].ID {
			t.Fatalf("second application reordered documents at %d: %s vs %s", i, once[i].ID, twice[i].ID)
		}
	}
}
