package usecase

import (
	"fmt"

	"github.com/ministryofjustice/rd-search-backend/internal/core/domain"
)

// thresholdFilter drops documents whose score is not strictly greater
// than scoreThreshold. Empty input short-circuits to empty output before
// the range check, matching the stage's pass-through contract. A
// threshold outside [0,1] is a caller error.
func thresholdFilter(docs []domain.Document, scoreThreshold float64) ([]domain.Document, error) {
	if len(docs) == 0 {
		return []domain.Document{}, nil
	}
	if scoreThreshold < 0 || scoreThreshold > 1 {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"threshold filter",
			fmt.Errorf("score threshold must be between 0 and 1 inclusive, got %v", scoreThreshold),
		)
	}

	out := make([]domain.Document, 0, len(docs))
	for _, doc := range docs {
		if doc.Score > scoreThreshold {
			out = append(out, doc)
		}
	}
	return out, nil
}
