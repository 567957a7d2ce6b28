package progress

import (
	"context"
	"fmt"

	"theory-exam-service/internal/domain"
)

const resultsKey = "exam_results"

// maxResults caps the archive; the oldest entries fall off the end.
const maxResults = 100

// History is the capped, most-recent-first archive of completed results.
type History struct {
	store Store
}

func NewHistory(store Store) *History {
	return &History{store: store}
}

// Append prepends a result and trims the archive to the cap. Last writer
// wins on concurrent submissions; a single-profile device makes that race
// acceptable.
func (h *History) Append(ctx context.Context, result domain.ExamResult) error {
	var results []domain.ExamResult
	if _, err := h.store.Get(ctx, resultsKey, &results); err != nil {
		return fmt.Errorf("load results: %w", err)
	}
	results = append([]domain.ExamResult{result}, results...)
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	if err := h.store.Set(ctx, resultsKey, results); err != nil {
		return fmt.Errorf("persist results: %w", err)
	}
	return nil
}

// List returns the archived results, most recent first.
func (h *History) List(ctx context.Context) ([]domain.ExamResult, error) {
	var results []domain.ExamResult
	if _, err := h.store.Get(ctx, resultsKey, &results); err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	if results == nil {
		results = []domain.ExamResult{}
	}
	return results, nil
}
