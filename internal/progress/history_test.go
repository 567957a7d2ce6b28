package progress_test

import (
	"context"
	"fmt"
	"testing"

	"theory-exam-service/internal/domain"
	"theory-exam-service/internal/infra/memory"
	"theory-exam-service/internal/progress"
)

func TestHistoryMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	history := progress.NewHistory(memory.NewKVStore())

	for i := 0; i < 3; i++ {
		if err := history.Append(ctx, domain.ExamResult{ID: fmt.Sprintf("r%d", i)}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	results, err := history.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(results) != 3 || results[0].ID != "r2" || results[2].ID != "r0" {
		t.Fatalf("expected most-recent-first order, got %+v", results)
	}
}

func TestHistoryCapsAtHundred(t *testing.T) {
	ctx := context.Background()
	history := progress.NewHistory(memory.NewKVStore())

	for i := 0; i < 105; i++ {
		if err := history.Append(ctx, domain.ExamResult{ID: fmt.Sprintf("r%d", i)}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	results, err := history.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(results) != 100 {
		t.Fatalf("expected cap of 100, got %d", len(results))
	}
	if results[0].ID != "r104" || results[99].ID != "r5" {
		t.Fatalf("oldest entries must fall off: first=%s last=%s", results[0].ID, results[99].ID)
	}
}
