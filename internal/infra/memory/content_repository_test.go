package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"theory-exam-service/internal/domain"
)

func TestContentRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		ContentLoader: NewStaticContentLoader(map[string]domain.Exam{
			"exam-1": sampleExam(),
		}, nil),
	}
	repo := NewContentRepository(loader, time.Minute)

	if _, err := repo.GetExam(context.Background(), "exam-1"); err != nil {
		t.Fatalf("get exam: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetExam(context.Background(), "exam-1"); err != nil {
		t.Fatalf("get exam 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestContentRepositoryUnknownExam(t *testing.T) {
	repo := NewContentRepository(NewStaticContentLoader(nil, nil), time.Minute)
	_, err := repo.GetExam(context.Background(), "exam-unknown")
	if !errors.Is(err, domain.ErrExamNotFound) {
		t.Fatalf("expected exam-not-found, got %v", err)
	}
}

type countingLoader struct {
	ContentLoader
	calls int
}

func (l *countingLoader) LoadExam(ctx context.Context, examID string) (domain.Exam, error) {
	l.calls++
	return l.ContentLoader.LoadExam(ctx, examID)
}

func sampleExam() domain.Exam {
	return domain.Exam{
		ID:    "exam-1",
		Slug:  "road-signs",
		Title: "Road Signs",
		Questions: []domain.Question{
			{
				ID:          "q1",
				Text:        "What does a red octagonal sign mean?",
				Options:     []string{"Yield", "Stop"},
				AnswerIndex: 1,
			},
		},
	}
}
