package memory

import (
	"testing"

	"theory-exam-service/internal/app"
	"theory-exam-service/internal/domain"
)

func TestAttemptStoreLifecycle(t *testing.T) {
	store := NewAttemptStore()

	session := app.NewSession("attempt-1", "u1", domain.Exam{ID: "exam-1"})
	store.Put("attempt-1", session)
	if got, ok := store.Get("attempt-1"); !ok || got != session {
		t.Fatalf("expected stored session back")
	}

	store.Delete("attempt-1")
	if _, ok := store.Get("attempt-1"); ok {
		t.Fatalf("expected attempt removed")
	}
}
