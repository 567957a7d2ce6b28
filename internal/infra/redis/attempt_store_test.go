package redis

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"theory-exam-service/internal/app"
	"theory-exam-service/internal/domain"
)

func TestAttemptStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewAttemptStore(client, time.Minute)

	session := app.NewSession("attempt-1", "u1", domain.Exam{ID: "exam-1"})
	store.Put("attempt-1", session)
	if !mr.Exists("exam:attempt:attempt-1") {
		t.Fatalf("expected redis liveness key to be set")
	}
	if got, ok := store.Get("attempt-1"); !ok || got != session {
		t.Fatalf("expected local session back")
	}

	store.Delete("attempt-1")
	if mr.Exists("exam:attempt:attempt-1") {
		t.Fatalf("expected redis key to be removed")
	}
}
