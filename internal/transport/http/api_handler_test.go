package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"theory-exam-service/internal/activity"
	"theory-exam-service/internal/app"
	"theory-exam-service/internal/domain"
	"theory-exam-service/internal/infra/memory"
	"theory-exam-service/internal/progress"
)

func newAPIServer(t *testing.T) (*httptest.Server, *app.ExamService) {
	t.Helper()
	loader := memory.NewStaticContentLoader(sampleExams(), map[string]domain.Note{
		"note-1": {ID: "note-1", Title: "Right of way", Content: "Priority rules.", Topic: "priority", Category: "rules"},
	})
	content := memory.NewContentRepository(loader, time.Minute)
	kv := memory.NewKVStore()
	service := app.NewExamService(
		content,
		memory.NewAttemptStore(),
		progress.NewHistory(kv),
		progress.NewAggregator(kv),
		activity.NewRecorder(kv),
		app.TimerSettings{Mode: app.TimerTotal, TotalSeconds: 600},
	)

	mux := http.NewServeMux()
	NewAPIHandler(service).Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, service
}

func TestGetExamOmitsAnswerKey(t *testing.T) {
	server, _ := newAPIServer(t)

	resp, err := http.Get(server.URL + "/exams/exam-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	questions, _ := payload["questions"].([]any)
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %v", payload)
	}
	first, _ := questions[0].(map[string]any)
	if _, leaked := first["answerIndex"]; leaked {
		t.Fatalf("answer key leaked: %v", first)
	}
}

func TestGetExamNotFound(t *testing.T) {
	server, _ := newAPIServer(t)

	resp, err := http.Get(server.URL + "/exams/exam-unknown")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestNoteAndActivityEndpoints(t *testing.T) {
	server, _ := newAPIServer(t)

	resp, err := http.Get(server.URL + "/notes/note-1?userId=u1")
	if err != nil {
		t.Fatalf("get note: %v", err)
	}
	var note domain.Note
	if err := json.NewDecoder(resp.Body).Decode(&note); err != nil {
		t.Fatalf("decode note: %v", err)
	}
	resp.Body.Close()
	if note.Title != "Right of way" {
		t.Fatalf("unexpected note %+v", note)
	}

	// Reading the note left a note_read entry in the log.
	resp, err = http.Get(server.URL + "/activity?limit=10")
	if err != nil {
		t.Fatalf("get activity: %v", err)
	}
	var entries []domain.ActivityEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decode activity: %v", err)
	}
	resp.Body.Close()
	if len(entries) != 1 || entries[0].Type != domain.ActivityNoteRead {
		t.Fatalf("expected note_read entry, got %+v", entries)
	}
}

func TestProgressEndpointRequiresUser(t *testing.T) {
	server, _ := newAPIServer(t)

	resp, err := http.Get(server.URL + "/progress")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without userId, got %d", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/progress?userId=u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var record domain.Progress
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if record.UserID != "u1" || record.TotalAttempts != 0 {
		t.Fatalf("expected fresh record, got %+v", record)
	}
}
