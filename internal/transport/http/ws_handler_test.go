package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"theory-exam-service/internal/activity"
	"theory-exam-service/internal/app"
	"theory-exam-service/internal/domain"
	"theory-exam-service/internal/infra/memory"
	"theory-exam-service/internal/progress"
)

func newTestServer(t *testing.T, timers app.TimerSettings) *httptest.Server {
	t.Helper()
	loader := memory.NewStaticContentLoader(sampleExams(), nil)
	content := memory.NewContentRepository(loader, time.Minute)
	kv := memory.NewKVStore()
	service := app.NewExamService(
		content,
		memory.NewAttemptStore(),
		progress.NewHistory(kv),
		progress.NewAggregator(kv),
		activity.NewRecorder(kv),
		timers,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", NewSessionHandler(service).ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func dialAttempt(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws?examId=exam-1&userId=u1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketAttemptFlow(t *testing.T) {
	server := newTestServer(t, app.TimerSettings{Mode: app.TimerTotal, TotalSeconds: 600, PerQuestionSeconds: 30})
	conn := dialAttempt(t, server)

	msgType, payload := readNext(conn, t, "started")
	if msgType != "started" || payload == nil {
		t.Fatalf("expected started with payload, got %s", msgType)
	}

	// Answer question 0, check it, expect a correct verdict.
	writeMsg(conn, t, map[string]any{"type": "select", "payload": map[string]any{"question": 0, "option": 1}})
	readNext(conn, t, "state")
	writeMsg(conn, t, map[string]any{"type": "check", "payload": map[string]any{"question": 0}})
	_, checkPayload := readNext(conn, t, "checkResult")
	if correct, _ := checkPayload["correct"].(bool); !correct {
		t.Fatalf("expected correct self-check, got %v", checkPayload)
	}

	// Partial sheet: the first submit asks for confirmation.
	writeMsg(conn, t, map[string]any{"type": "submit"})
	_, confirm := readNext(conn, t, "confirmRequired")
	if answered, _ := confirm["answeredCount"].(float64); answered != 1 {
		t.Fatalf("expected answeredCount 1, got %v", confirm)
	}

	// The confirmed submit completes the attempt.
	writeMsg(conn, t, map[string]any{"type": "submit"})
	_, result := readNext(conn, t, "result")
	inner, _ := result["result"].(map[string]any)
	if inner == nil {
		t.Fatalf("expected result payload, got %v", result)
	}
	if score, _ := inner["score"].(float64); score != 50 {
		t.Fatalf("expected score 50 for 1 of 2 correct, got %v", inner["score"])
	}
}

func TestWebSocketSubmissionBlocked(t *testing.T) {
	server := newTestServer(t, app.TimerSettings{Mode: app.TimerTotal, TotalSeconds: 600, PerQuestionSeconds: 30})
	conn := dialAttempt(t, server)

	readNext(conn, t, "started")
	writeMsg(conn, t, map[string]any{"type": "submit"})
	_, payload := readNext(conn, t, "submissionBlocked")
	if payload["message"] == "" {
		t.Fatalf("expected a blocked message, got %v", payload)
	}
}

func TestWebSocketStripsAnswerKey(t *testing.T) {
	server := newTestServer(t, app.TimerSettings{Mode: app.TimerTotal, TotalSeconds: 600, PerQuestionSeconds: 30})
	conn := dialAttempt(t, server)

	_, payload := readNext(conn, t, "started")
	exam, _ := payload["exam"].(map[string]any)
	questions, _ := exam["questions"].([]any)
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %v", exam)
	}
	first, _ := questions[0].(map[string]any)
	if _, leaked := first["answerIndex"]; leaked {
		t.Fatalf("answer key leaked over the wire: %v", first)
	}
}

func TestDisconnectRacingExpiryDoesNotPanic(t *testing.T) {
	server := newTestServer(t, app.TimerSettings{Mode: app.TimerTotal, TotalSeconds: 1})
	conn := dialAttempt(t, server)

	readNext(conn, t, "started")
	// Drop the connection right away; the expiry fires about a second later
	// against a handler that is already tearing down.
	conn.Close()
	time.Sleep(2 * time.Second)
}

func writeMsg(conn *websocket.Conn, t *testing.T, msg map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %v: %v", msg["type"], err)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}

func sampleExams() map[string]domain.Exam {
	return map[string]domain.Exam{
		"exam-1": {
			ID:    "exam-1",
			Slug:  "road-signs",
			Title: "Road Signs",
			Questions: []domain.Question{
				{
					ID:          "q1",
					Text:        "What does a red octagonal sign mean?",
					Options:     []string{"Yield", "Stop", "No entry"},
					AnswerIndex: 1,
					Explanation: "An octagon is reserved for stop signs.",
				},
				{
					ID:          "q2",
					Text:        "A triangular sign with a red border indicates?",
					Options:     []string{"A warning", "A speed limit"},
					AnswerIndex: 0,
				},
			},
		},
	}
}
