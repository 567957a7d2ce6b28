package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"theory-exam-service/internal/app"
	"theory-exam-service/internal/domain"
)

// SessionHandler drives one exam attempt per websocket connection: the
// message stream is the attempt's event queue.
type SessionHandler struct {
	service  *app.ExamService
	upgrader websocket.Upgrader
}

func NewSessionHandler(service *app.ExamService) *SessionHandler {
	return &SessionHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type questionPayload struct {
	Question int `json:"question"`
	Option   int `json:"option"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type warningPayload struct {
	SecondsRemaining int `json:"secondsRemaining"`
}

type confirmPayload struct {
	AnsweredCount  int `json:"answeredCount"`
	TotalQuestions int `json:"totalQuestions"`
}

type resultPayload struct {
	Result         *domain.ExamResult `json:"result"`
	Progress       *domain.Progress   `json:"progress,omitempty"`
	PersistWarning string             `json:"persistWarning,omitempty"`
}

// questionView strips the answer key and explanation before a question goes
// over the wire; the client learns them through check results and the final
// breakdown.
type questionView struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

type examView struct {
	ID               string         `json:"id"`
	Slug             string         `json:"slug"`
	Title            string         `json:"title"`
	Description      string         `json:"description,omitempty"`
	Questions        []questionView `json:"questions"`
	TotalTimeSeconds int            `json:"totalTimeSeconds,omitempty"`
}

type startedPayload struct {
	Exam     examView     `json:"exam"`
	Snapshot app.Snapshot `json:"snapshot"`
}

func viewOf(exam domain.Exam) examView {
	questions := make([]questionView, 0, len(exam.Questions))
	for _, q := range exam.Questions {
		questions = append(questions, questionView{ID: q.ID, Text: q.Text, Options: q.Options})
	}
	return examView{
		ID:               exam.ID,
		Slug:             exam.Slug,
		Title:            exam.Title,
		Description:      exam.Description,
		Questions:        questions,
		TotalTimeSeconds: exam.TotalTimeSeconds,
	}
}

// ServeWS upgrades the request and runs the attempt until it completes, is
// aborted, or the connection drops (which aborts it).
func (h *SessionHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	examID := r.URL.Query().Get("examId")
	userID := r.URL.Query().Get("userId")
	if examID == "" || userID == "" {
		http.Error(w, "missing examId or userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})

	// The send channel is never closed; the writer drains what is left after
	// closeSignals fires and exits. Late pushes from timer callbacks fall into
	// the closeSignals branch instead of panicking on a closed channel.
	go func() {
		defer close(writerDone)
		for {
			select {
			case msg := <-send:
				if err := conn.WriteJSON(msg); err != nil {
					log.Printf("ws write error: %v", err)
					return
				}
			case <-closeSignals:
				for {
					select {
					case msg := <-send:
						if err := conn.WriteJSON(msg); err != nil {
							return
						}
					default:
						return
					}
				}
			}
		}
	}()

	// push is safe from timer callbacks: it never blocks past teardown.
	push := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-closeSignals:
		}
	}

	events := app.SessionEvents{
		OnWarning: func(remaining int) {
			push(outboundMessage[any]{Type: "warning", Payload: warningPayload{SecondsRemaining: remaining}})
		},
		OnQuestionExpire: func(snapshot app.Snapshot) {
			push(outboundMessage[any]{Type: "questionExpired", Payload: snapshot})
		},
		OnTimeExpired: func(outcome app.SubmitOutcome) {
			push(outboundMessage[any]{Type: "result", Payload: resultOf(outcome)})
		},
	}

	snapshot, err := h.service.Start(r.Context(), examID, userID, events)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		close(closeSignals)
		<-writerDone
		return
	}
	attemptID := snapshot.AttemptID

	exam, err := h.service.GetExam(r.Context(), examID)
	if err == nil {
		send <- outboundMessage[any]{Type: "started", Payload: startedPayload{Exam: viewOf(exam), Snapshot: snapshot}}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if done := h.dispatch(r, attemptID, inbound, send); done {
			break
		}
	}

	// A dropped connection discards the attempt. Abort stops the timer before
	// the writer is signalled, so no new callback can race the teardown; it is
	// a no-op once the attempt completed or was already aborted.
	_ = h.service.Abort(attemptID)
	close(closeSignals)
	<-writerDone
}

// dispatch handles one inbound message; it reports true when the attempt
// reached a terminal state and the read loop should end.
func (h *SessionHandler) dispatch(r *http.Request, attemptID string, inbound inboundMessage, send chan<- outboundMessage[any]) bool {
	switch inbound.Type {
	case "select":
		var payload questionPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			send <- errMsg("invalid select payload")
			return false
		}
		snapshot, err := h.service.SelectAnswer(attemptID, payload.Question, payload.Option)
		if err != nil {
			send <- errMsg(err.Error())
			return false
		}
		send <- outboundMessage[any]{Type: "state", Payload: snapshot}
	case "check":
		var payload questionPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			send <- errMsg("invalid check payload")
			return false
		}
		result, err := h.service.CheckAnswer(attemptID, payload.Question)
		if err != nil {
			send <- errMsg(err.Error())
			return false
		}
		send <- outboundMessage[any]{Type: "checkResult", Payload: result}
	case "goto":
		var payload questionPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			send <- errMsg("invalid goto payload")
			return false
		}
		snapshot, err := h.service.GoTo(attemptID, payload.Question)
		if err != nil {
			send <- errMsg(err.Error())
			return false
		}
		send <- outboundMessage[any]{Type: "state", Payload: snapshot}
	case "next":
		snapshot, err := h.service.Next(attemptID)
		if err != nil {
			send <- errMsg(err.Error())
			return false
		}
		send <- outboundMessage[any]{Type: "state", Payload: snapshot}
	case "previous":
		snapshot, err := h.service.Previous(attemptID)
		if err != nil {
			send <- errMsg(err.Error())
			return false
		}
		send <- outboundMessage[any]{Type: "state", Payload: snapshot}
	case "submit":
		outcome, err := h.service.Submit(r.Context(), attemptID)
		if err != nil {
			if errors.Is(err, domain.ErrNoAnswers) {
				send <- outboundMessage[any]{Type: "submissionBlocked", Payload: errorPayload{Message: err.Error()}}
				return false
			}
			send <- errMsg(err.Error())
			return false
		}
		if outcome.Decision == app.SubmitConfirmationRequired {
			send <- outboundMessage[any]{Type: "confirmRequired", Payload: h.confirmCounts(attemptID)}
			return false
		}
		send <- outboundMessage[any]{Type: "result", Payload: resultOf(outcome)}
		return true
	case "abort":
		if err := h.service.Abort(attemptID); err != nil {
			send <- errMsg(err.Error())
			return false
		}
		send <- outboundMessage[any]{Type: "aborted", Payload: struct{}{}}
		return true
	default:
		send <- errMsg("unsupported message type")
	}
	return false
}

func (h *SessionHandler) confirmCounts(attemptID string) confirmPayload {
	snapshot, err := h.service.Snapshot(attemptID)
	if err != nil {
		return confirmPayload{}
	}
	return confirmPayload{AnsweredCount: snapshot.AnsweredCount, TotalQuestions: snapshot.TotalQuestions}
}

func resultOf(outcome app.SubmitOutcome) resultPayload {
	payload := resultPayload{Result: outcome.Result, Progress: outcome.Progress}
	if outcome.PersistWarning != nil {
		payload.PersistWarning = outcome.PersistWarning.Error()
	}
	return payload
}

func errMsg(message string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}}
}
