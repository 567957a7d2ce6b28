package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"theory-exam-service/internal/app"
	"theory-exam-service/internal/domain"
)

// APIHandler serves the read-only JSON surfaces: exam definitions (without
// answer keys), notes, result history, progress and recent activity.
type APIHandler struct {
	service *app.ExamService
}

func NewAPIHandler(service *app.ExamService) *APIHandler {
	return &APIHandler{service: service}
}

// Register wires the read endpoints onto the mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /exams/{id}", h.getExam)
	mux.HandleFunc("GET /notes/{id}", h.getNote)
	mux.HandleFunc("GET /results", h.listResults)
	mux.HandleFunc("GET /progress", h.getProgress)
	mux.HandleFunc("GET /activity", h.listActivity)
}

func (h *APIHandler) getExam(w http.ResponseWriter, r *http.Request) {
	exam, err := h.service.GetExam(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, viewOf(exam))
}

func (h *APIHandler) getNote(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	note, err := h.service.ReadNote(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, note)
}

func (h *APIHandler) listResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.Results(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, results)
}

func (h *APIHandler) getProgress(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}
	record, err := h.service.ProgressFor(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, record)
}

func (h *APIHandler) listActivity(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	entries, err := h.service.RecentActivity(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, entries)
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, domain.ErrExamNotFound) || errors.Is(err, domain.ErrNoteNotFound) {
		status = http.StatusNotFound
	}
	http.Error(w, err.Error(), status)
}
