package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"theory-exam-service/internal/domain"
)

// ContentLoader loads exam and note JSONB from Postgres and normalizes
// legacy question shapes once, at load time. The engine only ever sees the
// canonical domain.Question form.
type ContentLoader struct {
	pool *pgxpool.Pool
}

func NewContentLoader(pool *pgxpool.Pool) *ContentLoader {
	return &ContentLoader{pool: pool}
}

func (l *ContentLoader) LoadExam(ctx context.Context, examID string) (domain.Exam, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM exams WHERE id=$1`, examID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Exam{}, domain.ErrExamNotFound
	}
	if err != nil {
		return domain.Exam{}, fmt.Errorf("load exam: %w", err)
	}
	var doc examDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.Exam{}, fmt.Errorf("unmarshal exam: %w", err)
	}
	exam, err := doc.normalize(examID)
	if err != nil {
		return domain.Exam{}, fmt.Errorf("normalize exam %s: %w", examID, err)
	}
	return exam, nil
}

func (l *ContentLoader) LoadNote(ctx context.Context, noteID string) (domain.Note, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM notes WHERE id=$1`, noteID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Note{}, domain.ErrNoteNotFound
	}
	if err != nil {
		return domain.Note{}, fmt.Errorf("load note: %w", err)
	}
	var note domain.Note
	if err := json.Unmarshal(raw, &note); err != nil {
		return domain.Note{}, fmt.Errorf("unmarshal note: %w", err)
	}
	if note.ID == "" {
		note.ID = noteID
	}
	return note, nil
}

// examDocument is the stored shape. Options historically appear either as
// plain strings or as {"text": ...} objects; both decode to option text.
type examDocument struct {
	ID                   string             `json:"id"`
	Slug                 string             `json:"slug"`
	Title                string             `json:"title"`
	Description          string             `json:"description"`
	Questions            []questionDocument `json:"questions"`
	TotalTimeSeconds     int                `json:"totalTimeSeconds"`
	PassThresholdPercent int                `json:"passThresholdPercent"`
}

type questionDocument struct {
	ID          string           `json:"id"`
	Text        string           `json:"text"`
	Options     []optionDocument `json:"options"`
	AnswerIndex int              `json:"answerIndex"`
	Explanation string           `json:"explanation"`
}

type optionDocument struct {
	text string
}

func (o *optionDocument) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		o.text = s
		return nil
	}
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	o.text = obj.Text
	return nil
}

func (d examDocument) normalize(examID string) (domain.Exam, error) {
	exam := domain.Exam{
		ID:                   d.ID,
		Slug:                 d.Slug,
		Title:                d.Title,
		Description:          d.Description,
		TotalTimeSeconds:     d.TotalTimeSeconds,
		PassThresholdPercent: d.PassThresholdPercent,
	}
	if exam.ID == "" {
		exam.ID = examID
	}
	exam.Questions = make([]domain.Question, 0, len(d.Questions))
	for i, q := range d.Questions {
		options := make([]string, 0, len(q.Options))
		for _, opt := range q.Options {
			options = append(options, opt.text)
		}
		if len(options) < 2 {
			return domain.Exam{}, fmt.Errorf("question %d: needs at least 2 options", i)
		}
		if q.AnswerIndex < 0 || q.AnswerIndex >= len(options) {
			return domain.Exam{}, fmt.Errorf("question %d: answer index %d out of range", i, q.AnswerIndex)
		}
		exam.Questions = append(exam.Questions, domain.Question{
			ID:          q.ID,
			Text:        q.Text,
			Options:     options,
			AnswerIndex: q.AnswerIndex,
			Explanation: q.Explanation,
		})
	}
	return exam, nil
}
