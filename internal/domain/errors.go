package domain

import "errors"

var (
	// ErrExamNotFound indicates the exam definition could not be loaded.
	ErrExamNotFound = errors.New("exam not found")
	// ErrNoteNotFound indicates the note document could not be loaded.
	ErrNoteNotFound = errors.New("note not found")
	// ErrAttemptNotFound is returned when no attempt exists for the given ID.
	ErrAttemptNotFound = errors.New("exam attempt not found")
	// ErrInvalidState rejects an operation not allowed in the attempt's
	// current state (e.g. answering after submission).
	ErrInvalidState = errors.New("operation not allowed in current state")
	// ErrQuestionOutOfRange rejects a question index outside [0, N-1].
	ErrQuestionOutOfRange = errors.New("question index out of range")
	// ErrOptionOutOfRange rejects an option index outside the question's options.
	ErrOptionOutOfRange = errors.New("option index out of range")
	// ErrNoAnswerSelected is returned when a question is checked before any
	// option was chosen.
	ErrNoAnswerSelected = errors.New("no answer selected")
	// ErrNoAnswers blocks submission of a fully unanswered attempt.
	ErrNoAnswers = errors.New("no answers submitted")
)
