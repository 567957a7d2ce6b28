package app

import (
	"sync"
	"time"

	"theory-exam-service/internal/domain"
)

// State is the lifecycle phase of one exam attempt.
type State int

const (
	StateLoading State = iota
	StateInProgress
	StateSubmitting
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateInProgress:
		return "in_progress"
	case StateSubmitting:
		return "submitting"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// SubmitDecision is the engine's answer to a submission request.
type SubmitDecision int

const (
	// SubmitAccepted means the attempt moved to submitting.
	SubmitAccepted SubmitDecision = iota
	// SubmitConfirmationRequired means some questions are unanswered and the
	// caller must confirm before the next submit proceeds.
	SubmitConfirmationRequired
)

// Snapshot is an immutable view of an attempt handed to transports.
type Snapshot struct {
	AttemptID        string `json:"attemptId"`
	ExamID           string `json:"examId"`
	State            string `json:"state"`
	CurrentIndex     int    `json:"currentIndex"`
	Answers          []int  `json:"answers"`
	Checked          []bool `json:"checked"`
	AnsweredCount    int    `json:"answeredCount"`
	TotalQuestions   int    `json:"totalQuestions"`
	SecondsRemaining int    `json:"secondsRemaining"`
}

// CheckResult is the outcome of a user-triggered self-check on one question.
type CheckResult struct {
	QuestionIndex int    `json:"questionIndex"`
	Correct       bool   `json:"correct"`
	Explanation   string `json:"explanation,omitempty"`
}

// Session owns the mutable state of one in-progress exam attempt. All entry
// points take the session mutex, which serializes user input with timer
// callbacks the same way a single UI event queue would.
type Session struct {
	id     string
	userID string
	exam   domain.Exam
	now    func() time.Time

	mu             sync.RWMutex
	state          State
	answers        []int
	checked        []bool
	correct        []bool
	current        int
	confirmPending bool
	startedAt      time.Time
	timer          *Timer
}

// NewSession allocates an attempt in the loading state with every slot
// unanswered.
func NewSession(id, userID string, exam domain.Exam) *Session {
	return NewSessionWithClock(id, userID, exam, time.Now)
}

// NewSessionWithClock is test-only for deterministic timestamps.
func NewSessionWithClock(id, userID string, exam domain.Exam, now func() time.Time) *Session {
	n := len(exam.Questions)
	answers := make([]int, n)
	for i := range answers {
		answers[i] = domain.Unanswered
	}
	return &Session{
		id:      id,
		userID:  userID,
		exam:    exam,
		now:     now,
		state:   StateLoading,
		answers: answers,
		checked: make([]bool, n),
		correct: make([]bool, n),
	}
}

// ID returns the attempt identifier.
func (s *Session) ID() string { return s.id }

// UserID returns the owning user.
func (s *Session) UserID() string { return s.userID }

// Exam returns the immutable definition the attempt runs against.
func (s *Session) Exam() domain.Exam { return s.exam }

// Begin transitions loading -> in progress and starts the attached timer.
func (s *Session) Begin(timer *Timer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateLoading {
		return domain.ErrInvalidState
	}
	s.state = StateInProgress
	s.startedAt = s.now()
	s.timer = timer
	if timer != nil {
		timer.Start()
	}
	return nil
}

// SelectAnswer records a choice. Re-answering always invalidates a prior
// check, and disarms any pending submit confirmation since the answered
// count may have changed.
func (s *Session) SelectAnswer(questionIndex, optionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return domain.ErrInvalidState
	}
	if questionIndex < 0 || questionIndex >= len(s.answers) {
		return domain.ErrQuestionOutOfRange
	}
	if optionIndex < 0 || optionIndex >= len(s.exam.Questions[questionIndex].Options) {
		return domain.ErrOptionOutOfRange
	}
	s.answers[questionIndex] = optionIndex
	s.checked[questionIndex] = false
	s.confirmPending = false
	return nil
}

// CheckAnswer validates the selected choice against the key without
// affecting final scoring.
func (s *Session) CheckAnswer(questionIndex int) (CheckResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return CheckResult{}, domain.ErrInvalidState
	}
	if questionIndex < 0 || questionIndex >= len(s.answers) {
		return CheckResult{}, domain.ErrQuestionOutOfRange
	}
	if s.answers[questionIndex] == domain.Unanswered {
		return CheckResult{}, domain.ErrNoAnswerSelected
	}
	question := s.exam.Questions[questionIndex]
	s.checked[questionIndex] = true
	s.correct[questionIndex] = s.answers[questionIndex] == question.AnswerIndex
	return CheckResult{
		QuestionIndex: questionIndex,
		Correct:       s.correct[questionIndex],
		Explanation:   question.Explanation,
	}, nil
}

// GoTo jumps to a specific question (sidebar navigation).
func (s *Session) GoTo(questionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return domain.ErrInvalidState
	}
	if questionIndex < 0 || questionIndex >= len(s.answers) {
		return domain.ErrQuestionOutOfRange
	}
	s.moveLocked(questionIndex)
	return nil
}

// Next advances to the following question, clamped at the last one.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return domain.ErrInvalidState
	}
	s.moveLocked(s.current + 1)
	return nil
}

// Previous steps back one question, clamped at the first one.
func (s *Session) Previous() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return domain.ErrInvalidState
	}
	s.moveLocked(s.current - 1)
	return nil
}

func (s *Session) moveLocked(target int) {
	if target < 0 {
		target = 0
	}
	if max := len(s.answers) - 1; target > max {
		target = max
	}
	if target == s.current {
		return
	}
	s.current = target
	// A per-question budget restarts whenever the active question changes.
	if s.timer != nil {
		s.timer.Reset()
	}
}

// AdvanceOnTimeout is the per-question expiry path: auto-advance without
// touching the answer or checked flags. Safe to call from a stale timer
// callback; it no-ops outside the in-progress state.
func (s *Session) AdvanceOnTimeout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return
	}
	s.moveLocked(s.current + 1)
}

// RequestSubmit applies the submission gating policy. With force set (time
// expiry) it bypasses both the zero-answer rejection and the confirmation
// step; the user can no longer act, so whatever is on the sheet is scored.
func (s *Session) RequestSubmit(force bool) (SubmitDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return SubmitAccepted, domain.ErrInvalidState
	}
	if !force {
		answered := s.answeredLocked()
		if answered == 0 {
			return SubmitAccepted, domain.ErrNoAnswers
		}
		if answered < len(s.answers) && !s.confirmPending {
			s.confirmPending = true
			return SubmitConfirmationRequired, nil
		}
	}
	s.state = StateSubmitting
	if s.timer != nil {
		s.timer.Stop()
	}
	return SubmitAccepted, nil
}

// SubmissionInput returns what the scorer needs once the attempt is in the
// submitting state.
func (s *Session) SubmissionInput() (answers []int, elapsed time.Duration, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateSubmitting {
		return nil, 0, domain.ErrInvalidState
	}
	answers = append([]int(nil), s.answers...)
	return answers, s.now().Sub(s.startedAt), nil
}

// Complete marks the attempt as scored.
func (s *Session) Complete() {
	s.mu.Lock()
	if s.state == StateSubmitting {
		s.state = StateCompleted
	}
	s.mu.Unlock()
}

// Abort discards the attempt and stops the timer synchronously; any tick
// already in flight is rejected by the state guards above.
func (s *Session) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return domain.ErrInvalidState
	}
	s.state = StateAborted
	if s.timer != nil {
		s.timer.Stop()
	}
	return nil
}

// Snapshot captures the attempt state for transports.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	remaining := 0
	if s.timer != nil {
		remaining = s.timer.Remaining()
	}
	return Snapshot{
		AttemptID:        s.id,
		ExamID:           s.exam.ID,
		State:            s.state.String(),
		CurrentIndex:     s.current,
		Answers:          append([]int(nil), s.answers...),
		Checked:          append([]bool(nil), s.checked...),
		AnsweredCount:    s.answeredLocked(),
		TotalQuestions:   len(s.answers),
		SecondsRemaining: remaining,
	}
}

func (s *Session) answeredLocked() int {
	count := 0
	for _, a := range s.answers {
		if a != domain.Unanswered {
			count++
		}
	}
	return count
}
