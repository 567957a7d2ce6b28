package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"theory-exam-service/internal/domain"
)

// ContentRepository loads exam and note content (from cache/backing store).
type ContentRepository interface {
	GetExam(ctx context.Context, examID string) (domain.Exam, error)
	GetNote(ctx context.Context, noteID string) (domain.Note, error)
}

// AttemptRepository abstracts how live attempts are stored (in-memory, Redis, etc).
type AttemptRepository interface {
	Put(attemptID string, session *Session)
	Get(attemptID string) (*Session, bool)
	Delete(attemptID string)
}

// ResultArchive persists completed results, most recent first, capped.
type ResultArchive interface {
	Append(ctx context.Context, result domain.ExamResult) error
	List(ctx context.Context) ([]domain.ExamResult, error)
}

// ProgressTracker folds a completed result into cumulative statistics.
type ProgressTracker interface {
	RecordExamCompletion(ctx context.Context, userID string, result domain.ExamResult) (domain.Progress, error)
	Get(ctx context.Context, userID string) (domain.Progress, error)
}

// ActivityLog appends discrete user events to a bounded log.
type ActivityLog interface {
	RecordExamStarted(ctx context.Context, userID string, data domain.ExamActivity) error
	RecordExamResult(ctx context.Context, userID string, result domain.ExamResult) error
	RecordNoteRead(ctx context.Context, userID string, data domain.NoteActivity) error
	Recent(ctx context.Context, limit int) ([]domain.ActivityEntry, error)
}

// TimerSettings are the engine-level timing defaults; an exam definition's
// own total budget takes precedence over the configured one.
type TimerSettings struct {
	Mode               TimerMode
	TotalSeconds       int
	PerQuestionSeconds int
}

// SessionEvents are transport-supplied hooks for timer-driven pushes. Any
// field may be nil.
type SessionEvents struct {
	OnWarning        func(secondsRemaining int)
	OnQuestionExpire func(snapshot Snapshot)
	OnTimeExpired    func(outcome SubmitOutcome)
}

// SubmitOutcome is what a submission request produced. PersistWarning is the
// non-fatal persistence failure channel: the in-memory result stays
// authoritative for display even when a store write failed.
type SubmitOutcome struct {
	Decision       SubmitDecision
	Result         *domain.ExamResult
	Progress       *domain.Progress
	PersistWarning error
}

// ExamService contains the exam attempt use cases.
type ExamService struct {
	content  ContentRepository
	attempts AttemptRepository
	archive  ResultArchive
	progress ProgressTracker
	activity ActivityLog
	timers   TimerSettings
	// passThreshold overrides the built-in default for exams that carry no
	// threshold of their own. Zero means keep the domain default.
	passThreshold int
	now           func() time.Time
	newID         func() string
}

func NewExamService(content ContentRepository, attempts AttemptRepository, archive ResultArchive, progress ProgressTracker, activity ActivityLog, timers TimerSettings) *ExamService {
	return &ExamService{
		content:  content,
		attempts: attempts,
		archive:  archive,
		progress: progress,
		activity: activity,
		timers:   timers,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// WithClock overrides the service clock for deterministic tests.
func (s *ExamService) WithClock(now func() time.Time) *ExamService {
	s.now = now
	return s
}

// WithPassThreshold sets the configured fallback pass threshold.
func (s *ExamService) WithPassThreshold(percent int) *ExamService {
	s.passThreshold = percent
	return s
}

// Start loads the exam definition, allocates the attempt and begins the
// countdown. The attempt never enters the in-progress state when content is
// unavailable.
func (s *ExamService) Start(ctx context.Context, examID, userID string, events SessionEvents) (Snapshot, error) {
	exam, err := s.content.GetExam(ctx, examID)
	if err != nil {
		if errors.Is(err, domain.ErrExamNotFound) {
			return Snapshot{}, err
		}
		return Snapshot{}, fmt.Errorf("load exam %s: %w", examID, err)
	}
	if exam.PassThresholdPercent == 0 && s.passThreshold > 0 {
		exam.PassThresholdPercent = s.passThreshold
	}

	attemptID := s.newID()
	session := NewSessionWithClock(attemptID, userID, exam, s.now)
	timer := s.buildTimer(exam, session, events)
	s.attempts.Put(attemptID, session)
	if err := session.Begin(timer); err != nil {
		s.attempts.Delete(attemptID)
		return Snapshot{}, err
	}

	if err := s.activity.RecordExamStarted(ctx, userID, domain.ExamActivity{
		ExamID:    exam.ID,
		ExamTitle: exam.Title,
	}); err != nil {
		log.Printf("record exam start: %v", err)
	}
	return session.Snapshot(), nil
}

func (s *ExamService) buildTimer(exam domain.Exam, session *Session, events SessionEvents) *Timer {
	totalSeconds := exam.TotalTimeSeconds
	if totalSeconds <= 0 {
		totalSeconds = s.timers.TotalSeconds
	}
	return NewTimer(TimerConfig{
		Mode:               s.timers.Mode,
		TotalSeconds:       totalSeconds,
		PerQuestionSeconds: s.timers.PerQuestionSeconds,
		OnWarning: func(remaining int) {
			if events.OnWarning != nil {
				events.OnWarning(remaining)
			}
		},
		OnQuestionExpire: func() {
			session.AdvanceOnTimeout()
			if events.OnQuestionExpire != nil {
				events.OnQuestionExpire(session.Snapshot())
			}
		},
		OnExpire: func() {
			outcome, err := s.expireSubmit(session)
			if err != nil {
				// The attempt was already submitted or aborted; the late
				// tick is a silent no-op.
				return
			}
			if events.OnTimeExpired != nil {
				events.OnTimeExpired(outcome)
			}
		},
	})
}

// SelectAnswer records a choice on a running attempt.
func (s *ExamService) SelectAnswer(attemptID string, questionIndex, optionIndex int) (Snapshot, error) {
	session, ok := s.attempts.Get(attemptID)
	if !ok {
		return Snapshot{}, domain.ErrAttemptNotFound
	}
	if err := session.SelectAnswer(questionIndex, optionIndex); err != nil {
		return Snapshot{}, err
	}
	return session.Snapshot(), nil
}

// CheckAnswer runs the user-triggered self-check for one question.
func (s *ExamService) CheckAnswer(attemptID string, questionIndex int) (CheckResult, error) {
	session, ok := s.attempts.Get(attemptID)
	if !ok {
		return CheckResult{}, domain.ErrAttemptNotFound
	}
	return session.CheckAnswer(questionIndex)
}

// GoTo jumps to a question by index.
func (s *ExamService) GoTo(attemptID string, questionIndex int) (Snapshot, error) {
	session, ok := s.attempts.Get(attemptID)
	if !ok {
		return Snapshot{}, domain.ErrAttemptNotFound
	}
	if err := session.GoTo(questionIndex); err != nil {
		return Snapshot{}, err
	}
	return session.Snapshot(), nil
}

// Next advances to the following question.
func (s *ExamService) Next(attemptID string) (Snapshot, error) {
	session, ok := s.attempts.Get(attemptID)
	if !ok {
		return Snapshot{}, domain.ErrAttemptNotFound
	}
	if err := session.Next(); err != nil {
		return Snapshot{}, err
	}
	return session.Snapshot(), nil
}

// Previous steps back one question.
func (s *ExamService) Previous(attemptID string) (Snapshot, error) {
	session, ok := s.attempts.Get(attemptID)
	if !ok {
		return Snapshot{}, domain.ErrAttemptNotFound
	}
	if err := session.Previous(); err != nil {
		return Snapshot{}, err
	}
	return session.Snapshot(), nil
}

// Snapshot returns the current view of a live attempt.
func (s *ExamService) Snapshot(attemptID string) (Snapshot, error) {
	session, ok := s.attempts.Get(attemptID)
	if !ok {
		return Snapshot{}, domain.ErrAttemptNotFound
	}
	return session.Snapshot(), nil
}

// Submit applies the gating policy and, when accepted, scores and persists
// the attempt. A partial sheet yields a confirmation-required outcome; the
// next Submit call proceeds.
func (s *ExamService) Submit(ctx context.Context, attemptID string) (SubmitOutcome, error) {
	session, ok := s.attempts.Get(attemptID)
	if !ok {
		return SubmitOutcome{}, domain.ErrAttemptNotFound
	}
	decision, err := session.RequestSubmit(false)
	if err != nil {
		return SubmitOutcome{}, err
	}
	if decision == SubmitConfirmationRequired {
		return SubmitOutcome{Decision: SubmitConfirmationRequired}, nil
	}
	return s.finalize(ctx, session)
}

// expireSubmit is the total-budget expiry path: submission proceeds
// unconditionally, even with an empty sheet.
func (s *ExamService) expireSubmit(session *Session) (SubmitOutcome, error) {
	if _, err := session.RequestSubmit(true); err != nil {
		return SubmitOutcome{}, err
	}
	return s.finalize(context.Background(), session)
}

func (s *ExamService) finalize(ctx context.Context, session *Session) (SubmitOutcome, error) {
	answers, elapsed, err := session.SubmissionInput()
	if err != nil {
		return SubmitOutcome{}, err
	}
	result := Score(session.Exam(), answers, elapsed, s.now())
	session.Complete()
	s.attempts.Delete(session.ID())

	outcome := SubmitOutcome{Decision: SubmitAccepted, Result: &result}

	// The result write comes first: it is the record the user will want back.
	if err := s.archive.Append(ctx, result); err != nil {
		log.Printf("persist result %s: %v", result.ID, err)
		outcome.PersistWarning = fmt.Errorf("persist result: %w", err)
	}

	// Progress and activity live under independent keys, so their writes can
	// fan out; neither failure invalidates the in-memory result.
	g, gctx := errgroup.WithContext(ctx)
	var updated domain.Progress
	g.Go(func() error {
		p, err := s.progress.RecordExamCompletion(gctx, session.UserID(), result)
		if err != nil {
			return fmt.Errorf("update progress: %w", err)
		}
		updated = p
		return nil
	})
	g.Go(func() error {
		if err := s.activity.RecordExamResult(gctx, session.UserID(), result); err != nil {
			return fmt.Errorf("record activity: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Printf("post-submit persistence: %v", err)
		if outcome.PersistWarning == nil {
			outcome.PersistWarning = err
		}
	} else {
		outcome.Progress = &updated
	}
	return outcome, nil
}

// Abort discards a running attempt; no result is produced and no statistics
// are updated.
func (s *ExamService) Abort(attemptID string) error {
	session, ok := s.attempts.Get(attemptID)
	if !ok {
		return domain.ErrAttemptNotFound
	}
	if err := session.Abort(); err != nil {
		return err
	}
	s.attempts.Delete(attemptID)
	return nil
}

// GetExam exposes the definition for display surfaces.
func (s *ExamService) GetExam(ctx context.Context, examID string) (domain.Exam, error) {
	return s.content.GetExam(ctx, examID)
}

// ReadNote fetches a study note and logs the read as activity.
func (s *ExamService) ReadNote(ctx context.Context, noteID, userID string) (domain.Note, error) {
	note, err := s.content.GetNote(ctx, noteID)
	if err != nil {
		return domain.Note{}, err
	}
	if err := s.activity.RecordNoteRead(ctx, userID, domain.NoteActivity{NoteID: note.ID, Title: note.Title}); err != nil {
		log.Printf("record note read: %v", err)
	}
	return note, nil
}

// Results returns the archived result history, most recent first.
func (s *ExamService) Results(ctx context.Context) ([]domain.ExamResult, error) {
	return s.archive.List(ctx)
}

// ProgressFor returns the cumulative statistics for a user.
func (s *ExamService) ProgressFor(ctx context.Context, userID string) (domain.Progress, error) {
	return s.progress.Get(ctx, userID)
}

// RecentActivity returns up to limit recent activity entries.
func (s *ExamService) RecentActivity(ctx context.Context, limit int) ([]domain.ActivityEntry, error) {
	return s.activity.Recent(ctx, limit)
}
