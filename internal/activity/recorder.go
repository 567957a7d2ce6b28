package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"theory-exam-service/internal/domain"
)

// Store is the key-value persistence the recorder depends on.
type Store interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Remove(ctx context.Context, key string) error
}

const activityKey = "activity"

// maxEntries caps the log; the oldest entries are evicted first.
const maxEntries = 50

// Recorder keeps a bounded, most-recent-first log of discrete user events.
type Recorder struct {
	store Store
	now   func() time.Time
	newID func() string
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, now: time.Now, newID: uuid.NewString}
}

// NewRecorderWithClock is test-only for deterministic timestamps.
func NewRecorderWithClock(store Store, now func() time.Time) *Recorder {
	return &Recorder{store: store, now: now, newID: uuid.NewString}
}

// RecordExamStarted logs the start of an attempt.
func (r *Recorder) RecordExamStarted(ctx context.Context, userID string, data domain.ExamActivity) error {
	return r.append(ctx, userID, domain.ActivityExamStarted, domain.ActivityData{Exam: &data})
}

// RecordExamResult logs the completion of an attempt plus its verdict.
func (r *Recorder) RecordExamResult(ctx context.Context, userID string, result domain.ExamResult) error {
	data := domain.ExamActivity{
		ExamID:    result.ExamID,
		ExamTitle: result.ExamTitle,
		Score:     result.Score,
		Passed:    result.Passed,
	}
	if err := r.append(ctx, userID, domain.ActivityExamCompleted, domain.ActivityData{Exam: &data}); err != nil {
		return err
	}
	verdict := domain.ActivityExamFailed
	if result.Passed {
		verdict = domain.ActivityExamPassed
	}
	return r.append(ctx, userID, verdict, domain.ActivityData{Exam: &data})
}

// RecordNoteRead logs a study-note read.
func (r *Recorder) RecordNoteRead(ctx context.Context, userID string, data domain.NoteActivity) error {
	return r.append(ctx, userID, domain.ActivityNoteRead, domain.ActivityData{Note: &data})
}

func (r *Recorder) append(ctx context.Context, userID string, typ domain.ActivityType, data domain.ActivityData) error {
	entries, err := r.loadAll(ctx)
	if err != nil {
		return err
	}
	entry := domain.ActivityEntry{
		ID:        r.newID(),
		Type:      typ,
		Timestamp: r.now(),
		Data:      data,
		UserID:    userID,
	}
	entries = append([]domain.ActivityEntry{entry}, entries...)
	if len(entries) > maxEntries {
		entries = entries[:maxEntries]
	}
	if err := r.store.Set(ctx, activityKey, entries); err != nil {
		return fmt.Errorf("persist activity: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, most recent first. A non-positive
// limit returns the whole log.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]domain.ActivityEntry, error) {
	entries, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// ByType filters the log down to one event type.
func (r *Recorder) ByType(ctx context.Context, typ domain.ActivityType) ([]domain.ActivityEntry, error) {
	entries, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	filtered := make([]domain.ActivityEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Type == typ {
			filtered = append(filtered, entry)
		}
	}
	return filtered, nil
}

// CurrentStreak counts consecutive days of activity ending today or
// yesterday, computed over the raw log. This runs independently of the
// progress aggregator's streak, which draws from its own record.
func (r *Recorder) CurrentStreak(ctx context.Context) (int, error) {
	entries, err := r.loadAll(ctx)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	days := make([]time.Time, 0, len(entries))
	for _, entry := range entries {
		day := truncateToDay(entry.Timestamp)
		if len(days) == 0 || !days[len(days)-1].Equal(day) {
			days = append(days, day)
		}
	}

	today := truncateToDay(r.now())
	if !days[0].Equal(today) && !days[0].Equal(today.AddDate(0, 0, -1)) {
		return 0, nil
	}
	streak := 1
	for i := 1; i < len(days); i++ {
		if days[i].Equal(days[i-1].AddDate(0, 0, -1)) {
			streak++
			continue
		}
		break
	}
	return streak, nil
}

func (r *Recorder) loadAll(ctx context.Context) ([]domain.ActivityEntry, error) {
	var entries []domain.ActivityEntry
	if _, err := r.store.Get(ctx, activityKey, &entries); err != nil {
		return nil, fmt.Errorf("load activity: %w", err)
	}
	if entries == nil {
		entries = []domain.ActivityEntry{}
	}
	return entries, nil
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
