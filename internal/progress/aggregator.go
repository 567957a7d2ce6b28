package progress

import (
	"context"
	"fmt"
	"time"

	"theory-exam-service/internal/domain"
)

// Store is the key-value persistence the aggregator depends on. Get reports
// absence via its bool instead of an error.
type Store interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Remove(ctx context.Context, key string) error
}

const progressKey = "progress"

const scholarPassCount = 10

// Aggregator folds completed exam results into the cumulative per-user
// progress record.
type Aggregator struct {
	store Store
	now   func() time.Time
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store, now: time.Now}
}

// NewAggregatorWithClock is test-only for deterministic streak dates.
func NewAggregatorWithClock(store Store, now func() time.Time) *Aggregator {
	return &Aggregator{store: store, now: now}
}

// RecordExamCompletion updates counters, achievements and streaks for one
// completed result. The updated record is returned even when persisting it
// failed, so callers can display fresh statistics and treat the error as a
// non-fatal warning.
func (a *Aggregator) RecordExamCompletion(ctx context.Context, userID string, result domain.ExamResult) (domain.Progress, error) {
	record := a.load(ctx, userID)

	record.TotalAttempts++
	if result.Passed {
		record.TotalPassed++
	} else {
		record.TotalFailed++
	}
	n := float64(record.TotalAttempts)
	record.AverageScore = (record.AverageScore*(n-1) + float64(result.Score)) / n
	if result.Score > record.BestScore {
		record.BestScore = result.Score
	}
	record.TotalTimeSpentMinutes += result.TimeSpentMinutes

	// Achievements are monotonic: evaluate in order, set-once.
	if record.TotalAttempts == 1 {
		record.Achievements.FirstExam = true
	}
	if result.Passed {
		record.Achievements.FirstPass = true
	}
	if result.Score == 100 {
		record.Achievements.PerfectScore = true
	}
	if record.TotalPassed >= scholarPassCount {
		record.Achievements.Scholar = true
	}

	now := a.now()
	a.updateStreak(&record, now)
	record.LastExamDate = now

	if err := a.store.Set(ctx, progressKey, record); err != nil {
		return record, fmt.Errorf("persist progress: %w", err)
	}
	return record, nil
}

func (a *Aggregator) updateStreak(record *domain.Progress, now time.Time) {
	last := record.LastExamDate
	switch {
	case last.IsZero():
		record.CurrentStreak = 1
	case sameDay(last, now):
		if record.CurrentStreak == 0 {
			record.CurrentStreak = 1
		}
	case sameDay(last, now.AddDate(0, 0, -1)):
		record.CurrentStreak++
	default:
		record.CurrentStreak = 1
	}
	if record.CurrentStreak > record.LongestStreak {
		record.LongestStreak = record.CurrentStreak
	}
	if record.CurrentStreak >= 7 {
		record.Achievements.WeekStreak = true
	}
	if record.CurrentStreak >= 30 {
		record.Achievements.MonthStreak = true
		record.Achievements.Dedicated = true
	}
}

// Get returns the stored record, or a zero-valued one when absent.
func (a *Aggregator) Get(ctx context.Context, userID string) (domain.Progress, error) {
	return a.load(ctx, userID), nil
}

// load tolerates a user switch on a shared device: a record carrying another
// user's ID is reinitialized rather than inherited.
func (a *Aggregator) load(ctx context.Context, userID string) domain.Progress {
	var record domain.Progress
	found, err := a.store.Get(ctx, progressKey, &record)
	if err != nil || !found || record.UserID != userID {
		record = domain.Progress{UserID: userID}
	}
	return record
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
