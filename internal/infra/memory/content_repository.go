package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"theory-exam-service/internal/domain"
)

// ContentLoader fetches exam and note content from a backing store (e.g.,
// Postgres).
type ContentLoader interface {
	LoadExam(ctx context.Context, examID string) (domain.Exam, error)
	LoadNote(ctx context.Context, noteID string) (domain.Note, error)
}

// ContentRepository caches exam definitions with TTL to avoid repeated DB
// hits; notes are fetched through. Repeated calls for the same exam always
// return the same question order because the cached definition is immutable.
type ContentRepository struct {
	loader ContentLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedExam
}

type cachedExam struct {
	exam      domain.Exam
	expiresAt time.Time
}

func NewContentRepository(loader ContentLoader, ttl time.Duration) *ContentRepository {
	return &ContentRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedExam),
	}
}

func (r *ContentRepository) GetExam(ctx context.Context, examID string) (domain.Exam, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[examID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.exam, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(examID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[examID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.exam, nil
		}
		r.mu.RUnlock()

		exam, err := r.loader.LoadExam(ctx, examID)
		if err != nil {
			return domain.Exam{}, err
		}

		r.mu.Lock()
		r.cache[examID] = cachedExam{
			exam:      exam,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return exam, nil
	})
	if err != nil {
		return domain.Exam{}, err
	}
	return result.(domain.Exam), nil
}

func (r *ContentRepository) GetNote(ctx context.Context, noteID string) (domain.Note, error) {
	return r.loader.LoadNote(ctx, noteID)
}

func (r *ContentRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticContentLoader is a simple loader backed by in-memory maps (useful
// for tests/demos).
type StaticContentLoader struct {
	exams map[string]domain.Exam
	notes map[string]domain.Note
}

func NewStaticContentLoader(exams map[string]domain.Exam, notes map[string]domain.Note) *StaticContentLoader {
	return &StaticContentLoader{exams: exams, notes: notes}
}

func (l *StaticContentLoader) LoadExam(_ context.Context, examID string) (domain.Exam, error) {
	if exam, ok := l.exams[examID]; ok {
		return exam, nil
	}
	return domain.Exam{}, domain.ErrExamNotFound
}

func (l *StaticContentLoader) LoadNote(_ context.Context, noteID string) (domain.Note, error) {
	if note, ok := l.notes[noteID]; ok {
		return note, nil
	}
	return domain.Note{}, domain.ErrNoteNotFound
}
