package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"theory-exam-service/internal/domain"
)

// ContentLoader fetches exam and note content from a backing store (e.g.,
// Postgres).
type ContentLoader interface {
	LoadExam(ctx context.Context, examID string) (domain.Exam, error)
	LoadNote(ctx context.Context, noteID string) (domain.Note, error)
}

// ContentRepository caches whole exam definitions in Redis and falls back to
// a loader on cache miss. The full definition (option text, explanations,
// answer key) is cached because the session engine needs all of it, stored
// as: SET exam:{examID}:def {json}
type ContentRepository struct {
	client *redis.Client
	loader ContentLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewContentRepository(client *redis.Client, loader ContentLoader, ttl time.Duration) *ContentRepository {
	return &ContentRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ContentRepository) GetExam(ctx context.Context, examID string) (domain.Exam, error) {
	key := r.examKey(examID)

	if exam, ok := r.cachedExam(ctx, key); ok {
		return exam, nil
	}

	result, err, _ := r.sf.Do(examID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if exam, ok := r.cachedExam(ctx, key); ok {
			return exam, nil
		}

		exam, err := r.loader.LoadExam(ctx, examID)
		if err != nil {
			return domain.Exam{}, err
		}

		if raw, err := json.Marshal(exam); err == nil {
			_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		}
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

func (r *ContentRepository) cachedExam(ctx context.Context, key string) (domain.Exam, bool) {
	raw, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// Treat a flaky cache as a miss; the loader is the source of truth.
			return domain.Exam{}, false
		}
		return domain.Exam{}, false
	}
	var exam domain.Exam
	if err := json.Unmarshal([]byte(raw), &exam); err != nil {
		return domain.Exam{}, false
	}
	return exam, true
}

func (r *ContentRepository) examKey(examID string) string {
	return "exam:" + examID + ":def"
}

func (r *ContentRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
