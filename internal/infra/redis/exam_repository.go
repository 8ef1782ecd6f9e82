package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"exam-session-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ExamLoader fetches exam content from a backing store.
type ExamLoader interface {
	LoadExam(ctx context.Context, examID string) (domain.Exam, error)
}

// ExamRepository caches exam payloads in Redis and falls back to a loader on cache miss.
// Payloads are stored as JSON under exam:{examID}:payload.
type ExamRepository struct {
	client *redis.Client
	loader ExamLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewExamRepository(client *redis.Client, loader ExamLoader, ttl time.Duration) *ExamRepository {
	return &ExamRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ExamRepository) GetExam(ctx context.Context, examID string) (domain.Exam, error) {
	if exam, ok := r.cached(ctx, examID); ok {
		return exam, nil
	}

	result, err, _ := r.sf.Do(examID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if exam, ok := r.cached(ctx, examID); ok {
			return exam, nil
		}

		exam, err := r.loader.LoadExam(ctx, examID)
		if err != nil {
			return domain.Exam{}, err
		}

		if data, err := json.Marshal(exam); err == nil {
			_ = r.client.Set(ctx, examPayloadKey(examID), data, r.ttlWithJitter()).Err()
		}
		return exam, nil
	})
	if err != nil {
		return domain.Exam{}, err
	}
	return result.(domain.Exam), nil
}

func (r *ExamRepository) cached(ctx context.Context, examID string) (domain.Exam, bool) {
	data, err := r.client.Get(ctx, examPayloadKey(examID)).Bytes()
	if err != nil {
		return domain.Exam{}, false
	}
	var exam domain.Exam
	if err := json.Unmarshal(data, &exam); err != nil {
		return domain.Exam{}, false
	}
	return exam, true
}

func (r *ExamRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
