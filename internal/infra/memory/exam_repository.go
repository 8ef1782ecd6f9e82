package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"exam-session-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// ExamLoader fetches exam content from a backing store.
type ExamLoader interface {
	LoadExam(ctx context.Context, examID string) (domain.Exam, error)
}

// ExamRepository caches exams with TTL to avoid repeated DB hits.
type ExamRepository struct {
	loader ExamLoader
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

func NewExamRepository(loader ExamLoader, ttl time.Duration) *ExamRepository {
	return &ExamRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedExam),
	}
}

func (r *ExamRepository) GetExam(ctx context.Context, examID string) (domain.Exam, error) {
	if exam, ok := r.cached(examID); ok {
		return exam, nil
	}

	result, err, _ := r.sf.Do(examID, func() (interface{}, error) {
		if exam, ok := r.cached(examID); ok {
			return exam, nil
		}

		exam, err := r.loader.LoadExam(ctx, examID)
		if err != nil {
			return domain.Exam{}, err
		}

		expiresAt := r.clock().Add(r.ttlWithJitter())
		r.mu.Lock()
		r.cache[examID] = cachedExam{exam: exam, expiresAt: expiresAt}
		r.mu.Unlock()
		return exam, nil
	})
	if err != nil {
		return domain.Exam{}, err
	}
	return result.(domain.Exam), nil
}

func (r *ExamRepository) cached(examID string) (domain.Exam, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[examID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.Exam{}, false
	}
	return entry.exam, true
}

// StaticExamLoader is a loader backed by an in-memory map (tests, demo mode).
type StaticExamLoader struct {
	exams map[string]domain.Exam
}

func NewStaticExamLoader(exams map[string]domain.Exam) *StaticExamLoader {
	return &StaticExamLoader{exams: exams}
}

func (l *StaticExamLoader) LoadExam(_ context.Context, examID string) (domain.Exam, error) {
	if exam, ok := l.exams[examID]; ok {
		return exam, nil
	}
	return domain.Exam{}, domain.ErrExamNotFound
}

func (r *ExamRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter spreads expirations
	jitterMax := int64(r.ttl) / 10
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
