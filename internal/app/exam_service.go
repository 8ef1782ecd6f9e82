package app

import (
	"context"
	"time"

	"exam-session-service/internal/domain"
	"exam-session-service/internal/session"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SessionRepository abstracts where live session controllers are kept (in-memory, Redis-marked, etc).
type SessionRepository interface {
	Put(c *session.Controller)
	Get(sessionID string) (*session.Controller, bool)
	Delete(sessionID string)
}

// ExamRepository loads exam content (from cache/backing store).
type ExamRepository interface {
	GetExam(ctx context.Context, examID string) (domain.Exam, error)
}

// ResultSink receives terminal results for grading and storage.
type ResultSink interface {
	Deliver(ctx context.Context, result domain.SessionResult) error
}

// Options tunes session construction.
type Options struct {
	Clocks         session.ClockFactory
	ViolationLimit int
	// Retention is how long a submitted session stays addressable before eviction.
	Retention      time.Duration
	DeliverTimeout time.Duration
	Logger         zerolog.Logger
}

// ExamService contains the exam session use cases.
type ExamService struct {
	sessions SessionRepository
	exams    ExamRepository
	sink     ResultSink
	opts     Options
	log      zerolog.Logger
}

func NewExamService(store SessionRepository, exams ExamRepository, sink ResultSink, opts Options) *ExamService {
	if opts.Clocks == nil {
		opts.Clocks = session.NewTickerClockFactory(time.Second)
	}
	if opts.Retention <= 0 {
		opts.Retention = 5 * time.Minute
	}
	if opts.DeliverTimeout <= 0 {
		opts.DeliverTimeout = 10 * time.Second
	}
	return &ExamService{
		sessions: store,
		exams:    exams,
		sink:     sink,
		opts:     opts,
		log:      opts.Logger.With().Str("component", "exam_service").Logger(),
	}
}

// CreateSession starts a session over the given questions and returns its id.
func (s *ExamService) CreateSession(ctx context.Context, questions []domain.Question, durationSeconds int) (string, error) {
	return s.create(ctx, "", questions, durationSeconds)
}

// StartExam loads an exam and starts a session for it.
func (s *ExamService) StartExam(ctx context.Context, examID string) (string, error) {
	exam, err := s.exams.GetExam(ctx, examID)
	if err != nil {
		return "", err
	}
	return s.create(ctx, exam.ID, exam.Questions, exam.DurationSeconds)
}

func (s *ExamService) create(_ context.Context, examID string, questions []domain.Question, durationSeconds int) (string, error) {
	ctrl, err := session.New(session.Config{
		ID:              uuid.NewString(),
		ExamID:          examID,
		Questions:       questions,
		DurationSeconds: durationSeconds,
		Clock:           s.opts.Clocks(),
		Policy:          session.PolicyFromLimit(s.opts.ViolationLimit),
		Logger:          s.opts.Logger,
	})
	if err != nil {
		return "", err
	}
	s.sessions.Put(ctrl)

	results, _ := ctrl.Subscribe()
	go s.handoff(ctrl, results)
	return ctrl.ID(), nil
}

// handoff forwards the terminal result to the sink and evicts the session after retention.
func (s *ExamService) handoff(ctrl *session.Controller, results <-chan domain.SessionResult) {
	result, ok := <-results
	if ok && s.sink != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.DeliverTimeout)
		if err := s.sink.Deliver(ctx, result); err != nil {
			s.log.Error().Err(err).Str("session_id", result.SessionID).Msg("result delivery failed")
		}
		cancel()
	}

	timer := time.NewTimer(s.opts.Retention)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctrl.Done():
	}
	s.sessions.Delete(ctrl.ID())
	ctrl.Close()
}

// Dispatch delivers an event to a session and returns the updated view.
func (s *ExamService) Dispatch(ctx context.Context, sessionID string, event domain.Event) (domain.View, error) {
	ctrl, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.View{}, domain.ErrUnknownSession
	}
	return ctrl.Dispatch(ctx, event)
}

// Subscribe returns a channel that receives the session's terminal result once.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *ExamService) Subscribe(_ context.Context, sessionID string) (<-chan domain.SessionResult, func(), error) {
	ctrl, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrUnknownSession
	}
	ch, cancel := ctrl.Subscribe()
	return ch, cancel, nil
}

// Watch streams view updates (ticks, navigation, status) for a session.
func (s *ExamService) Watch(_ context.Context, sessionID string) (<-chan domain.View, func(), error) {
	ctrl, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrUnknownSession
	}
	ch, cancel := ctrl.Watch()
	return ch, cancel, nil
}

// Overview returns the navigator grid for a session.
func (s *ExamService) Overview(ctx context.Context, sessionID string) (domain.Overview, error) {
	ctrl, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.Overview{}, domain.ErrUnknownSession
	}
	return ctrl.Overview(ctx)
}

// Questions returns the ordered question list of a session.
func (s *ExamService) Questions(_ context.Context, sessionID string) ([]domain.Question, error) {
	ctrl, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrUnknownSession
	}
	return ctrl.Questions(), nil
}

// Close ends a session without submitting it, e.g. on shutdown.
func (s *ExamService) Close(_ context.Context, sessionID string) {
	ctrl, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	s.sessions.Delete(sessionID)
	ctrl.Close()
}
