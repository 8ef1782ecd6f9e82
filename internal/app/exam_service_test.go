package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"exam-session-service/internal/domain"
	"exam-session-service/internal/infra/memory"
	"exam-session-service/internal/session"
	"github.com/rs/zerolog"
)

func TestCreateSessionRejectsInvalidInput(t *testing.T) {
	svc, _ := newTestService(time.Hour, Options{})
	ctx := context.Background()

	if _, err := svc.CreateSession(ctx, nil, 60); !errors.Is(err, domain.ErrEmptyQuestionSet) {
		t.Fatalf("expected ErrEmptyQuestionSet, got %v", err)
	}
	if _, err := svc.CreateSession(ctx, sampleQuestions(), 0); !errors.Is(err, domain.ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
	dup := []domain.Question{
		{ID: "q1", Kind: domain.KindEssay},
		{ID: "q1", Kind: domain.KindEssay},
	}
	if _, err := svc.CreateSession(ctx, dup, 60); !errors.Is(err, domain.ErrInvalidQuestionSet) {
		t.Fatalf("expected ErrInvalidQuestionSet, got %v", err)
	}
}

func TestStartExamUnknown(t *testing.T) {
	svc, _ := newTestService(time.Hour, Options{})
	if _, err := svc.StartExam(context.Background(), "missing"); !errors.Is(err, domain.ErrExamNotFound) {
		t.Fatalf("expected ErrExamNotFound, got %v", err)
	}
}

func TestUnknownSession(t *testing.T) {
	svc, _ := newTestService(time.Hour, Options{})
	ctx := context.Background()

	if _, err := svc.Dispatch(ctx, "nope", domain.ManualSubmit{}); !errors.Is(err, domain.ErrUnknownSession) {
		t.Fatalf("expected ErrUnknownSession from Dispatch, got %v", err)
	}
	if _, _, err := svc.Subscribe(ctx, "nope"); !errors.Is(err, domain.ErrUnknownSession) {
		t.Fatalf("expected ErrUnknownSession from Subscribe, got %v", err)
	}
	if _, _, err := svc.Watch(ctx, "nope"); !errors.Is(err, domain.ErrUnknownSession) {
		t.Fatalf("expected ErrUnknownSession from Watch, got %v", err)
	}
	if _, err := svc.Overview(ctx, "nope"); !errors.Is(err, domain.ErrUnknownSession) {
		t.Fatalf("expected ErrUnknownSession from Overview, got %v", err)
	}
}

func TestManualSubmitHandsOffAndEvicts(t *testing.T) {
	svc, sink := newTestService(time.Hour, Options{Retention: 20 * time.Millisecond})
	ctx := context.Background()

	id, err := svc.StartExam(ctx, "exam-1")
	if err != nil {
		t.Fatalf("start exam: %v", err)
	}
	if _, err := svc.Dispatch(ctx, id, domain.SetAnswer{QuestionID: "q2", Text: "B"}); err != nil {
		t.Fatalf("set answer: %v", err)
	}
	results, cancel, err := svc.Subscribe(ctx, id)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	view, err := svc.Dispatch(ctx, id, domain.ManualSubmit{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if view.Status != domain.StatusSubmitted {
		t.Fatalf("expected submitted, got %s", view.Status)
	}

	res := awaitResult(t, results)
	if res.Reason != domain.ReasonManual || res.ExamID != "exam-1" || res.Answers["q2"] != "B" {
		t.Fatalf("unexpected result %+v", res)
	}

	select {
	case delivered := <-sink.Delivered():
		if delivered.SessionID != id {
			t.Fatalf("sink received %s, want %s", delivered.SessionID, id)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("sink never received the result")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		_, err := svc.Dispatch(ctx, id, domain.NextQuestion{})
		if errors.Is(err, domain.ErrUnknownSession) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("session was not evicted, last err %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTimeoutSubmitsWithZeroRemaining(t *testing.T) {
	svc, sink := newTestService(2*time.Millisecond, Options{})
	ctx := context.Background()

	id, err := svc.CreateSession(ctx, sampleQuestions(), 3)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	select {
	case res := <-sink.Delivered():
		if res.SessionID != id || res.Reason != domain.ReasonTimeout || res.FinalRemainingSeconds != 0 {
			t.Fatalf("unexpected result %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("session did not time out")
	}
}

func TestViolationLimitTerminates(t *testing.T) {
	svc, _ := newTestService(time.Hour, Options{ViolationLimit: 2})
	ctx := context.Background()

	id, err := svc.CreateSession(ctx, sampleQuestions(), 60)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	results, cancel, err := svc.Subscribe(ctx, id)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	signal := domain.ViolationSignal{Signal: domain.Signal{Kind: domain.SignalFocusLost, At: time.Now()}}
	view, err := svc.Dispatch(ctx, id, signal)
	if err != nil || view.Status != domain.StatusActive || view.Warning == "" {
		t.Fatalf("first violation: view %+v err %v", view, err)
	}
	view, err = svc.Dispatch(ctx, id, signal)
	if err != nil || view.Status != domain.StatusSubmitted {
		t.Fatalf("second violation: view %+v err %v", view, err)
	}

	res := awaitResult(t, results)
	if res.Reason != domain.ReasonViolationLimit || len(res.ViolationLog) != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestCloseDropsSessionWithoutResult(t *testing.T) {
	svc, sink := newTestService(time.Hour, Options{})
	ctx := context.Background()

	id, err := svc.CreateSession(ctx, sampleQuestions(), 60)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	svc.Close(ctx, id)

	if _, err := svc.Dispatch(ctx, id, domain.ManualSubmit{}); !errors.Is(err, domain.ErrUnknownSession) {
		t.Fatalf("expected ErrUnknownSession after close, got %v", err)
	}
	select {
	case res := <-sink.Delivered():
		t.Fatalf("closed session should not deliver, got %+v", res)
	case <-time.After(50 * time.Millisecond):
	}
}

func newTestService(tick time.Duration, opts Options) (*ExamService, *memory.ResultLog) {
	exams := memory.NewExamRepository(memory.NewStaticExamLoader(map[string]domain.Exam{
		"exam-1": {ID: "exam-1", DurationSeconds: 120, Questions: sampleQuestions()},
	}), time.Minute)
	sink := memory.NewResultLog(zerolog.Nop())
	opts.Clocks = session.NewTickerClockFactory(tick)
	opts.Logger = zerolog.Nop()
	return NewExamService(memory.NewSessionStore(), exams, sink, opts), sink
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: "q1", Kind: domain.KindChoice, Prompt: "Pick", Options: []string{"A", "B"}},
		{ID: "q2", Kind: domain.KindChoice, Prompt: "Pick again", Options: []string{"A", "B"}},
		{ID: "q3", Kind: domain.KindEssay, Prompt: "Explain", MaxWords: 200},
	}
}

func awaitResult(t *testing.T, ch <-chan domain.SessionResult) domain.SessionResult {
	t.Helper()
	select {
	case res, ok := <-ch:
		if !ok {
			t.Fatalf("result channel closed without a result")
		}
		return res
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for result")
	}
	return domain.SessionResult{}
}
