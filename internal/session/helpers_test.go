package session

import (
	"sync"
	"testing"
	"time"

	"exam-session-service/internal/domain"
	"github.com/rs/zerolog"
)

// manualClock delivers ticks only when the test asks for them.
type manualClock struct {
	ticks chan domain.Tick

	mu        sync.Mutex
	started   int
	stopCalls int
}

func newManualClock() *manualClock {
	return &manualClock{ticks: make(chan domain.Tick)}
}

func (m *manualClock) Start(durationSeconds int) {
	m.mu.Lock()
	m.started = durationSeconds
	m.mu.Unlock()
}

func (m *manualClock) Ticks() <-chan domain.Tick { return m.ticks }

func (m *manualClock) Stop() {
	m.mu.Lock()
	m.stopCalls++
	m.mu.Unlock()
}

func (m *manualClock) stops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopCalls
}

// tick reports whether the controller consumed the tick.
func (m *manualClock) tick(remaining int) bool {
	select {
	case m.ticks <- domain.Tick{Remaining: remaining, Expired: remaining == 0}:
		return true
	case <-time.After(100 * time.Millisecond):
		return false
	}
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: "q1", Kind: domain.KindChoice, Prompt: "Time complexity of search in a balanced BST?", Options: []string{"O(1)", "O(log n)", "O(n)", "O(n log n)"}},
		{ID: "q2", Kind: domain.KindChoice, Prompt: "Which structure is LIFO?", Options: []string{"Queue", "Stack", "Array", "Linked List"}},
		{ID: "q3", Kind: domain.KindEssay, Prompt: "Compare DFS and BFS.", MaxWords: 200},
		{ID: "q4", Kind: domain.KindCode, Prompt: "Reverse a linked list.", Language: "javascript"},
	}
}

func newTestController(t *testing.T, duration int, policy Policy) (*Controller, *manualClock) {
	t.Helper()
	clock := newManualClock()
	c, err := New(Config{
		ID:              "s1",
		ExamID:          "exam-1",
		Questions:       sampleQuestions(),
		DurationSeconds: duration,
		Clock:           clock,
		Policy:          policy,
		Logger:          zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	t.Cleanup(c.Close)
	return c, clock
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
		t.Fatalf("timed out waiting for session result")
	}
	return domain.SessionResult{}
}
