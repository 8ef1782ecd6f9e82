package memory

import (
	"context"
	"sync"

	"exam-session-service/internal/domain"
	"github.com/rs/zerolog"
)

// ResultLog is an in-process ResultSink used when no queue is configured.
type ResultLog struct {
	log zerolog.Logger

	mu      sync.RWMutex
	results map[string]domain.SessionResult
	notify  chan domain.SessionResult
}

func NewResultLog(log zerolog.Logger) *ResultLog {
	return &ResultLog{
		log:     log.With().Str("component", "result_log").Logger(),
		results: make(map[string]domain.SessionResult),
		notify:  make(chan domain.SessionResult, 64),
	}
}

func (l *ResultLog) Deliver(_ context.Context, result domain.SessionResult) error {
	l.mu.Lock()
	l.results[result.SessionID] = result
	l.mu.Unlock()

	select {
	case l.notify <- result:
	default:
	}
	l.log.Info().
		Str("session_id", result.SessionID).
		Str("reason", string(result.Reason)).
		Int("answers", len(result.Answers)).
		Msg("result stored")
	return nil
}

func (l *ResultLog) Get(sessionID string) (domain.SessionResult, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	res, ok := l.results[sessionID]
	return res, ok
}

// Delivered streams results as they arrive. Results are dropped when nobody reads.
func (l *ResultLog) Delivered() <-chan domain.SessionResult {
	return l.notify
}
