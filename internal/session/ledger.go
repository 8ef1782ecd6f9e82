package session

import (
	"exam-session-service/internal/domain"
)

// Ledger holds the candidate's answers and review flags.
// It is owned by a single controller goroutine and is not safe for concurrent use.
type Ledger struct {
	order   []string
	known   map[string]struct{}
	answers map[string]string
	flagged map[string]struct{}
}

func NewLedger(questions []domain.Question) *Ledger {
	l := &Ledger{
		order:   make([]string, 0, len(questions)),
		known:   make(map[string]struct{}, len(questions)),
		answers: make(map[string]string),
		flagged: make(map[string]struct{}),
	}
	for _, q := range questions {
		l.order = append(l.order, q.ID)
		l.known[q.ID] = struct{}{}
	}
	return l
}

// SetAnswer overwrites the answer for questionID. Length limits are not enforced.
func (l *Ledger) SetAnswer(questionID, text string) error {
	if _, ok := l.known[questionID]; !ok {
		return domain.ErrInvalidQuestion
	}
	l.answers[questionID] = text
	return nil
}

// ToggleFlag flips the review flag and reports the new state.
func (l *Ledger) ToggleFlag(questionID string) (bool, error) {
	if _, ok := l.known[questionID]; !ok {
		return false, domain.ErrInvalidQuestion
	}
	if _, ok := l.flagged[questionID]; ok {
		delete(l.flagged, questionID)
		return false, nil
	}
	l.flagged[questionID] = struct{}{}
	return true, nil
}

func (l *Ledger) Answered(questionID string) bool {
	_, ok := l.answers[questionID]
	return ok
}

func (l *Ledger) IsFlagged(questionID string) bool {
	_, ok := l.flagged[questionID]
	return ok
}

// Snapshot returns copies of the answers and the flagged ids in question order.
func (l *Ledger) Snapshot() (map[string]string, []string) {
	answers := make(map[string]string, len(l.answers))
	for id, text := range l.answers {
		answers[id] = text
	}
	flagged := make([]string, 0, len(l.flagged))
	for _, id := range l.order {
		if _, ok := l.flagged[id]; ok {
			flagged = append(flagged, id)
		}
	}
	return answers, flagged
}
