package session

import (
	"fmt"
	"math"

	"exam-session-service/internal/domain"
)

// LowTimeThreshold is when the remaining time is highlighted to the candidate.
const LowTimeThreshold = 600

// Clamp bounds index to [0, n-1]. It returns 0 for an empty list.
func Clamp(index, n int) int {
	if n <= 0 || index < 0 {
		return 0
	}
	if index > n-1 {
		return n - 1
	}
	return index
}

func Next(current, n int) int { return Clamp(current+1, n) }

func Prev(current, n int) int { return Clamp(current-1, n) }

// Progress is the percentage shown as "Question i of n".
func Progress(current, n int) float64 {
	if n <= 0 {
		return 0
	}
	pct := float64(Clamp(current, n)+1) / float64(n) * 100
	return math.Round(pct*100) / 100
}

func LowTime(remainingSeconds int) bool {
	return remainingSeconds < LowTimeThreshold
}

// FormatRemaining renders seconds as HH:MM:SS.
func FormatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

// BuildOverview assembles the navigator grid from the question list and ledger state.
func BuildOverview(questions []domain.Question, ledger *Ledger, current, remaining int) domain.Overview {
	cells := make([]domain.QuestionStatus, len(questions))
	for i, q := range questions {
		cells[i] = domain.QuestionStatus{
			Index:    i,
			ID:       q.ID,
			Kind:     q.Kind,
			Answered: ledger.Answered(q.ID),
			Flagged:  ledger.IsFlagged(q.ID),
			Current:  i == current,
		}
	}
	return domain.Overview{
		Questions: cells,
		Progress:  Progress(current, len(questions)),
		Remaining: FormatRemaining(remaining),
		LowTime:   LowTime(remaining),
	}
}
