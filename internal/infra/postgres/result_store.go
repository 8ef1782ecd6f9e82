package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"exam-session-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ResultStore persists terminal session results for the grading side.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

// SaveResult inserts the result once; replays of the same session are ignored.
func (s *ResultStore) SaveResult(ctx context.Context, res domain.SessionResult) error {
	answers, err := json.Marshal(res.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	flagged, err := json.Marshal(res.Flagged)
	if err != nil {
		return fmt.Errorf("marshal flagged: %w", err)
	}
	violations, err := json.Marshal(res.ViolationLog)
	if err != nil {
		return fmt.Errorf("marshal violations: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO session_results
			(session_id, exam_id, termination_reason, answers, flagged, violation_log, final_remaining_seconds, submitted_at)
		 VALUES ($1, NULLIF($2, ''), $3, $4::jsonb, $5::jsonb, $6::jsonb, $7, $8)
		 ON CONFLICT (session_id) DO NOTHING`,
		res.SessionID, res.ExamID, string(res.Reason), string(answers), string(flagged), string(violations),
		res.FinalRemainingSeconds, res.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}
