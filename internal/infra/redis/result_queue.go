package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"exam-session-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// ResultQueue hands terminal results to the grading pipeline by pushing them onto a Redis list.
type ResultQueue struct {
	client *redis.Client
	key    string
}

func NewResultQueue(client *redis.Client) *ResultQueue {
	return &ResultQueue{client: client, key: ResultsQueue}
}

func (q *ResultQueue) Deliver(ctx context.Context, result domain.SessionResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := q.client.RPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("push result: %w", err)
	}
	return nil
}
