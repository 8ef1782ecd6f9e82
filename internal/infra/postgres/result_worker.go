package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"exam-session-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	// PollTimeout must be >= 1s to satisfy Redis.
	PollTimeout  = time.Second
	retryBackoff = 2 * time.Second
)

// ResultSaver is satisfied by ResultStore.
type ResultSaver interface {
	SaveResult(ctx context.Context, res domain.SessionResult) error
}

// ResultWorker drains the results queue into Postgres.
type ResultWorker struct {
	rdb   *redis.Client
	store ResultSaver
	queue   string
	backoff time.Duration
	log     zerolog.Logger
}

func NewResultWorker(rdb *redis.Client, store ResultSaver, queue string, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		rdb:     rdb,
		store:   store,
		queue:   queue,
		backoff: retryBackoff,
		log:     log.With().Str("component", "result_worker").Logger(),
	}
}

// Start runs until ctx is cancelled. Call in a goroutine.
func (w *ResultWorker) Start(ctx context.Context) error {
	w.log.Info().Str("queue", w.queue).Msg("worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("worker stopped")
			return nil
		default:
		}

		raw, err := w.rdb.BLPop(ctx, PollTimeout, w.queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			w.log.Error().Err(err).Msg("redis error, backing off")
			w.sleep(ctx, w.backoff)
			continue
		}
		if len(raw) < 2 {
			continue
		}
		w.process(ctx, raw[1])
	}
}

func (w *ResultWorker) process(ctx context.Context, item string) {
	var res domain.SessionResult
	if err := json.Unmarshal([]byte(item), &res); err != nil {
		// malformed payloads cannot be retried
		w.log.Error().Err(err).Str("data", item).Msg("discarding malformed result")
		return
	}

	if err := w.store.SaveResult(ctx, res); err != nil {
		w.log.Error().Err(err).Str("session_id", res.SessionID).Msg("persist failed, requeueing")
		requeueCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.rdb.RPush(requeueCtx, w.queue, item).Err(); err != nil {
			w.log.Error().Err(err).Str("session_id", res.SessionID).Msg("requeue failed, result lost")
		}
		w.sleep(ctx, w.backoff)
		return
	}
	w.log.Info().Str("session_id", res.SessionID).Str("reason", string(res.Reason)).Msg("result persisted")
}

func (w *ResultWorker) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
