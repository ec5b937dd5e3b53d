package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/opencbt/opencbt-backend/internal/config"
	"github.com/opencbt/opencbt-backend/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const violationPollTimeout = 1 * time.Second // Must be >= 1s to satisfy Redis

// violationMaxRetries bounds how often one event is retried before it moves to
// the dead-letter key. There is exactly one consumer, so an event that kept
// failing would otherwise block every attempt's violation processing.
const violationMaxRetries = 5

// ViolationWorker is the single consumer of persist_violations_queue. Running
// exactly one consumer serializes the events of every attempt, so each counter
// increment observes the previous one. Items are processed one at a time, not
// batched, because each event may cross the force-submit threshold.
type ViolationWorker struct {
	attempts *service.AttemptService
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewViolationWorker creates a new ViolationWorker.
func NewViolationWorker(attempts *service.AttemptService, rdb *redis.Client, log zerolog.Logger) *ViolationWorker {
	return &ViolationWorker{
		attempts: attempts,
		rdb:      rdb,
		log:      log.With().Str("component", "violation_worker").Logger(),
	}
}

type violationPayload struct {
	AttemptID string `json:"attempt_id"`
	Kind      string `json:"kind"`
	Timestamp int64  `json:"timestamp"`
	Payload   string `json:"payload"`
	Retries   int    `json:"retries,omitempty"`
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *ViolationWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *ViolationWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, violationPollTimeout, config.WorkerKey.PersistViolationsQueue).Result()
	if err != nil {
		if err == redis.Nil || ctx.Err() != nil {
			return
		}
		w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
		time.Sleep(3 * time.Second)
		return
	}

	if len(result) < 2 {
		return
	}

	if err := w.apply(ctx, result[1]); err != nil {
		w.requeue(ctx, result[1], err)
	}
}

// requeue puts a failed event back at the HEAD so per-attempt ordering
// survives the retry, tracking the retry count in the payload. An event out of
// retries moves to the dead-letter key instead of blocking the queue.
func (w *ViolationWorker) requeue(ctx context.Context, raw string, cause error) {
	var payload violationPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		// apply discards malformed JSON itself; anything that still fails to
		// parse here goes straight to the dead letters.
		w.rdb.RPush(ctx, config.WorkerKey.ViolationDeadLetters, raw)
		return
	}

	payload, buried := retryOrBury(payload)
	if buried {
		w.log.Error().Err(cause).
			Str("attempt_id", payload.AttemptID).
			Int("retries", payload.Retries).
			Msg("Event out of retries, moving to dead letters")
		w.rdb.RPush(ctx, config.WorkerKey.ViolationDeadLetters, raw)
		return
	}

	item, err := json.Marshal(payload)
	if err != nil {
		w.rdb.RPush(ctx, config.WorkerKey.ViolationDeadLetters, raw)
		return
	}

	w.log.Error().Err(cause).
		Str("attempt_id", payload.AttemptID).
		Int("retries", payload.Retries).
		Msg("Apply failed, requeueing at head")
	w.rdb.LPush(ctx, config.WorkerKey.PersistViolationsQueue, item)
	time.Sleep(2 * time.Second)
}

// retryOrBury increments the payload's retry count and reports whether the
// event has exhausted its retries.
func retryOrBury(p violationPayload) (violationPayload, bool) {
	p.Retries++
	return p, p.Retries > violationMaxRetries
}

// apply processes one event. A nil return also covers events that can never
// succeed (malformed JSON, bad UUID), which are logged and discarded.
func (w *ViolationWorker) apply(ctx context.Context, raw string) error {
	var payload violationPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		w.log.Error().Err(err).Str("data", raw).Msg("Discarding malformed JSON")
		return nil
	}

	attemptID, err := uuid.Parse(payload.AttemptID)
	if err != nil {
		w.log.Error().Str("attempt_id", payload.AttemptID).Msg("Dropping violation with invalid UUID")
		return nil
	}

	event, err := json.Marshal(map[string]interface{}{
		"payload":     payload.Payload,
		"occurred_at": time.Unix(payload.Timestamp, 0).UTC(),
	})
	if err != nil {
		w.log.Error().Err(err).Msg("Dropping unmarshalable event")
		return nil
	}

	return w.attempts.ApplyViolation(ctx, attemptID, payload.Kind, event)
}

// drain applies all remaining events before shutdown.
func (w *ViolationWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.PersistViolationsQueue).Result()
		if err != nil {
			break
		}
		if err := w.apply(ctx, result); err != nil {
			w.log.Error().Err(err).Msg("Drain apply error")
			w.rdb.LPush(ctx, config.WorkerKey.PersistViolationsQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining events")
	}
}
