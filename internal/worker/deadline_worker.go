package worker

import (
	"context"
	"time"

	"github.com/opencbt/opencbt-backend/internal/repository"
	"github.com/opencbt/opencbt-backend/internal/service"
	"github.com/rs/zerolog"
)

const deadlineSweepBatch = 100

// DeadlineWorker periodically sweeps for in-progress attempts whose server-side
// deadline has passed and force-submits them. The sweep is the enforcement
// mechanism for attempt expiry; client clocks only ever display time.
type DeadlineWorker struct {
	attemptRepo *repository.AttemptRepository
	attempts    *service.AttemptService
	interval    time.Duration
	log         zerolog.Logger
}

// NewDeadlineWorker creates a new DeadlineWorker.
func NewDeadlineWorker(attemptRepo *repository.AttemptRepository, attempts *service.AttemptService, interval time.Duration, log zerolog.Logger) *DeadlineWorker {
	return &DeadlineWorker{
		attemptRepo: attemptRepo,
		attempts:    attempts,
		interval:    interval,
		log:         log.With().Str("component", "deadline_worker").Logger(),
	}
}

// Start begins the sweep loop. Call in a goroutine.
func (w *DeadlineWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep force-submits one batch of overdue attempts. Attempts that fail keep
// their IN_PROGRESS status and are picked up again on the next tick.
func (w *DeadlineWorker) sweep(ctx context.Context) {
	overdue, err := w.attemptRepo.ListOverdue(ctx, deadlineSweepBatch)
	if err != nil {
		w.log.Error().Err(err).Msg("List overdue error")
		return
	}
	if len(overdue) == 0 {
		return
	}

	submitted := 0
	for _, attempt := range overdue {
		if err := w.attempts.ForceSubmit(ctx, attempt.ID); err != nil {
			w.log.Error().Err(err).
				Str("attempt_id", attempt.ID.String()).
				Msg("Force submit error")
			continue
		}
		submitted++
	}

	w.log.Info().
		Int("overdue", len(overdue)).
		Int("submitted", submitted).
		Msg("Deadline sweep complete")
}
