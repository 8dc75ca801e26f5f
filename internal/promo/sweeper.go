package promo

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/justclothing/pricing-api/internal/lock"
	"github.com/justclothing/pricing-api/internal/obs"
)

// TaskSweepStatuses is the asynq task type for the lifecycle sweep.
const TaskSweepStatuses = "promo:sweep_statuses"

const sweepLockKey = "pricing:promo:sweep"

// SweepEnqueuer schedules a lifecycle sweep ahead of its periodic run.
type SweepEnqueuer interface {
	EnqueueSweep(ctx context.Context) error
}

// TaskQueue enqueues promotion tasks over asynq.
type TaskQueue struct {
	Client *asynq.Client
}

func (q TaskQueue) EnqueueSweep(ctx context.Context) error {
	_, err := q.Client.EnqueueContext(ctx, asynq.NewTask(TaskSweepStatuses, nil), asynq.MaxRetry(3))
	return err
}

// Lifecycle is the storage contract for status transitions.
type Lifecycle interface {
	ExpirePromotions(ctx context.Context) (int64, error)
	CompletePromotions(ctx context.Context) (int64, error)
}

// Sweeper moves promotions out of active status once their window closes or
// their quota is spent. The sweep runs under a distributed lock so multiple
// worker replicas never double-count transitions.
type Sweeper struct {
	Store   Lifecycle
	Locker  lock.Locker
	LockTTL time.Duration
	Logger  zerolog.Logger
}

// HandleSweep processes a sweep task.
func (s Sweeper) HandleSweep(ctx context.Context, _ *asynq.Task) error {
	return s.Locker.WithLock(ctx, sweepLockKey, s.LockTTL, func(ctx context.Context) error {
		expired, err := s.Store.ExpirePromotions(ctx)
		if err != nil {
			return err
		}
		completed, err := s.Store.CompletePromotions(ctx)
		if err != nil {
			return err
		}
		if obs.PromoSweepTransitions != nil {
			obs.PromoSweepTransitions.WithLabelValues(string(StatusExpired)).Add(float64(expired))
			obs.PromoSweepTransitions.WithLabelValues(string(StatusCompleted)).Add(float64(completed))
		}
		if expired > 0 || completed > 0 {
			s.Logger.Info().
				Int64("expired", expired).
				Int64("completed", completed).
				Msg("promotion status sweep applied transitions")
		}
		return nil
	})
}
