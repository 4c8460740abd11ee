// services/scheduler.go
package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// StartPayoutScheduler runs DispatchPending every interval. Callers shut the
// returned scheduler down on exit.
func (s *PayoutService) StartPayoutScheduler(ctx context.Context, interval time.Duration, batchSize int) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			res, err := s.DispatchPending(ctx, batchSize)
			if err != nil {
				s.log.Error("[Scheduler] payout dispatch failed", zap.Error(err))
				return
			}
			if res.Sent > 0 || res.Failed > 0 {
				s.log.Info("[Scheduler] payout dispatch finished",
					zap.Int("sent", res.Sent), zap.Int("failed", res.Failed))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	sched.Start()
	return sched, nil
}
