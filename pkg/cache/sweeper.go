package cache

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/glorpus-work/spm/pkg/errors"
	"github.com/glorpus-work/spm/pkg/logger"
)

// RunSweeper sweeps every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return errors.Wrap(err, "failed to create sweep scheduler")
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			result, err := m.Sweep()
			if err != nil {
				logger.Warn("Scheduled cache sweep failed", logger.Fields{"error": err})
				return
			}
			if result.Removed > 0 {
				logger.Info("Scheduled cache sweep", logger.Fields{"removed": result.Removed})
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return errors.Wrap(err, "failed to schedule cache sweep")
	}

	scheduler.Start()
	<-ctx.Done()
	return scheduler.Shutdown()
}
