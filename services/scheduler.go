// services/scheduler.go
package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// StartClosingScheduler runs the closing tick every interval. Overlapping
// runs are skipped rather than queued. Call Shutdown on the result to stop.
func StartClosingScheduler(closer *ClosingService, interval time.Duration, clock clockwork.Clock) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			closed, err := closer.Tick(context.Background())
			if err != nil {
				log.Error().Err(err).Msg("[Scheduler] closing tick failed")
				return
			}
			if closed > 0 {
				log.Info().Int("closed", closed).Msg("[Scheduler] ✅ closed matches")
			}
		}),
		gocron.WithName("close-matches"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	sched.Start()
	return sched, nil
}
