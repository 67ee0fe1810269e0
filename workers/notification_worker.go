package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"pickup-match-system/services"
)

const notificationBatchSize = 100

// NotificationWorker promotes due notifications and delivers them.
type NotificationWorker struct {
	svc      *services.NotificationService
	sender   Sender
	interval time.Duration
}

func NewNotificationWorker(svc *services.NotificationService, sender Sender, interval time.Duration) *NotificationWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &NotificationWorker{svc: svc, sender: sender, interval: interval}
}

// Start runs the loop in its own goroutine until ctx is cancelled.
func (w *NotificationWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *NotificationWorker) run(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("[NOTIFY] 🔄 Starting notification worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("[NOTIFY] 🛑 Notification worker stopped")
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				log.Error().Err(err).Msg("[NOTIFY] ❌ cycle failed")
			}
		}
	}
}

// RunOnce dispatches pending notifications and delivers every ready one.
// Returns how many were delivered.
func (w *NotificationWorker) RunOnce(ctx context.Context) (int, error) {
	promoted, err := w.svc.DispatchPending(ctx, notificationBatchSize)
	if err != nil {
		return 0, err
	}
	if promoted > 0 {
		log.Debug().Int("count", promoted).Msg("[NOTIFY] notifications ready")
	}

	ready, err := w.svc.ListReady(ctx, notificationBatchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range ready {
		n := &ready[i]
		if err := w.sender.Send(ctx, *n); err != nil {
			log.Warn().Err(err).Str("notification_id", n.ID).Int("attempt", n.Attempts+1).Msg("[NOTIFY] delivery failed")
			if err := w.svc.MarkFailed(ctx, n, err); err != nil {
				return sent, err
			}
			continue
		}
		if err := w.svc.MarkSent(ctx, n.ID); err != nil {
			return sent, err
		}
		sent++
	}
	if sent > 0 {
		log.Info().Int("count", sent).Msg("[NOTIFY] ✅ notifications delivered")
	}
	return sent, nil
}
