package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/mael-bomane/earn-bot/internal/metrics"
	"github.com/mael-bomane/earn-bot/internal/storage"
)

// DefaultSendInterval spaces consecutive gateway calls.
const DefaultSendInterval = 50 * time.Millisecond

// DeliveryStats summarizes one DeliverDue run.
type DeliveryStats struct {
	Due     int
	Sent    int
	Failed  int
	Dropped int
	Skipped int
}

// Worker delivers due notifications one at a time.
type Worker struct {
	notifications storage.NotificationStore
	subscribers   storage.SubscriberStore
	gateway       Gateway
	renderer      *Renderer
	limiter       *rate.Limiter
	now           func() time.Time
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

// WorkerConfig holds the dependencies of a Worker.
type WorkerConfig struct {
	Notifications storage.NotificationStore
	Subscribers   storage.SubscriberStore
	Gateway       Gateway
	// SendInterval is the minimum gap between two sends. Zero selects
	// DefaultSendInterval; a negative value disables the limit.
	SendInterval time.Duration
	Now          func() time.Time
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
}

// NewWorker returns a Worker.
func NewWorker(cfg WorkerConfig) *Worker {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	limit := rate.Inf
	switch {
	case cfg.SendInterval == 0:
		limit = rate.Every(DefaultSendInterval)
	case cfg.SendInterval > 0:
		limit = rate.Every(cfg.SendInterval)
	}
	return &Worker{
		notifications: cfg.Notifications,
		subscribers:   cfg.Subscribers,
		gateway:       cfg.Gateway,
		renderer:      NewRenderer(cfg.Now),
		limiter:       rate.NewLimiter(limit, 1),
		now:           cfg.Now,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
	}
}

// DeliverDue sends every unsent notification whose send time has passed,
// oldest first. Each row gets at most one delivery attempt: it is marked sent
// whether the gateway call succeeds or not.
func (w *Worker) DeliverDue(ctx context.Context) (DeliveryStats, error) {
	var stats DeliveryStats

	due, err := w.notifications.ListDueNotifications(ctx, w.now().UTC())
	if err != nil {
		return stats, fmt.Errorf("listing due notifications: %w", err)
	}
	stats.Due = len(due)
	if len(due) == 0 {
		w.logger.Debug("no due notifications")
		return stats, nil
	}
	w.logger.Info("delivering due notifications", "count", len(due))

	for _, n := range due {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		outcome, err := w.deliver(ctx, n)
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			w.logger.Error("delivery step failed", "notification_id", n.ID, "error", err)
		}
		switch outcome {
		case metrics.OutcomeSent:
			stats.Sent++
		case metrics.OutcomeFailed:
			stats.Failed++
		case metrics.OutcomeDropped:
			stats.Dropped++
		default:
			stats.Skipped++
			continue
		}
		w.metrics.Delivery(outcome)
	}

	w.logger.Info("delivery run finished",
		"sent", stats.Sent, "failed", stats.Failed,
		"dropped", stats.Dropped, "skipped", stats.Skipped)
	return stats, nil
}

// deliver handles one row and returns its outcome. An empty outcome means the
// row was left unsent for a later run.
func (w *Worker) deliver(ctx context.Context, n *storage.PendingNotification) (string, error) {
	log := w.logger.With(
		"notification_id", n.ID,
		"recipient_id", n.RecipientID,
		"listing_id", n.ListingID,
		"change_type", string(n.ChangeType),
	)

	sub, err := w.subscribers.GetSubscriber(ctx, n.RecipientID)
	if err != nil {
		return "", fmt.Errorf("looking up recipient: %w", err)
	}
	if sub == nil {
		log.Warn("recipient not found, dropping notification")
		return w.markSent(ctx, log, n, metrics.OutcomeDropped)
	}

	if !n.ChangeType.Valid() {
		log.Warn("unknown change type, leaving notification unsent")
		return "", nil
	}

	payload, err := DecodePayload(n.Payload)
	if err != nil {
		log.Error("corrupt payload, dropping notification", "error", err)
		return w.markSent(ctx, log, n, metrics.OutcomeDropped)
	}

	text, err := w.renderer.Render(n.ChangeType, payload)
	if err != nil {
		if errors.Is(err, ErrUnknownChangeType) {
			log.Warn("no template for change type, leaving notification unsent")
			return "", nil
		}
		log.Error("rendering failed, dropping notification", "error", err)
		return w.markSent(ctx, log, n, metrics.OutcomeDropped)
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for send slot: %w", err)
	}

	outcome := metrics.OutcomeSent
	if err := w.gateway.SendMessage(ctx, sub.ID, text); err != nil {
		log.Error("sending notification failed", "error", err)
		outcome = metrics.OutcomeFailed
	} else {
		log.Info("notification sent")
	}
	return w.markSent(ctx, log, n, outcome)
}

// markSent records the outcome of a row. Once the gateway has been called the
// row must be recorded even if the run is being cancelled, so the store call
// ignores cancellation.
func (w *Worker) markSent(ctx context.Context, log *slog.Logger, n *storage.PendingNotification, outcome string) (string, error) {
	if err := w.notifications.MarkSent(context.WithoutCancel(ctx), n.ID); err != nil {
		if outcome == metrics.OutcomeSent {
			log.Error("notification sent but not marked sent, it may be delivered again", "error", err)
		}
		return outcome, fmt.Errorf("marking notification sent: %w", err)
	}
	return outcome, nil
}
