package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mael-bomane/earn-bot/internal/listing"
	"github.com/mael-bomane/earn-bot/internal/metrics"
	"github.com/mael-bomane/earn-bot/internal/storage"
)

// Scheduler persists delayed, deduplicated notifications.
type Scheduler struct {
	store   storage.NotificationStore
	delay   time.Duration
	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// SchedulerConfig holds the dependencies of a Scheduler.
type SchedulerConfig struct {
	Store   storage.NotificationStore
	Delay   time.Duration
	Now     func() time.Time
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// NewScheduler returns a Scheduler. Now defaults to time.Now and Logger to
// slog.Default.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Scheduler{
		store:   cfg.Store,
		delay:   cfg.Delay,
		now:     cfg.Now,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
}

// Schedule creates a pending notification for the triple unless one already
// exists in any sent state. The bool reports whether a row was created; when
// it is false the returned notification is the existing row, or nil if the
// insert lost a race against another scheduler.
func (s *Scheduler) Schedule(
	ctx context.Context,
	recipientID int64,
	listingID string,
	payload Payload,
	change storage.ChangeType,
	listingType listing.Type,
) (*storage.PendingNotification, bool, error) {
	log := s.logger.With(
		"recipient_id", recipientID,
		"listing_id", listingID,
		"change_type", string(change),
	)

	existing, err := s.store.FindNotification(ctx, recipientID, listingID, change)
	if err != nil {
		return nil, false, fmt.Errorf("checking existing notification: %w", err)
	}
	if existing != nil {
		reason := metrics.SkipPending
		if existing.Sent {
			reason = metrics.SkipSent
		}
		log.Debug("notification already scheduled, skipping", "state", reason, "notification_id", existing.ID)
		s.metrics.NotificationSkipped(reason)
		return existing, false, nil
	}

	raw, err := payload.Encode()
	if err != nil {
		return nil, false, err
	}

	now := s.now().UTC()
	n := &storage.PendingNotification{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		ListingID:   listingID,
		ChangeType:  change,
		ListingType: listingType,
		Payload:     raw,
		SendAt:      now.Add(s.delay),
		CreatedAt:   now,
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		if errors.Is(err, storage.ErrDuplicateNotification) {
			log.Debug("notification scheduled concurrently, skipping")
			s.metrics.NotificationSkipped(metrics.SkipDuplicate)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("creating notification: %w", err)
	}

	log.Info("notification scheduled", "notification_id", n.ID, "send_at", n.SendAt)
	s.metrics.NotificationScheduled(string(change))
	return n, true, nil
}
