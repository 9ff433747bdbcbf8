package detector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mael-bomane/earn-bot/internal/listing"
	"github.com/mael-bomane/earn-bot/internal/matching"
	"github.com/mael-bomane/earn-bot/internal/metrics"
	"github.com/mael-bomane/earn-bot/internal/notification"
	"github.com/mael-bomane/earn-bot/internal/snapshot"
	"github.com/mael-bomane/earn-bot/internal/storage"
)

// Scheduler persists one notification for a recipient. It is implemented by
// notification.Scheduler.
type Scheduler interface {
	Schedule(
		ctx context.Context,
		recipientID int64,
		listingID string,
		payload notification.Payload,
		change storage.ChangeType,
		listingType listing.Type,
	) (*storage.PendingNotification, bool, error)
}

// CycleResult summarizes one detection cycle.
type CycleResult struct {
	Listings  int
	ColdStart bool
	Events    map[storage.ChangeType]int
	Scheduled int
	Skipped   int
	Failed    int
}

// Detector runs detection cycles.
type Detector struct {
	repo      listing.Repository
	snapshot  snapshot.Store
	resolver  *matching.Resolver
	scheduler Scheduler
	now       func() time.Time
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Config holds the dependencies of a Detector.
type Config struct {
	Repository listing.Repository
	Snapshot   snapshot.Store
	Resolver   *matching.Resolver
	Scheduler  Scheduler
	Now        func() time.Time
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

// New returns a Detector.
func New(cfg Config) *Detector {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Detector{
		repo:      cfg.Repository,
		snapshot:  cfg.Snapshot,
		resolver:  cfg.Resolver,
		scheduler: cfg.Scheduler,
		now:       cfg.Now,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}
}

// RunCycle fetches the eligible listings, diffs them against the snapshot,
// schedules notifications for matching subscribers and finally replaces the
// snapshot. Any failure before scheduling aborts the cycle and leaves the
// snapshot untouched.
func (d *Detector) RunCycle(ctx context.Context) (CycleResult, error) {
	var res CycleResult

	current, err := d.repo.ListEligible(ctx)
	if err != nil {
		return res, fmt.Errorf("fetching eligible listings: %w", err)
	}
	res.Listings = len(current)

	prev, ok, err := d.snapshot.Get(ctx)
	if err != nil {
		return res, fmt.Errorf("reading snapshot: %w", err)
	}
	if !ok {
		res.ColdStart = true
		d.logger.Warn("no snapshot found, every eligible listing is treated as new", "listings", len(current))
	}

	events := Diff(prev, current)
	res.Events = CountByType(events)

	if len(events) > 0 {
		candidates, err := d.resolver.Candidates(ctx)
		if err != nil {
			return res, err
		}
		for _, e := range events {
			d.metrics.ChangeDetected(string(e.Type))
			d.dispatch(ctx, e, candidates, &res)
		}
	}

	if err := d.snapshot.Replace(ctx, current); err != nil {
		return res, fmt.Errorf("replacing snapshot: %w", err)
	}
	d.metrics.CycleCompleted(d.now())

	attrs := []any{
		"listings", res.Listings, "cold_start", res.ColdStart,
		"scheduled", res.Scheduled, "skipped", res.Skipped, "failed", res.Failed,
	}
	for _, t := range SortedChangeTypes(res.Events) {
		attrs = append(attrs, string(t), res.Events[t])
	}
	d.logger.Info("detection cycle finished", attrs...)
	return res, nil
}

// dispatch schedules e for every matching candidate. Failures are logged per
// recipient and do not stop the remaining recipients.
func (d *Detector) dispatch(ctx context.Context, e Event, candidates []*storage.Subscriber, res *CycleResult) {
	recipients := matching.Match(e.Listing, candidates)
	d.logger.Debug("change detected",
		"listing_id", e.Listing.ID,
		"change_type", string(e.Type),
		"recipients", len(recipients))

	payload := notification.Payload{
		Listing:     e.Listing,
		OldRegion:   e.OldRegion,
		OldDeadline: e.OldDeadline,
	}
	for _, sub := range recipients {
		_, created, err := d.scheduler.Schedule(ctx, sub.ID, e.Listing.ID, payload, e.Type, e.Listing.Type)
		switch {
		case err != nil:
			res.Failed++
			d.logger.Error("scheduling notification failed",
				"listing_id", e.Listing.ID,
				"recipient_id", sub.ID,
				"change_type", string(e.Type),
				"error", err)
		case created:
			res.Scheduled++
		default:
			res.Skipped++
		}
	}
}

// Warm seeds the snapshot with the current listings without producing any
// events. It returns the number of listings stored.
func (d *Detector) Warm(ctx context.Context) (int, error) {
	current, err := d.repo.ListEligible(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetching eligible listings: %w", err)
	}
	if err := d.snapshot.Replace(ctx, current); err != nil {
		return 0, fmt.Errorf("replacing snapshot: %w", err)
	}
	d.logger.Info("snapshot warmed", "listings", len(current))
	return len(current), nil
}
