package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mael-bomane/earn-bot/internal/metrics"
	"github.com/mael-bomane/earn-bot/internal/storage"
)

// DefaultRetention is how long sent notifications are kept.
const DefaultRetention = 7 * 24 * time.Hour

// Sweeper deletes sent notifications past the retention window.
type Sweeper struct {
	store     storage.NotificationStore
	retention time.Duration
	now       func() time.Time
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewSweeper returns a Sweeper. A non-positive retention selects
// DefaultRetention.
func NewSweeper(store storage.NotificationStore, retention time.Duration, logger *slog.Logger, m *metrics.Metrics) *Sweeper {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{store: store, retention: retention, now: time.Now, logger: logger, metrics: m}
}

// Sweep purges sent notifications created at or before now minus retention
// and returns how many were removed.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().Add(-s.retention)
	n, err := s.store.PurgeSent(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweeping sent notifications: %w", err)
	}
	s.metrics.NotificationsPurged(n)
	s.logger.Info("sent notifications purged", "count", n, "cutoff", cutoff)
	return n, nil
}
