// Package scheduler drives the three periodic jobs of the notification
// pipeline with gocron: change detection, delivery and the retention sweep.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/mael-bomane/earn-bot/internal/detector"
	"github.com/mael-bomane/earn-bot/internal/metrics"
	"github.com/mael-bomane/earn-bot/internal/notification"
)

// Job names, also used as log and metric labels.
const (
	JobDetect  = "detect"
	JobDeliver = "deliver"
	JobSweep   = "sweep"
)

// Detector runs one change detection cycle.
type Detector interface {
	RunCycle(ctx context.Context) (detector.CycleResult, error)
}

// Deliverer sends every due notification.
type Deliverer interface {
	DeliverDue(ctx context.Context) (notification.DeliveryStats, error)
}

// Sweeper purges expired sent notifications.
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// Config holds the scheduler configuration.
type Config struct {
	Detector        Detector
	Deliverer       Deliverer
	Sweeper         Sweeper
	DetectInterval  time.Duration
	DeliverInterval time.Duration
	// SweepCron is a five-field crontab expression evaluated in UTC.
	SweepCron string
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

// Scheduler manages the periodic jobs using gocron.
type Scheduler struct {
	cron   gocron.Scheduler
	cfg    Config
	logger *slog.Logger

	mu   sync.Mutex
	ctx  context.Context
	jobs map[string]func(context.Context) error
}

// New creates a new Scheduler. Jobs are registered by Start.
func New(cfg Config) (*Scheduler, error) {
	if cfg.DetectInterval <= 0 || cfg.DeliverInterval <= 0 {
		return nil, fmt.Errorf("job intervals must be positive (detect %s, deliver %s)",
			cfg.DetectInterval, cfg.DeliverInterval)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	cron, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("creating gocron scheduler: %w", err)
	}

	s := &Scheduler{
		cron:   cron,
		cfg:    cfg,
		logger: cfg.Logger,
		ctx:    context.Background(),
	}
	s.jobs = map[string]func(context.Context) error{
		JobDetect:  s.detect,
		JobDeliver: s.deliver,
		JobSweep:   s.sweep,
	}
	return s, nil
}

// Start registers the three jobs and starts the gocron scheduler. Detection
// and delivery run once immediately. Job runs use ctx, so cancelling it
// interrupts in-flight work.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	defs := []struct {
		name string
		def  gocron.JobDefinition
		opts []gocron.JobOption
	}{
		{JobDetect, gocron.DurationJob(s.cfg.DetectInterval), []gocron.JobOption{gocron.WithStartAt(gocron.WithStartImmediately())}},
		{JobDeliver, gocron.DurationJob(s.cfg.DeliverInterval), []gocron.JobOption{gocron.WithStartAt(gocron.WithStartImmediately())}},
		{JobSweep, gocron.CronJob(s.cfg.SweepCron, false), nil},
	}

	for _, d := range defs {
		name := d.name
		opts := append([]gocron.JobOption{
			gocron.WithName(name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		}, d.opts...)
		if _, err := s.cron.NewJob(d.def, gocron.NewTask(func() { s.runJob(name) }), opts...); err != nil {
			return fmt.Errorf("scheduling %s job: %w", name, err)
		}
	}

	s.cron.Start()
	s.logger.Info("job scheduler started",
		"detect_interval", s.cfg.DetectInterval,
		"deliver_interval", s.cfg.DeliverInterval,
		"sweep_cron", s.cfg.SweepCron)
	return nil
}

// Stop shuts down the gocron scheduler and waits for running jobs.
func (s *Scheduler) Stop() error {
	return s.cron.Shutdown()
}

// JobNames returns the names of the registered gocron jobs.
func (s *Scheduler) JobNames() []string {
	jobs := s.cron.Jobs()
	out := make([]string, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Name())
	}
	return out
}
