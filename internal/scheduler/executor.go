package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"
)

// runJob executes the named job. Errors and panics are logged and counted;
// they never reach gocron, so the next run happens on schedule.
func (s *Scheduler) runJob(name string) {
	fn, ok := s.jobs[name]
	if !ok {
		s.logger.Error("unknown job", "job", name)
		return
	}

	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	err := safeRun(ctx, fn)
	if err != nil {
		s.cfg.Metrics.JobFailed(name)
		s.logger.Error("job failed", "job", name, "duration", time.Since(start), "error", err)
		return
	}
	s.logger.Debug("job finished", "job", name, "duration", time.Since(start))
}

// safeRun calls fn and converts a panic into an error.
func safeRun(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return fn(ctx)
}

func (s *Scheduler) detect(ctx context.Context) error {
	_, err := s.cfg.Detector.RunCycle(ctx)
	return err
}

func (s *Scheduler) deliver(ctx context.Context) error {
	_, err := s.cfg.Deliverer.DeliverDue(ctx)
	return err
}

func (s *Scheduler) sweep(ctx context.Context) error {
	_, err := s.cfg.Sweeper.Sweep(ctx)
	return err
}
