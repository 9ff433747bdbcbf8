package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mael-bomane/earn-bot/internal/build"
	"github.com/mael-bomane/earn-bot/internal/config"
	"github.com/mael-bomane/earn-bot/internal/scheduler"
	"github.com/mael-bomane/earn-bot/internal/server"
)

// NewServeCmd returns the "serve" subcommand that runs the periodic jobs and
// the health and metrics endpoint until interrupted.
func NewServeCmd(cfg *config.AppConfig) *cobra.Command {
	var port int
	var warm bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run detection, delivery and retention on their schedules",
		Long: `Run the change detector, the delivery worker and the retention sweeper
on their schedules, and serve /health and /metrics until SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// CLI flags override env config.
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("warm") {
				cfg.WarmSnapshot = warm
			}

			logFile := filepath.Join(cfg.LogDir(), "system.log")
			printBanner(cmd.OutOrStdout(), build.Version, fmt.Sprintf("http://localhost:%d", cfg.Port), logFile)

			if err := runServe(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "An error occurred. Please check the logs at: %s\n", logFile)
				return err
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", cfg.Port, "HTTP server port (overrides APP_PORT env var)")
	cmd.Flags().BoolVar(&warm, "warm", cfg.WarmSnapshot,
		"Seed the snapshot at start-up without notifying (overrides WARM_SNAPSHOT env var)")

	return cmd
}

func runServe(cfg *config.AppConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			fmt.Fprintf(os.Stderr, "closing resources: %v\n", cerr)
		}
	}()

	det, err := a.newDetector(ctx)
	if err != nil {
		a.logger.Error("wiring detector failed", "error", err)
		return err
	}
	worker, err := a.newWorker(ctx)
	if err != nil {
		a.logger.Error("wiring delivery worker failed", "error", err)
		return err
	}

	if cfg.WarmSnapshot {
		if _, err := det.Warm(ctx); err != nil {
			a.logger.Error("warming snapshot failed", "error", err)
			return err
		}
	}

	schedule := cfg.Schedule()
	sched, err := scheduler.New(scheduler.Config{
		Detector:        det,
		Deliverer:       worker,
		Sweeper:         a.newSweeper(),
		DetectInterval:  schedule.DetectInterval,
		DeliverInterval: schedule.DeliverInterval,
		SweepCron:       cfg.SweepCron,
		Logger:          a.logger.With("component", "jobs"),
		Metrics:         a.metrics,
	})
	if err != nil {
		return err
	}
	if err := sched.Start(ctx); err != nil {
		a.logger.Error("starting scheduler failed", "error", err)
		return err
	}
	defer func() {
		if err := sched.Stop(); err != nil {
			a.logger.Error("stopping scheduler failed", "error", err)
		}
	}()

	a.logger.Info("pipeline scheduled",
		"notify_delay", schedule.NotifyDelay.String(),
		"detect_interval", schedule.DetectInterval.String(),
		"deliver_interval", schedule.DeliverInterval.String(),
		"sweep_cron", cfg.SweepCron,
	)

	srv := server.New(a.metrics.Handler(), cfg.Port, a.logger.With("component", "http"))
	return srv.Run(ctx)
}

// printBanner writes the startup banner. It is the only output visible in
// the terminal during normal operation; structured logs go to the log file.
func printBanner(w io.Writer, version, serverURL, logFile string) {
	fmt.Fprint(w, `
                          _           _
  ___  __ _ _ __ _ __    | |__   ___ | |_
 / _ \/ _`+"`"+` | '__| '_ \   | '_ \ / _ \| __|
|  __/ (_| | |  | | | |  | |_) | (_) | |_
 \___|\__,_|_|  |_| |_|  |_.__/ \___/ \__|

`)
	fmt.Fprintf(w, "earn-bot %s running.\n", version)
	fmt.Fprintf(w, "Health and metrics on %s\n", serverURL)
	fmt.Fprintf(w, "Logs: %s\n\n", logFile)
}
