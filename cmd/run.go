package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mael-bomane/earn-bot/internal/config"
	"github.com/mael-bomane/earn-bot/internal/detector"
	"github.com/mael-bomane/earn-bot/internal/notification"
)

// NewRunCmd returns the "run" command group. Each subcommand executes exactly
// one cycle of a pipeline component and exits.
func NewRunCmd(cfg *config.AppConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single detection, delivery or retention cycle",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "detect",
			Short: "Run one change-detection cycle",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runOnce(cfg, func(ctx context.Context, a *app) error {
					det, err := a.newDetector(ctx)
					if err != nil {
						return err
					}
					res, err := det.RunCycle(ctx)
					if err != nil {
						return fmt.Errorf("detection cycle: %w", err)
					}
					printCycleResult(cmd.OutOrStdout(), res)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "deliver",
			Short: "Deliver every due notification once",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runOnce(cfg, func(ctx context.Context, a *app) error {
					worker, err := a.newWorker(ctx)
					if err != nil {
						return err
					}
					stats, err := worker.DeliverDue(ctx)
					if err != nil {
						return fmt.Errorf("delivery run: %w", err)
					}
					printDeliveryStats(cmd.OutOrStdout(), stats)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "sweep",
			Short: "Purge sent notifications older than the retention period",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runOnce(cfg, func(ctx context.Context, a *app) error {
					n, err := a.newSweeper().Sweep(ctx)
					if err != nil {
						return fmt.Errorf("retention sweep: %w", err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "purged %d sent notification(s)\n", n)
					return nil
				})
			},
		},
	)
	return cmd
}

func runOnce(cfg *config.AppConfig, fn func(context.Context, *app) error) error {
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

	if err := fn(ctx, a); err != nil {
		a.logger.Error("run failed", "error", err)
		return err
	}
	return nil
}

func printCycleResult(w io.Writer, res detector.CycleResult) {
	fmt.Fprintf(w, "listings:  %d\n", res.Listings)
	if res.ColdStart {
		fmt.Fprintln(w, "snapshot:  cold start")
	}
	for _, t := range detector.SortedChangeTypes(res.Events) {
		fmt.Fprintf(w, "%-17s %d\n", string(t)+":", res.Events[t])
	}
	fmt.Fprintf(w, "scheduled: %d\n", res.Scheduled)
	fmt.Fprintf(w, "skipped:   %d\n", res.Skipped)
	fmt.Fprintf(w, "failed:    %d\n", res.Failed)
}

func printDeliveryStats(w io.Writer, stats notification.DeliveryStats) {
	fmt.Fprintf(w, "due:     %d\n", stats.Due)
	fmt.Fprintf(w, "sent:    %d\n", stats.Sent)
	fmt.Fprintf(w, "failed:  %d\n", stats.Failed)
	fmt.Fprintf(w, "dropped: %d\n", stats.Dropped)
	fmt.Fprintf(w, "skipped: %d\n", stats.Skipped)
}
