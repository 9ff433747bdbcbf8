package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mael-bomane/earn-bot/internal/config"
)

// NewRootCmd returns the earn-bot root command with every subcommand attached.
func NewRootCmd(cfg *config.AppConfig) *cobra.Command {
	root := &cobra.Command{
		Use:   "earn-bot",
		Short: "Listing change notifications for marketplace subscribers",
		Long: `earn-bot watches the marketplace for new and changed listings and
notifies matching Telegram subscribers after a fixed delay.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		NewServeCmd(cfg),
		NewRunCmd(cfg),
		NewSubscriberCmd(cfg),
		NewVersionCmd(),
	)
	return root
}

// Execute loads the configuration and runs the root command.
func Execute() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := NewRootCmd(cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
