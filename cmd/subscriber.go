package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mael-bomane/earn-bot/internal/config"
	"github.com/mael-bomane/earn-bot/internal/listing"
	"github.com/mael-bomane/earn-bot/internal/storage"
)

// NewSubscriberCmd returns the "subscriber" command group used to administer
// the subscriber store from the shell.
func NewSubscriberCmd(cfg *config.AppConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subscriber",
		Aliases: []string{"sub"},
		Short:   "Administer subscribers and their notification settings",
	}
	cmd.AddCommand(
		newSubscriberUpsertCmd(cfg),
		newSubscriberSetCmd(cfg),
		newSubscriberShowCmd(cfg),
		newSubscriberDeleteCmd(cfg),
	)
	return cmd
}

func newSubscriberUpsertCmd(cfg *config.AppConfig) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "upsert <chat-id>",
		Short: "Create a subscriber with default settings, or refresh its username",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseChatID(args[0])
			if err != nil {
				return err
			}
			return withApp(cfg, func(a *app) error {
				sub, err := a.subscribers.UpsertSubscriber(cmd.Context(), id, username)
				if err != nil {
					return err
				}
				a.logger.Info("subscriber upserted", "recipient_id", sub.ID)
				return printSubscriber(cmd.OutOrStdout(), sub)
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Telegram username")
	return cmd
}

func newSubscriberSetCmd(cfg *config.AppConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <chat-id>",
		Short: "Update notification settings of a subscriber",
		Long: `Update one or more notification settings. Only the flags given are changed.

Regions and skills are matched case-insensitively; spaces and dashes are
equivalent to underscores.`,
		Example: `  earn-bot subscriber set 1234 --region india --skills backend,design --type both --setup
  earn-bot subscriber set 1234 --min-reward 500`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseChatID(args[0])
			if err != nil {
				return err
			}
			upd, err := subscriberUpdateFromFlags(cmd)
			if err != nil {
				return err
			}
			return withApp(cfg, func(a *app) error {
				sub, err := a.subscribers.UpdateSubscriber(cmd.Context(), id, upd)
				if err != nil {
					return err
				}
				a.logger.Info("subscriber updated", "recipient_id", sub.ID)
				return printSubscriber(cmd.OutOrStdout(), sub)
			})
		},
	}
	cmd.Flags().String("region", "", "Region code, or GLOBAL for every region")
	cmd.Flags().StringSlice("skills", nil, "Comma separated skills, or ALL")
	cmd.Flags().String("type", "", "Notification type: bounty, project, both or none")
	cmd.Flags().Float64("min-reward", 0, "Minimum reward in USD, 0 for no threshold")
	cmd.Flags().Bool("setup", false, "Mark the subscriber as set up")
	return cmd
}

func newSubscriberShowCmd(cfg *config.AppConfig) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <chat-id>",
		Short: "Print a subscriber's settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseChatID(args[0])
			if err != nil {
				return err
			}
			return withApp(cfg, func(a *app) error {
				sub, err := a.subscribers.GetSubscriber(cmd.Context(), id)
				if err != nil {
					return err
				}
				if sub == nil {
					return fmt.Errorf("subscriber %d: %w", id, storage.ErrSubscriberNotFound)
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(sub)
				}
				return printSubscriber(cmd.OutOrStdout(), sub)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func newSubscriberDeleteCmd(cfg *config.AppConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <chat-id>",
		Short: "Delete a subscriber",
		Long:  "Delete a subscriber. Its pending notifications are dropped at delivery time.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseChatID(args[0])
			if err != nil {
				return err
			}
			return withApp(cfg, func(a *app) error {
				if err := a.subscribers.DeleteSubscriber(cmd.Context(), id); err != nil {
					return err
				}
				a.logger.Info("subscriber deleted", "recipient_id", id)
				fmt.Fprintf(cmd.OutOrStdout(), "deleted subscriber %d\n", id)
				return nil
			})
		},
	}
}

func withApp(cfg *config.AppConfig, fn func(*app) error) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	err = fn(a)
	if cerr := a.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("closing resources: %w", cerr)
	}
	return err
}

func parseChatID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id %q: %w", s, err)
	}
	return id, nil
}

// subscriberUpdateFromFlags builds a partial update from the flags the user
// actually set, canonicalizing and validating every value.
func subscriberUpdateFromFlags(cmd *cobra.Command) (storage.SubscriberUpdate, error) {
	var upd storage.SubscriberUpdate
	flags := cmd.Flags()
	changed := false

	if flags.Changed("region") {
		raw, _ := flags.GetString("region")
		region := listing.CanonicalRegion(raw)
		if !listing.IsKnownRegion(region) {
			return upd, fmt.Errorf("unknown region %q", raw)
		}
		upd.Region = &region
		changed = true
	}
	if flags.Changed("skills") {
		raw, _ := flags.GetStringSlice("skills")
		skills := listing.CanonicalSkills(raw)
		for _, s := range skills {
			if !listing.IsKnownSkill(s) {
				return upd, fmt.Errorf("unknown skill %q", s)
			}
		}
		if len(skills) == 0 {
			skills = []listing.Skill{listing.SkillAll}
		}
		upd.Skills = skills
		changed = true
	}
	if flags.Changed("type") {
		raw, _ := flags.GetString("type")
		pref, err := storage.ParseNotificationPreference(raw)
		if err != nil {
			return upd, err
		}
		upd.NotificationType = &pref
		changed = true
	}
	if flags.Changed("min-reward") {
		v, _ := flags.GetFloat64("min-reward")
		if v < 0 {
			return upd, fmt.Errorf("min reward must not be negative, got %v", v)
		}
		upd.MinReward = &v
		changed = true
	}
	if flags.Changed("setup") {
		v, _ := flags.GetBool("setup")
		upd.Setup = &v
		changed = true
	}

	if !changed {
		return upd, fmt.Errorf("nothing to update: pass at least one of --region, --skills, --type, --min-reward, --setup")
	}
	return upd, nil
}

func printSubscriber(w io.Writer, sub *storage.Subscriber) error {
	region := listing.Describe(sub.Region)
	skills := make([]string, 0, len(sub.Skills))
	for _, s := range sub.Skills {
		skills = append(skills, string(s))
	}
	minReward := "none"
	if sub.MinReward > 0 {
		minReward = "$" + humanize.Commaf(sub.MinReward)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "id\t%d\n", sub.ID)
	fmt.Fprintf(tw, "username\t%s\n", sub.Username)
	fmt.Fprintf(tw, "region\t%s %s (%s)\n", region.Flag, region.Name, region.Code)
	fmt.Fprintf(tw, "skills\t%s\n", strings.Join(skills, ", "))
	fmt.Fprintf(tw, "notifications\t%s\n", sub.NotificationType)
	fmt.Fprintf(tw, "min reward\t%s\n", minReward)
	fmt.Fprintf(tw, "setup\t%t\n", sub.Setup)
	fmt.Fprintf(tw, "updated\t%s\n", humanize.Time(sub.UpdatedAt))
	return tw.Flush()
}
