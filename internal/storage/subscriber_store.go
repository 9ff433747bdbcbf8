package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mael-bomane/earn-bot/internal/listing"
)

// NotificationPreference selects which listing types a subscriber receives.
type NotificationPreference string

const (
	PreferenceBounty  NotificationPreference = "BOUNTY"
	PreferenceProject NotificationPreference = "PROJECT"
	PreferenceBoth    NotificationPreference = "BOTH"
	PreferenceNone    NotificationPreference = "NONE"
)

// ParseNotificationPreference canonicalizes s into a NotificationPreference.
func ParseNotificationPreference(s string) (NotificationPreference, error) {
	p := NotificationPreference(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case PreferenceBounty, PreferenceProject, PreferenceBoth, PreferenceNone:
		return p, nil
	}
	return "", fmt.Errorf("unknown notification preference %q", s)
}

// Accepts reports whether a subscriber with this preference wants listings of type t.
func (p NotificationPreference) Accepts(t listing.Type) bool {
	switch p {
	case PreferenceBoth:
		return true
	case PreferenceBounty:
		return t == listing.TypeBounty
	case PreferenceProject:
		return t == listing.TypeProject
	}
	return false
}

// Subscriber is a chat user's persisted notification settings. ID is the
// Telegram chat id the bot delivers to.
type Subscriber struct {
	ID               int64                  `json:"id"`
	Username         string                 `json:"username"`
	Region           listing.Region         `json:"region"`
	Skills           []listing.Skill        `json:"skills"`
	NotificationType NotificationPreference `json:"notification_type"`
	MinReward        float64                `json:"min_reward"`
	Setup            bool                   `json:"setup"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// SubscriberUpdate carries a partial settings change. Nil fields are left untouched.
type SubscriberUpdate struct {
	Region           *listing.Region
	Skills           []listing.Skill
	NotificationType *NotificationPreference
	MinReward        *float64
	Setup            *bool
}

// SubscriberStore defines the interface for subscriber persistence.
type SubscriberStore interface {
	// UpsertSubscriber creates the subscriber with default settings, or refreshes
	// the username of an existing one.
	UpsertSubscriber(ctx context.Context, id int64, username string) (*Subscriber, error)
	// GetSubscriber returns the subscriber, or nil if it does not exist.
	GetSubscriber(ctx context.Context, id int64) (*Subscriber, error)
	// UpdateSubscriber applies a partial settings change.
	UpdateSubscriber(ctx context.Context, id int64, upd SubscriberUpdate) (*Subscriber, error)
	// DeleteSubscriber removes the subscriber. Pending notifications are kept.
	DeleteSubscriber(ctx context.Context, id int64) error
	// ListNotifiable returns every subscriber that finished setup and has not
	// opted out of notifications.
	ListNotifiable(ctx context.Context) ([]*Subscriber, error)
}
