package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mael-bomane/earn-bot/internal/listing"
)

var (
	// ErrDuplicateNotification is returned by CreateNotification when an unsent
	// notification for the same recipient, listing and change type exists.
	ErrDuplicateNotification = errors.New("notification already scheduled")
	// ErrSubscriberNotFound is returned when updating a subscriber that does not exist.
	ErrSubscriberNotFound = errors.New("subscriber not found")
)

// ChangeType identifies which listing change a notification announces.
type ChangeType string

const (
	ChangeNewListing      ChangeType = "NEW_LISTING"
	ChangeRegionUpdated   ChangeType = "REGION_UPDATED"
	ChangeDeadlineUpdated ChangeType = "DEADLINE_UPDATED"
)

// Valid reports whether c is one of the known change types.
func (c ChangeType) Valid() bool {
	switch c {
	case ChangeNewListing, ChangeRegionUpdated, ChangeDeadlineUpdated:
		return true
	}
	return false
}

// PendingNotification is a durable, delayed unit of outbound work.
type PendingNotification struct {
	ID          string          `json:"id"`
	RecipientID int64           `json:"recipient_id"`
	ListingID   string          `json:"listing_id"`
	ChangeType  ChangeType      `json:"change_type"`
	ListingType listing.Type    `json:"listing_type"`
	Payload     json.RawMessage `json:"payload"`
	SendAt      time.Time       `json:"send_at"`
	Sent        bool            `json:"sent"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NotificationStore defines the interface for pending notification persistence.
type NotificationStore interface {
	// FindNotification returns the notification for the triple regardless of its
	// sent state, preferring an unsent row. Returns nil if none exists.
	FindNotification(ctx context.Context, recipientID int64, listingID string, change ChangeType) (*PendingNotification, error)
	// CreateNotification persists n. Returns ErrDuplicateNotification if an
	// unsent row for the same triple already exists.
	CreateNotification(ctx context.Context, n *PendingNotification) error
	// ListDueNotifications returns unsent rows with send_at <= now, oldest first.
	ListDueNotifications(ctx context.Context, now time.Time) ([]*PendingNotification, error)
	// MarkSent flips the row to sent. Marking an already sent row is a no-op.
	MarkSent(ctx context.Context, id string) error
	// PurgeSent deletes sent rows created at or before cutoff and returns the count.
	PurgeSent(ctx context.Context, cutoff time.Time) (int64, error)
}
