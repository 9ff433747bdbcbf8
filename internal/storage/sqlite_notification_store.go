package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mael-bomane/earn-bot/internal/listing"
)

// SQLiteNotificationStore implements NotificationStore backed by SQLite.
type SQLiteNotificationStore struct {
	db *sql.DB
}

// NewSQLiteNotificationStore returns a new SQLiteNotificationStore.
func NewSQLiteNotificationStore(db *sql.DB) *SQLiteNotificationStore {
	return &SQLiteNotificationStore{db: db}
}

const notificationColumns = `id, recipient_id, listing_id, change_type, listing_type, payload, send_at, sent, created_at`

// FindNotification looks up the notification for a (recipient, listing, change) triple.
func (s *SQLiteNotificationStore) FindNotification(
	ctx context.Context, recipientID int64, listingID string, change ChangeType,
) (*PendingNotification, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+notificationColumns+`
		FROM pending_notifications
		WHERE recipient_id = ? AND listing_id = ? AND change_type = ?
		ORDER BY sent ASC, created_at DESC
		LIMIT 1`, recipientID, listingID, string(change))
	n, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding notification: %w", err)
	}
	return n, nil
}

// CreateNotification inserts a new pending notification row.
func (s *SQLiteNotificationStore) CreateNotification(ctx context.Context, n *PendingNotification) error {
	payload := string(n.Payload)
	if payload == "" {
		payload = "{}"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_notifications (`+notificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.RecipientID, n.ListingID, string(n.ChangeType), string(n.ListingType),
		payload, n.SendAt.UTC(), boolToInt(n.Sent), n.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateNotification
		}
		return fmt.Errorf("inserting notification: %w", err)
	}
	return nil
}

// ListDueNotifications returns unsent notifications whose send_at has passed.
func (s *SQLiteNotificationStore) ListDueNotifications(ctx context.Context, now time.Time) ([]*PendingNotification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+notificationColumns+`
		FROM pending_notifications
		WHERE sent = 0 AND send_at <= ?
		ORDER BY send_at ASC, created_at ASC`, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("listing due notifications: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	due := make([]*PendingNotification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		due = append(due, n)
	}
	return due, rows.Err()
}

// MarkSent flags the notification as sent.
func (s *SQLiteNotificationStore) MarkSent(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE pending_notifications SET sent = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("marking notification %s sent: %w", id, err)
	}
	return nil
}

// PurgeSent deletes sent notifications created at or before cutoff.
func (s *SQLiteNotificationStore) PurgeSent(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM pending_notifications WHERE sent = 1 AND created_at <= ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("purging sent notifications: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purging sent notifications: %w", err)
	}
	return n, nil
}

func scanNotification(row rowScanner) (*PendingNotification, error) {
	var (
		n           PendingNotification
		change      string
		listingType string
		payload     string
		sent        int
	)
	if err := row.Scan(&n.ID, &n.RecipientID, &n.ListingID, &change, &listingType,
		&payload, &n.SendAt, &sent, &n.CreatedAt); err != nil {
		return nil, err
	}
	n.ChangeType = ChangeType(change)
	n.ListingType = listing.Type(listingType)
	n.Payload = []byte(payload)
	n.Sent = sent != 0
	return &n, nil
}
