package storage_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mael-bomane/earn-bot/internal/listing"
	"github.com/mael-bomane/earn-bot/internal/storage"
)

func newNotificationStore(t *testing.T) *storage.SQLiteNotificationStore {
	t.Helper()
	db, _, err := storage.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return storage.NewSQLiteNotificationStore(db)
}

func pending(id string, recipient int64, listingID string, change storage.ChangeType, sendAt time.Time) *storage.PendingNotification {
	return &storage.PendingNotification{
		ID:          id,
		RecipientID: recipient,
		ListingID:   listingID,
		ChangeType:  change,
		ListingType: listing.TypeBounty,
		Payload:     json.RawMessage(`{"listing":{"id":"` + listingID + `"}}`),
		SendAt:      sendAt,
		CreatedAt:   sendAt.Add(-time.Hour),
	}
}

func TestSQLiteNotificationStore_CreateAndFind(t *testing.T) {
	store := newNotificationStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	n := pending("n-1", 10, "l-1", storage.ChangeNewListing, now)
	require.NoError(t, store.CreateNotification(ctx, n))

	got, err := store.FindNotification(ctx, 10, "l-1", storage.ChangeNewListing)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "n-1", got.ID)
	assert.Equal(t, listing.TypeBounty, got.ListingType)
	assert.JSONEq(t, string(n.Payload), string(got.Payload))
	assert.True(t, got.SendAt.Equal(now))
	assert.False(t, got.Sent)

	missing, err := store.FindNotification(ctx, 10, "l-1", storage.ChangeRegionUpdated)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLiteNotificationStore_DuplicateUnsent(t *testing.T) {
	store := newNotificationStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.CreateNotification(ctx, pending("n-1", 10, "l-1", storage.ChangeNewListing, now)))

	err := store.CreateNotification(ctx, pending("n-2", 10, "l-1", storage.ChangeNewListing, now))
	assert.ErrorIs(t, err, storage.ErrDuplicateNotification)

	// A different change type for the same listing is a separate notification.
	require.NoError(t, store.CreateNotification(ctx, pending("n-3", 10, "l-1", storage.ChangeDeadlineUpdated, now)))
}

func TestSQLiteNotificationStore_SentRowAllowsNewPending(t *testing.T) {
	store := newNotificationStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.CreateNotification(ctx, pending("n-1", 10, "l-1", storage.ChangeRegionUpdated, now)))
	require.NoError(t, store.MarkSent(ctx, "n-1"))
	require.NoError(t, store.CreateNotification(ctx, pending("n-2", 10, "l-1", storage.ChangeRegionUpdated, now)))

	got, err := store.FindNotification(ctx, 10, "l-1", storage.ChangeRegionUpdated)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "n-2", got.ID, "unsent row is preferred")
}

func TestSQLiteNotificationStore_ListDue(t *testing.T) {
	store := newNotificationStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, store.CreateNotification(ctx, pending("later", 1, "l-1", storage.ChangeNewListing, now.Add(time.Hour))))
	require.NoError(t, store.CreateNotification(ctx, pending("second", 1, "l-2", storage.ChangeNewListing, now.Add(-time.Minute))))
	require.NoError(t, store.CreateNotification(ctx, pending("first", 1, "l-3", storage.ChangeNewListing, now.Add(-time.Hour))))
	require.NoError(t, store.CreateNotification(ctx, pending("done", 1, "l-4", storage.ChangeNewListing, now.Add(-2*time.Hour))))
	require.NoError(t, store.MarkSent(ctx, "done"))

	due, err := store.ListDueNotifications(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "first", due[0].ID)
	assert.Equal(t, "second", due[1].ID)
}

func TestSQLiteNotificationStore_MarkSentIsIdempotent(t *testing.T) {
	store := newNotificationStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.CreateNotification(ctx, pending("n-1", 1, "l-1", storage.ChangeNewListing, now.Add(-time.Minute))))
	require.NoError(t, store.MarkSent(ctx, "n-1"))
	require.NoError(t, store.MarkSent(ctx, "n-1"))
	require.NoError(t, store.MarkSent(ctx, "missing"))

	due, err := store.ListDueNotifications(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestSQLiteNotificationStore_PurgeSent(t *testing.T) {
	store := newNotificationStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	cutoff := now.Add(-7 * 24 * time.Hour)

	old := pending("old", 1, "l-1", storage.ChangeNewListing, now)
	old.CreatedAt = now.Add(-8 * 24 * time.Hour)
	recent := pending("recent", 1, "l-2", storage.ChangeNewListing, now)
	recent.CreatedAt = now.Add(-6 * 24 * time.Hour)
	oldUnsent := pending("old-unsent", 1, "l-3", storage.ChangeNewListing, now)
	oldUnsent.CreatedAt = now.Add(-30 * 24 * time.Hour)

	for _, n := range []*storage.PendingNotification{old, recent, oldUnsent} {
		require.NoError(t, store.CreateNotification(ctx, n))
	}
	require.NoError(t, store.MarkSent(ctx, "old"))
	require.NoError(t, store.MarkSent(ctx, "recent"))

	purged, err := store.PurgeSent(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	gone, err := store.FindNotification(ctx, 1, "l-1", storage.ChangeNewListing)
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := store.FindNotification(ctx, 1, "l-2", storage.ChangeNewListing)
	require.NoError(t, err)
	assert.NotNil(t, kept)

	unsent, err := store.FindNotification(ctx, 1, "l-3", storage.ChangeNewListing)
	require.NoError(t, err)
	assert.NotNil(t, unsent)
}

func TestChangeType_Valid(t *testing.T) {
	assert.True(t, storage.ChangeNewListing.Valid())
	assert.True(t, storage.ChangeRegionUpdated.Valid())
	assert.True(t, storage.ChangeDeadlineUpdated.Valid())
	assert.False(t, storage.ChangeType("LISTING_REMOVED").Valid())
}
