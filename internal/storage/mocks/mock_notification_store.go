package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/mael-bomane/earn-bot/internal/storage"
)

// MockNotificationStore is a mock implementation of storage.NotificationStore.
type MockNotificationStore struct {
	mock.Mock
}

//nolint:revive
func (m *MockNotificationStore) FindNotification(
	ctx context.Context, recipientID int64, listingID string, change storage.ChangeType,
) (*storage.PendingNotification, error) {
	args := m.Called(ctx, recipientID, listingID, change)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.PendingNotification), args.Error(1)
}

//nolint:revive
func (m *MockNotificationStore) CreateNotification(ctx context.Context, n *storage.PendingNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

//nolint:revive
func (m *MockNotificationStore) ListDueNotifications(ctx context.Context, now time.Time) ([]*storage.PendingNotification, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*storage.PendingNotification), args.Error(1)
}

//nolint:revive
func (m *MockNotificationStore) MarkSent(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

//nolint:revive
func (m *MockNotificationStore) PurgeSent(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}
