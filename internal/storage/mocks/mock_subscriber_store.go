package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/mael-bomane/earn-bot/internal/storage"
)

// MockSubscriberStore is a mock implementation of storage.SubscriberStore.
type MockSubscriberStore struct {
	mock.Mock
}

//nolint:revive
func (m *MockSubscriberStore) UpsertSubscriber(ctx context.Context, id int64, username string) (*storage.Subscriber, error) {
	args := m.Called(ctx, id, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Subscriber), args.Error(1)
}

//nolint:revive
func (m *MockSubscriberStore) GetSubscriber(ctx context.Context, id int64) (*storage.Subscriber, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Subscriber), args.Error(1)
}

//nolint:revive
func (m *MockSubscriberStore) UpdateSubscriber(ctx context.Context, id int64, upd storage.SubscriberUpdate) (*storage.Subscriber, error) {
	args := m.Called(ctx, id, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Subscriber), args.Error(1)
}

//nolint:revive
func (m *MockSubscriberStore) DeleteSubscriber(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

//nolint:revive
func (m *MockSubscriberStore) ListNotifiable(ctx context.Context) ([]*storage.Subscriber, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*storage.Subscriber), args.Error(1)
}
