package snapshot_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mael-bomane/earn-bot/internal/listing"
	"github.com/mael-bomane/earn-bot/internal/snapshot"
)

func sampleListings() []listing.Listing {
	deadline := time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC)
	payout := 500.0
	return []listing.Listing{
		{
			ID: "a", Name: "Build a dashboard", Slug: "build-a-dashboard",
			Payout: &payout, Token: "USDC", CompensationType: listing.CompensationFixed,
			SponsorName: "Acme", Deadline: &deadline,
			Skills: []listing.Skill{"FRONTEND"}, Region: listing.RegionGlobal, Type: listing.TypeBounty,
		},
		{
			ID: "b", Name: "Write docs", Slug: "write-docs",
			CompensationType: listing.CompensationVariable,
			Region:           "INDIA", Type: listing.TypeProject,
		},
	}
}

func exerciseStore(t *testing.T, store snapshot.Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := store.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "fresh store has no snapshot")

	require.NoError(t, store.Replace(ctx, sampleListings()))

	got, ok, err := store.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, "Build a dashboard", got["a"].Name)
	assert.Equal(t, listing.Region("INDIA"), got["b"].Region)
	require.NotNil(t, got["a"].Deadline)
	assert.True(t, got["a"].Deadline.Equal(time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC)))

	require.NoError(t, store.Replace(ctx, nil))
	got, ok, err = store.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok, "an empty snapshot is still a snapshot")
	assert.Empty(t, got)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, snapshot.NewMemoryStore())
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := snapshot.NewMemoryStore()
	require.NoError(t, store.Replace(ctx, sampleListings()))

	got, _, err := store.Get(ctx)
	require.NoError(t, err)
	delete(got, "a")

	again, _, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Len(t, again, 2)
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("EARN_BOT_TEST_REDIS_URL")
	if url == "" {
		t.Skip("EARN_BOT_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	client, err := snapshot.NewRedisClient(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	key := "earn-bot:test:" + t.Name()
	require.NoError(t, client.Del(ctx, key).Err())
	t.Cleanup(func() { _ = client.Del(context.Background(), key).Err() })

	exerciseStore(t, snapshot.NewRedisStore(client, key))
}
