package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/paysettle/internal/domain"
	"github.com/josh-kwaku/paysettle/internal/testutil"
)

func TestWalletCache_RoundTripAndInvalidate(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	c := NewWalletCache(client, time.Minute)
	ctx := context.Background()

	w := &domain.Wallet{
		ID:        uuid.New(),
		ManagerID: uuid.New(),
		Balance:   decimal.RequireFromString("99.95"),
		Version:   3,
		UpdatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	_, ok, err := c.Get(ctx, w.ManagerID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, w))

	got, ok, err := c.Get(ctx, w.ManagerID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, w.ID, got.ID)
	assert.True(t, w.Balance.Equal(got.Balance))
	assert.Equal(t, w.Version, got.Version)

	ttl, err := client.TTL(ctx, walletKey(w.ManagerID)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, c.Invalidate(ctx, w.ManagerID))
	_, ok, err = c.Get(ctx, w.ManagerID)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, c.Ping(ctx))
}

func TestWalletCache_CorruptEntry(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	c := NewWalletCache(client, time.Minute)
	ctx := context.Background()

	managerID := uuid.New()
	require.NoError(t, client.Set(ctx, walletKey(managerID), "not-json", time.Minute).Err())

	_, ok, err := c.Get(ctx, managerID)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNewRedisClient_BadURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "not a url")
	assert.Error(t, err)
}
