// Package cache keeps a short-lived Redis copy of wallet reads.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/josh-kwaku/paysettle/internal/domain"
)

func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("NewRedisClient: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("NewRedisClient: ping: %w", err)
	}
	return client, nil
}

type WalletCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewWalletCache(client *redis.Client, ttl time.Duration) *WalletCache {
	return &WalletCache{client: client, ttl: ttl}
}

func walletKey(managerID uuid.UUID) string {
	return "wallet:manager:" + managerID.String()
}

// Get returns the cached wallet, or ok=false on a miss.
func (c *WalletCache) Get(ctx context.Context, managerID uuid.UUID) (*domain.Wallet, bool, error) {
	data, err := c.client.Get(ctx, walletKey(managerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("Get: %w", err)
	}

	var w domain.Wallet
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, false, fmt.Errorf("Get: decode: %w", err)
	}
	return &w, true, nil
}

func (c *WalletCache) Set(ctx context.Context, w *domain.Wallet) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("Set: encode: %w", err)
	}
	if err := c.client.Set(ctx, walletKey(w.ManagerID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("Set: %w", err)
	}
	return nil
}

func (c *WalletCache) Invalidate(ctx context.Context, managerID uuid.UUID) error {
	if err := c.client.Del(ctx, walletKey(managerID)).Err(); err != nil {
		return fmt.Errorf("Invalidate: %w", err)
	}
	return nil
}

func (c *WalletCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Nop is used when no Redis URL is configured. Every read misses.
type Nop struct{}

func (Nop) Get(context.Context, uuid.UUID) (*domain.Wallet, bool, error) { return nil, false, nil }
func (Nop) Set(context.Context, *domain.Wallet) error                    { return nil }
func (Nop) Invalidate(context.Context, uuid.UUID) error                  { return nil }
func (Nop) Ping(context.Context) error                                   { return nil }
