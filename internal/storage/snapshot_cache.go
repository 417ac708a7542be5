package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wallet-hub/internal/models"
	"github.com/wallet-hub/internal/types"
)

// ErrSnapshotMiss indicates no cached snapshot exists for the key.
var ErrSnapshotMiss = fmt.Errorf("snapshot cache miss")

// WalletSnapshot is the cached result of one balance/history refresh for an
// active account. Always derived; the cache only smooths repeated reads
// within a short window.
type WalletSnapshot struct {
	Balance types.BalanceResult   `json:"balance"`
	History []models.HistoryEntry `json:"history"`
}

// SnapshotCache caches wallet snapshots per (user, chain) with a short TTL.
// Switching the active chain clears the previous chain's key before the new
// fetch resolves, so stale cross-chain data never flashes.
type SnapshotCache struct {
	cache *RedisCache
	ttl   time.Duration
}

// NewSnapshotCache creates a snapshot cache.
func NewSnapshotCache(cache *RedisCache, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{cache: cache, ttl: ttl}
}

func snapshotKey(userID string, chain types.ChainType) string {
	return fmt.Sprintf("snapshot:%s:%s", userID, chain)
}

// Get retrieves a cached snapshot, or ErrSnapshotMiss.
func (c *SnapshotCache) Get(ctx context.Context, userID string, chain types.ChainType) (*WalletSnapshot, error) {
	data, err := c.cache.Client().Get(ctx, snapshotKey(userID, chain)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSnapshotMiss
		}
		return nil, fmt.Errorf("failed to read snapshot cache: %w", err)
	}

	var snapshot WalletSnapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode cached snapshot: %w", err)
	}
	return &snapshot, nil
}

// Set stores a snapshot with the configured TTL.
func (c *SnapshotCache) Set(ctx context.Context, userID string, chain types.ChainType, snapshot *WalletSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := c.cache.Client().Set(ctx, snapshotKey(userID, chain), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write snapshot cache: %w", err)
	}
	return nil
}

// Clear removes the cached snapshot for one chain.
func (c *SnapshotCache) Clear(ctx context.Context, userID string, chain types.ChainType) error {
	if err := c.cache.Client().Del(ctx, snapshotKey(userID, chain)).Err(); err != nil {
		return fmt.Errorf("failed to clear snapshot cache: %w", err)
	}
	return nil
}
