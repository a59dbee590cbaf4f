// Package cache holds Redis-backed read caches.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/forgo/fete/api/internal/model"
	"github.com/redis/go-redis/v9"
)

// DefaultMenuTTL bounds how long an orphaned snapshot lingers in Redis
const DefaultMenuTTL = 10 * time.Minute

// MenuCache caches a vendor's full menu. Every menu write bumps a per-vendor
// version counter and snapshots are keyed by the version they were read
// under, so a reader that raced a write can never publish its stale result.
type MenuCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewMenuCache creates a menu cache. A non-positive ttl uses DefaultMenuTTL.
func NewMenuCache(client *redis.Client, ttl time.Duration) *MenuCache {
	if ttl <= 0 {
		ttl = DefaultMenuTTL
	}
	return &MenuCache{client: client, ttl: ttl}
}

// VersionKey returns the key of a vendor's menu version counter
func VersionKey(vendorID string) string {
	return "menu:" + vendorID + ":version"
}

// MenuKey returns the key of a vendor's menu snapshot at version
func MenuKey(vendorID string, version int64) string {
	return "menu:" + vendorID + ":v" + strconv.FormatInt(version, 10)
}

// Version returns the vendor's current menu version. A vendor whose menu was
// never written is at version 0.
func (c *MenuCache) Version(ctx context.Context, vendorID string) (int64, error) {
	return readVersion(ctx, c.client, vendorID)
}

// Get returns the snapshot cached for version. The bool is false on a miss.
func (c *MenuCache) Get(ctx context.Context, vendorID string, version int64) ([]*model.MenuSectionWithItems, bool, error) {
	key := MenuKey(vendorID, version)
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var menu []*model.MenuSectionWithItems
	if err := json.Unmarshal(raw, &menu); err != nil {
		// Drop entries written by an incompatible version
		_ = c.client.Del(ctx, key).Err()
		return nil, false, nil
	}
	return menu, true, nil
}

// Set stores a snapshot read under version. It stores nothing and reports
// false when the menu was written since, including while Set runs.
func (c *MenuCache) Set(ctx context.Context, vendorID string, version int64, menu []*model.MenuSectionWithItems) (bool, error) {
	payload, err := json.Marshal(menu)
	if err != nil {
		return false, err
	}

	stored := false
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readVersion(ctx, tx, vendorID)
		if err != nil {
			return err
		}
		if current != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, MenuKey(vendorID, version), payload, c.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		stored = true
		return nil
	}, VersionKey(vendorID))

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return stored, nil
}

// Invalidate bumps the vendor's menu version and drops the snapshot of the
// version it replaces
func (c *MenuCache) Invalidate(ctx context.Context, vendorID string) error {
	next, err := c.client.Incr(ctx, VersionKey(vendorID)).Result()
	if err != nil {
		return err
	}
	return c.client.Del(ctx, MenuKey(vendorID, next-1)).Err()
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readVersion(ctx context.Context, cmd stringGetter, vendorID string) (int64, error) {
	version, err := cmd.Get(ctx, VersionKey(vendorID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return version, err
}
