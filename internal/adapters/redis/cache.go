package redis

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ViewCache caches projected availability views. Entries are keyed by a
// per-event generation counter that every mutation bumps, so stale views
// simply stop being addressed instead of needing pattern deletes.
type ViewCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewViewCache(client *redis.Client, ttl time.Duration) *ViewCache {
	return &ViewCache{client: client, ttl: ttl}
}

func (c *ViewCache) Client() *redis.Client {
	return c.client
}

func (c *ViewCache) Get(ctx context.Context, eventID uuid.UUID, seatIDs []string) ([]byte, error) {
	key, err := c.viewKey(ctx, eventID, seatIDs)
	if err != nil {
		return nil, err
	}
	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return val, err
}

func (c *ViewCache) Set(ctx context.Context, eventID uuid.UUID, seatIDs []string, view []byte) error {
	key, err := c.viewKey(ctx, eventID, seatIDs)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, view, c.ttl).Err()
}

// Invalidate bumps the event's generation, orphaning all cached views
// for it at once.
func (c *ViewCache) Invalidate(ctx context.Context, eventID uuid.UUID) error {
	return c.client.Incr(ctx, "viewgen:"+eventID.String()).Err()
}

func (c *ViewCache) viewKey(ctx context.Context, eventID uuid.UUID, seatIDs []string) (string, error) {
	gen, err := c.client.Get(ctx, "viewgen:"+eventID.String()).Int64()
	if err != nil && err != redis.Nil {
		return "", err
	}

	sorted := make([]string, len(seatIDs))
	copy(sorted, seatIDs)
	sort.Strings(sorted)
	sum := sha1.Sum([]byte(strings.Join(sorted, ",")))

	return "view:" + eventID.String() + ":" + strconv.FormatInt(gen, 10) + ":" + hex.EncodeToString(sum[:]), nil
}
