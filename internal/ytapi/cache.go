package ytapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	channelSnapshotTTL = 6 * time.Hour
	shortsProbeTTL     = 7 * 24 * time.Hour
)

// SnapshotCache is a Redis cache-aside layer for resolved channel snapshots
// and shorts-probe results. With no Redis configured every operation is a
// no-op and the pipeline falls through to the API.
type SnapshotCache struct {
	rdb *redis.Client
}

// NewSnapshotCache connects to Redis. An empty URL or a failed connection
// yields a disabled cache, not an error.
func NewSnapshotCache(redisURL string) *SnapshotCache {
	if redisURL == "" {
		log.Println("redis: no URL configured, snapshot caching disabled")
		return &SnapshotCache{}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("redis: invalid URL %q, snapshot caching disabled: %v", redisURL, err)
		return &SnapshotCache{}
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("redis: connection failed, snapshot caching disabled: %v", err)
		return &SnapshotCache{}
	}

	log.Println("redis: connected, snapshot caching enabled")
	return &SnapshotCache{rdb: rdb}
}

// Client returns the underlying Redis client (for health checks). May be nil.
func (c *SnapshotCache) Client() *redis.Client {
	return c.rdb
}

// GetChannelByHandle returns a cached snapshot, or nil on miss/disabled cache.
func (c *SnapshotCache) GetChannelByHandle(ctx context.Context, handle string) *ChannelSnapshot {
	if c == nil || c.rdb == nil {
		return nil
	}
	data, err := c.rdb.Get(ctx, handleKey(handle)).Bytes()
	if err != nil {
		return nil
	}
	var snap ChannelSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil
	}
	return &snap
}

// SetChannelByHandle caches a resolved channel snapshot.
func (c *SnapshotCache) SetChannelByHandle(ctx context.Context, handle string, snap *ChannelSnapshot) {
	if c == nil || c.rdb == nil || snap == nil {
		return
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, handleKey(handle), b, channelSnapshotTTL)
}

// GetShortsProbe returns a cached probe result, or "" on miss.
func (c *SnapshotCache) GetShortsProbe(ctx context.Context, videoID string) string {
	if c == nil || c.rdb == nil {
		return ""
	}
	v, err := c.rdb.Get(ctx, shortsKey(videoID)).Result()
	if err != nil {
		return ""
	}
	return v
}

// SetShortsProbe caches a definite probe result. Unknown results are never
// cached so a later run can retry the probe.
func (c *SnapshotCache) SetShortsProbe(ctx context.Context, videoID, result string) {
	if c == nil || c.rdb == nil || result == string(ShortsUnknown) {
		return
	}
	c.rdb.Set(ctx, shortsKey(videoID), result, shortsProbeTTL)
}

// Close shuts down the Redis connection.
func (c *SnapshotCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func handleKey(handle string) string {
	return fmt.Sprintf("yt:handle:%s", handle)
}

func shortsKey(videoID string) string {
	return fmt.Sprintf("yt:shorts:%s", videoID)
}
