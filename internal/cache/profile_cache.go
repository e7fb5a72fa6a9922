package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/travel-relation/internal/model"
)

// ProfileCache is the read-cache in front of profile lookups. Callers must
// Invalidate after any mutation of profile-visible fields.
type ProfileCache interface {
	Get(ctx context.Context, uid string) (*model.UserProfile, bool)
	Set(ctx context.Context, p *model.UserProfile)
	Invalidate(ctx context.Context, uids ...string) error
}

// RedisProfileCache stores JSON snapshots under profile:<uid> with a TTL.
type RedisProfileCache struct {
	client *redis.Client
	ttl    time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

func NewRedisProfileCache(client *redis.Client, ttl time.Duration) *RedisProfileCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisProfileCache{client: client, ttl: ttl}
}

func profileKey(uid string) string { return fmt.Sprintf("profile:%s", uid) }

func (c *RedisProfileCache) Get(ctx context.Context, uid string) (*model.UserProfile, bool) {
	data, err := c.client.Get(ctx, profileKey(uid)).Bytes()
	if err != nil {
		c.misses.Add(1)
		return nil, false
	}
	var p model.UserProfile
	if err := json.Unmarshal(data, &p); err != nil {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return &p, true
}

func (c *RedisProfileCache) Set(ctx context.Context, p *model.UserProfile) {
	if payload, err := json.Marshal(p); err == nil {
		_ = c.client.Set(ctx, profileKey(p.UID), payload, c.ttl).Err()
	}
}

func (c *RedisProfileCache) Invalidate(ctx context.Context, uids ...string) error {
	if len(uids) == 0 {
		return nil
	}
	keys := make([]string, len(uids))
	for i, uid := range uids {
		keys[i] = profileKey(uid)
	}
	return c.client.Del(ctx, keys...).Err()
}

// Stats reports hit/miss counts since construction.
func (c *RedisProfileCache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// Stats summarises cache effectiveness.
type Stats struct {
	Hits   int64
	Misses int64
	// StaleFills counts fills dropped because the entry was invalidated mid-load
	StaleFills int64
}

// NopProfileCache never stores anything; used when redis is disabled.
type NopProfileCache struct{}

func (NopProfileCache) Get(context.Context, string) (*model.UserProfile, bool) { return nil, false }
func (NopProfileCache) Set(context.Context, *model.UserProfile)                {}
func (NopProfileCache) Invalidate(context.Context, ...string) error            { return nil }
