package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// FriendCache is a materialized view of a user's friend set, refreshed by
// invalidation on every lifecycle transition.
//
// Every invalidation bumps a per-user version. Get reports the version seen
// on a miss and Set only fills when it is still current, so a load that
// raced with an invalidation never writes its stale result back.
type FriendCache interface {
	Get(ctx context.Context, uid string) (friendIDs []string, version int64, ok bool)
	Set(ctx context.Context, uid string, friendIDs []string, version int64)
	Invalidate(ctx context.Context, uids ...string) error
}

// emptyMarker keeps an empty friend set distinguishable from a miss.
const emptyMarker = "\x00"

// versionTTL outlives any friend set TTL so a version never resets under a
// load that is still in flight.
const versionTTL = 24 * time.Hour

var errStaleFill = errors.New("friend set invalidated during load")

// RedisFriendCache keeps friends:<uid> as a redis set and its version under
// friends_ver:<uid>.
type RedisFriendCache struct {
	client *redis.Client
	ttl    time.Duration

	hits   atomic.Int64
	misses atomic.Int64
	stale  atomic.Int64
}

func NewRedisFriendCache(client *redis.Client, ttl time.Duration) *RedisFriendCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisFriendCache{client: client, ttl: ttl}
}

func friendsKey(uid string) string { return fmt.Sprintf("friends:%s", uid) }
func versionKey(uid string) string { return fmt.Sprintf("friends_ver:%s", uid) }

func (c *RedisFriendCache) Get(ctx context.Context, uid string) ([]string, int64, bool) {
	pipe := c.client.Pipeline()
	membersCmd := pipe.SMembers(ctx, friendsKey(uid))
	versionCmd := pipe.Get(ctx, versionKey(uid))
	// a missing version key fails Exec with redis.Nil; the commands carry their own results
	_, _ = pipe.Exec(ctx)

	version, _ := versionCmd.Int64()
	members, err := membersCmd.Result()
	if err != nil || len(members) == 0 {
		c.misses.Add(1)
		return nil, version, false
	}
	c.hits.Add(1)
	ids := make([]string, 0, len(members))
	for _, m := range members {
		if m != emptyMarker {
			ids = append(ids, m)
		}
	}
	sort.Strings(ids)
	return ids, version, true
}

func (c *RedisFriendCache) Set(ctx context.Context, uid string, friendIDs []string, version int64) {
	key, verKey := friendsKey(uid), versionKey(uid)
	members := make([]interface{}, 0, len(friendIDs)+1)
	members = append(members, emptyMarker)
	for _, id := range friendIDs {
		members = append(members, id)
	}

	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, verKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.SAdd(ctx, key, members...)
			pipe.Expire(ctx, key, c.ttl)
			return nil
		})
		return err
	}, verKey)
	if errors.Is(err, errStaleFill) || errors.Is(err, redis.TxFailedErr) {
		c.stale.Add(1)
	}
}

func (c *RedisFriendCache) Invalidate(ctx context.Context, uids ...string) error {
	if len(uids) == 0 {
		return nil
	}
	pipe := c.client.TxPipeline()
	for _, uid := range uids {
		pipe.Del(ctx, friendsKey(uid))
		pipe.Incr(ctx, versionKey(uid))
		pipe.Expire(ctx, versionKey(uid), versionTTL)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (c *RedisFriendCache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), StaleFills: c.stale.Load()}
}

type NopFriendCache struct{}

func (NopFriendCache) Get(context.Context, string) ([]string, int64, bool) { return nil, 0, false }
func (NopFriendCache) Set(context.Context, string, []string, int64)        {}
func (NopFriendCache) Invalidate(context.Context, ...string) error         { return nil }
