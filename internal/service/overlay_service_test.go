package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/travel-relation/internal/cache"
	"github.com/d60-Lab/travel-relation/internal/testutil"
)

func TestOverlaysAreIndependent(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	// 不是好友也可以设置
	require.NoError(t, f.overlay.SetHiddenFriend(ctx, "a", "b", true))

	pinsB, err := f.overlay.GetHidePinsFrom(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, pinsB)
	pinsA, err := f.overlay.GetHidePinsFrom(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, pinsA)

	require.NoError(t, f.overlay.SetHidePinsFrom(ctx, "b", "a", true))
	hiddenA, err := f.overlay.GetHiddenFriendIDs(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, hiddenA)
	hiddenB, err := f.overlay.GetHiddenFriendIDs(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, hiddenB)

	require.NoError(t, f.overlay.SetHiddenFriend(ctx, "a", "b", false))
	pinsB, err = f.overlay.GetHidePinsFrom(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, pinsB)

	// 没有任何好友记录被创建
	assert.EqualValues(t, 0, f.countRecords(t))
}

func TestOverlayToggleIsIdempotent(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	require.NoError(t, f.overlay.SetHidePinsFrom(ctx, "a", "b", true))
	require.NoError(t, f.overlay.SetHidePinsFrom(ctx, "a", "b", true))
	pins, err := f.overlay.GetHidePinsFrom(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, pins)

	require.NoError(t, f.overlay.SetHidePinsFrom(ctx, "a", "b", false))
	require.NoError(t, f.overlay.SetHidePinsFrom(ctx, "a", "b", false))
	pins, err = f.overlay.GetHidePinsFrom(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, pins)
}

func TestOverlayRejectsSelfAndEmpty(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	assert.ErrorIs(t, f.overlay.SetHiddenFriend(ctx, "a", "a", true), ErrSelfOverlay)
	assert.ErrorIs(t, f.overlay.SetHidePinsFrom(ctx, "a", "", true), ErrInvalidInput)
	_, err := f.overlay.GetHidePinsFrom(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestVisibleOwners(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	require.NoError(t, f.overlay.SetHiddenFriend(ctx, "viewer", "muted", true))
	require.NoError(t, f.overlay.SetHidePinsFrom(ctx, "private", "viewer", true))
	require.NoError(t, f.overlay.SetHidePinsFrom(ctx, "open", "someone-else", true))

	got, err := f.overlay.VisibleOwners(ctx, "viewer", []string{"open", "muted", "viewer", "private", "open", "stranger"})
	require.NoError(t, err)
	assert.Equal(t, []string{"open", "viewer", "stranger"}, got)
}

func TestProfileCacheInvalidatedOnOverlayChange(t *testing.T) {
	client, _ := testutil.NewRedis(t)
	pc := cache.NewRedisProfileCache(client, time.Minute)
	f := newFixture(t, fixtureOptions{profileCache: pc})
	ctx := context.Background()
	testutil.SeedUsers(t, f.db, map[string]string{"a": "Alice"})

	p, err := f.profiles.GetUserProfile(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, p.HidePinsFrom)

	// 第二次读走缓存
	_, err = f.profiles.GetUserProfile(ctx, "a")
	require.NoError(t, err)
	assert.EqualValues(t, 1, pc.Stats().Hits)

	require.NoError(t, f.overlay.SetHidePinsFrom(ctx, "a", "b", true))
	p, err = f.profiles.GetUserProfile(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, p.HidePinsFrom)
	assert.Empty(t, p.HiddenFriendIDs)
}

func TestGetOverlayReadsCachedProfile(t *testing.T) {
	client, mr := testutil.NewRedis(t)
	pc := cache.NewRedisProfileCache(client, time.Minute)
	f := newFixture(t, fixtureOptions{profileCache: pc})
	ctx := context.Background()
	testutil.SeedUsers(t, f.db, map[string]string{"a": "Alice"})

	require.NoError(t, f.overlay.SetHiddenFriend(ctx, "a", "b", true))
	p, err := f.overlay.GetOverlay(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, p.HiddenFriendIDs)
	assert.True(t, mr.Exists("profile:a"))

	p, err = f.overlay.GetOverlay(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, p.HiddenFriendIDs)
	assert.EqualValues(t, 1, pc.Stats().Hits)

	// 切换名单后缓存失效，下一次读到新值
	require.NoError(t, f.overlay.SetHidePinsFrom(ctx, "a", "c", true))
	assert.False(t, mr.Exists("profile:a"))
	p, err = f.overlay.GetOverlay(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, p.HidePinsFrom)
}

func TestGetOverlayWithoutProfile(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	require.NoError(t, f.overlay.SetHidePinsFrom(ctx, "nobody", "b", true))
	p, err := f.overlay.GetOverlay(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, "nobody", p.UID)
	assert.Equal(t, []string{"b"}, p.HidePinsFrom)
	assert.Empty(t, p.HiddenFriendIDs)

	_, err = f.overlay.GetOverlay(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetUserProfileMissing(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	_, err := f.profiles.GetUserProfile(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
