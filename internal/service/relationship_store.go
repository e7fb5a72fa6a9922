package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/travel-relation/internal/cache"
	"github.com/d60-Lab/travel-relation/internal/model"
	"github.com/d60-Lab/travel-relation/internal/repository"
	"github.com/d60-Lab/travel-relation/pkg/logger"
)

// FriendRequestView 请求列表项；FromUsername 为读取时解析的当前用户名
type FriendRequestView struct {
	ID           string                   `json:"id"`
	FromUID      string                   `json:"fromUid"`
	ToUID        string                   `json:"toUid"`
	FromUsername string                   `json:"fromUsername"`
	Status       model.RelationshipStatus `json:"status"`
	CreatedAt    time.Time                `json:"createdAt"`
}

// RelationshipStore 从 friend_requests 推导好友、收到的请求、发出的请求
type RelationshipStore interface {
	// GetFriends 受 fail-open 策略影响：出错时可能返回空集合
	GetFriends(ctx context.Context, uid string) ([]string, error)
	GetFriendRequests(ctx context.Context, uid string) ([]FriendRequestView, error)
	GetOutgoingRequests(ctx context.Context, uid string) ([]FriendRequestView, error)
	// AreFriends 严格读取，错误总是返回
	AreFriends(ctx context.Context, a, b string) (bool, error)
	// FindBetween 先查 a→b 再查 b→a，不带状态过滤；没有记录返回 nil, nil
	FindBetween(ctx context.Context, a, b string) (*model.RelationshipRequest, error)
	InvalidateFriends(ctx context.Context, uids ...string)
}

type relationshipStore struct {
	repo     repository.RelationshipRepository
	profiles ProfileService
	friends  cache.FriendCache
	failOpen bool
}

func NewRelationshipStore(repo repository.RelationshipRepository, profiles ProfileService, friends cache.FriendCache, failOpen bool) RelationshipStore {
	if friends == nil {
		friends = cache.NopFriendCache{}
	}
	return &relationshipStore{repo: repo, profiles: profiles, friends: friends, failOpen: failOpen}
}

func (s *relationshipStore) GetFriends(ctx context.Context, uid string) ([]string, error) {
	ids, err := s.loadFriends(ctx, uid)
	if err != nil {
		if s.failOpen {
			logger.Warn("get friends failed, returning empty", zap.String("uid", uid), zap.Error(err))
			return []string{}, nil
		}
		return nil, err
	}
	return ids, nil
}

func (s *relationshipStore) AreFriends(ctx context.Context, a, b string) (bool, error) {
	ids, err := s.loadFriends(ctx, a)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == b {
			return true, nil
		}
	}
	return false, nil
}

// loadFriends 两个方向各查一次 accepted，取对侧 uid 的并集
func (s *relationshipStore) loadFriends(ctx context.Context, uid string) ([]string, error) {
	ids, version, ok := s.friends.Get(ctx, uid)
	if ok {
		return ids, nil
	}

	sent, err := s.repo.ListByFrom(ctx, uid, model.StatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("list accepted from %s: %w", uid, err)
	}
	received, err := s.repo.ListByTo(ctx, uid, model.StatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("list accepted to %s: %w", uid, err)
	}

	seen := make(map[string]struct{}, len(sent)+len(received))
	ids = make([]string, 0, len(sent)+len(received))
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, r := range sent {
		add(r.ToUID)
	}
	for _, r := range received {
		add(r.FromUID)
	}
	sort.Strings(ids)

	s.friends.Set(ctx, uid, ids, version)
	return ids, nil
}

func (s *relationshipStore) GetFriendRequests(ctx context.Context, uid string) ([]FriendRequestView, error) {
	return s.pendingViews(ctx, uid, s.repo.ListByTo)
}

func (s *relationshipStore) GetOutgoingRequests(ctx context.Context, uid string) ([]FriendRequestView, error) {
	return s.pendingViews(ctx, uid, s.repo.ListByFrom)
}

type listFunc func(ctx context.Context, uid string, status model.RelationshipStatus) ([]*model.RelationshipRequest, error)

func (s *relationshipStore) pendingViews(ctx context.Context, uid string, list listFunc) ([]FriendRequestView, error) {
	rows, err := list(ctx, uid, model.StatusPending)
	if err != nil {
		if s.failOpen {
			logger.Warn("list pending requests failed, returning empty", zap.String("uid", uid), zap.Error(err))
			return []FriendRequestView{}, nil
		}
		return nil, fmt.Errorf("list pending for %s: %w", uid, err)
	}

	// 按创建时间倒序，库里不需要排序索引
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})

	names := s.resolveSenders(ctx, rows)
	views := make([]FriendRequestView, len(rows))
	for i, r := range rows {
		name := r.FromUsername
		if current, ok := names[r.FromUID]; ok && current != "" {
			name = current
		}
		views[i] = FriendRequestView{
			ID:           r.ID,
			FromUID:      r.FromUID,
			ToUID:        r.ToUID,
			FromUsername: name,
			Status:       r.Status,
			CreatedAt:    r.CreatedAt,
		}
	}
	return views, nil
}

// resolveSenders 读取发起人当前用户名；失败时退回记录里的快照
func (s *relationshipStore) resolveSenders(ctx context.Context, rows []*model.RelationshipRequest) map[string]string {
	if s.profiles == nil || len(rows) == 0 {
		return nil
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.FromUID)
	}
	names, err := s.profiles.Usernames(ctx, ids)
	if err != nil {
		logger.Warn("resolve sender usernames failed, using snapshot", zap.Error(err))
		return nil
	}
	return names
}

func (s *relationshipStore) FindBetween(ctx context.Context, a, b string) (*model.RelationshipRequest, error) {
	for _, dir := range [][2]string{{a, b}, {b, a}} {
		req, err := s.repo.FindDirected(ctx, dir[0], dir[1])
		if err == nil {
			return req, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

func (s *relationshipStore) InvalidateFriends(ctx context.Context, uids ...string) {
	if err := s.friends.Invalidate(ctx, uids...); err != nil {
		logger.Warn("friend cache invalidate failed", zap.Strings("uids", uids), zap.Error(err))
	}
}
