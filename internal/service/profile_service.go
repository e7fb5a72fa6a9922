package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/d60-Lab/travel-relation/internal/cache"
	"github.com/d60-Lab/travel-relation/internal/model"
	"github.com/d60-Lab/travel-relation/internal/repository"
	"github.com/d60-Lab/travel-relation/pkg/logger"
)

// ProfileService 资料读取（带缓存）与缓存失效
type ProfileService interface {
	GetUserProfile(ctx context.Context, uid string) (*model.UserProfile, error)
	// Usernames 批量解析当前用户名，缺失的 uid 不出现在结果里
	Usernames(ctx context.Context, uids []string) (map[string]string, error)
	// Invalidate 资料可见字段变更后调用
	Invalidate(ctx context.Context, uids ...string)
}

type profileService struct {
	users    repository.UserRepository
	overlays repository.OverlayRepository
	cache    cache.ProfileCache
}

func NewProfileService(users repository.UserRepository, overlays repository.OverlayRepository, pc cache.ProfileCache) ProfileService {
	if pc == nil {
		pc = cache.NopProfileCache{}
	}
	return &profileService{users: users, overlays: overlays, cache: pc}
}

func (s *profileService) GetUserProfile(ctx context.Context, uid string) (*model.UserProfile, error) {
	if p, ok := s.cache.Get(ctx, uid); ok {
		return p, nil
	}

	u, err := s.users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user %s: %w", uid, err)
	}
	entries, err := s.overlays.ListByOwner(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("load overlays %s: %w", uid, err)
	}

	p := &model.UserProfile{UID: u.ID, Username: u.Username, HiddenFriendIDs: []string{}, HidePinsFrom: []string{}}
	for _, e := range entries {
		switch e.Kind {
		case model.OverlayHiddenFriend:
			p.HiddenFriendIDs = append(p.HiddenFriendIDs, e.TargetID)
		case model.OverlayHidePinsFrom:
			p.HidePinsFrom = append(p.HidePinsFrom, e.TargetID)
		}
	}
	s.cache.Set(ctx, p)
	return p, nil
}

func (s *profileService) Usernames(ctx context.Context, uids []string) (map[string]string, error) {
	users, err := s.users.GetByIDs(ctx, uids)
	if err != nil {
		return nil, err
	}
	res := make(map[string]string, len(users))
	for id, u := range users {
		res[id] = u.Username
	}
	return res, nil
}

func (s *profileService) Invalidate(ctx context.Context, uids ...string) {
	if err := s.cache.Invalidate(ctx, uids...); err != nil {
		logger.Warn("profile cache invalidate failed", zap.Strings("uids", uids), zap.Error(err))
	}
}
