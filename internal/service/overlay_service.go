package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/d60-Lab/travel-relation/internal/model"
	"github.com/d60-Lab/travel-relation/internal/repository"
	"github.com/d60-Lab/travel-relation/pkg/logger"
)

// OverlayService 两份互相独立的可见性名单，与好友记录无关。
//
// hiddenFriendIds: 我不看谁的内容（由查看者维护）。
// hidePinsFrom:    谁不能看我的内容（由内容所有者维护）。
type OverlayService interface {
	SetHiddenFriend(ctx context.Context, uid, friendUID string, hidden bool) error
	SetHidePinsFrom(ctx context.Context, uid, friendUID string, hidden bool) error
	GetHiddenFriendIDs(ctx context.Context, uid string) ([]string, error)
	GetHidePinsFrom(ctx context.Context, uid string) ([]string, error)
	// GetOverlay 两份名单一起返回，优先读带缓存的资料
	GetOverlay(ctx context.Context, uid string) (*model.UserProfile, error)
	// VisibleOwners 过滤出 viewer 可以看到其内容的 owner，保持输入顺序并去重
	VisibleOwners(ctx context.Context, viewerUID string, ownerUIDs []string) ([]string, error)
}

type overlayService struct {
	overlays repository.OverlayRepository
	profiles ProfileService
	validate *validator.Validate
}

func NewOverlayService(overlays repository.OverlayRepository, profiles ProfileService) OverlayService {
	return &overlayService{overlays: overlays, profiles: profiles, validate: validator.New()}
}

func (s *overlayService) SetHiddenFriend(ctx context.Context, uid, friendUID string, hidden bool) error {
	return s.toggle(ctx, uid, model.OverlayHiddenFriend, friendUID, hidden)
}

func (s *overlayService) SetHidePinsFrom(ctx context.Context, uid, friendUID string, hidden bool) error {
	return s.toggle(ctx, uid, model.OverlayHidePinsFrom, friendUID, hidden)
}

func (s *overlayService) toggle(ctx context.Context, uid string, kind model.OverlayKind, target string, on bool) error {
	if err := s.checkUIDs(uid, target); err != nil {
		return err
	}
	if uid == target {
		return ErrSelfOverlay
	}

	var err error
	if on {
		err = s.overlays.Add(ctx, uid, kind, target)
	} else {
		err = s.overlays.Remove(ctx, uid, kind, target)
	}
	if err != nil {
		return fmt.Errorf("update %s: %w", kind, err)
	}

	if s.profiles != nil {
		s.profiles.Invalidate(ctx, uid)
	}
	logger.Debug("overlay updated", zap.String("uid", uid), zap.String("kind", string(kind)), zap.String("target", target), zap.Bool("on", on))
	return nil
}

func (s *overlayService) GetHiddenFriendIDs(ctx context.Context, uid string) ([]string, error) {
	return s.list(ctx, uid, model.OverlayHiddenFriend)
}

func (s *overlayService) GetHidePinsFrom(ctx context.Context, uid string) ([]string, error) {
	return s.list(ctx, uid, model.OverlayHidePinsFrom)
}

func (s *overlayService) list(ctx context.Context, uid string, kind model.OverlayKind) ([]string, error) {
	if err := s.checkUIDs(uid); err != nil {
		return nil, err
	}
	ids, err := s.overlays.List(ctx, uid, kind)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	return ids, nil
}

func (s *overlayService) GetOverlay(ctx context.Context, uid string) (*model.UserProfile, error) {
	if err := s.checkUIDs(uid); err != nil {
		return nil, err
	}
	if s.profiles != nil {
		p, err := s.profiles.GetUserProfile(ctx, uid)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("get overlay: %w", err)
		}
	}

	// 没有资料行的 uid 也可能设置过名单
	hidden, err := s.list(ctx, uid, model.OverlayHiddenFriend)
	if err != nil {
		return nil, err
	}
	pins, err := s.list(ctx, uid, model.OverlayHidePinsFrom)
	if err != nil {
		return nil, err
	}
	return &model.UserProfile{UID: uid, HiddenFriendIDs: hidden, HidePinsFrom: pins}, nil
}

func (s *overlayService) VisibleOwners(ctx context.Context, viewerUID string, ownerUIDs []string) ([]string, error) {
	if err := s.checkUIDs(viewerUID); err != nil {
		return nil, err
	}

	hidden, err := s.overlays.List(ctx, viewerUID, model.OverlayHiddenFriend)
	if err != nil {
		return nil, fmt.Errorf("visible owners: %w", err)
	}
	blocking, err := s.overlays.OwnersTargeting(ctx, model.OverlayHidePinsFrom, viewerUID, ownerUIDs)
	if err != nil {
		return nil, fmt.Errorf("visible owners: %w", err)
	}

	excluded := make(map[string]struct{}, len(hidden)+len(blocking))
	for _, id := range hidden {
		excluded[id] = struct{}{}
	}
	for _, id := range blocking {
		excluded[id] = struct{}{}
	}

	seen := make(map[string]struct{}, len(ownerUIDs))
	res := make([]string, 0, len(ownerUIDs))
	for _, owner := range ownerUIDs {
		if _, dup := seen[owner]; dup {
			continue
		}
		seen[owner] = struct{}{}
		if _, ok := excluded[owner]; ok && owner != viewerUID {
			continue
		}
		res = append(res, owner)
	}
	return res, nil
}

func (s *overlayService) checkUIDs(uids ...string) error {
	for _, uid := range uids {
		if err := s.validate.Var(uid, "required,max=128"); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	return nil
}
