package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/d60-Lab/travel-relation/internal/model"
	"github.com/d60-Lab/travel-relation/internal/repository"
	"github.com/d60-Lab/travel-relation/pkg/logger"
)

var tracer = otel.Tracer("github.com/d60-Lab/travel-relation/internal/service")

// LifecycleService 好友请求的创建、流转与删除
//
//	(无记录) --send--> pending --accept--> accepted
//	pending  --reject/cancel--> (删除)
//	accepted --remove--> (删除)
type LifecycleService interface {
	SendFriendRequest(ctx context.Context, fromUID, fromUsername, toUID string) error
	AcceptFriendRequest(ctx context.Context, requestID, currentUID, fromUID string) error
	// RejectFriendRequest 只能由接收方拒绝；记录已不存在视为成功
	RejectFriendRequest(ctx context.Context, requestID, currentUID string) error
	// CancelFriendRequest 发起方撤回自己的 pending 请求；不存在视为成功
	CancelFriendRequest(ctx context.Context, currentUID, toUID string) error
	// RemoveFriend 解除好友；找不到记录视为已完成
	RemoveFriend(ctx context.Context, currentUID, friendUID string) error
}

// LifecycleOptions 行为开关
type LifecycleOptions struct {
	CleanupOverlaysOnRemove bool
}

type lifecycleService struct {
	repo     repository.RelationshipRepository
	store    RelationshipStore
	overlays repository.OverlayRepository
	profiles ProfileService
	events   *EventDispatcher
	validate *validator.Validate
	opts     LifecycleOptions
}

func NewLifecycleService(
	repo repository.RelationshipRepository,
	store RelationshipStore,
	overlays repository.OverlayRepository,
	profiles ProfileService,
	events *EventDispatcher,
	opts LifecycleOptions,
) LifecycleService {
	return &lifecycleService{
		repo:     repo,
		store:    store,
		overlays: overlays,
		profiles: profiles,
		events:   events,
		validate: validator.New(),
		opts:     opts,
	}
}

type sendInput struct {
	FromUID      string `validate:"required,max=128"`
	FromUsername string `validate:"max=64"`
	ToUID        string `validate:"required,max=128"`
}

func (s *lifecycleService) SendFriendRequest(ctx context.Context, fromUID, fromUsername, toUID string) (err error) {
	ctx, span := tracer.Start(ctx, "relation.SendFriendRequest",
		trace.WithAttributes(attribute.String("from_uid", fromUID), attribute.String("to_uid", toUID)))
	defer func() { endSpan(span, err) }()

	if err := s.validate.Struct(sendInput{FromUID: fromUID, FromUsername: fromUsername, ToUID: toUID}); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if fromUID == toUID {
		return ErrSelfRequest
	}
	fromUsername = s.senderName(ctx, fromUID, fromUsername)

	friends, err := s.store.AreFriends(ctx, fromUID, toUID)
	if err != nil {
		return fmt.Errorf("send friend request: %w", err)
	}
	if friends {
		return ErrAlreadyFriends
	}

	existing, err := s.store.FindBetween(ctx, fromUID, toUID)
	if err != nil {
		return fmt.Errorf("send friend request: %w", err)
	}
	if existing != nil {
		switch {
		case existing.Status == model.StatusAccepted:
			return ErrAlreadyFriends
		case existing.FromUID == fromUID:
			return ErrAlreadySent
		default:
			return ErrIncomingPending
		}
	}

	req := model.NewRelationshipRequest(fromUID, fromUsername, toUID)
	created, err := s.repo.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("send friend request: %w", err)
	}
	if !created {
		// 并发的另一次发送先落库了
		return ErrAlreadySent
	}

	logger.Info("friend request sent", zap.String("id", req.ID), zap.String("from", fromUID), zap.String("to", toUID))
	s.emit(EventRequestSent, req)
	return nil
}

// senderName 快照取发起人资料里的用户名；没有资料时用调用方传入的值
func (s *lifecycleService) senderName(ctx context.Context, uid, fallback string) string {
	if s.profiles == nil {
		return fallback
	}
	p, err := s.profiles.GetUserProfile(ctx, uid)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			logger.Warn("load sender profile failed, using given username", zap.String("uid", uid), zap.Error(err))
		}
		return fallback
	}
	if p.Username == "" {
		return fallback
	}
	return p.Username
}

func (s *lifecycleService) AcceptFriendRequest(ctx context.Context, requestID, currentUID, fromUID string) (err error) {
	ctx, span := tracer.Start(ctx, "relation.AcceptFriendRequest", trace.WithAttributes(attribute.String("request_id", requestID)))
	defer func() { endSpan(span, err) }()

	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRequestNotFound
		}
		return fmt.Errorf("accept friend request: %w", err)
	}
	if req.ToUID != currentUID || req.FromUID != fromUID {
		return ErrNotRecipient
	}
	if req.Status == model.StatusAccepted {
		return nil
	}

	ok, err := s.repo.UpdateStatus(ctx, req.ID, model.StatusPending, model.StatusAccepted)
	if err != nil {
		return fmt.Errorf("accept friend request: %w", err)
	}
	if !ok {
		// 在读取与更新之间被拒绝或撤回
		return ErrRequestNotFound
	}

	s.store.InvalidateFriends(ctx, req.FromUID, req.ToUID)
	logger.Info("friend request accepted", zap.String("id", req.ID), zap.String("from", req.FromUID), zap.String("to", req.ToUID))
	s.emit(EventRequestAccepted, req)
	return nil
}

func (s *lifecycleService) RejectFriendRequest(ctx context.Context, requestID, currentUID string) (err error) {
	ctx, span := tracer.Start(ctx, "relation.RejectFriendRequest", trace.WithAttributes(attribute.String("request_id", requestID)))
	defer func() { endSpan(span, err) }()

	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("reject friend request: %w", err)
	}
	if req.ToUID != currentUID {
		return ErrNotRecipient
	}
	return s.deletePending(ctx, req, EventRequestRejected)
}

func (s *lifecycleService) CancelFriendRequest(ctx context.Context, currentUID, toUID string) (err error) {
	ctx, span := tracer.Start(ctx, "relation.CancelFriendRequest",
		trace.WithAttributes(attribute.String("from_uid", currentUID), attribute.String("to_uid", toUID)))
	defer func() { endSpan(span, err) }()

	req, err := s.repo.FindDirected(ctx, currentUID, toUID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("cancel friend request: %w", err)
	}
	return s.deletePending(ctx, req, EventRequestCancelled)
}

// deletePending 拒绝/撤回只删除 pending 记录，不能借此解除好友
func (s *lifecycleService) deletePending(ctx context.Context, req *model.RelationshipRequest, ev EventType) error {
	if req.Status != model.StatusPending {
		return ErrNotPending
	}
	ok, err := s.repo.DeleteWithStatus(ctx, req.ID, model.StatusPending)
	if err != nil {
		return fmt.Errorf("delete pending request: %w", err)
	}
	if ok {
		s.emit(ev, req)
	}
	return nil
}

func (s *lifecycleService) RemoveFriend(ctx context.Context, currentUID, friendUID string) (err error) {
	ctx, span := tracer.Start(ctx, "relation.RemoveFriend",
		trace.WithAttributes(attribute.String("uid", currentUID), attribute.String("friend_uid", friendUID)))
	defer func() { endSpan(span, err) }()

	req, err := s.findAccepted(ctx, currentUID, friendUID)
	if err != nil {
		return fmt.Errorf("remove friend: %w", err)
	}
	if req != nil {
		// 同一对用户的新请求复用同一个 ID，只删 accepted
		ok, err := s.repo.DeleteWithStatus(ctx, req.ID, model.StatusAccepted)
		if err != nil {
			return fmt.Errorf("remove friend: %w", err)
		}
		if ok {
			s.emit(EventFriendRemoved, req)
		}
	}
	s.store.InvalidateFriends(ctx, currentUID, friendUID)

	if s.opts.CleanupOverlaysOnRemove && s.overlays != nil {
		n, err := s.overlays.RemoveBetween(ctx, currentUID, friendUID)
		if err != nil {
			return fmt.Errorf("remove friend overlays: %w", err)
		}
		if n > 0 && s.profiles != nil {
			s.profiles.Invalidate(ctx, currentUID, friendUID)
		}
	}
	return nil
}

// findAccepted 依次尝试 participants 包含查询、正向、反向
func (s *lifecycleService) findAccepted(ctx context.Context, a, b string) (*model.RelationshipRequest, error) {
	lookups := []func() (*model.RelationshipRequest, error){
		func() (*model.RelationshipRequest, error) { return s.repo.FindByParticipants(ctx, a, b) },
		func() (*model.RelationshipRequest, error) { return s.repo.FindDirected(ctx, a, b) },
		func() (*model.RelationshipRequest, error) { return s.repo.FindDirected(ctx, b, a) },
	}
	for _, lookup := range lookups {
		req, err := lookup()
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if req.Status == model.StatusAccepted {
			return req, nil
		}
	}
	return nil, nil
}

func (s *lifecycleService) emit(t EventType, req *model.RelationshipRequest) {
	if s.events == nil {
		return
	}
	s.events.Enqueue(RelationshipEvent{Type: t, RequestID: req.ID, FromUID: req.FromUID, ToUID: req.ToUID})
}

func endSpan(span trace.Span, err error) {
	if err != nil && !IsRejection(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
