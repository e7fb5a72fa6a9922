package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/travel-relation/internal/service"
	"github.com/d60-Lab/travel-relation/pkg/response"
)

// Handler 关系链 HTTP 入口
type Handler struct {
	lifecycle service.LifecycleService
	store     service.RelationshipStore
	overlay   service.OverlayService
}

func New(lifecycle service.LifecycleService, store service.RelationshipStore, overlay service.OverlayService) *Handler {
	return &Handler{lifecycle: lifecycle, store: store, overlay: overlay}
}

// respond 把操作结果统一写成 {success, message}；存储故障走 500
func respond(c *gin.Context, err error, okMessage string) {
	res := service.ResultOf(err, okMessage)
	if err == nil {
		response.Success(c, res)
		return
	}
	if !service.IsRejection(err) {
		response.InternalError(c, err)
		return
	}
	response.Error(c, statusFor(err), res.Message, res)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrRequestNotFound), errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNotRecipient):
		return http.StatusForbidden
	case errors.Is(err, service.ErrAlreadySent), errors.Is(err, service.ErrAlreadyFriends),
		errors.Is(err, service.ErrIncomingPending), errors.Is(err, service.ErrNotPending):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
