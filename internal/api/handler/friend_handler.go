package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/travel-relation/internal/service"
	"github.com/d60-Lab/travel-relation/pkg/middleware"
	"github.com/d60-Lab/travel-relation/pkg/response"
)

type sendRequestBody struct {
	ToUID        string `json:"to_uid" binding:"required"`
	// FromUsername 仅在发起人没有资料时作为用户名快照
	FromUsername string `json:"from_username"`
}

// ListFriends 当前用户的好友 uid 列表
// @Summary 好友列表
// @Tags 好友
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/friends [get]
func (h *Handler) ListFriends(c *gin.Context) {
	friends, err := h.store.GetFriends(c.Request.Context(), middleware.UID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"list": friends})
}

// ListFriendRequests 收到的待处理请求（新的在前）
// @Summary 收到的好友请求
// @Tags 好友
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/friends/requests [get]
func (h *Handler) ListFriendRequests(c *gin.Context) {
	list, err := h.store.GetFriendRequests(c.Request.Context(), middleware.UID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"list": list})
}

// ListOutgoingRequests 发出的待处理请求
// @Summary 发出的好友请求
// @Tags 好友
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/friends/requests/outgoing [get]
func (h *Handler) ListOutgoingRequests(c *gin.Context) {
	list, err := h.store.GetOutgoingRequests(c.Request.Context(), middleware.UID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"list": list})
}

// SendFriendRequest 发送好友请求
// @Summary 发送好友请求
// @Tags 好友
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body sendRequestBody true "接收方"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/friends/requests [post]
func (h *Handler) SendFriendRequest(c *gin.Context) {
	var req sendRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	err := h.lifecycle.SendFriendRequest(c.Request.Context(), middleware.UID(c), req.FromUsername, req.ToUID)
	respond(c, err, service.MsgSent)
}

type acceptRequestBody struct {
	FromUID string `json:"from_uid" binding:"required"`
}

// AcceptFriendRequest 接受好友请求
// @Summary 接受好友请求
// @Tags 好友
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "请求ID"
// @Param request body acceptRequestBody true "发起方"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/friends/requests/{id}/accept [post]
func (h *Handler) AcceptFriendRequest(c *gin.Context) {
	var req acceptRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	err := h.lifecycle.AcceptFriendRequest(c.Request.Context(), c.Param("id"), middleware.UID(c), req.FromUID)
	respond(c, err, service.MsgAccepted)
}

// RejectFriendRequest 拒绝好友请求（删除记录）
// @Summary 拒绝好友请求
// @Tags 好友
// @Produce json
// @Security BearerAuth
// @Param id path string true "请求ID"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/friends/requests/{id}/reject [post]
func (h *Handler) RejectFriendRequest(c *gin.Context) {
	err := h.lifecycle.RejectFriendRequest(c.Request.Context(), c.Param("id"), middleware.UID(c))
	respond(c, err, service.MsgRejected)
}

// CancelFriendRequest 撤回发出的请求
// @Summary 撤回好友请求
// @Tags 好友
// @Produce json
// @Security BearerAuth
// @Param uid path string true "接收方"
// @Success 200 {object} response.Response
// @Router /api/v1/friends/requests/outgoing/{uid} [delete]
func (h *Handler) CancelFriendRequest(c *gin.Context) {
	err := h.lifecycle.CancelFriendRequest(c.Request.Context(), middleware.UID(c), c.Param("uid"))
	respond(c, err, service.MsgCancelled)
}

// RemoveFriend 解除好友，重复调用也返回成功
// @Summary 解除好友
// @Tags 好友
// @Produce json
// @Security BearerAuth
// @Param uid path string true "好友"
// @Success 200 {object} response.Response
// @Router /api/v1/friends/{uid} [delete]
func (h *Handler) RemoveFriend(c *gin.Context) {
	err := h.lifecycle.RemoveFriend(c.Request.Context(), middleware.UID(c), c.Param("uid"))
	respond(c, err, service.MsgRemoved)
}
