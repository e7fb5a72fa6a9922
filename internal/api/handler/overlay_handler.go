package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/travel-relation/internal/service"
	"github.com/d60-Lab/travel-relation/pkg/middleware"
	"github.com/d60-Lab/travel-relation/pkg/response"
)

// GetOverlay 当前用户的两份可见性名单
// @Summary 可见性名单
// @Tags 可见性
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 400 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/me/overlay [get]
func (h *Handler) GetOverlay(c *gin.Context) {
	p, err := h.overlay.GetOverlay(c.Request.Context(), middleware.UID(c))
	if err != nil {
		if service.IsRejection(err) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"hiddenFriendIds": p.HiddenFriendIDs, "hidePinsFrom": p.HidePinsFrom})
}

// SetHiddenFriend PUT 隐藏该好友的内容，DELETE 取消隐藏
// @Summary 隐藏/取消隐藏好友内容
// @Tags 可见性
// @Security BearerAuth
// @Param uid path string true "好友"
// @Success 200 {object} response.Response
// @Router /api/v1/me/hidden-friends/{uid} [put]
// @Router /api/v1/me/hidden-friends/{uid} [delete]
func (h *Handler) SetHiddenFriend(c *gin.Context) {
	on := c.Request.Method == http.MethodPut
	err := h.overlay.SetHiddenFriend(c.Request.Context(), middleware.UID(c), c.Param("uid"), on)
	respond(c, err, service.MsgUpdated)
}

// SetHidePinsFrom PUT 禁止该好友看到我的内容，DELETE 取消
// @Summary 对好友隐藏/公开我的内容
// @Tags 可见性
// @Security BearerAuth
// @Param uid path string true "好友"
// @Success 200 {object} response.Response
// @Router /api/v1/me/hide-pins-from/{uid} [put]
// @Router /api/v1/me/hide-pins-from/{uid} [delete]
func (h *Handler) SetHidePinsFrom(c *gin.Context) {
	on := c.Request.Method == http.MethodPut
	err := h.overlay.SetHidePinsFrom(c.Request.Context(), middleware.UID(c), c.Param("uid"), on)
	respond(c, err, service.MsgUpdated)
}
