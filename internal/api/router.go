package api

import (
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	sentrygin "github.com/getsentry/sentry-go/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/travel-relation/config"
	_ "github.com/d60-Lab/travel-relation/docs"
	"github.com/d60-Lab/travel-relation/internal/api/handler"
	"github.com/d60-Lab/travel-relation/pkg/middleware"
)

// NewRouter 注册路由与全局中间件
func NewRouter(cfg *config.Config, h *handler.Handler) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		sentrygin.New(sentrygin.Options{Repanic: true}),
		otelgin.Middleware(cfg.Tracing.ServiceName),
		middleware.AccessLog(),
		gzip.Gzip(gzip.DefaultCompression),
	)

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	limiter := middleware.NewUserRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	v1 := r.Group("/api/v1", middleware.JWTAuth(cfg.JWT.Secret))
	{
		friends := v1.Group("/friends")
		friends.GET("", h.ListFriends)
		friends.DELETE("/:uid", h.RemoveFriend)
		friends.GET("/requests", h.ListFriendRequests)
		friends.POST("/requests", limiter.Middleware(), h.SendFriendRequest)
		friends.GET("/requests/outgoing", h.ListOutgoingRequests)
		friends.DELETE("/requests/outgoing/:uid", h.CancelFriendRequest)
		friends.POST("/requests/:id/accept", h.AcceptFriendRequest)
		friends.POST("/requests/:id/reject", h.RejectFriendRequest)

		me := v1.Group("/me")
		me.GET("/overlay", h.GetOverlay)
		me.PUT("/hidden-friends/:uid", h.SetHiddenFriend)
		me.DELETE("/hidden-friends/:uid", h.SetHiddenFriend)
		me.PUT("/hide-pins-from/:uid", h.SetHidePinsFrom)
		me.DELETE("/hide-pins-from/:uid", h.SetHidePinsFrom)
	}
	return r
}
