// @title Travel Relation API
// @version 1.0
// @description 好友请求、好友列表与可见性名单
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/travel-relation/config"
	"github.com/d60-Lab/travel-relation/internal/api"
	"github.com/d60-Lab/travel-relation/internal/api/handler"
	"github.com/d60-Lab/travel-relation/internal/cache"
	"github.com/d60-Lab/travel-relation/internal/repository"
	"github.com/d60-Lab/travel-relation/internal/service"
	"github.com/d60-Lab/travel-relation/pkg/database"
	"github.com/d60-Lab/travel-relation/pkg/logger"
	"github.com/d60-Lab/travel-relation/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN, Environment: cfg.Sentry.Environment}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx := context.Background()
	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		logger.Error("tracing init failed", zap.Error(err))
		os.Exit(1)
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Error("database init failed", zap.Error(err))
		os.Exit(1)
	}

	var (
		profileCache cache.ProfileCache = cache.NopProfileCache{}
		friendCache  cache.FriendCache  = cache.NopFriendCache{}
		publisher    service.EventPublisher
	)
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, caches will miss", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		profileCache = cache.NewRedisProfileCache(rdb, cfg.Cache.ProfileTTL)
		if cfg.Cache.FriendsEnabled {
			friendCache = cache.NewRedisFriendCache(rdb, cfg.Cache.FriendsTTL)
		}
		publisher = service.NewRedisEventPublisher(rdb, cfg.Relation.EventChannel)
	} else {
		publisher = logPublisher{}
	}

	dispatcher := service.NewEventDispatcher(publisher, cfg.Relation.EventQueueSize)
	stopEvents := dispatcher.Start(cfg.Relation.EventWorkers)

	rels := repository.NewRelationshipRepository(db)
	overlays := repository.NewOverlayRepository(db)
	users := repository.NewUserRepository(db)

	profiles := service.NewProfileService(users, overlays, profileCache)
	store := service.NewRelationshipStore(rels, profiles, friendCache, cfg.Relation.FailOpenReads)
	lifecycle := service.NewLifecycleService(rels, store, overlays, profiles, dispatcher,
		service.LifecycleOptions{CleanupOverlaysOnRemove: cfg.Relation.CleanupOverlaysOnRemove})
	overlay := service.NewOverlayService(overlays, profiles)

	gin.SetMode(cfg.Server.Mode)
	router := api.NewRouter(cfg, handler.New(lifecycle, store, overlay))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen failed", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if err := stopEvents(shutdownCtx); err != nil {
		logger.Warn("event queue not drained", zap.Int("pending", dispatcher.QueueLen()), zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
}

// logPublisher 未启用 redis 时只记录事件
type logPublisher struct{}

func (logPublisher) Publish(_ context.Context, ev service.RelationshipEvent) error {
	logger.Debug("relationship event", zap.String("type", string(ev.Type)),
		zap.String("from", ev.FromUID), zap.String("to", ev.ToUID))
	return nil
}
