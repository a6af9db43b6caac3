package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/feedmix/config"
	"github.com/d60-Lab/feedmix/internal/api"
	"github.com/d60-Lab/feedmix/internal/api/handler"
	"github.com/d60-Lab/feedmix/internal/cache"
	"github.com/d60-Lab/feedmix/internal/feed"
	"github.com/d60-Lab/feedmix/internal/model"
	"github.com/d60-Lab/feedmix/internal/realtime"
	"github.com/d60-Lab/feedmix/internal/repository"
	"github.com/d60-Lab/feedmix/internal/service"
	"github.com/d60-Lab/feedmix/pkg/database"
	"github.com/d60-Lab/feedmix/pkg/logger"
	"github.com/d60-Lab/feedmix/pkg/tracing"
)

// @title feedmix API
// @version 1.0
// @description 好友/热门混排信息流、衣橱缓存与实时更新
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN, Environment: cfg.Sentry.Environment}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx := context.Background()
	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal("init tracing", zap.Error(err))
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Fatal("init database", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	backend, closeBackend, err := newCacheBackend(ctx, cfg)
	if err != nil {
		logger.Fatal("init cache backend", zap.Error(err))
	}
	defer closeBackend()

	bus, closeBus, err := newBus(cfg)
	if err != nil {
		logger.Fatal("init realtime bus", zap.Error(err))
	}
	defer closeBus()

	follows := repository.NewFollowRepository(db)
	posts := repository.NewPostRepository(db)
	likes := repository.NewLikeRepository(db)

	composer := feed.NewComposer(
		repository.NewFeedStore(follows, posts, likes),
		feed.WithFetchTimeout(cfg.Feed.FetchTimeout),
	)
	feedSvc := service.NewFeedService(
		composer,
		cache.New[feed.Item](backend, "feed"),
		posts, likes, bus,
		service.FeedOptions{TTL: cfg.Cache.FeedTTL, Workers: cfg.Realtime.Workers, QueueSize: cfg.Realtime.QueueSize},
	)
	stopDispatch := feedSvc.Start()

	h := handler.New(
		feedSvc,
		service.NewRelationshipService(follows, feedSvc),
		service.NewWardrobeService(
			repository.NewWardrobeRepository(db),
			cache.New[model.WardrobeItem](backend, "wardrobe"),
			cfg.Cache.WardrobeTTL,
		),
		service.NewPublisher(db, bus),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(cfg, h),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if err := stopDispatch(shutdownCtx); err != nil {
		logger.Warn("dispatcher did not drain", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
}

func newCacheBackend(ctx context.Context, cfg *config.Config) (cache.Backend, func(), error) {
	switch cfg.Cache.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return cache.NewRedisBackend(client, "feedmix", cfg.Cache.Retain), func() { _ = client.Close() }, nil
	case "sqlite":
		cdb, err := database.Open("sqlite", cfg.Cache.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := cdb.AutoMigrate(&model.CacheRecord{}); err != nil {
			return nil, nil, err
		}
		b := cache.NewGormBackend(cdb)
		purgeCache(ctx, b, cfg.Cache.Retain)
		return b, func() { _ = database.Close(cdb) }, nil
	default:
		return cache.NewMemoryBackend(), func() {}, nil
	}
}

func purgeCache(ctx context.Context, b *cache.GormBackend, retain time.Duration) {
	n, err := b.Purge(ctx, time.Now().Add(-retain))
	if err != nil {
		logger.Warn("purge cache records", zap.Error(err))
		return
	}
	if n > 0 {
		logger.Info("purged cache records", zap.Int64("rows", n))
	}
}

func newBus(cfg *config.Config) (realtime.Bus, func(), error) {
	if cfg.Realtime.NatsURL == "" {
		logger.Info("realtime: using in-process bus")
		return realtime.NewMemoryBus(), func() {}, nil
	}
	nc, err := realtime.Connect(cfg.Realtime.NatsURL)
	if err != nil {
		return nil, nil, err
	}
	return realtime.NewNatsBus(nc), func() { _ = nc.Drain() }, nil
}
