package api

import (
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/d60-Lab/feedmix/config"
	_ "github.com/d60-Lab/feedmix/docs"
	"github.com/d60-Lab/feedmix/internal/api/handler"
	"github.com/d60-Lab/feedmix/internal/api/middleware"
	"github.com/d60-Lab/feedmix/pkg/logger"
	"github.com/d60-Lab/feedmix/pkg/response"
)

// NewRouter 组装中间件与路由
func NewRouter(cfg *config.Config, h *handler.Handler) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("panic recovered", zap.Any("panic", recovered), zap.String("path", c.FullPath()))
		response.InternalError(c, nil)
	}))
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if cfg.Server.Mode != gin.ReleaseMode {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	v1.Use(middleware.Auth(cfg.JWT.Secret, cfg.JWT.Issuer))
	{
		fd := v1.Group("/feed")
		fd.GET("", h.GetFeed)
		fd.GET("/more", h.LoadMore)
		fd.GET("/current", h.CurrentFeed)
		fd.GET("/analytics", h.FeedAnalytics)

		posts := v1.Group("/posts")
		posts.POST("", h.CreatePost)
		posts.POST("/:id/like", h.LikePost)
		posts.DELETE("/:id/like", h.UnlikePost)

		wardrobe := v1.Group("/wardrobe")
		wardrobe.GET("", h.ListWardrobe)
		wardrobe.POST("", h.AddWardrobeItem)
		wardrobe.GET("/stats", h.WardrobeStats)

		rel := v1.Group("/relations")
		rel.POST("/follow", h.Follow)
		rel.POST("/unfollow", h.Unfollow)
		rel.GET("/:user_id/following", h.ListFollowing)

		v1.POST("/session/logout", h.Logout)
	}
	return r
}
