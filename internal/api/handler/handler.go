package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/feedmix/internal/feed"
	"github.com/d60-Lab/feedmix/internal/service"
	"github.com/d60-Lab/feedmix/pkg/response"
)

// Handler 聚合所有 HTTP 处理器依赖
type Handler struct {
	feedService     service.FeedService
	relService      service.RelationshipService
	wardrobeService service.WardrobeService
	publisher       *service.Publisher
}

func New(
	feedService service.FeedService,
	relService service.RelationshipService,
	wardrobeService service.WardrobeService,
	publisher *service.Publisher,
) *Handler {
	return &Handler{
		feedService:     feedService,
		relService:      relService,
		wardrobeService: wardrobeService,
		publisher:       publisher,
	}
}

// fail 把业务错误映射为 HTTP 状态
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, feed.ErrAuthRequired):
		response.Unauthorized(c, err.Error())
	case errors.Is(err, service.ErrPostNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrFollowSelf),
		errors.Is(err, service.ErrEmptyPost),
		errors.Is(err, service.ErrInvalidWardrobeItem):
		response.BadRequest(c, err.Error())
	case feed.IsFetchError(err):
		response.BadGateway(c, err)
	default:
		response.InternalError(c, err)
	}
}
