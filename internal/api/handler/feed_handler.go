package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/feedmix/internal/api/middleware"
	"github.com/d60-Lab/feedmix/pkg/response"
)

// GetFeed 首屏信息流（好友 67% + 热门 33% 交错）
// @Summary 获取首屏信息流
// @Tags 信息流
// @Produce json
// @Security BearerAuth
// @Param refresh query bool false "跳过缓存强制刷新"
// @Success 200 {object} response.Response{data=service.FeedView}
// @Failure 401 {object} response.Response
// @Failure 502 {object} response.Response
// @Router /api/v1/feed [get]
func (h *Handler) GetFeed(c *gin.Context) {
	refresh, _ := strconv.ParseBool(c.DefaultQuery("refresh", "false"))
	view, err := h.feedService.Load(c.Request.Context(), middleware.Viewer(c), refresh)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, view)
}

// LoadMore 加载下一页
// @Summary 加载下一页
// @Tags 信息流
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=service.FeedView}
// @Failure 401 {object} response.Response
// @Failure 502 {object} response.Response
// @Router /api/v1/feed/more [get]
func (h *Handler) LoadMore(c *gin.Context) {
	view, err := h.feedService.LoadMore(c.Request.Context(), middleware.Viewer(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, view)
}

// CurrentFeed 当前会话视图（含实时更新）
// @Summary 当前会话视图
// @Tags 信息流
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=service.FeedView}
// @Failure 401 {object} response.Response
// @Router /api/v1/feed/current [get]
func (h *Handler) CurrentFeed(c *gin.Context) {
	view, err := h.feedService.Current(middleware.Viewer(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, view)
}

// FeedAnalytics 当前会话的来源分布与互动统计
// @Summary 信息流统计
// @Tags 信息流
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=feed.Analytics}
// @Failure 401 {object} response.Response
// @Router /api/v1/feed/analytics [get]
func (h *Handler) FeedAnalytics(c *gin.Context) {
	a, err := h.feedService.Analytics(middleware.Viewer(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, a)
}

// LikePost 点赞
// @Summary 点赞
// @Tags 信息流
// @Produce json
// @Security BearerAuth
// @Param id path string true "帖子ID"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id}/like [post]
func (h *Handler) LikePost(c *gin.Context) {
	if err := h.feedService.Like(c.Request.Context(), middleware.Viewer(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"post_id": c.Param("id"), "liked": true})
}

// UnlikePost 取消点赞
// @Summary 取消点赞
// @Tags 信息流
// @Produce json
// @Security BearerAuth
// @Param id path string true "帖子ID"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id}/like [delete]
func (h *Handler) UnlikePost(c *gin.Context) {
	if err := h.feedService.Unlike(c.Request.Context(), middleware.Viewer(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"post_id": c.Param("id"), "liked": false})
}

// Logout 清理会话、订阅与本地缓存
// @Summary 退出登录
// @Tags 会话
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/session/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	viewer := middleware.Viewer(c)
	ctx := c.Request.Context()
	err := h.feedService.Logout(ctx, viewer)
	if err == nil {
		err = h.wardrobeService.Clear(ctx, viewer.UserID)
	}
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}
