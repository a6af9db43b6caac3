package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/feedmix/internal/api/middleware"
	"github.com/d60-Lab/feedmix/internal/feed"
	"github.com/d60-Lab/feedmix/internal/service"
	"github.com/d60-Lab/feedmix/pkg/response"
)

type createPostRequest struct {
	Content  string `json:"content" binding:"max=2000"`
	ImageURL string `json:"image_url" binding:"omitempty,url"`
	Kind     string `json:"kind" binding:"omitempty,oneof=outfit virtual-tryon inspiration"`
}

// CreatePost 发布帖子（作者本人的信息流通过实时事件插入）
// @Summary 发布帖子
// @Tags 帖子
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createPostRequest true "帖子内容"
// @Success 200 {object} response.Response{data=feed.Post}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
	viewer := middleware.Viewer(c)
	if !viewer.Authenticated() {
		fail(c, feed.ErrAuthRequired)
		return
	}
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	post, err := h.publisher.Publish(c.Request.Context(), viewer.UserID, service.PublishInput{
		Content:  req.Content,
		ImageURL: req.ImageURL,
		Kind:     req.Kind,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, post)
}
