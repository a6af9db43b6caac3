package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/feedmix/internal/api/middleware"
	"github.com/d60-Lab/feedmix/internal/feed"
	"github.com/d60-Lab/feedmix/internal/model"
	"github.com/d60-Lab/feedmix/pkg/response"
)

type addWardrobeItemRequest struct {
	Name       string `json:"name" binding:"required,max=128"`
	Category   string `json:"category" binding:"required,max=32"`
	Brand      string `json:"brand" binding:"max=64"`
	Color      string `json:"color" binding:"max=32"`
	ImageURL   string `json:"image_url" binding:"omitempty,url"`
	IsFavorite bool   `json:"is_favorite"`
}

// ListWardrobe 衣橱列表（30 分钟缓存，离线时返回旧快照）
// @Summary 衣橱列表
// @Tags 衣橱
// @Produce json
// @Security BearerAuth
// @Param refresh query bool false "跳过缓存强制刷新"
// @Success 200 {object} response.Response{data=service.WardrobeView}
// @Failure 401 {object} response.Response
// @Router /api/v1/wardrobe [get]
func (h *Handler) ListWardrobe(c *gin.Context) {
	viewer := middleware.Viewer(c)
	if !viewer.Authenticated() {
		fail(c, feed.ErrAuthRequired)
		return
	}
	refresh, _ := strconv.ParseBool(c.DefaultQuery("refresh", "false"))
	view, err := h.wardrobeService.List(c.Request.Context(), viewer.UserID, refresh)
	if err != nil {
		response.BadGateway(c, err)
		return
	}
	response.Success(c, view)
}

// AddWardrobeItem 新增单品
// @Summary 新增衣橱单品
// @Tags 衣橱
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body addWardrobeItemRequest true "单品信息"
// @Success 200 {object} response.Response{data=model.WardrobeItem}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/wardrobe [post]
func (h *Handler) AddWardrobeItem(c *gin.Context) {
	viewer := middleware.Viewer(c)
	if !viewer.Authenticated() {
		fail(c, feed.ErrAuthRequired)
		return
	}
	var req addWardrobeItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	item := &model.WardrobeItem{
		UserID:     viewer.UserID,
		Name:       req.Name,
		Category:   req.Category,
		Brand:      req.Brand,
		Color:      req.Color,
		ImageURL:   req.ImageURL,
		IsFavorite: req.IsFavorite,
	}
	if err := h.wardrobeService.Add(c.Request.Context(), item); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, item)
}

// WardrobeStats 衣橱缓存统计
// @Summary 衣橱缓存统计
// @Tags 衣橱
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=service.WardrobeStats}
// @Failure 401 {object} response.Response
// @Router /api/v1/wardrobe/stats [get]
func (h *Handler) WardrobeStats(c *gin.Context) {
	viewer := middleware.Viewer(c)
	if !viewer.Authenticated() {
		fail(c, feed.ErrAuthRequired)
		return
	}
	response.Success(c, h.wardrobeService.Stats(c.Request.Context(), viewer.UserID))
}
