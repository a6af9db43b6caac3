package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/feedmix/internal/model"
)

type WardrobeRepository interface {
	Create(ctx context.Context, item *model.WardrobeItem) error
	ListByUser(ctx context.Context, userID string) ([]model.WardrobeItem, error)
}

type wardrobeRepository struct {
	db *gorm.DB
}

func NewWardrobeRepository(db *gorm.DB) WardrobeRepository { return &wardrobeRepository{db: db} }

func (r *wardrobeRepository) Create(ctx context.Context, item *model.WardrobeItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// ListByUser 收藏优先，其次按创建时间倒序
func (r *wardrobeRepository) ListByUser(ctx context.Context, userID string) ([]model.WardrobeItem, error) {
	res := []model.WardrobeItem{}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_favorite DESC").Order("created_at DESC").
		Find(&res).Error
	return res, err
}
