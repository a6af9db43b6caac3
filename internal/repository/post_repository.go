package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/feedmix/internal/model"
)

type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	GetByID(ctx context.Context, id string) (*model.Post, error)
	// ListByAuthors 按发布时间倒序
	ListByAuthors(ctx context.Context, authorIDs []string, offset, limit int) ([]*model.Post, error)
	// ListRecent 时间窗内的帖子，按 点赞、评论、发布时间 倒序
	ListRecent(ctx context.Context, since time.Time, offset, limit int) ([]*model.Post, error)
	Delete(ctx context.Context, id string) error
	WithTx(tx *gorm.DB) PostRepository
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

func (r *postRepository) WithTx(tx *gorm.DB) PostRepository { return &postRepository{db: tx} }

func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).Omit("Author").Create(post).Error
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*model.Post, error) {
	var p model.Post
	if err := r.db.WithContext(ctx).Preload("Author").Where("id = ?", id).Take(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postRepository) ListByAuthors(ctx context.Context, authorIDs []string, offset, limit int) ([]*model.Post, error) {
	if len(authorIDs) == 0 {
		return []*model.Post{}, nil
	}
	var res []*model.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("author_id IN ?", authorIDs).
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *postRepository) ListRecent(ctx context.Context, since time.Time, offset, limit int) ([]*model.Post, error) {
	var res []*model.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("created_at >= ?", since).
		Order("likes_count DESC").Order("comments_count DESC").Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *postRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Post{}).Error
}
