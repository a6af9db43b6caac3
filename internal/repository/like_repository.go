package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/feedmix/internal/model"
)

type LikeRepository interface {
	// Insert 幂等点赞，返回是否新增；新增时同事务内 likes_count+1
	Insert(ctx context.Context, postID, userID string) (bool, error)
	// Delete 取消点赞，返回是否删除；删除时 likes_count-1 且不低于 0
	Delete(ctx context.Context, postID, userID string) (bool, error)
	LikedAmong(ctx context.Context, postIDs []string, userID string) (map[string]struct{}, error)
}

type likeRepository struct {
	db *gorm.DB
}

func NewLikeRepository(db *gorm.DB) LikeRepository { return &likeRepository{db: db} }

func (r *likeRepository) Insert(ctx context.Context, postID, userID string) (bool, error) {
	var created bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		l := &model.Like{ID: uuid.New().String(), PostID: postID, UserID: userID}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(l)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true
		return tx.Model(&model.Post{}).
			Where("id = ?", postID).
			UpdateColumn("likes_count", gorm.Expr("likes_count + 1")).Error
	})
	return created, err
}

func (r *likeRepository) Delete(ctx context.Context, postID, userID string) (bool, error) {
	var removed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&model.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true
		return tx.Model(&model.Post{}).
			Where("id = ?", postID).
			UpdateColumn("likes_count", gorm.Expr("CASE WHEN likes_count > 0 THEN likes_count - 1 ELSE 0 END")).Error
	})
	return removed, err
}

func (r *likeRepository) LikedAmong(ctx context.Context, postIDs []string, userID string) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&model.Like{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}
