package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/feedmix/internal/feed"
	"github.com/d60-Lab/feedmix/internal/model"
	"github.com/d60-Lab/feedmix/internal/realtime"
	"github.com/d60-Lab/feedmix/internal/repository"
	"github.com/d60-Lab/feedmix/pkg/logger"
)

var ErrEmptyPost = errors.New("post needs content or an image")

type PublishInput struct {
	Content  string
	ImageURL string
	Kind     string
}

// Publisher 事务内落地 Post，提交后向实时总线广播 insert
type Publisher struct {
	db  *gorm.DB
	bus realtime.Bus
}

func NewPublisher(db *gorm.DB, bus realtime.Bus) *Publisher { return &Publisher{db: db, bus: bus} }

func (p *Publisher) Publish(ctx context.Context, authorID string, in PublishInput) (feed.Post, error) {
	if authorID == "" {
		return feed.Post{}, feed.ErrAuthRequired
	}
	if strings.TrimSpace(in.Content) == "" && in.ImageURL == "" {
		return feed.Post{}, ErrEmptyPost
	}
	if in.Kind == "" {
		in.Kind = "outfit"
	}

	var out feed.Post
	now := time.Now()
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		posts := repository.NewPostRepository(tx)
		post := &model.Post{
			ID:        uuid.New().String(),
			AuthorID:  authorID,
			Content:   in.Content,
			ImageURL:  in.ImageURL,
			Kind:      in.Kind,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := posts.Create(ctx, post); err != nil {
			return err
		}
		// 回读以带上作者资料
		saved, err := posts.GetByID(ctx, post.ID)
		if err != nil {
			return err
		}
		out = repository.ToFeedPost(saved)
		return nil
	})
	if err != nil {
		return feed.Post{}, err
	}

	if p.bus != nil {
		c, err := realtime.NewPostChange(feed.EventInsert, out)
		if err == nil {
			err = p.bus.Publish(ctx, c)
		}
		if err != nil {
			logger.Warn("publish post change failed", zap.String("post", out.ID), zap.Error(err))
		}
	}
	return out, nil
}
