package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/d60-Lab/feedmix/internal/repository"
	"github.com/d60-Lab/feedmix/pkg/logger"
)

var (
	ErrFollowSelf = errors.New("cannot follow self")
)

// FeedInvalidator 关注关系变化后让好友池重新计算
type FeedInvalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// RelationshipService 关系链服务
type RelationshipService interface {
	Follow(ctx context.Context, fromUserID, toUserID string) error
	Unfollow(ctx context.Context, fromUserID, toUserID string) error
	ListFollowing(ctx context.Context, userID string, page, pageSize int) ([]string, error)
}

type relationshipService struct {
	followRepo  repository.FollowRepository
	invalidator FeedInvalidator
}

func NewRelationshipService(followRepo repository.FollowRepository, invalidator FeedInvalidator) RelationshipService {
	return &relationshipService{followRepo: followRepo, invalidator: invalidator}
}

func (s *relationshipService) Follow(ctx context.Context, fromUserID, toUserID string) error {
	if fromUserID == toUserID {
		return ErrFollowSelf
	}
	if err := s.followRepo.Create(ctx, fromUserID, toUserID); err != nil {
		return err
	}
	s.invalidate(ctx, fromUserID)
	return nil
}

func (s *relationshipService) Unfollow(ctx context.Context, fromUserID, toUserID string) error {
	if err := s.followRepo.Delete(ctx, fromUserID, toUserID); err != nil {
		return err
	}
	s.invalidate(ctx, fromUserID)
	return nil
}

func (s *relationshipService) invalidate(ctx context.Context, userID string) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx, userID); err != nil {
		logger.Warn("invalidate feed after follow change failed", zap.String("user", userID), zap.Error(err))
	}
}

func (s *relationshipService) ListFollowing(ctx context.Context, userID string, page, pageSize int) ([]string, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	offset := (page - 1) * pageSize
	items, err := s.followRepo.ListFollowings(ctx, userID, offset, pageSize)
	if err != nil {
		return nil, err
	}
	res := make([]string, len(items))
	for i, it := range items {
		res[i] = it.FollowingID
	}
	return res, nil
}
