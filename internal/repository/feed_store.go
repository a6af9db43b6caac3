package repository

import (
	"context"
	"time"

	"github.com/d60-Lab/feedmix/internal/feed"
	"github.com/d60-Lab/feedmix/internal/model"
)

// FeedStore 把 gorm 仓储适配为 feed.Store
type FeedStore struct {
	follows FollowRepository
	posts   PostRepository
	likes   LikeRepository
}

var _ feed.Store = (*FeedStore)(nil)

func NewFeedStore(follows FollowRepository, posts PostRepository, likes LikeRepository) *FeedStore {
	return &FeedStore{follows: follows, posts: posts, likes: likes}
}

func (s *FeedStore) QueryFollowing(ctx context.Context, userID string) ([]string, error) {
	return s.follows.ListFollowingIDs(ctx, userID)
}

func (s *FeedStore) QueryPostsByAuthors(ctx context.Context, authorIDs []string, limit, offset int) ([]feed.Post, error) {
	rows, err := s.posts.ListByAuthors(ctx, authorIDs, offset, limit)
	if err != nil {
		return nil, err
	}
	return ToFeedPosts(rows), nil
}

func (s *FeedStore) QueryRecentPosts(ctx context.Context, since time.Time, limit, offset int) ([]feed.Post, error) {
	rows, err := s.posts.ListRecent(ctx, since, offset, limit)
	if err != nil {
		return nil, err
	}
	return ToFeedPosts(rows), nil
}

func (s *FeedStore) QueryLikeMembership(ctx context.Context, postIDs []string, userID string) (map[string]struct{}, error) {
	return s.likes.LikedAmong(ctx, postIDs, userID)
}

// ToFeedPost 数据库行 -> 统一的 feed.Post（缺失作者时为 Anonymous）
func ToFeedPost(p *model.Post) feed.Post {
	out := feed.Post{
		ID:            p.ID,
		AuthorID:      p.AuthorID,
		Content:       p.Content,
		CreatedAt:     p.CreatedAt,
		LikesCount:    p.LikesCount,
		CommentsCount: p.CommentsCount,
		SharesCount:   p.SharesCount,
	}
	if p.ImageURL != "" {
		out.Images = []string{p.ImageURL}
	}
	if p.Author != nil {
		out.Author = feed.Author{ID: p.Author.ID, Username: p.Author.Username, AvatarURL: p.Author.AvatarURL}
	}
	return feed.Normalize(out)
}

func ToFeedPosts(rows []*model.Post) []feed.Post {
	out := make([]feed.Post, 0, len(rows))
	for _, p := range rows {
		out = append(out, ToFeedPost(p))
	}
	return out
}
