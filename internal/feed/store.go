package feed

import (
	"context"
	"time"
)

// Store composer 读取的远端数据源
type Store interface {
	QueryFollowing(ctx context.Context, userID string) ([]string, error)
	// 按发布时间倒序
	QueryPostsByAuthors(ctx context.Context, authorIDs []string, limit, offset int) ([]Post, error)
	// since 之后的帖子，按点赞、评论、发布时间倒序
	QueryRecentPosts(ctx context.Context, since time.Time, limit, offset int) ([]Post, error)
	// 返回 postIDs 中 userID 点过赞的子集
	QueryLikeMembership(ctx context.Context, postIDs []string, userID string) (map[string]struct{}, error)
}
