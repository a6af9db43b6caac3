// Package realtime 传递帖子和点赞的行级变更，并按用户顺序交给信息流会话
package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/d60-Lab/feedmix/internal/feed"
)

const (
	TablePosts = "posts"
	TableLikes = "likes"
)

// Change 总线上的行变更；点赞变更按 UserID 路由到点赞用户
type Change struct {
	Table  string          `json:"table"`
	Kind   feed.EventKind  `json:"kind"`
	UserID string          `json:"user_id,omitempty"`
	Record json.RawMessage `json:"record"`
	At     time.Time       `json:"at"`
}

type authorRecord struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatar_url"`
}

// PostRecord posts 行的传输结构
type PostRecord struct {
	ID            string        `json:"id"`
	AuthorID      string        `json:"author_id"`
	Author        *authorRecord `json:"author,omitempty"`
	Content       string        `json:"content"`
	ImageURL      string        `json:"image_url,omitempty"`
	Images        []string      `json:"images,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	LikesCount    int64         `json:"likes_count"`
	CommentsCount int64         `json:"comments_count"`
	SharesCount   int64         `json:"shares_count"`
}

type LikeRecord struct {
	PostID string `json:"post_id"`
	UserID string `json:"user_id"`
}

func NewPostChange(kind feed.EventKind, p feed.Post) (Change, error) {
	rec := PostRecord{
		ID:            p.ID,
		AuthorID:      p.AuthorID,
		Content:       p.Content,
		Images:        p.Images,
		CreatedAt:     p.CreatedAt,
		LikesCount:    p.LikesCount,
		CommentsCount: p.CommentsCount,
		SharesCount:   p.SharesCount,
	}
	if p.Author.Username != "" {
		rec.Author = &authorRecord{ID: p.Author.ID, Username: p.Author.Username, AvatarURL: p.Author.AvatarURL}
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return Change{}, err
	}
	return Change{Table: TablePosts, Kind: kind, Record: raw, At: time.Now()}, nil
}

func NewLikeChange(kind feed.EventKind, postID, userID string) (Change, error) {
	raw, err := json.Marshal(LikeRecord{PostID: postID, UserID: userID})
	if err != nil {
		return Change{}, err
	}
	return Change{Table: TableLikes, Kind: kind, UserID: userID, Record: raw, At: time.Now()}, nil
}

// Decode 校验并转换为归一化的 feed 事件
func Decode(c Change) (feed.Event, error) {
	switch c.Kind {
	case feed.EventInsert, feed.EventUpdate, feed.EventDelete:
	default:
		return nil, fmt.Errorf("realtime: unknown change kind %q", c.Kind)
	}
	switch c.Table {
	case TablePosts:
		var rec PostRecord
		if err := json.Unmarshal(c.Record, &rec); err != nil {
			return nil, fmt.Errorf("realtime: decode post: %w", err)
		}
		if rec.ID == "" {
			return nil, fmt.Errorf("realtime: post change without id")
		}
		return feed.PostEvent{Kind: c.Kind, Post: rec.toPost()}, nil
	case TableLikes:
		if c.Kind == feed.EventUpdate {
			return nil, fmt.Errorf("realtime: like rows are not updated")
		}
		var rec LikeRecord
		if err := json.Unmarshal(c.Record, &rec); err != nil {
			return nil, fmt.Errorf("realtime: decode like: %w", err)
		}
		if rec.PostID == "" {
			return nil, fmt.Errorf("realtime: like change without post id")
		}
		return feed.LikeEvent{Kind: c.Kind, PostID: rec.PostID, UserID: rec.UserID}, nil
	default:
		return nil, fmt.Errorf("realtime: unknown table %q", c.Table)
	}
}

func (r PostRecord) toPost() feed.Post {
	p := feed.Post{
		ID:            r.ID,
		AuthorID:      r.AuthorID,
		Content:       r.Content,
		Images:        r.Images,
		CreatedAt:     r.CreatedAt,
		LikesCount:    r.LikesCount,
		CommentsCount: r.CommentsCount,
		SharesCount:   r.SharesCount,
	}
	if len(p.Images) == 0 && r.ImageURL != "" {
		p.Images = []string{r.ImageURL}
	}
	if r.Author != nil {
		p.Author = feed.Author{ID: r.Author.ID, Username: r.Author.Username, AvatarURL: r.Author.AvatarURL}
	}
	return feed.Normalize(p)
}
