// Package feed 组装好友/热门混合信息流，并提供让视图跟随实时变更的纯函数 reducer
package feed

import "time"

// AnonymousUsername 缺少作者资料时的用户名
const AnonymousUsername = "Anonymous"

// Source 条目来自哪个候选池
type Source string

const (
	SourceFriend   Source = "friend"
	SourceTrending Source = "trending"
)

// Viewer 当前查看者，UserID 为空表示未登录
type Viewer struct {
	UserID string
}

func (v Viewer) Authenticated() bool { return v.UserID != "" }

type Author struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatar_url"`
}

// Post 数据库行、实时消息、缓存快照统一转换成的结构
type Post struct {
	ID            string    `json:"id"`
	AuthorID      string    `json:"author_id"`
	Author        Author    `json:"author"`
	Content       string    `json:"content"`
	Images        []string  `json:"images"`
	CreatedAt     time.Time `json:"created_at"`
	LikesCount    int64     `json:"likes_count"`
	CommentsCount int64     `json:"comments_count"`
	SharesCount   int64     `json:"shares_count"`
	IsLiked       bool      `json:"is_liked"`
	TrendingScore float64   `json:"trending_score,omitempty"`
}

// Normalize 补齐缺失的作者资料，计数小于 0 的归零
func Normalize(p Post) Post {
	if p.Author.ID == "" {
		p.Author.ID = p.AuthorID
	}
	if p.AuthorID == "" {
		p.AuthorID = p.Author.ID
	}
	if p.Author.Username == "" {
		p.Author.Username = AnonymousUsername
	}
	if p.Author.AvatarURL != nil && *p.Author.AvatarURL == "" {
		p.Author.AvatarURL = nil
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	p.LikesCount = clamp(p.LikesCount)
	p.CommentsCount = clamp(p.CommentsCount)
	p.SharesCount = clamp(p.SharesCount)
	return p
}

func clamp(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}

type Item struct {
	Post
	Source Source `json:"source"`
}

type Composition struct {
	Page     int
	Items    []Item
	Friends  int
	Trending int
}

// Raw 两个池返回的原始条数（去重前），用于判断是否还有更多
func (c Composition) Raw() int { return c.Friends + c.Trending }
