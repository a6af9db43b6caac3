package feed

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/d60-Lab/feedmix/internal/feed"

type Option func(*Composer)

// WithClock 替换热度衰减使用的时钟（测试用）
func WithClock(now func() time.Time) Option {
	return func(c *Composer) { c.now = now }
}

// WithFetchTimeout 限制整次 ComposePage 的耗时，0 表示不限
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Composer) { c.timeout = d }
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Composer) { c.tracer = t }
}

// Composer 从好友池和热门池组装信息流分页
type Composer struct {
	store   Store
	now     func() time.Time
	timeout time.Duration
	tracer  trace.Tracer
}

func NewComposer(store Store, opts ...Option) *Composer {
	c := &Composer{
		store:   store,
		now:     time.Now,
		timeout: 15 * time.Second,
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchFriendPosts 关注对象的帖子，按发布时间倒序，最多 limit 条
func (c *Composer) FetchFriendPosts(ctx context.Context, viewer Viewer, limit, offset int) ([]Post, error) {
	if !viewer.Authenticated() {
		return nil, ErrAuthRequired
	}
	if limit <= 0 {
		return []Post{}, nil
	}
	following, err := c.store.QueryFollowing(ctx, viewer.UserID)
	if err != nil {
		return nil, &FetchError{Op: "following", Err: err}
	}
	if len(following) == 0 {
		return []Post{}, nil
	}
	posts, err := c.store.QueryPostsByAuthors(ctx, following, limit, offset)
	if err != nil {
		return nil, &FetchError{Op: "friend posts", Err: err}
	}
	sortNewestFirst(posts)
	if len(posts) > limit {
		posts = posts[:limit]
	}
	if err := c.resolveLikes(ctx, viewer, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// FetchTrendingPosts 取窗口期内的候选按热度重排；offset 是候选（存储顺序）的偏移
func (c *Composer) FetchTrendingPosts(ctx context.Context, viewer Viewer, limit, offset int) ([]Post, error) {
	if limit <= 0 {
		return []Post{}, nil
	}
	now := c.now()
	since := now.Add(-TrendingWindowHours * time.Hour)
	posts, err := c.store.QueryRecentPosts(ctx, since, limit*trendingOverfetch, offset)
	if err != nil {
		return nil, &FetchError{Op: "trending posts", Err: err}
	}
	rankTrending(posts, now)
	if len(posts) > limit {
		posts = posts[:limit]
	}
	if err := c.resolveLikes(ctx, viewer, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Composer) resolveLikes(ctx context.Context, viewer Viewer, posts []Post) error {
	if !viewer.Authenticated() || len(posts) == 0 {
		return nil
	}
	ids := make([]string, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
	}
	liked, err := c.store.QueryLikeMembership(ctx, ids, viewer.UserID)
	if err != nil {
		return &FetchError{Op: "likes", Err: err}
	}
	for i := range posts {
		_, posts[i].IsLiked = liked[posts[i].ID]
	}
	return nil
}

// ComposePage 并发拉取两个池再交错合并，任一失败则整页失败
func (c *Composer) ComposePage(ctx context.Context, viewer Viewer, page int) (Composition, error) {
	if !viewer.Authenticated() {
		return Composition{}, ErrAuthRequired
	}
	if page < 1 {
		page = 1
	}
	ctx, span := c.tracer.Start(ctx, "feed.ComposePage", trace.WithAttributes(
		attribute.Int("feed.page", page),
		attribute.String("feed.viewer", viewer.UserID),
	))
	defer span.End()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	friendCount, trendingCount := SlotCounts(PageSize)
	var friends, trending []Post
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		friends, err = c.FetchFriendPosts(gctx, viewer, friendCount, (page-1)*friendCount)
		return err
	})
	g.Go(func() error {
		var err error
		trending, err = c.FetchTrendingPosts(gctx, viewer, trendingCount, (page-1)*trendingCount*trendingOverfetch)
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "compose failed")
		return Composition{}, &FetchError{Op: "compose", Err: err}
	}

	comp := Composition{
		Page:     page,
		Items:    Interleave(friends, trending),
		Friends:  len(friends),
		Trending: len(trending),
	}
	span.SetAttributes(
		attribute.Int("feed.friends", comp.Friends),
		attribute.Int("feed.trending", comp.Trending),
	)
	return comp, nil
}

// Interleave 好友、热门交替排列（好友在前），某个池用完就跳过。
// 同时出现在两个池的帖子一律标为好友，对应的热门位空缺不补
func Interleave(friends, trending []Post) []Item {
	rounds := len(friends)
	if len(trending) > rounds {
		rounds = len(trending)
	}
	friendIDs := make(map[string]struct{}, len(friends))
	for _, p := range friends {
		friendIDs[p.ID] = struct{}{}
	}
	items := make([]Item, 0, len(friends)+len(trending))
	seen := make(map[string]struct{}, len(friends)+len(trending))
	add := func(p Post, src Source) {
		if _, ok := seen[p.ID]; ok {
			return
		}
		seen[p.ID] = struct{}{}
		items = append(items, Item{Post: p, Source: src})
	}
	for i := 0; i < rounds; i++ {
		if i < len(friends) {
			add(friends[i], SourceFriend)
		}
		if i < len(trending) {
			if _, dup := friendIDs[trending[i].ID]; !dup {
				add(trending[i], SourceTrending)
			}
		}
	}
	return items
}
