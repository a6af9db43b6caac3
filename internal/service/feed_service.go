package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/feedmix/internal/cache"
	"github.com/d60-Lab/feedmix/internal/feed"
	"github.com/d60-Lab/feedmix/internal/realtime"
	"github.com/d60-Lab/feedmix/internal/repository"
	"github.com/d60-Lab/feedmix/pkg/logger"
)

var (
	ErrPostNotFound = errors.New("post not found")
)

// FeedView 返回给调用方的当前视图
type FeedView struct {
	Items      []feed.Item     `json:"items"`
	Pagination feed.Pagination `json:"pagination"`
	FromCache  bool            `json:"from_cache"`
	Stale      bool            `json:"stale"`
}

// FeedService 管理每个用户的信息流会话：首屏缓存、翻页、点赞与实时事件
type FeedService interface {
	Load(ctx context.Context, viewer feed.Viewer, forceRefresh bool) (FeedView, error)
	LoadMore(ctx context.Context, viewer feed.Viewer) (FeedView, error)
	// Current 返回会话当前视图（含实时更新），不触发拉取
	Current(viewer feed.Viewer) (FeedView, error)
	Like(ctx context.Context, viewer feed.Viewer, postID string) error
	Unlike(ctx context.Context, viewer feed.Viewer, postID string) error
	Analytics(viewer feed.Viewer) (feed.Analytics, error)
	Invalidate(ctx context.Context, userID string) error
	Logout(ctx context.Context, viewer feed.Viewer) error
	ApplyChange(userID string, ev feed.Event)
	// Start 启动实时事件分发，返回停止函数
	Start() func(context.Context) error
}

type FeedOptions struct {
	TTL       time.Duration
	Workers   int
	QueueSize int
}

type session struct {
	mu          sync.Mutex
	state       feed.State
	generation  uint64
	tombstones  map[string]struct{}
	loadingMore bool
	fromCache   bool
	stale       bool
	sub         realtime.Subscription
}

func (s *session) view() FeedView {
	items := make([]feed.Item, len(s.state.Items))
	copy(items, s.state.Items)
	return FeedView{Items: items, Pagination: s.state.Pagination, FromCache: s.fromCache, Stale: s.stale}
}

func (s *session) visible(items []feed.Item) []feed.Item {
	if len(s.tombstones) == 0 {
		return items
	}
	out := make([]feed.Item, 0, len(items))
	for _, it := range items {
		if _, gone := s.tombstones[it.ID]; !gone {
			out = append(out, it)
		}
	}
	return out
}

type feedService struct {
	composer   *feed.Composer
	cache      *cache.Cache[feed.Item]
	ttl        time.Duration
	posts      repository.PostRepository
	likes      repository.LikeRepository
	bus        realtime.Bus
	dispatcher *realtime.Dispatcher

	mu       sync.Mutex
	sessions map[string]*session
}

func NewFeedService(
	composer *feed.Composer,
	feedCache *cache.Cache[feed.Item],
	posts repository.PostRepository,
	likes repository.LikeRepository,
	bus realtime.Bus,
	opts FeedOptions,
) FeedService {
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	s := &feedService{
		composer: composer,
		cache:    feedCache,
		ttl:      opts.TTL,
		posts:    posts,
		likes:    likes,
		bus:      bus,
		sessions: make(map[string]*session),
	}
	s.dispatcher = realtime.NewDispatcher(s.ApplyChange, opts.Workers, opts.QueueSize)
	return s
}

func (s *feedService) Start() func(context.Context) error {
	return s.dispatcher.Start()
}

func (s *feedService) lookup(userID string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[userID]
}

// open 获取或创建会话；首次创建时订阅实时事件
func (s *feedService) open(userID string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		return sess
	}
	sess := &session{state: feed.NewState(), tombstones: map[string]struct{}{}}
	if s.bus != nil {
		sub, err := s.bus.Subscribe(userID, s.dispatcher.Handler(userID))
		if err != nil {
			// 订阅失败不影响拉取，只是没有实时更新
			logger.Warn("realtime subscribe failed", zap.String("user", userID), zap.Error(err))
		}
		sess.sub = sub
	}
	s.sessions[userID] = sess
	return sess
}

func (s *feedService) Load(ctx context.Context, viewer feed.Viewer, forceRefresh bool) (FeedView, error) {
	if !viewer.Authenticated() {
		return FeedView{}, feed.ErrAuthRequired
	}
	sess := s.open(viewer.UserID)
	sess.mu.Lock()
	sess.generation++
	gen := sess.generation
	sess.mu.Unlock()

	var raw int
	res, err := s.cache.Load(ctx, viewer.UserID, s.ttl, func(ctx context.Context) ([]feed.Item, error) {
		comp, err := s.composer.ComposePage(ctx, viewer, 1)
		if err != nil {
			return nil, err
		}
		raw = comp.Raw()
		return comp.Items, nil
	}, forceRefresh)
	if err != nil {
		return FeedView{}, err
	}
	// 缓存命中或共享了别人的拉取时不知道原始条数，用条目数兜底
	if raw < len(res.Items) {
		raw = len(res.Items)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.generation != gen {
		return sess.view(), nil
	}
	sess.state = feed.ApplyPage(feed.NewState(), sess.visible(res.Items), raw)
	sess.fromCache = res.FromCache
	sess.stale = res.Stale
	return sess.view(), nil
}

func (s *feedService) LoadMore(ctx context.Context, viewer feed.Viewer) (FeedView, error) {
	if !viewer.Authenticated() {
		return FeedView{}, feed.ErrAuthRequired
	}
	sess := s.lookup(viewer.UserID)
	if sess == nil {
		return s.Load(ctx, viewer, false)
	}

	sess.mu.Lock()
	if sess.loadingMore || !sess.state.Pagination.HasMore {
		defer sess.mu.Unlock()
		return sess.view(), nil
	}
	sess.loadingMore = true
	gen := sess.generation
	page := sess.state.Pagination.Next()
	sess.mu.Unlock()

	comp, err := s.composer.ComposePage(ctx, viewer, page)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.loadingMore = false
	if err != nil {
		return FeedView{}, err
	}
	if sess.generation != gen {
		return sess.view(), nil
	}
	sess.state = feed.ApplyPage(sess.state, sess.visible(comp.Items), comp.Raw())
	return sess.view(), nil
}

func (s *feedService) Current(viewer feed.Viewer) (FeedView, error) {
	if !viewer.Authenticated() {
		return FeedView{}, feed.ErrAuthRequired
	}
	sess := s.lookup(viewer.UserID)
	if sess == nil {
		return FeedView{Items: []feed.Item{}, Pagination: feed.NewPagination()}, nil
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.view(), nil
}

func (s *feedService) Like(ctx context.Context, viewer feed.Viewer, postID string) error {
	return s.setLiked(ctx, viewer, postID, true)
}

func (s *feedService) Unlike(ctx context.Context, viewer feed.Viewer, postID string) error {
	return s.setLiked(ctx, viewer, postID, false)
}

func (s *feedService) setLiked(ctx context.Context, viewer feed.Viewer, postID string, liked bool) error {
	if !viewer.Authenticated() {
		return feed.ErrAuthRequired
	}
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPostNotFound
		}
		return &feed.FetchError{Op: "post", Err: err}
	}

	var (
		changed bool
		err     error
		kind    = feed.EventInsert
	)
	if liked {
		changed, err = s.likes.Insert(ctx, postID, viewer.UserID)
	} else {
		kind = feed.EventDelete
		changed, err = s.likes.Delete(ctx, postID, viewer.UserID)
	}
	if err != nil {
		return &feed.FetchError{Op: "like", Err: err}
	}

	if sess := s.lookup(viewer.UserID); sess != nil {
		sess.mu.Lock()
		sess.state = feed.ApplyLikeDelta(sess.state, postID, liked)
		sess.mu.Unlock()
	}
	if changed && s.bus != nil {
		if c, err := realtime.NewLikeChange(kind, postID, viewer.UserID); err == nil {
			if err := s.bus.Publish(ctx, c); err != nil {
				logger.Warn("publish like change failed", zap.String("post", postID), zap.Error(err))
			}
		}
	}
	if err := s.Invalidate(ctx, viewer.UserID); err != nil {
		logger.Warn("invalidate feed cache failed", zap.String("user", viewer.UserID), zap.Error(err))
	}
	return nil
}

func (s *feedService) Analytics(viewer feed.Viewer) (feed.Analytics, error) {
	if !viewer.Authenticated() {
		return feed.Analytics{}, feed.ErrAuthRequired
	}
	sess := s.lookup(viewer.UserID)
	if sess == nil {
		return feed.Analyze(nil), nil
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return feed.Analyze(sess.state.Items), nil
}

// Invalidate 清除用户首屏缓存，下次 Load 会重新拉取
func (s *feedService) Invalidate(ctx context.Context, userID string) error {
	return s.cache.Clear(ctx, userID)
}

func (s *feedService) Logout(ctx context.Context, viewer feed.Viewer) error {
	if !viewer.Authenticated() {
		return feed.ErrAuthRequired
	}
	s.mu.Lock()
	sess := s.sessions[viewer.UserID]
	delete(s.sessions, viewer.UserID)
	s.mu.Unlock()
	var errs []error
	if sess != nil && sess.sub != nil {
		if err := sess.sub.Unsubscribe(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.cache.Clear(ctx, viewer.UserID); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ApplyChange 由分发器调用；删除事件记入墓碑，过滤之后到达的旧页
func (s *feedService) ApplyChange(userID string, ev feed.Event) {
	sess := s.lookup(userID)
	if sess == nil {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if pe, ok := ev.(feed.PostEvent); ok && pe.Kind == feed.EventDelete {
		sess.tombstones[pe.Post.ID] = struct{}{}
	}
	sess.state = feed.ApplyRealtimeEvent(sess.state, ev, userID)
}
