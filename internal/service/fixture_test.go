package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/feedmix/internal/cache"
	"github.com/d60-Lab/feedmix/internal/feed"
	"github.com/d60-Lab/feedmix/internal/model"
	"github.com/d60-Lab/feedmix/internal/realtime"
	"github.com/d60-Lab/feedmix/internal/repository"
	"github.com/d60-Lab/feedmix/pkg/database"
)

var me = feed.Viewer{UserID: "me"}

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	return db
}

// controlStore 可注入失败，或让翻页查询阻塞
type controlStore struct {
	*repository.FeedStore

	mu      sync.Mutex
	fail    error
	block   chan struct{}
	entered chan struct{}
}

func (s *controlStore) setFail(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

func (s *controlStore) failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fail
}

func (s *controlStore) QueryFollowing(ctx context.Context, userID string) ([]string, error) {
	if err := s.failure(); err != nil {
		return nil, err
	}
	return s.FeedStore.QueryFollowing(ctx, userID)
}

func (s *controlStore) QueryPostsByAuthors(ctx context.Context, authorIDs []string, limit, offset int) ([]feed.Post, error) {
	s.mu.Lock()
	block, entered := s.block, s.entered
	s.mu.Unlock()
	if offset > 0 && block != nil {
		entered <- struct{}{}
		<-block
	}
	return s.FeedStore.QueryPostsByAuthors(ctx, authorIDs, limit, offset)
}

type fixture struct {
	db        *gorm.DB
	store     *controlStore
	bus       *realtime.MemoryBus
	feedCache *cache.Cache[feed.Item]
	svc       FeedService
	publisher *Publisher
}

// newFixture: me 关注 friend；friend 有 8 篇旧帖，stranger 有 8 篇 24 小时内的热帖
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := openDB(t)

	users := repository.NewUserRepository(db)
	for _, id := range []string{"me", "friend", "stranger"} {
		require.NoError(t, users.Upsert(ctx, &model.User{ID: id, Username: id}))
	}
	follows := repository.NewFollowRepository(db)
	require.NoError(t, follows.Create(ctx, "me", "friend"))

	posts := repository.NewPostRepository(db)
	now := time.Now()
	for i := 0; i < 8; i++ {
		require.NoError(t, posts.Create(ctx, &model.Post{
			ID:        fmt.Sprintf("f%02d", i),
			AuthorID:  "friend",
			Content:   "friend post",
			CreatedAt: now.Add(-time.Duration(i+1) * 48 * time.Hour),
		}))
		require.NoError(t, posts.Create(ctx, &model.Post{
			ID:         fmt.Sprintf("t%02d", i),
			AuthorID:   "stranger",
			Content:    "trending post",
			LikesCount: int64(100 - i),
			CreatedAt:  now.Add(-time.Duration(i+1) * time.Minute),
		}))
	}

	likes := repository.NewLikeRepository(db)
	store := &controlStore{FeedStore: repository.NewFeedStore(follows, posts, likes)}
	composer := feed.NewComposer(store, feed.WithFetchTimeout(5*time.Second))
	feedCache := cache.New[feed.Item](cache.NewMemoryBackend(), "feed")
	bus := realtime.NewMemoryBus()

	svc := NewFeedService(composer, feedCache, posts, likes, bus, FeedOptions{TTL: time.Minute, Workers: 2, QueueSize: 64})
	stop := svc.Start()
	t.Cleanup(func() { _ = stop(context.Background()) })

	return &fixture{
		db:        db,
		store:     store,
		bus:       bus,
		feedCache: feedCache,
		svc:       svc,
		publisher: NewPublisher(db, bus),
	}
}

func itemIDs(items []feed.Item) []string {
	out := make([]string, len(items))
	for i := range items {
		out[i] = items[i].ID
	}
	return out
}

func findItem(items []feed.Item, id string) (feed.Item, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return feed.Item{}, false
}
