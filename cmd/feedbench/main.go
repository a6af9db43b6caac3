package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/feedmix/config"
	"github.com/d60-Lab/feedmix/internal/cache"
	"github.com/d60-Lab/feedmix/internal/feed"
	"github.com/d60-Lab/feedmix/internal/model"
	"github.com/d60-Lab/feedmix/internal/repository"
	"github.com/d60-Lab/feedmix/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func mustDo(err error) {
	if err != nil {
		panic(err)
	}
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

func avg(vs []time.Duration) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range vs {
		sum += d
	}
	return sum / time.Duration(len(vs))
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if v, e := strconv.Atoi(s); e == nil && v > 0 {
			return v
		}
	}
	return def
}

func main() {
	ctx := context.Background()
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	defer database.Close(db)

	// params
	USERS := envInt("USERS", 500)    // authors, half of them followed
	POSTS := envInt("POSTS", 20)     // posts per author
	ROUNDS := envInt("ROUNDS", 200)  // measured compose / hit calls
	VIEWERS := envInt("VIEWERS", 20) // distinct cache keys

	// clean tables for a reproducible run (ok for local bench)
	for _, t := range []string{"likes", "posts", "follows", "users"} {
		_ = db.Exec("DELETE FROM " + t).Error
	}

	follows := repository.NewFollowRepository(db)
	posts := repository.NewPostRepository(db)
	likes := repository.NewLikeRepository(db)

	viewers := make([]model.User, VIEWERS)
	for i := range viewers {
		viewers[i] = model.User{ID: uuid.NewString(), Username: fmt.Sprintf("viewer%d", i)}
	}
	authors := make([]model.User, USERS)
	for i := range authors {
		authors[i] = model.User{ID: uuid.NewString(), Username: fmt.Sprintf("author%d", i)}
	}
	mustDo(db.CreateInBatches(&viewers, 1000).Error)
	mustDo(db.CreateInBatches(&authors, 1000).Error)

	// every viewer follows half of the authors, the rest only show up as trending
	for _, v := range viewers {
		for i := 0; i < USERS/2; i++ {
			mustDo(follows.Create(ctx, v.ID, authors[i].ID))
		}
	}

	base := time.Now()
	rows := make([]model.Post, 0, USERS*POSTS)
	for i, a := range authors {
		for j := 0; j < POSTS; j++ {
			rows = append(rows, model.Post{
				ID:            uuid.NewString(),
				AuthorID:      a.ID,
				Content:       fmt.Sprintf("look %d/%d", i, j),
				LikesCount:    int64((i*7 + j*13) % 97),
				CommentsCount: int64((i + j) % 11),
				SharesCount:   int64(j % 5),
				CreatedAt:     base.Add(-time.Duration(i*POSTS+j) * time.Minute),
			})
		}
	}
	mustDo(db.CreateInBatches(&rows, 1000).Error)
	fmt.Printf("Seeded: viewers=%d authors=%d posts=%d\n", VIEWERS, USERS, len(rows))

	composer := feed.NewComposer(repository.NewFeedStore(follows, posts, likes), feed.WithFetchTimeout(cfg.Feed.FetchTimeout))

	// page composition straight from the database
	compose := make([]time.Duration, 0, ROUNDS)
	pages := 5
	for i := 0; i < ROUNDS; i++ {
		v := feed.Viewer{UserID: viewers[i%VIEWERS].ID}
		st := time.Now()
		_ = must(composer.ComposePage(ctx, v, i%pages+1))
		compose = append(compose, time.Since(st))
	}

	// first page through the expiring cache
	var backend cache.Backend = cache.NewMemoryBackend()
	name := "memory"
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			panic(fmt.Sprintf("Failed to connect to Redis at %s: %v", cfg.Redis.Addr, err))
		}
		backend = cache.NewRedisBackend(client, "feedbench", cfg.Cache.Retain)
		name = "redis"
	}
	c := cache.New[feed.Item](backend, "feed")
	for _, v := range viewers {
		_ = c.Clear(ctx, v.ID)
	}

	load := func(userID string) ([]feed.Item, error) {
		return c.FetchWithCache(ctx, userID, cfg.Cache.FeedTTL, func(ctx context.Context) ([]feed.Item, error) {
			comp, err := composer.ComposePage(ctx, feed.Viewer{UserID: userID}, 1)
			if err != nil {
				return nil, err
			}
			return comp.Items, nil
		}, false)
	}

	miss := make([]time.Duration, 0, VIEWERS)
	for _, v := range viewers {
		st := time.Now()
		_ = must(load(v.ID))
		miss = append(miss, time.Since(st))
	}
	hit := make([]time.Duration, 0, ROUNDS)
	for i := 0; i < ROUNDS; i++ {
		st := time.Now()
		_ = must(load(viewers[i%VIEWERS].ID))
		hit = append(hit, time.Since(st))
	}

	stats := c.Stats()
	fmt.Printf("USERS=%d POSTS=%d ROUNDS=%d VIEWERS=%d driver=%s cache=%s\n", USERS, POSTS, ROUNDS, VIEWERS, cfg.Database.Driver, name)
	fmt.Printf("%-18s avg=%v p95=%v p99=%v\n", "ComposePage", avg(compose), pct(compose, 0.95), pct(compose, 0.99))
	fmt.Printf("%-18s avg=%v p95=%v p99=%v\n", "Cache miss", avg(miss), pct(miss, 0.95), pct(miss, 0.99))
	fmt.Printf("%-18s avg=%v p95=%v p99=%v\n", "Cache hit", avg(hit), pct(hit, 0.95), pct(hit, 0.99))
	fmt.Printf("cache stats: hits=%d misses=%d fetches=%d fallbacks=%d write_failures=%d\n",
		stats.Hits, stats.Misses, stats.Fetches, stats.Fallbacks, stats.WriteFailures)
}
