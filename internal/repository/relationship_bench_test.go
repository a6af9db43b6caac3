package repository

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/d60-Lab/feedmix/internal/feed"
	"github.com/d60-Lab/feedmix/internal/model"
)

func BenchmarkFollowWrite(b *testing.B) {
	db := openTestDB(b)
	followRepo := NewFollowRepository(db)
	ctx := context.Background()

	// 预创建部分用户
	users := make([]model.User, 1000)
	for i := range users {
		users[i] = model.User{ID: fmt.Sprintf("u%04d", i), Username: fmt.Sprintf("u%04d", i)}
	}
	if err := db.Create(&users).Error; err != nil {
		b.Fatalf("seed users: %v", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		from := users[rng.Intn(len(users))].ID
		to := users[rng.Intn(len(users))].ID
		if from == to {
			continue
		}
		_ = followRepo.Create(ctx, from, to)
	}
}

func BenchmarkComposePage(b *testing.B) {
	db := openTestDB(b)
	ctx := context.Background()

	// 构造：u0 关注 N 个用户，每人 P 篇帖子，时间分布在 48 小时内
	const N, P = 200, 20
	_ = db.Create(&model.User{ID: "u0", Username: "u0"}).Error
	followRepo := NewFollowRepository(db)
	now := time.Now()
	rng := rand.New(rand.NewSource(1))
	posts := make([]model.Post, 0, N*P)
	for i := 1; i <= N; i++ {
		uid := fmt.Sprintf("u%d", i)
		_ = db.Create(&model.User{ID: uid, Username: uid}).Error
		_ = followRepo.Create(ctx, "u0", uid)
		for j := 0; j < P; j++ {
			posts = append(posts, model.Post{
				ID:            fmt.Sprintf("%s-p%d", uid, j),
				AuthorID:      uid,
				Content:       "look",
				LikesCount:    int64(rng.Intn(500)),
				CommentsCount: int64(rng.Intn(50)),
				CreatedAt:     now.Add(-time.Duration(rng.Intn(48*60)) * time.Minute),
			})
		}
	}
	if err := db.CreateInBatches(&posts, 500).Error; err != nil {
		b.Fatalf("seed posts: %v", err)
	}

	store := NewFeedStore(followRepo, NewPostRepository(db), NewLikeRepository(db))
	composer := feed.NewComposer(store)
	viewer := feed.Viewer{UserID: "u0"}

	b.ResetTimer()
	b.Run("FirstPage", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = composer.ComposePage(ctx, viewer, 1)
		}
	})

	b.Run("DeepPage", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = composer.ComposePage(ctx, viewer, 50)
		}
	})
}
