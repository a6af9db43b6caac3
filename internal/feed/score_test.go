package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlotCounts(t *testing.T) {
	f, tr := SlotCounts(PageSize)
	assert.Equal(t, 6, f)
	assert.Equal(t, 4, tr)
}

func TestTrendingScore(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		post Post
		want float64
	}{
		{
			name: "fresh post keeps full weight",
			post: Post{LikesCount: 10, CommentsCount: 2, SharesCount: 1, CreatedAt: now},
			want: 24,
		},
		{
			name: "half the window",
			post: Post{LikesCount: 10, CommentsCount: 2, SharesCount: 1, CreatedAt: now.Add(-12 * time.Hour)},
			want: 12,
		},
		{
			name: "decay floor at window edge",
			post: Post{LikesCount: 12, CreatedAt: now.Add(-24 * time.Hour)},
			want: 1,
		},
		{
			name: "decay floor beyond window",
			post: Post{LikesCount: 12, CreatedAt: now.Add(-30 * time.Hour)},
			want: 1,
		},
		{
			name: "future timestamp does not boost",
			post: Post{LikesCount: 1, CreatedAt: now.Add(time.Hour)},
			want: 2,
		},
		{
			name: "no engagement",
			post: Post{CreatedAt: now},
			want: 0,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, TrendingScore(tc.post, now), 1e-9)
		})
	}
}

func TestRankTrendingTiesNewestFirst(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	posts := []Post{
		{ID: "old", LikesCount: 1, CreatedAt: now.Add(-30 * time.Hour)},
		{ID: "older", LikesCount: 1, CreatedAt: now.Add(-40 * time.Hour)},
		{ID: "top", LikesCount: 5, CreatedAt: now},
		{ID: "newer", LikesCount: 1, CreatedAt: now.Add(-25 * time.Hour)},
	}
	rankTrending(posts, now)
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	assert.Equal(t, []string{"top", "newer", "old", "older"}, ids)
}

func TestTrendingScoreMonotonicInEngagement(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ages := []time.Duration{-time.Hour, 0, 3 * time.Hour, 12 * time.Hour, 24 * time.Hour, 72 * time.Hour}
	pairs := []struct {
		name      string
		low, high Post
	}{
		{"more likes", Post{LikesCount: 3}, Post{LikesCount: 4}},
		{"more comments", Post{LikesCount: 3, CommentsCount: 1}, Post{LikesCount: 3, CommentsCount: 2}},
		{"more shares", Post{SharesCount: 0}, Post{SharesCount: 5}},
		{"equal engagement", Post{LikesCount: 2, CommentsCount: 2}, Post{LikesCount: 2, CommentsCount: 2}},
		{"from zero", Post{}, Post{LikesCount: 1}},
	}
	for _, tc := range pairs {
		t.Run(tc.name, func(t *testing.T) {
			for _, age := range ages {
				low, high := tc.low, tc.high
				low.CreatedAt = now.Add(-age)
				high.CreatedAt = low.CreatedAt
				assert.GreaterOrEqual(t, TrendingScore(high, now), TrendingScore(low, now), "age %v", age)
			}
		})
	}
}
