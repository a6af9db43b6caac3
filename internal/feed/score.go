package feed

import (
	"math"
	"sort"
	"time"
)

const (
	PageSize            = 10
	FriendRatio         = 0.67
	TrendingRatio       = 0.33
	TrendingWindowHours = 24

	// 热门候选多取一倍，给重排留空间
	trendingOverfetch = 2
)

// SlotCounts 一页中好友与热门的名额
func SlotCounts(pageSize int) (friends, trending int) {
	friends = int(math.Floor(float64(pageSize) * FriendRatio))
	return friends, pageSize - friends
}

func Engagement(p Post) float64 {
	return float64(p.LikesCount)*2 + float64(p.CommentsCount)*1.5 + float64(p.SharesCount)
}

// TimeDecay 在窗口内线性衰减，下限 1/TrendingWindowHours；未来时间按 0 小时算
func TimeDecay(createdAt, now time.Time) float64 {
	hours := now.Sub(createdAt).Hours()
	if hours < 0 {
		hours = 0
	}
	return math.Max(1, TrendingWindowHours-hours) / TrendingWindowHours
}

func TrendingScore(p Post, now time.Time) float64 {
	return Engagement(p) * TimeDecay(p.CreatedAt, now)
}

// rankTrending 原地打分并按分数排序，同分时新帖在前
func rankTrending(posts []Post, now time.Time) {
	for i := range posts {
		posts[i].TrendingScore = TrendingScore(posts[i], now)
	}
	sort.SliceStable(posts, func(i, j int) bool {
		if posts[i].TrendingScore != posts[j].TrendingScore {
			return posts[i].TrendingScore > posts[j].TrendingScore
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}

func sortNewestFirst(posts []Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}
