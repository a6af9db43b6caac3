package feed

// Analytics 当前视图的统计
type Analytics struct {
	TotalPosts        int     `json:"total_posts"`
	FriendPosts       int     `json:"friend_posts"`
	TrendingPosts     int     `json:"trending_posts"`
	AverageEngagement float64 `json:"average_engagement"`
	TopPost           *Item   `json:"top_post,omitempty"`
}

// Analyze 按来源计数，并找出互动数（赞+评论+分享）最高的帖子
func Analyze(items []Item) Analytics {
	a := Analytics{TotalPosts: len(items)}
	if len(items) == 0 {
		return a
	}
	var total, best int64 = 0, -1
	for i := range items {
		it := items[i]
		switch it.Source {
		case SourceFriend:
			a.FriendPosts++
		case SourceTrending:
			a.TrendingPosts++
		}
		e := it.LikesCount + it.CommentsCount + it.SharesCount
		total += e
		if e > best {
			best = e
			a.TopPost = &it
		}
	}
	a.AverageEngagement = float64(total) / float64(len(items))
	return a
}
