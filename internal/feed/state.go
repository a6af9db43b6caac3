package feed

// Pagination 已加载页数及是否可能还有更多
type Pagination struct {
	Page    int  `json:"page"`
	HasMore bool `json:"has_more"`
}

func NewPagination() Pagination { return Pagination{HasMore: true} }

func (p Pagination) Next() int { return p.Page + 1 }

// Advance 记录一次成功加载；HasMore 一旦为 false 就不再恢复，只有新建状态才会重置
func (p Pagination) Advance(raw int) Pagination {
	return Pagination{Page: p.Page + 1, HasMore: p.HasMore && raw >= PageSize}
}

// State 用户的信息流视图；所有 reducer 都不修改入参
type State struct {
	Items      []Item
	Pagination Pagination
	Friends    map[string]struct{}
	Trending   map[string]struct{}
}

func NewState() State {
	return State{
		Items:      []Item{},
		Pagination: NewPagination(),
		Friends:    map[string]struct{}{},
		Trending:   map[string]struct{}{},
	}
}

func (s State) clone() State {
	out := State{
		Items:      make([]Item, len(s.Items)),
		Pagination: s.Pagination,
		Friends:    make(map[string]struct{}, len(s.Friends)),
		Trending:   make(map[string]struct{}, len(s.Trending)),
	}
	copy(out.Items, s.Items)
	for id := range s.Friends {
		out.Friends[id] = struct{}{}
	}
	for id := range s.Trending {
		out.Trending[id] = struct{}{}
	}
	return out
}

func (s State) indexOf(id string) int {
	for i := range s.Items {
		if s.Items[i].ID == id {
			return i
		}
	}
	return -1
}

func (s State) Contains(id string) bool { return s.indexOf(id) >= 0 }

// ApplyPage 追加一页（跳过已展示的帖子），并按 raw 推进分页
func ApplyPage(s State, items []Item, raw int) State {
	out := s.clone()
	for _, it := range items {
		if out.indexOf(it.ID) >= 0 {
			continue
		}
		out.Items = append(out.Items, it)
		switch it.Source {
		case SourceFriend:
			out.Friends[it.ID] = struct{}{}
		case SourceTrending:
			out.Trending[it.ID] = struct{}{}
		}
	}
	out.Pagination = s.Pagination.Advance(raw)
	return out
}

// ApplyInsert 只把当前用户自己的新帖插到最前
func ApplyInsert(s State, p Post, currentUserID string) State {
	if currentUserID == "" || p.AuthorID != currentUserID || s.Contains(p.ID) {
		return s
	}
	out := s.clone()
	out.Items = append([]Item{{Post: p, Source: SourceFriend}}, out.Items...)
	out.Friends[p.ID] = struct{}{}
	return out
}

// ApplyUpdate 原位更新可变字段，不调整顺序
func ApplyUpdate(s State, p Post) State {
	i := s.indexOf(p.ID)
	if i < 0 {
		return s
	}
	out := s.clone()
	cur := &out.Items[i]
	cur.Content = p.Content
	cur.Images = p.Images
	cur.LikesCount = clamp(p.LikesCount)
	cur.CommentsCount = clamp(p.CommentsCount)
	cur.SharesCount = clamp(p.SharesCount)
	if p.Author.Username != "" && p.Author.Username != AnonymousUsername {
		cur.Author = p.Author
	}
	return out
}

func ApplyDelete(s State, id string) State {
	i := s.indexOf(id)
	if i < 0 {
		return s
	}
	out := s.clone()
	out.Items = append(out.Items[:i], out.Items[i+1:]...)
	delete(out.Friends, id)
	delete(out.Trending, id)
	return out
}

// ApplyLikeDelta 点赞数按 liked 方向 ±1（不低于 0）。
// IsLiked 已一致时不处理，本地乐观更新后回流的实时事件不会重复计数
func ApplyLikeDelta(s State, postID string, liked bool) State {
	i := s.indexOf(postID)
	if i < 0 || s.Items[i].IsLiked == liked {
		return s
	}
	out := s.clone()
	cur := &out.Items[i]
	cur.IsLiked = liked
	if liked {
		cur.LikesCount++
	} else {
		cur.LikesCount = clamp(cur.LikesCount - 1)
	}
	return out
}

type EventKind string

const (
	EventInsert EventKind = "insert"
	EventUpdate EventKind = "update"
	EventDelete EventKind = "delete"
)

// Event 影响信息流视图的实时变更
type Event interface {
	eventKind() EventKind
}

type PostEvent struct {
	Kind EventKind
	Post Post
}

func (e PostEvent) eventKind() EventKind { return e.Kind }

type LikeEvent struct {
	Kind   EventKind
	PostID string
	UserID string
}

func (e LikeEvent) eventKind() EventKind { return e.Kind }

// ApplyRealtimeEvent 分派到对应 reducer；其他用户的点赞事件忽略
func ApplyRealtimeEvent(s State, ev Event, currentUserID string) State {
	switch e := ev.(type) {
	case PostEvent:
		switch e.Kind {
		case EventInsert:
			return ApplyInsert(s, e.Post, currentUserID)
		case EventUpdate:
			return ApplyUpdate(s, e.Post)
		case EventDelete:
			return ApplyDelete(s, e.Post.ID)
		}
	case LikeEvent:
		if e.UserID != currentUserID {
			return s
		}
		switch e.Kind {
		case EventInsert:
			return ApplyLikeDelta(s, e.PostID, true)
		case EventDelete:
			return ApplyLikeDelta(s, e.PostID, false)
		}
	}
	return s
}
