package feed

import (
	"context"
	"sort"
	"sync"
	"time"
)

type fakeStore struct {
	mu        sync.Mutex
	following map[string][]string
	posts     []Post
	likes     map[string]map[string]struct{} // user -> post ids

	followingErr error
	authorsErr   error
	recentErr    error
	likesErr     error

	recentCalls []recentCall
	likeCalls   [][]string
}

type recentCall struct {
	since         time.Time
	limit, offset int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		following: map[string][]string{},
		likes:     map[string]map[string]struct{}{},
	}
}

func (f *fakeStore) like(userID, postID string) {
	if f.likes[userID] == nil {
		f.likes[userID] = map[string]struct{}{}
	}
	f.likes[userID][postID] = struct{}{}
}

func (f *fakeStore) QueryFollowing(_ context.Context, userID string) ([]string, error) {
	if f.followingErr != nil {
		return nil, f.followingErr
	}
	return append([]string(nil), f.following[userID]...), nil
}

func (f *fakeStore) QueryPostsByAuthors(_ context.Context, authorIDs []string, limit, offset int) ([]Post, error) {
	if f.authorsErr != nil {
		return nil, f.authorsErr
	}
	set := map[string]struct{}{}
	for _, id := range authorIDs {
		set[id] = struct{}{}
	}
	var out []Post
	for _, p := range f.posts {
		if _, ok := set[p.AuthorID]; ok {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return window(out, limit, offset), nil
}

func (f *fakeStore) QueryRecentPosts(_ context.Context, since time.Time, limit, offset int) ([]Post, error) {
	f.mu.Lock()
	f.recentCalls = append(f.recentCalls, recentCall{since: since, limit: limit, offset: offset})
	f.mu.Unlock()
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	var out []Post
	for _, p := range f.posts {
		if !p.CreatedAt.Before(since) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.LikesCount != b.LikesCount {
			return a.LikesCount > b.LikesCount
		}
		if a.CommentsCount != b.CommentsCount {
			return a.CommentsCount > b.CommentsCount
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return window(out, limit, offset), nil
}

func (f *fakeStore) QueryLikeMembership(_ context.Context, postIDs []string, userID string) (map[string]struct{}, error) {
	f.mu.Lock()
	f.likeCalls = append(f.likeCalls, append([]string(nil), postIDs...))
	f.mu.Unlock()
	if f.likesErr != nil {
		return nil, f.likesErr
	}
	out := map[string]struct{}{}
	for _, id := range postIDs {
		if _, ok := f.likes[userID][id]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func window(posts []Post, limit, offset int) []Post {
	if offset >= len(posts) {
		return []Post{}
	}
	posts = posts[offset:]
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return append([]Post(nil), posts...)
}
