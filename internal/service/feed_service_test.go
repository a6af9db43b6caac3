package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/feedmix/internal/feed"
	"github.com/d60-Lab/feedmix/internal/repository"
)

var firstPage = []string{"f00", "t00", "f01", "t01", "f02", "t02", "f03", "t03", "f04", "f05"}

func TestFeedLoadUsesCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	v, err := f.svc.Load(ctx, me, false)
	require.NoError(t, err)
	assert.False(t, v.FromCache)
	assert.Equal(t, firstPage, itemIDs(v.Items))
	assert.Equal(t, feed.Pagination{Page: 1, HasMore: true}, v.Pagination)

	v, err = f.svc.Load(ctx, me, false)
	require.NoError(t, err)
	assert.True(t, v.FromCache)
	assert.Equal(t, firstPage, itemIDs(v.Items))
	assert.True(t, v.Pagination.HasMore)

	v, err = f.svc.Load(ctx, me, true)
	require.NoError(t, err)
	assert.False(t, v.FromCache)
	assert.Equal(t, int64(1), f.feedCache.Stats().Hits)
}

func TestFeedLoadFallsBackToCachedPage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Load(ctx, me, false)
	require.NoError(t, err)

	f.store.setFail(errors.New("offline"))
	v, err := f.svc.Load(ctx, me, true)
	require.NoError(t, err)
	assert.True(t, v.FromCache)
	assert.True(t, v.Stale)
	assert.Equal(t, firstPage, itemIDs(v.Items))

	require.NoError(t, f.svc.Invalidate(ctx, me.UserID))
	_, err = f.svc.Load(ctx, me, false)
	require.Error(t, err)
	assert.True(t, feed.IsFetchError(err))
}

func TestFeedLoadMorePaginates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Load(ctx, me, false)
	require.NoError(t, err)

	v, err := f.svc.LoadMore(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, append(append([]string{}, firstPage...), "f06", "f07"), itemIDs(v.Items))
	assert.Equal(t, feed.Pagination{Page: 2, HasMore: false}, v.Pagination)

	again, err := f.svc.LoadMore(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, itemIDs(v.Items), itemIDs(again.Items))
	assert.Equal(t, 2, again.Pagination.Page)
}

func TestFeedLoadMoreFailureKeepsPage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Load(ctx, me, false)
	require.NoError(t, err)

	f.store.setFail(errors.New("offline"))
	_, err = f.svc.LoadMore(ctx, me)
	require.Error(t, err)
	var fe *feed.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "compose", fe.Op)

	cur, err := f.svc.Current(me)
	require.NoError(t, err)
	assert.Equal(t, 1, cur.Pagination.Page)
	assert.Len(t, cur.Items, 10)

	f.store.setFail(nil)
	v, err := f.svc.LoadMore(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, 2, v.Pagination.Page)
}

func TestFeedRefreshDiscardsInflightPage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Load(ctx, me, false)
	require.NoError(t, err)

	f.store.mu.Lock()
	f.store.block = make(chan struct{})
	f.store.entered = make(chan struct{}, 1)
	f.store.mu.Unlock()

	done := make(chan FeedView, 1)
	go func() {
		v, err := f.svc.LoadMore(ctx, me)
		assert.NoError(t, err)
		done <- v
	}()
	<-f.store.entered

	// a second LoadMore while one is in flight returns the current view
	v, err := f.svc.LoadMore(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, firstPage, itemIDs(v.Items))

	refreshed, err := f.svc.Load(ctx, me, true)
	require.NoError(t, err)
	assert.Equal(t, 1, refreshed.Pagination.Page)

	close(f.store.block)
	select {
	case late := <-done:
		assert.Equal(t, firstPage, itemIDs(late.Items))
		assert.Equal(t, 1, late.Pagination.Page)
	case <-time.After(5 * time.Second):
		t.Fatal("LoadMore did not return")
	}
}

func TestFeedRealtimeInsertsOwnPostsOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Load(ctx, me, false)
	require.NoError(t, err)

	_, err = f.publisher.Publish(ctx, "stranger", PublishInput{Content: "not mine"})
	require.NoError(t, err)
	own, err := f.publisher.Publish(ctx, "me", PublishInput{Content: "mine"})
	require.NoError(t, err)
	assert.Equal(t, "me", own.Author.Username)

	require.Eventually(t, func() bool {
		cur, _ := f.svc.Current(me)
		return len(cur.Items) > 0 && cur.Items[0].ID == own.ID
	}, 2*time.Second, 10*time.Millisecond)

	cur, err := f.svc.Current(me)
	require.NoError(t, err)
	assert.Len(t, cur.Items, 11)
	assert.Equal(t, feed.SourceFriend, cur.Items[0].Source)
}

func TestFeedLikeCountsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Load(ctx, me, false)
	require.NoError(t, err)

	require.NoError(t, f.svc.Like(ctx, me, "t00"))
	cur, err := f.svc.Current(me)
	require.NoError(t, err)
	it, ok := findItem(cur.Items, "t00")
	require.True(t, ok)
	assert.True(t, it.IsLiked)
	assert.Equal(t, int64(101), it.LikesCount)

	_, cached := f.feedCache.Get(ctx, me.UserID)
	assert.False(t, cached)

	// wait for the echoed like event to pass through the dispatcher
	marker, err := f.publisher.Publish(ctx, "me", PublishInput{Content: "marker"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		cur, _ := f.svc.Current(me)
		return len(cur.Items) > 0 && cur.Items[0].ID == marker.ID
	}, 2*time.Second, 10*time.Millisecond)

	cur, _ = f.svc.Current(me)
	it, _ = findItem(cur.Items, "t00")
	assert.Equal(t, int64(101), it.LikesCount)

	require.NoError(t, f.svc.Like(ctx, me, "t00"))
	p, err := repository.NewPostRepository(f.db).GetByID(ctx, "t00")
	require.NoError(t, err)
	assert.Equal(t, int64(101), p.LikesCount)

	require.NoError(t, f.svc.Unlike(ctx, me, "t00"))
	cur, _ = f.svc.Current(me)
	it, _ = findItem(cur.Items, "t00")
	assert.False(t, it.IsLiked)
	assert.Equal(t, int64(100), it.LikesCount)

	assert.ErrorIs(t, f.svc.Like(ctx, me, "missing"), ErrPostNotFound)
}

func TestFeedDeleteTombstoneFiltersLaterPages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Load(ctx, me, false)
	require.NoError(t, err)

	f.svc.ApplyChange(me.UserID, feed.PostEvent{Kind: feed.EventDelete, Post: feed.Post{ID: "f00"}})
	f.svc.ApplyChange(me.UserID, feed.PostEvent{Kind: feed.EventDelete, Post: feed.Post{ID: "f06"}})

	v, err := f.svc.LoadMore(ctx, me)
	require.NoError(t, err)
	assert.NotContains(t, itemIDs(v.Items), "f00")
	assert.NotContains(t, itemIDs(v.Items), "f06")
	assert.Contains(t, itemIDs(v.Items), "f07")
}

func TestFeedAnalyticsAndLogout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Load(ctx, me, false)
	require.NoError(t, err)

	a, err := f.svc.Analytics(me)
	require.NoError(t, err)
	assert.Equal(t, 10, a.TotalPosts)
	assert.Equal(t, 6, a.FriendPosts)
	assert.Equal(t, 4, a.TrendingPosts)
	require.NotNil(t, a.TopPost)
	assert.Equal(t, "t00", a.TopPost.ID)

	require.NoError(t, f.svc.Logout(ctx, me))
	_, cached := f.feedCache.Get(ctx, me.UserID)
	assert.False(t, cached)
	cur, err := f.svc.Current(me)
	require.NoError(t, err)
	assert.Empty(t, cur.Items)
}

func TestFeedRequiresAuthentication(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	anon := feed.Viewer{}

	_, err := f.svc.Load(ctx, anon, false)
	assert.ErrorIs(t, err, feed.ErrAuthRequired)
	_, err = f.svc.LoadMore(ctx, anon)
	assert.ErrorIs(t, err, feed.ErrAuthRequired)
	assert.ErrorIs(t, f.svc.Like(ctx, anon, "t00"), feed.ErrAuthRequired)
	_, err = f.svc.Analytics(anon)
	assert.ErrorIs(t, err, feed.ErrAuthRequired)
}
