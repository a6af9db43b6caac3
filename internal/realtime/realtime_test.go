package realtime

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/feedmix/internal/feed"
)

func TestDecodePostChange(t *testing.T) {
	c := Change{
		Table:  TablePosts,
		Kind:   feed.EventInsert,
		Record: json.RawMessage(`{"id":"p1","author_id":"u1","content":"hi","image_url":"https://img/1.jpg","likes_count":-2}`),
	}
	ev, err := Decode(c)
	require.NoError(t, err)
	pe, ok := ev.(feed.PostEvent)
	require.True(t, ok)
	assert.Equal(t, feed.EventInsert, pe.Kind)
	assert.Equal(t, "p1", pe.Post.ID)
	assert.Equal(t, feed.AnonymousUsername, pe.Post.Author.Username)
	assert.Equal(t, []string{"https://img/1.jpg"}, pe.Post.Images)
	assert.Equal(t, int64(0), pe.Post.LikesCount)
}

func TestDecodeRoundTrip(t *testing.T) {
	avatar := "https://img/a.png"
	post := feed.Post{
		ID:        "p1",
		AuthorID:  "u1",
		Author:    feed.Author{ID: "u1", Username: "ann", AvatarURL: &avatar},
		Content:   "fit check",
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	c, err := NewPostChange(feed.EventUpdate, post)
	require.NoError(t, err)
	ev, err := Decode(c)
	require.NoError(t, err)
	got := ev.(feed.PostEvent).Post
	assert.Equal(t, "ann", got.Author.Username)
	assert.Equal(t, &avatar, got.Author.AvatarURL)
	assert.True(t, got.CreatedAt.Equal(post.CreatedAt))

	lc, err := NewLikeChange(feed.EventDelete, "p1", "u2")
	require.NoError(t, err)
	assert.Equal(t, "u2", lc.UserID)
	ev, err = Decode(lc)
	require.NoError(t, err)
	assert.Equal(t, feed.LikeEvent{Kind: feed.EventDelete, PostID: "p1", UserID: "u2"}, ev)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := map[string]Change{
		"unknown table": {Table: "comments", Kind: feed.EventInsert, Record: json.RawMessage(`{}`)},
		"unknown kind":  {Table: TablePosts, Kind: "upsert", Record: json.RawMessage(`{"id":"p"}`)},
		"bad json":      {Table: TablePosts, Kind: feed.EventInsert, Record: json.RawMessage(`{`)},
		"missing id":    {Table: TablePosts, Kind: feed.EventDelete, Record: json.RawMessage(`{}`)},
		"like update":   {Table: TableLikes, Kind: feed.EventUpdate, Record: json.RawMessage(`{"post_id":"p"}`)},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(c)
			assert.Error(t, err)
		})
	}
}

func TestMemoryBusRouting(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus()
	var mu sync.Mutex
	got := map[string][]string{}
	record := func(user string) Handler {
		return func(c Change) {
			mu.Lock()
			got[user] = append(got[user], c.Table)
			mu.Unlock()
		}
	}
	subA, err := bus.Subscribe("a", record("a"))
	require.NoError(t, err)
	_, err = bus.Subscribe("b", record("b"))
	require.NoError(t, err)

	pc, _ := NewPostChange(feed.EventInsert, feed.Post{ID: "p"})
	lc, _ := NewLikeChange(feed.EventInsert, "p", "a")
	require.NoError(t, bus.Publish(ctx, pc))
	require.NoError(t, bus.Publish(ctx, lc))
	assert.Equal(t, []string{TablePosts, TableLikes}, got["a"])
	assert.Equal(t, []string{TablePosts}, got["b"])

	require.NoError(t, subA.Unsubscribe())
	require.NoError(t, subA.Unsubscribe())
	require.NoError(t, bus.Publish(ctx, pc))
	assert.Len(t, got["a"], 2)
	assert.Len(t, got["b"], 2)
}

func TestDispatcherPreservesPerUserOrder(t *testing.T) {
	var mu sync.Mutex
	seen := map[string][]string{}
	d := NewDispatcher(func(userID string, ev feed.Event) {
		mu.Lock()
		seen[userID] = append(seen[userID], ev.(feed.PostEvent).Post.ID)
		mu.Unlock()
	}, 4, 128)
	stop := d.Start()

	want := []string{"p0", "p1", "p2", "p3", "p4", "p5", "p6", "p7"}
	for _, id := range want {
		c, err := NewPostChange(feed.EventUpdate, feed.Post{ID: id})
		require.NoError(t, err)
		for _, user := range []string{"a", "b", "c"} {
			require.True(t, d.Enqueue(user, c))
		}
	}
	require.NoError(t, stop(context.Background()))

	for _, user := range []string{"a", "b", "c"} {
		assert.Equal(t, want, seen[user], user)
	}
	assert.Zero(t, d.QueueLen())
}

func TestDispatcherDropsMalformedAndFull(t *testing.T) {
	applied := 0
	d := NewDispatcher(func(string, feed.Event) { applied++ }, 1, 1)

	assert.True(t, d.Enqueue("a", Change{Table: "nope"}))
	assert.False(t, d.Enqueue("a", Change{Table: "nope"}))

	stop := d.Start()
	require.NoError(t, stop(context.Background()))
	assert.Zero(t, applied)
}

func TestDispatcherHandlerAndMetrics(t *testing.T) {
	done := make(chan string, 1)
	d := NewDispatcher(func(userID string, ev feed.Event) { done <- userID }, 2, 8)
	stop := d.Start()
	defer func() { _ = stop(context.Background()) }()

	bus := NewMemoryBus()
	_, err := bus.Subscribe("a", d.Handler("a"))
	require.NoError(t, err)
	lc, _ := NewLikeChange(feed.EventInsert, "p", "a")
	require.NoError(t, bus.Publish(context.Background(), lc))

	select {
	case user := <-done:
		assert.Equal(t, "a", user)
	case <-time.After(time.Second):
		t.Fatal("change not applied")
	}
	select {
	case <-d.Metrics():
	case <-time.After(time.Second):
		t.Fatal("no latency sample")
	}
}

func TestNatsSubjects(t *testing.T) {
	b := &NatsBus{prefix: defaultSubjectPrefix}
	pc, _ := NewPostChange(feed.EventInsert, feed.Post{ID: "p"})
	s, err := b.subject(pc)
	require.NoError(t, err)
	assert.Equal(t, "feedmix.changes.posts", s)

	lc, _ := NewLikeChange(feed.EventInsert, "p", "u1")
	s, err = b.subject(lc)
	require.NoError(t, err)
	assert.Equal(t, "feedmix.changes.likes.u1", s)

	_, err = b.subject(Change{Table: TableLikes})
	assert.Error(t, err)
}

// Runs against a live server when FEEDMIX_TEST_NATS_URL is set.
func TestNatsBusLive(t *testing.T) {
	url := os.Getenv("FEEDMIX_TEST_NATS_URL")
	if url == "" {
		t.Skip("FEEDMIX_TEST_NATS_URL not set")
	}
	nc, err := Connect(url)
	require.NoError(t, err)
	defer nc.Close()
	bus := NewNatsBus(nc)

	got := make(chan Change, 4)
	sub, err := bus.Subscribe("u1", func(c Change) { got <- c })
	require.NoError(t, err)
	defer func() { _ = sub.Unsubscribe() }()
	require.NoError(t, nc.Flush())

	other, _ := NewLikeChange(feed.EventInsert, "p", "u2")
	mine, _ := NewLikeChange(feed.EventInsert, "p", "u1")
	require.NoError(t, bus.Publish(context.Background(), other))
	require.NoError(t, bus.Publish(context.Background(), mine))

	select {
	case c := <-got:
		assert.Equal(t, "u1", c.UserID)
	case <-time.After(2 * time.Second):
		t.Fatal("no change received")
	}
}
