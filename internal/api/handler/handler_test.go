package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/feedmix/internal/feed"
	"github.com/d60-Lab/feedmix/internal/service"
	"github.com/d60-Lab/feedmix/pkg/response"
)

type stubFeed struct {
	service.FeedService
	loadErr error
	view    service.FeedView
	likeErr error
}

func (s *stubFeed) Load(_ context.Context, v feed.Viewer, _ bool) (service.FeedView, error) {
	if !v.Authenticated() {
		return service.FeedView{}, feed.ErrAuthRequired
	}
	return s.view, s.loadErr
}

func (s *stubFeed) Like(context.Context, feed.Viewer, string) error { return s.likeErr }

func newTestRouter(h *Handler, user string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if user != "" {
			c.Set("feedmix.viewer", user)
		}
	})
	r.GET("/feed", h.GetFeed)
	r.POST("/posts/:id/like", h.LikePost)
	r.POST("/posts", h.CreatePost)
	return r
}

func do(r http.Handler, method, path string) (*httptest.ResponseRecorder, response.Response) {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body response.Response
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestGetFeedErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		user string
		err  error
		want int
	}{
		{name: "anonymous", want: http.StatusUnauthorized},
		{name: "ok", user: "u1", want: http.StatusOK},
		{name: "upstream", user: "u1", err: &feed.FetchError{Op: "compose", Err: errors.New("timeout")}, want: http.StatusBadGateway},
		{name: "other", user: "u1", err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := New(&stubFeed{loadErr: tc.err, view: service.FeedView{Items: []feed.Item{}}}, nil, nil, nil)
			w, body := do(newTestRouter(h, tc.user), http.MethodGet, "/feed")
			assert.Equal(t, tc.want, w.Code)
			assert.Equal(t, tc.want, body.Code)
		})
	}
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	h := New(&stubFeed{loadErr: errors.New("dsn=postgres://secret")}, nil, nil, nil)
	w, body := do(newTestRouter(h, "u1"), http.MethodGet, "/feed")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "secret")
	assert.Equal(t, "internal error", body.Message)
}

func TestLikeNotFound(t *testing.T) {
	h := New(&stubFeed{likeErr: service.ErrPostNotFound}, nil, nil, nil)
	w, _ := do(newTestRouter(h, "u1"), http.MethodPost, "/posts/p1/like")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreatePostRequiresViewer(t *testing.T) {
	h := New(&stubFeed{}, nil, nil, nil)
	w, _ := do(newTestRouter(h, ""), http.MethodPost, "/posts")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
