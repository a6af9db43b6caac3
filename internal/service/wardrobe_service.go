package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/feedmix/internal/cache"
	"github.com/d60-Lab/feedmix/internal/model"
	"github.com/d60-Lab/feedmix/internal/repository"
)

var ErrInvalidWardrobeItem = errors.New("wardrobe item needs a name and a category")

type WardrobeView struct {
	Items     []model.WardrobeItem `json:"items"`
	FromCache bool                 `json:"from_cache"`
	Stale     bool                 `json:"stale"`
}

// WardrobeStats 衣橱缓存统计
type WardrobeStats struct {
	TotalItems      int            `json:"total_items"`
	ItemsByCategory map[string]int `json:"items_by_category"`
	LastUpdated     *time.Time     `json:"last_updated"`
	IsStale         bool           `json:"is_stale"`
	Cache           cache.Stats    `json:"cache"`
}

type WardrobeService interface {
	List(ctx context.Context, userID string, forceRefresh bool) (WardrobeView, error)
	Add(ctx context.Context, item *model.WardrobeItem) error
	Stats(ctx context.Context, userID string) WardrobeStats
	Clear(ctx context.Context, userID string) error
}

type wardrobeService struct {
	repo  repository.WardrobeRepository
	cache *cache.Cache[model.WardrobeItem]
	ttl   time.Duration
}

func NewWardrobeService(repo repository.WardrobeRepository, c *cache.Cache[model.WardrobeItem], ttl time.Duration) WardrobeService {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &wardrobeService{repo: repo, cache: c, ttl: ttl}
}

func (s *wardrobeService) List(ctx context.Context, userID string, forceRefresh bool) (WardrobeView, error) {
	res, err := s.cache.Load(ctx, userID, s.ttl, func(ctx context.Context) ([]model.WardrobeItem, error) {
		return s.repo.ListByUser(ctx, userID)
	}, forceRefresh)
	if err != nil {
		return WardrobeView{}, err
	}
	return WardrobeView{Items: res.Items, FromCache: res.FromCache, Stale: res.Stale}, nil
}

func (s *wardrobeService) Add(ctx context.Context, item *model.WardrobeItem) error {
	if strings.TrimSpace(item.Name) == "" || strings.TrimSpace(item.Category) == "" {
		return ErrInvalidWardrobeItem
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return err
	}
	return s.cache.Clear(ctx, item.UserID)
}

// Stats 只看缓存里的快照，不触发远端拉取
func (s *wardrobeService) Stats(ctx context.Context, userID string) WardrobeStats {
	st := WardrobeStats{ItemsByCategory: map[string]int{}, IsStale: true, Cache: s.cache.Stats()}
	entry, ok := s.cache.Get(ctx, userID)
	if !ok {
		return st
	}
	st.TotalItems = len(entry.Items)
	for _, it := range entry.Items {
		st.ItemsByCategory[it.Category]++
	}
	at := entry.LastWriteAt
	st.LastUpdated = &at
	st.IsStale = s.cache.IsStale(ctx, userID, s.ttl)
	return st
}

func (s *wardrobeService) Clear(ctx context.Context, userID string) error {
	return s.cache.Clear(ctx, userID)
}
