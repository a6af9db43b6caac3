// Package cache 按 key 保存列表快照及写入时间，刷新失败时回退到上一份快照
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/d60-Lab/feedmix/pkg/logger"
)

// Backend 只负责存取序列化后的快照
type Backend interface {
	Load(ctx context.Context, namespace, key string) ([]byte, bool, error)
	Save(ctx context.Context, namespace, key string, payload []byte) error
	Delete(ctx context.Context, namespace, key string) error
}

type Entry[T any] struct {
	Items       []T       `json:"items"`
	LastWriteAt time.Time `json:"last_write_at"`
}

// Result 是 Load 的返回；只有拉取失败、回退到旧快照时 Stale 才为 true
type Result[T any] struct {
	Items       []T
	FromCache   bool
	Stale       bool
	LastWriteAt time.Time
}

// Stats 上次重置以来的命中统计
type Stats struct {
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Fetches       int64 `json:"fetches"`
	Fallbacks     int64 `json:"fallbacks"`
	WriteFailures int64 `json:"write_failures"`
}

type Option func(*options)

type options struct {
	now func() time.Time
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Cache 按作用域（通常是用户 id）缓存 []T。
// 快照以 JSON 落到 Backend，T 必须能经 JSON 无损往返：只用导出字段，
// 时间字段用 UTC 墙钟时间（单调时钟读数和时区指针不会保留）
type Cache[T any] struct {
	backend   Backend
	namespace string
	now       func() time.Time
	group     singleflight.Group

	hits          atomic.Int64
	misses        atomic.Int64
	fetches       atomic.Int64
	fallbacks     atomic.Int64
	writeFailures atomic.Int64
}

func New[T any](backend Backend, namespace string, opts ...Option) *Cache[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[T]{backend: backend, namespace: namespace, now: o.now}
}

// Get 不论是否过期都返回快照；读取或解码失败记日志并按未命中处理
func (c *Cache[T]) Get(ctx context.Context, key string) (Entry[T], bool) {
	payload, ok, err := c.backend.Load(ctx, c.namespace, key)
	if err != nil {
		logger.Warn("cache read failed",
			zap.String("namespace", c.namespace), zap.String("key", key), zap.Error(err))
		return Entry[T]{}, false
	}
	if !ok {
		return Entry[T]{}, false
	}
	var e Entry[T]
	if err := json.Unmarshal(payload, &e); err != nil {
		logger.Warn("cache entry undecodable",
			zap.String("namespace", c.namespace), zap.String("key", key), zap.Error(err))
		return Entry[T]{}, false
	}
	if e.Items == nil {
		e.Items = []T{}
	}
	return e, true
}

// IsStale 不存在或写入超过 ttl 即为过期
func (c *Cache[T]) IsStale(ctx context.Context, key string, ttl time.Duration) bool {
	e, ok := c.Get(ctx, key)
	return !ok || c.expired(e, ttl)
}

func (c *Cache[T]) expired(e Entry[T], ttl time.Duration) bool {
	return c.now().Sub(e.LastWriteAt) > ttl
}

// Set 覆盖写入，写入时间取当前时钟
func (c *Cache[T]) Set(ctx context.Context, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	payload, err := json.Marshal(Entry[T]{Items: items, LastWriteAt: c.now()})
	if err != nil {
		return fmt.Errorf("cache: encode %s/%s: %w", c.namespace, key, err)
	}
	if err := c.backend.Save(ctx, c.namespace, key, payload); err != nil {
		return fmt.Errorf("cache: save %s/%s: %w", c.namespace, key, err)
	}
	return nil
}

func (c *Cache[T]) Clear(ctx context.Context, key string) error {
	if err := c.backend.Delete(ctx, c.namespace, key); err != nil {
		return fmt.Errorf("cache: clear %s/%s: %w", c.namespace, key, err)
	}
	return nil
}

func (c *Cache[T]) FetchWithCache(ctx context.Context, key string, ttl time.Duration, fetch func(context.Context) ([]T, error), forceRefresh bool) ([]T, error) {
	res, err := c.Load(ctx, key, ttl, fetch, forceRefresh)
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

// Load 新鲜快照直接返回；否则拉取并回写。拉取失败但有旧快照时返回旧快照，
// 没有快照才返回错误。同一 key 的并发加载共享一次拉取
func (c *Cache[T]) Load(ctx context.Context, key string, ttl time.Duration, fetch func(context.Context) ([]T, error), forceRefresh bool) (Result[T], error) {
	entry, ok := c.Get(ctx, key)
	if ok && !forceRefresh && !c.expired(entry, ttl) {
		c.hits.Add(1)
		return Result[T]{Items: entry.Items, FromCache: true, LastWriteAt: entry.LastWriteAt}, nil
	}
	c.misses.Add(1)

	v, err, _ := c.group.Do(key, func() (any, error) {
		c.fetches.Add(1)
		items, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = []T{}
		}
		if err := c.Set(ctx, key, items); err != nil {
			c.writeFailures.Add(1)
			logger.Warn("cache write failed", zap.String("namespace", c.namespace), zap.String("key", key), zap.Error(err))
		}
		return Result[T]{Items: items, LastWriteAt: c.now()}, nil
	})
	if err != nil {
		if ok {
			c.fallbacks.Add(1)
			logger.Warn("fetch failed, serving cached snapshot",
				zap.String("namespace", c.namespace),
				zap.String("key", key),
				zap.Duration("age", c.now().Sub(entry.LastWriteAt)),
				zap.Error(err))
			return Result[T]{Items: entry.Items, FromCache: true, Stale: true, LastWriteAt: entry.LastWriteAt}, nil
		}
		return Result[T]{}, err
	}
	return v.(Result[T]), nil
}

func (c *Cache[T]) Stats() Stats {
	return Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Fetches:       c.fetches.Load(),
		Fallbacks:     c.fallbacks.Load(),
		WriteFailures: c.writeFailures.Load(),
	}
}

func (c *Cache[T]) ResetStats() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.fetches.Store(0)
	c.fallbacks.Store(0)
	c.writeFailures.Store(0)
}
