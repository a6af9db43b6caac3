package realtime

import (
	"context"
	"sync"
)

// MemoryBus 进程内同步投递
type MemoryBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]memorySub
}

type memorySub struct {
	userID string
	h      Handler
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[int]memorySub)}
}

func (b *MemoryBus) Publish(_ context.Context, c Change) error {
	b.mu.RLock()
	targets := make([]Handler, 0, len(b.subs))
	for _, s := range b.subs {
		if c.Table == TableLikes && s.userID != c.UserID {
			continue
		}
		targets = append(targets, s.h)
	}
	b.mu.RUnlock()
	for _, h := range targets {
		h(c)
	}
	return nil
}

func (b *MemoryBus) Subscribe(userID string, h Handler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[id] = memorySub{userID: userID, h: h}
	return &memorySubscription{bus: b, id: id}, nil
}

type memorySubscription struct {
	bus  *MemoryBus
	id   int
	once sync.Once
}

func (s *memorySubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s.id)
		s.bus.mu.Unlock()
	})
	return nil
}
