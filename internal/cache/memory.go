package cache

import (
	"context"
	"sync"
)

// MemoryBackend 进程内存储
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func memoryKey(namespace, key string) string { return namespace + ":" + key }

func (m *MemoryBackend) Load(_ context.Context, namespace, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[memoryKey(namespace, key)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryBackend) Save(_ context.Context, namespace, key string, payload []byte) error {
	m.mu.Lock()
	m.data[memoryKey(namespace, key)] = append([]byte(nil), payload...)
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, namespace, key string) error {
	m.mu.Lock()
	delete(m.data, memoryKey(namespace, key))
	m.mu.Unlock()
	return nil
}
