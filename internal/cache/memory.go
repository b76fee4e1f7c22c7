package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryProvider is an in-process Provider used in tests and local
// development when no Valkey instance is configured.
type MemoryProvider struct {
	mu    sync.RWMutex
	items map[string]memoryItem
}

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryProvider creates an empty in-memory cache.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{items: make(map[string]memoryItem)}
}

// Get returns a stored value or ErrCacheMiss once expired or absent.
func (m *MemoryProvider) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	it, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrCacheMiss
	}
	if !it.expiresAt.IsZero() && time.Now().After(it.expiresAt) {
		m.mu.Lock()
		delete(m.items, key)
		m.mu.Unlock()
		return nil, ErrCacheMiss
	}
	out := make([]byte, len(it.value))
	copy(out, it.value)
	return out, nil
}

// Set stores a value with an optional TTL (ttl <= 0 means no expiry).
func (m *MemoryProvider) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}

	m.mu.Lock()
	m.items[key] = memoryItem{value: stored, expiresAt: expires}
	m.mu.Unlock()
	return nil
}

// Del removes an entry.
func (m *MemoryProvider) Del(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

// Close is a no-op.
func (m *MemoryProvider) Close() error { return nil }
