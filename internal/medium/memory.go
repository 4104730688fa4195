package medium

import (
	"context"
	"fmt"
	"sync"

	"blocknexus/pkg/platform/sentinel"
)

// Memory keeps items in process memory. A positive quota caps the total size of
// keys plus values in bytes, mirroring a browser storage quota.
type Memory struct {
	mu    sync.RWMutex
	items map[string]string
	quota int
	used  int
}

// MemoryOption configures a Memory instance.
type MemoryOption func(*Memory)

// WithQuota limits the bytes the medium accepts. Zero or negative disables the limit.
func WithQuota(bytes int) MemoryOption {
	return func(m *Memory) {
		m.quota = bytes
	}
}

// NewMemory constructs an empty in-memory medium.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{items: make(map[string]string)}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

func (m *Memory) GetItem(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.items[key]
	return value, ok, nil
}

func (m *Memory) SetItem(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	used := m.used
	if prev, ok := m.items[key]; ok {
		used -= len(key) + len(prev)
	}
	used += len(key) + len(value)
	if m.quota > 0 && used > m.quota {
		return fmt.Errorf("set %q (%d of %d bytes): %w", key, used, m.quota, sentinel.ErrQuotaExceeded)
	}

	m.items[key] = value
	m.used = used
	return nil
}

func (m *Memory) RemoveItem(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.items[key]; ok {
		m.used -= len(key) + len(prev)
		delete(m.items, key)
	}
	return nil
}

// Used reports the bytes currently held.
func (m *Memory) Used() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.used
}
