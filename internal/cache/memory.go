package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Memory keeps entries in process. Values are stored JSON-encoded so callers
// see the same copy semantics as with Redis.
type Memory struct {
	mu      sync.Mutex
	tenants map[string]map[string]memoryEntry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		tenants: make(map[string]map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, tenantID, key string, dest interface{}) (bool, error) {
	m.mu.Lock()
	entries := m.tenants[tenantKey(tenantID)]
	entry, ok := entries[key]
	if ok && entry.expired(m.now()) {
		delete(entries, key)
		ok = false
	}
	m.mu.Unlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(entry.data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Memory) Set(_ context.Context, tenantID, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	tk := tenantKey(tenantID)
	if m.tenants[tk] == nil {
		m.tenants[tk] = make(map[string]memoryEntry)
	}
	m.tenants[tk][key] = entry
	return nil
}

func (m *Memory) Invalidate(_ context.Context, tenantID string) error {
	m.mu.Lock()
	delete(m.tenants, tenantKey(tenantID))
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
