package storage

import (
	"context"
	"sync"
)

// KeyValue is the persistence port every ledger goes through. Values are opaque
// strings (JSON documents in practice). A missing key is reported with ok=false
// and a nil error.
type KeyValue interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// durable is implemented by backends whose data survives a process restart.
type durable interface {
	Durable() bool
}

// IsDurable reports whether kv keeps data across restarts.
func IsDurable(kv KeyValue) bool {
	d, ok := kv.(durable)
	return ok && d.Durable()
}

// MemoryKV is a volatile in-process map. It backs tests and is the fallback
// when no durable backend can be reached.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = value
	return nil
}

func (m *MemoryKV) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

func (m *MemoryKV) Close() error { return nil }

func (m *MemoryKV) Durable() bool { return false }

func (m *MemoryKV) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
