package respcache

import (
	"sort"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
)

type MemoryConfig struct {
	// MaxEntries bounds the store. Least recently used entries are dropped
	// first. Zero is unbounded.
	MaxEntries int `config:"max-entries" validate:"min=0"`
}

func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{MaxEntries: 1024}
}

// Memory is a process local Store. Save is a no-op.
type Memory struct {
	mu     sync.Mutex
	cache  *lru.Cache
	keys   map[string]struct{}
	closed bool
}

func NewMemory(conf MemoryConfig) *Memory {
	m := &Memory{
		cache: lru.New(conf.MaxEntries),
		keys:  map[string]struct{}{},
	}
	m.cache.OnEvicted = func(key lru.Key, _ interface{}) {
		delete(m.keys, key.(string))
	}
	return m
}

func (m *Memory) Get(key string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Entry{}, false, ErrClosed
	}
	v, ok := m.cache.Get(key)
	if !ok {
		return Entry{}, false, nil
	}
	return v.(Entry), true, nil
}

func (m *Memory) Put(key string, doc []byte, lastVisited time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.keys[key] = struct{}{}
	m.cache.Add(key, Entry{Doc: append([]byte(nil), doc...), LastVisited: lastVisited})
	return nil
}

func (m *Memory) Keys() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	keys := make([]string, 0, len(m.keys))
	for k := range m.keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) Save() error { return nil }

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.cache.Clear()
	return nil
}
