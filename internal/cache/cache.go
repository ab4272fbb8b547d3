// Package cache defines the versioned key-value contract used to persist
// translation memos and full-text search health flags, plus an in-memory LRU
// implementation of it.
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
)

const (
	// DefaultCapacity is the default maximum number of entries held by Memory.
	DefaultCapacity = 1024
)

// Cache stores opaque values under a key together with a version token.
// A stored value is only returned when the caller's version matches the one it
// was written with, so bumping the version invalidates every older entry.
// Read-then-write sequences are not atomic: concurrent writers race and the
// last write wins.
type Cache interface {
	// Valid returns the data stored under key if it was written with version.
	Valid(key, version string) ([]byte, bool)
	// Update stores data under key with version, replacing any previous entry.
	Update(key, version string, data []byte) error
}

// Memory is an in-process Cache with LRU eviction.
type Memory struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	lruList  *list.List

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// entry is a single cached value.
type entry struct {
	key     string
	version string
	data    []byte
}

// NewMemory creates an in-memory cache holding at most capacity entries.
// A non-positive capacity selects DefaultCapacity.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Memory{
		capacity: capacity,
		items:    make(map[string]*list.Element, capacity),
		lruList:  list.New(),
	}
}

// Valid returns a copy of the data stored under key when its version matches.
// A version mismatch counts as a miss but keeps the entry; the next Update replaces it.
func (m *Memory) Valid(key, version string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.items[key]
	if !ok {
		m.misses.Add(1)
		return nil, false
	}
	e := elem.Value.(*entry)
	if e.version != version {
		m.misses.Add(1)
		return nil, false
	}

	m.lruList.MoveToFront(elem)
	m.hits.Add(1)
	return append([]byte(nil), e.data...), true
}

// Update stores a copy of data under key and version.
func (m *Memory) Update(key, version string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := append([]byte(nil), data...)
	if elem, ok := m.items[key]; ok {
		m.lruList.MoveToFront(elem)
		e := elem.Value.(*entry)
		e.version = version
		e.data = stored
		return nil
	}

	if m.lruList.Len() >= m.capacity {
		m.evictOldest()
	}

	elem := m.lruList.PushFront(&entry{key: key, version: version, data: stored})
	m.items[key] = elem
	return nil
}

// evictOldest removes the least recently used entry.
// Must be called with lock held.
func (m *Memory) evictOldest() {
	elem := m.lruList.Back()
	if elem == nil {
		return
	}
	m.lruList.Remove(elem)
	delete(m.items, elem.Value.(*entry).key)
	m.evictions.Add(1)
}

// Clear removes every entry.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[string]*list.Element, m.capacity)
	m.lruList.Init()
}

// Stats holds cache performance metrics.
type Stats struct {
	Size      int     // Current number of entries.
	Capacity  int     // Maximum capacity.
	Hits      uint64  // Lookups that returned data.
	Misses    uint64  // Lookups that found nothing or a stale version.
	Evictions uint64  // Entries dropped to make room.
	HitRate   float64 // hits / (hits + misses).
}

// Stats returns cache statistics.
func (m *Memory) Stats() Stats {
	m.mu.Lock()
	size := m.lruList.Len()
	m.mu.Unlock()

	hits := m.hits.Load()
	misses := m.misses.Load()

	hitRate := 0.0
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Size:      size,
		Capacity:  m.capacity,
		Hits:      hits,
		Misses:    misses,
		Evictions: m.evictions.Load(),
		HitRate:   hitRate,
	}
}

// Nop is a Cache that never stores anything.
type Nop struct{}

// Valid always misses.
func (Nop) Valid(_, _ string) ([]byte, bool) { return nil, false }

// Update discards data.
func (Nop) Update(_, _ string, _ []byte) error { return nil }
