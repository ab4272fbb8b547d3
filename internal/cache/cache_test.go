package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMemory(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		expected int
	}{
		{"positive capacity", 10, 10},
		{"zero capacity defaults to default", 0, DefaultCapacity},
		{"negative capacity defaults to default", -5, DefaultCapacity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMemory(tt.capacity)
			require.NotNil(t, m)
			assert.Equal(t, tt.expected, m.Stats().Capacity)
			assert.Equal(t, 0, m.Stats().Size)
		})
	}
}

func TestMemory_VersionMustMatch(t *testing.T) {
	m := NewMemory(4)
	require.NoError(t, m.Update("fts:sqlite:articles:title", "7", []byte("0")))

	data, ok := m.Valid("fts:sqlite:articles:title", "7")
	require.True(t, ok)
	assert.Equal(t, []byte("0"), data)

	_, ok = m.Valid("fts:sqlite:articles:title", "8")
	assert.False(t, ok, "a different version token must miss")

	_, ok = m.Valid("fts:sqlite:articles:body", "7")
	assert.False(t, ok)

	stats := m.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(2), stats.Misses)
	assert.InDelta(t, 1.0/3.0, stats.HitRate, 0.0001)
}

func TestMemory_UpdateReplacesVersion(t *testing.T) {
	m := NewMemory(4)
	require.NoError(t, m.Update("k", "1", []byte("a")))
	require.NoError(t, m.Update("k", "2", []byte("b")))

	_, ok := m.Valid("k", "1")
	assert.False(t, ok)
	data, ok := m.Valid("k", "2")
	require.True(t, ok)
	assert.Equal(t, "b", string(data))
	assert.Equal(t, 1, m.Stats().Size)
}

func TestMemory_CopiesData(t *testing.T) {
	m := NewMemory(4)
	buf := []byte("abc")
	require.NoError(t, m.Update("k", "v", buf))
	buf[0] = 'x'

	data, ok := m.Valid("k", "v")
	require.True(t, ok)
	assert.Equal(t, "abc", string(data))

	data[0] = 'y'
	again, _ := m.Valid("k", "v")
	assert.Equal(t, "abc", string(again))
}

func TestMemory_LRUEviction(t *testing.T) {
	m := NewMemory(2)
	require.NoError(t, m.Update("a", "v", []byte("1")))
	require.NoError(t, m.Update("b", "v", []byte("2")))

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := m.Valid("a", "v")
	require.True(t, ok)

	require.NoError(t, m.Update("c", "v", []byte("3")))

	_, ok = m.Valid("b", "v")
	assert.False(t, ok)
	_, ok = m.Valid("a", "v")
	assert.True(t, ok)
	_, ok = m.Valid("c", "v")
	assert.True(t, ok)
	assert.Equal(t, uint64(1), m.Stats().Evictions)
}

func TestMemory_Clear(t *testing.T) {
	m := NewMemory(4)
	require.NoError(t, m.Update("a", "v", []byte("1")))
	m.Clear()
	_, ok := m.Valid("a", "v")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Stats().Size)
}

func TestMemory_Concurrent(t *testing.T) {
	m := NewMemory(64)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", j%16)
				_ = m.Update(key, "v", []byte{byte(n)})
				m.Valid(key, "v")
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, m.Stats().Size, 64)
}

func TestNop(t *testing.T) {
	var c Cache = Nop{}
	require.NoError(t, c.Update("k", "v", []byte("x")))
	_, ok := c.Valid("k", "v")
	assert.False(t, ok)
}
