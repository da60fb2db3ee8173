package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemorySize bounds the in-process cache when no size is configured.
const DefaultMemorySize = 4096

// Memory keeps entries in a bounded LRU. It does not survive the process.
type Memory struct {
	entries *lru.Cache[string, []byte]
}

// NewMemory returns an LRU-backed cache holding at most size entries.
func NewMemory(size int) (*Memory, error) {
	if size <= 0 {
		size = DefaultMemorySize
	}
	c, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	return &Memory{entries: c}, nil
}

func (m *Memory) Get(key string) ([]byte, bool, error) {
	v, ok := m.entries.Get(key)
	return v, ok, nil
}

func (m *Memory) Set(key string, value []byte) error {
	m.entries.Add(key, append([]byte(nil), value...))
	return nil
}

func (m *Memory) Delete(key string) error {
	m.entries.Remove(key)
	return nil
}

// Len returns the number of cached entries.
func (m *Memory) Len() int { return m.entries.Len() }

func (m *Memory) Close() error {
	m.entries.Purge()
	return nil
}
