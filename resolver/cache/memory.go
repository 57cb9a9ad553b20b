package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

var MemoryCacheSize = 1024

type lruCache interface {
	Add(key string, value Entry) bool
	Get(key string) (Entry, bool)
	Remove(key string) bool
	Len() int
}

// Memory is an in process LRU cache of resolutions.
type Memory struct {
	data lruCache
}

var _ Cache = (*Memory)(nil)

// NewMemory creates an LRU cache holding at most size entries. Pass a size
// less than 1 to use [MemoryCacheSize]. Entries older than ttl are dropped; a
// ttl of zero keeps entries until they are evicted or invalidated.
func NewMemory(size int, ttl time.Duration) (*Memory, error) {
	if size <= 0 {
		size = MemoryCacheSize
	}
	if ttl > 0 {
		return &Memory{data: expirable.NewLRU[string, Entry](size, nil, ttl)}, nil
	}
	data, err := lru.New[string, Entry](size)
	if err != nil {
		return nil, fmt.Errorf("creating resolution LRU: %w", err)
	}
	return &Memory{data: data}, nil
}

func (m *Memory) Get(_ context.Context, id string) (Entry, bool, error) {
	e, ok := m.data.Get(id)
	return e, ok, nil
}

func (m *Memory) Put(_ context.Context, id string, entry Entry) error {
	m.data.Add(id, entry)
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.data.Remove(id)
	return nil
}

func (m *Memory) Len() int {
	return m.data.Len()
}
