// Package cache memoizes model predictions in memory and, optionally, in a
// shared Redis instance.
package cache

import (
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryCache is a bounded in-process LRU with per-entry expiry
type MemoryCache struct {
	lru *expirable.LRU[string, string]
}

// NewMemoryCache creates a cache holding at most size entries for ttl.
// A zero ttl keeps entries until they are evicted.
func NewMemoryCache(size int, ttl time.Duration) (*MemoryCache, error) {
	if size <= 0 {
		return nil, fmt.Errorf("memory cache size must be positive, got %d", size)
	}
	return &MemoryCache{lru: expirable.NewLRU[string, string](size, nil, ttl)}, nil
}

// Get returns the cached value for key
func (m *MemoryCache) Get(key string) (string, bool) {
	return m.lru.Get(key)
}

// Set stores value under key
func (m *MemoryCache) Set(key, value string) {
	m.lru.Add(key, value)
}

// Len returns the number of live entries
func (m *MemoryCache) Len() int {
	return m.lru.Len()
}

// Purge drops every entry
func (m *MemoryCache) Purge() {
	m.lru.Purge()
}
