package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"aigate/internal/domain"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is an in-process Store on an expiring LRU. The LRU's own TTL
// handles background eviction; Get re-checks the per-entry deadline so a
// custom TTL shorter than the default is honored exactly.
type MemoryStore struct {
	lru *expirable.LRU[string, memoryEntry]
	now func() time.Time
	mu  sync.Mutex
}

// NewMemoryStore creates a memory store holding at most maxEntries entries,
// each expiring after defaultTTL.
func NewMemoryStore(maxEntries int, defaultTTL time.Duration) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = 4096
	}
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &MemoryStore{
		lru: expirable.NewLRU[string, memoryEntry](maxEntries, nil, defaultTTL),
		now: time.Now,
	}
}

// Get returns the value for key or domain.ErrCacheMiss
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	entry, ok := s.lru.Get(key)
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	if s.now().After(entry.expiresAt) {
		s.lru.Remove(key)
		return nil, domain.ErrCacheMiss
	}
	return entry.value, nil
}

// Set stores value under key for ttl
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.lru.Add(key, memoryEntry{
		value:     value,
		expiresAt: s.now().Add(ttl),
	})
	return nil
}

// Delete removes a single key
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.lru.Remove(key)
	return nil
}

// DeletePrefix removes every key with the given prefix
func (s *MemoryStore) DeletePrefix(ctx context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range s.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			s.lru.Remove(key)
		}
	}
	return nil
}

// SetClock overrides the time source, for tests
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.now = now
}
