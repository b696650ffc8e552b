package cache

import (
	"context"
	"sync"
	"time"
)

// sweepEvery is how many writes pass between removals of expired entries.
const sweepEvery = 256

// MemoryStore is a process-local Store with per-entry expiry. With several
// replicas, each one drops entries changed elsewhere only while messaging is
// enabled; otherwise copies may be stale until they expire.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	defaultTTL time.Duration
	writes     int
	now        func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// NewMemoryStore builds an empty memory store. ttl <= 0 keeps entries until deleted.
func NewMemoryStore(defaultTTL time.Duration) *MemoryStore {
	return &MemoryStore{
		entries:    make(map[string]memoryEntry),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	if entry.expired(s.now()) {
		delete(s.entries, key)
		return nil, ErrCacheMiss
	}
	return append([]byte(nil), entry.value...), nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errEmptyKey
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	s.entries[key] = entry

	s.writes++
	if s.writes%sweepEvery == 0 {
		for k, e := range s.entries {
			if e.expired(now) {
				delete(s.entries, k)
			}
		}
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of entries held, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
