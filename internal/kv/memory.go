package kv

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// MemoryStore is the single-process fallback used when no Redis URL is configured.
type MemoryStore struct {
	mu    sync.Mutex
	store map[string]*entry
	now   func() time.Time
}

type entry struct {
	value     string
	expiresAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		store: make(map[string]*entry),
		now:   time.Now,
	}
}

// WithClock replaces the time source; used by tests to move past TTLs.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) sweep(now time.Time) {
	for k, e := range s.store {
		if e.expired(now) {
			delete(s.store, k)
		}
	}
}

func (s *MemoryStore) expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

func (s *MemoryStore) Increment(ctx context.Context, key string, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	count := 0
	if e, ok := s.store[key]; ok {
		count, _ = strconv.Atoi(e.value)
	}
	count++
	s.store[key] = &entry{value: strconv.Itoa(count), expiresAt: s.expiry(now, window)}
	return count, nil
}

func (s *MemoryStore) Decrement(ctx context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.store[key]
	if !ok || e.expired(s.now()) {
		delete(s.store, key)
		return 0, nil
	}
	count, _ := strconv.Atoi(e.value)
	count--
	if count <= 0 {
		delete(s.store, key)
		return 0, nil
	}
	e.value = strconv.Itoa(count)
	return count, nil
}

func (s *MemoryStore) GetCount(ctx context.Context, key string) (int, error) {
	value, err := s.Get(ctx, key)
	if err == ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	count, _ := strconv.Atoi(value)
	return count, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.store[key] = &entry{value: value, expiresAt: s.expiry(now, ttl)}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.store[key]
	if !ok {
		return "", ErrNotFound
	}
	if e.expired(s.now()) {
		delete(s.store, key)
		return "", ErrNotFound
	}
	return e.value, nil
}

func (s *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		delete(s.store, k)
	}
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}
