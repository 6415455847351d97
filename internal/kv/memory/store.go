// Package memory is the fallback store for environments without a
// badger path or database DSN. Expiry is checked lazily on access.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/zapcooking/backend/internal/kv"
)

type entry struct {
	value    []byte
	deadline time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.deadline.IsZero() && now.After(e.deadline)
}

type MemoryStorage struct {
	mux     *sync.Mutex
	entries map[string]entry
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		mux:     &sync.Mutex{},
		entries: make(map[string]entry),
	}
}

func deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}

func (s *MemoryStorage) Get(ctx context.Context, key string) ([]byte, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, kv.ErrNotFound
	}
	if e.expired(time.Now()) {
		delete(s.entries, key)
		return nil, kv.ErrNotFound
	}

	return e.value, nil
}

func (s *MemoryStorage) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	s.entries[key] = entry{value: value, deadline: deadline(ttl)}
	return nil
}

func (s *MemoryStorage) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	if e, ok := s.entries[key]; ok && !e.expired(time.Now()) {
		return false, nil
	}
	s.entries[key] = entry{value: value, deadline: deadline(ttl)}
	return true, nil
}

func (s *MemoryStorage) Update(ctx context.Context, key string, fn func(old []byte) ([]byte, error)) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	e, ok := s.entries[key]
	if !ok || e.expired(time.Now()) {
		delete(s.entries, key)
		return kv.ErrNotFound
	}

	updated, err := fn(e.value)
	if err != nil {
		return err
	}
	s.entries[key] = entry{value: updated, deadline: e.deadline}
	return nil
}

func (s *MemoryStorage) Delete(ctx context.Context, key string) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	delete(s.entries, key)
	return nil
}

func (s *MemoryStorage) List(ctx context.Context, prefix string) ([][]byte, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	now := time.Now()
	result := make([][]byte, 0)
	for key, e := range s.entries {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if e.expired(now) {
			delete(s.entries, key)
			continue
		}
		result = append(result, e.value)
	}

	return result, nil
}

func (s *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStorage) Close() error {
	return nil
}
