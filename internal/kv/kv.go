// Package kv defines the key-value storage contract shared by the
// in-memory fallback, the badger store and the postgres store.
package kv

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("key not found")
	ErrConflict = errors.New("key already exists")
)

//go:generate mockgen -destination=mocks/store.go -package=mocks github.com/zapcooking/backend/internal/kv Store

// Store is a flat key-value store with per-key TTL. A zero TTL means
// the entry never expires. SetIfAbsent and Update must be atomic with
// respect to concurrent callers.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Update(ctx context.Context, key string, fn func(old []byte) ([]byte, error)) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([][]byte, error)
	Ping(ctx context.Context) error
	Close() error
}
