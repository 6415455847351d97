// Package badger backs the KV contract with an embedded badger
// database. TTL maps directly onto badger entry TTLs.
package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/zapcooking/backend/internal/kv"
)

type BadgerStorage struct {
	db *badger.DB
}

func NewBadgerStorage(path string) (*BadgerStorage, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("error opening badger at %q: %w", path, err)
	}

	return &BadgerStorage{db: db}, nil
}

func newEntry(key string, value []byte, ttl time.Duration) *badger.Entry {
	e := badger.NewEntry([]byte(key), value)
	if ttl > 0 {
		e = e.WithTTL(ttl)
	}
	return e
}

func (s *BadgerStorage) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return kv.ErrNotFound
		}
		if err != nil {
			return err
		}

		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	return value, nil
}

func (s *BadgerStorage) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(newEntry(key, value, ttl))
	})
}

func (s *BadgerStorage) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	inserted := false

	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		inserted = true
		return txn.SetEntry(newEntry(key, value, ttl))
	})
	if err != nil {
		return false, err
	}

	return inserted, nil
}

func (s *BadgerStorage) Update(ctx context.Context, key string, fn func(old []byte) ([]byte, error)) error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return kv.ErrNotFound
		}
		if err != nil {
			return err
		}

		old, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}

		updated, err := fn(old)
		if err != nil {
			return err
		}

		// preserve the remaining TTL, if any
		e := badger.NewEntry([]byte(key), updated)
		if expires := item.ExpiresAt(); expires > 0 {
			remaining := time.Until(time.Unix(int64(expires), 0))
			if remaining <= 0 {
				return kv.ErrNotFound
			}
			e = e.WithTTL(remaining)
		}

		return txn.SetEntry(e)
	})
}

func (s *BadgerStorage) Delete(ctx context.Context, key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (s *BadgerStorage) List(ctx context.Context, prefix string) ([][]byte, error) {
	result := make([][]byte, 0)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			result = append(result, value)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *BadgerStorage) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger db is closed")
	}
	return nil
}

func (s *BadgerStorage) Close() error {
	return s.db.Close()
}
