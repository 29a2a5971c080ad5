// ABOUTME: Badger-backed key/value cache with per-entry expiry.
// ABOUTME: Stores JSON values, used to avoid refetching URL metadata.

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v3"
)

// Store is a TTL cache on top of a badger database.
type Store struct {
	db     *badger.DB
	ttl    time.Duration
	prefix string
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix namespaces every key, so several caches can share one directory.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// Open opens (or creates) a cache at dir. An empty dir keeps everything in
// memory. A ttl of zero or less stores entries without expiry.
func Open(dir string, ttl time.Duration, opts ...Option) (*Store, error) {
	var bopts badger.Options
	if dir == "" {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
		bopts = badger.DefaultOptions(dir)
	}
	bopts = bopts.WithLogger(nil)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	s := &Store{db: db, ttl: ttl}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) key(k string) []byte {
	return []byte(s.prefix + k)
}

// Get decodes the value stored under key into v. It reports false when the
// key is missing or expired.
func (s *Store) Get(ctx context.Context, key string, v any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %q: %w", key, err)
	}
	return true, nil
}

// Put stores v under key using the store's TTL.
func (s *Store) Put(ctx context.Context, key string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(s.key(key), data)
		if s.ttl > 0 {
			entry = entry.WithTTL(s.ttl)
		}
		return txn.SetEntry(entry)
	})
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.key(key))
	})
}
