// Package memory is an in-process KV backend. Data lives for the lifetime of
// the process only.
package memory

import (
	"context"
	"log/slog"
	"sync"

	"fintrack/internal/store"
)

type Store struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func New() *Store {
	return &Store{items: make(map[string][]byte)}
}

// NewFromFiles creates a store whose categories collection is seeded from
// base/categories.yaml when the file exists.
func NewFromFiles(base string) (*Store, error) {
	s := New()
	cats, err := store.LoadSeedCategories(base)
	if err != nil {
		return nil, err
	}
	if len(cats) > 0 {
		repo := store.NewRepository(s)
		if err := repo.SetCategories(context.Background(), cats); err != nil {
			return nil, err
		}
		slog.Info("Seeded categories", "count", len(cats), "dir", base)
	}
	return s, nil
}

// Get returns a copy of the value stored under key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = append([]byte(nil), value...)
	return nil
}

// Update holds the store lock across fn, so it is atomic with respect to
// every other call on s.
func (s *Store) Update(_ context.Context, keys []string, fn store.UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := s.items[k]; ok {
			current[k] = append([]byte(nil), v...)
		}
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	for k, v := range next {
		s.items[k] = append([]byte(nil), v...)
	}
	return nil
}

func (s *Store) Close() error { return nil }
