// Package cache provides read caches for derived views such as the dashboard.
package cache

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Delete removes a key from the cache
	Delete(key string)

	// Clear drops every entry
	Clear()
}

// Ristretto is a TTL cache backed by ristretto. Writes are made visible
// before Set returns.
type Ristretto[T any] struct {
	cache *ristretto.Cache[string, T]
	ttl   time.Duration
}

// NewRistretto creates a cache holding at most maxItems entries, each living
// for ttl. A zero ttl keeps entries until evicted.
func NewRistretto[T any](maxItems int64, ttl time.Duration) (*Ristretto[T], error) {
	if maxItems <= 0 {
		maxItems = 128
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, T]{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Ristretto[T]{cache: c, ttl: ttl}, nil
}

func (r *Ristretto[T]) Get(key string) (T, bool) {
	return r.cache.Get(key)
}

func (r *Ristretto[T]) Set(key string, data T) {
	r.cache.SetWithTTL(key, data, 1, r.ttl)
	r.cache.Wait()
}

func (r *Ristretto[T]) Delete(key string) {
	r.cache.Del(key)
}

func (r *Ristretto[T]) Clear() {
	r.cache.Clear()
}

func (r *Ristretto[T]) Close() {
	r.cache.Close()
}

// Noop never stores anything.
type Noop[T any] struct{}

func (Noop[T]) Get(string) (T, bool) {
	var zero T
	return zero, false
}
func (Noop[T]) Set(string, T) {}
func (Noop[T]) Delete(string) {}
func (Noop[T]) Clear()        {}
