package store

import (
	"context"
	"errors"
	"fmt"
)

// Update runs fn against a transactional view of the kinds collections and
// stores every collection fn writes in a single KV.Update. The view only
// reaches the listed kinds, and reads through it see fn's own writes. fn runs
// while the backend holds its write lock: keep it to reading and writing the
// view, and leave events, metrics and cache invalidation to the caller.
func (r *Repository) Update(ctx context.Context, fn func(tx *Repository) error, kinds ...Kind) error {
	keys := make([]string, len(kinds))
	for i, k := range kinds {
		keys[i] = string(k)
	}
	return r.kv.Update(ctx, keys, func(current map[string][]byte) (map[string][]byte, error) {
		view := newStagedKV(keys, current)
		if err := fn(&Repository{kv: view, defaultCategories: r.defaultCategories}); err != nil {
			return nil, err
		}
		return view.staged, nil
	})
}

var errNestedUpdate = errors.New("update already in progress")

// stagedKV buffers writes over a fixed set of keys.
type stagedKV struct {
	keys    map[string]struct{}
	current map[string][]byte
	staged  map[string][]byte
}

func newStagedKV(keys []string, current map[string][]byte) *stagedKV {
	v := &stagedKV{
		keys:    make(map[string]struct{}, len(keys)),
		current: current,
		staged:  make(map[string][]byte, len(keys)),
	}
	for _, k := range keys {
		v.keys[k] = struct{}{}
	}
	return v
}

func (v *stagedKV) check(key string) error {
	if _, ok := v.keys[key]; !ok {
		return fmt.Errorf("collection %s is not part of this update", key)
	}
	return nil
}

func (v *stagedKV) Get(_ context.Context, key string) ([]byte, error) {
	if err := v.check(key); err != nil {
		return nil, err
	}
	if b, ok := v.staged[key]; ok {
		return b, nil
	}
	if b, ok := v.current[key]; ok {
		return b, nil
	}
	return nil, ErrNotFound
}

func (v *stagedKV) Set(_ context.Context, key string, value []byte) error {
	if err := v.check(key); err != nil {
		return err
	}
	v.staged[key] = value
	return nil
}

func (v *stagedKV) Update(context.Context, []string, UpdateFunc) error {
	return errNestedUpdate
}

func (v *stagedKV) Close() error { return nil }
