package storage

import (
	"context"
	"fmt"

	ristretto "github.com/dgraph-io/ristretto/v2"
)

// Ristretto keeps values in a ristretto cache. Entries may be evicted under pressure,
// so it suits slices that can fall back to their defaults.
type Ristretto struct {
	cache *ristretto.Cache[string, any]
}

var _ Storage = (*Ristretto)(nil)

func NewRistretto(bufferItems int64) (*Ristretto, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, any]{
		NumCounters: 1e5,
		MaxCost:     1 << 26,
		BufferItems: max(bufferItems, 1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}
	return &Ristretto{cache: cache}, nil
}

func (r *Ristretto) Get(_ context.Context, key string) (any, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}
	v, ok := r.cache.Get(key)
	return v, ok, nil
}

// Set stores value and waits until it is visible to Get.
func (r *Ristretto) Set(_ context.Context, key string, value any) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if !r.cache.Set(key, value, 1) {
		return fmt.Errorf("%w: %q", ErrRejected, key)
	}
	r.cache.Wait()
	return nil
}

func (r *Ristretto) Close() {
	r.cache.Close()
}
