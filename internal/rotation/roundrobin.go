package rotation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/khadamat/khadamat/internal/kvstore"
)

// ErrNoAdvertisers is returned when there is nobody to route a lead to.
var ErrNoAdvertisers = errors.New("rotation: no advertisers available")

// RoundRobin hands out indexes cyclically, persisting the cursor in a kvstore.Store.
type RoundRobin struct {
	store kvstore.Store
	key   string
	mu    sync.Mutex
}

// NewRoundRobin uses kvstore.KeyLastAdvertiserIndex as the cursor key.
func NewRoundRobin(store kvstore.Store) *RoundRobin {
	return &RoundRobin{store: store, key: kvstore.KeyLastAdvertiserIndex}
}

// Next returns the index to use for a list of length n and advances the cursor.
// A cursor saved against a longer list is reduced modulo n. Unreadable values restart at 0.
// Stores implementing kvstore.Advancer advance atomically across processes.
func (r *RoundRobin) Next(ctx context.Context, n int) (int, error) {
	if n <= 0 {
		return 0, ErrNoAdvertisers
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	idx, err := kvstore.Advance(ctx, r.store, r.key, n)
	if err != nil {
		return 0, fmt.Errorf("rotation: advance cursor: %w", err)
	}
	return idx, nil
}

// Pick selects the next element of list.
func Pick[T any](ctx context.Context, r *RoundRobin, list []T) (T, error) {
	var zero T
	idx, err := r.Next(ctx, len(list))
	if err != nil {
		return zero, err
	}
	return list[idx], nil
}
