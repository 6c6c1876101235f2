// Package rotation orders advertisers for display and routes leads between them.
package rotation

import (
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultShuffleInterval matches the public directory's reshuffle cadence.
const DefaultShuffleInterval = 10 * time.Second

// Shuffle returns a Fisher–Yates permutation of list. The input is not modified.
// A nil rng uses the package-level source.
func Shuffle[T any](rng *rand.Rand, list []T) []T {
	out := make([]T, len(list))
	copy(out, list)
	for i := len(out) - 1; i > 0; i-- {
		var j int
		if rng != nil {
			j = rng.IntN(i + 1)
		} else {
			j = rand.IntN(i + 1)
		}
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Shuffler keeps a periodically reshuffled snapshot of a list.
// Readers always see a complete ordering; each tick replaces it atomically.
type Shuffler[T any] struct {
	interval time.Duration
	onTick   func([]T)

	mu     sync.Mutex // guards rng and source
	rng    *rand.Rand
	source []T

	current atomic.Pointer[[]T]
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	started atomic.Bool
}

// ShufflerOption customises a Shuffler.
type ShufflerOption[T any] func(*Shuffler[T])

// WithRand injects a deterministic source.
func WithRand[T any](rng *rand.Rand) ShufflerOption[T] {
	return func(s *Shuffler[T]) { s.rng = rng }
}

// WithTickHook is called with each new ordering after it is published.
func WithTickHook[T any](fn func([]T)) ShufflerOption[T] {
	return func(s *Shuffler[T]) { s.onTick = fn }
}

// NewShuffler builds a Shuffler over list. A non-positive interval uses DefaultShuffleInterval.
func NewShuffler[T any](list []T, interval time.Duration, opts ...ShufflerOption[T]) *Shuffler[T] {
	if interval <= 0 {
		interval = DefaultShuffleInterval
	}
	s := &Shuffler[T]{
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.source = append([]T(nil), list...)
	s.reshuffle()
	return s
}

// Current returns the latest ordering. Callers must not modify it.
func (s *Shuffler[T]) Current() []T {
	p := s.current.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Replace swaps the underlying list and publishes a fresh ordering of it.
func (s *Shuffler[T]) Replace(list []T) {
	s.mu.Lock()
	s.source = append([]T(nil), list...)
	s.mu.Unlock()
	s.reshuffle()
}

func (s *Shuffler[T]) reshuffle() []T {
	s.mu.Lock()
	next := Shuffle(s.rng, s.source)
	s.mu.Unlock()
	s.current.Store(&next)
	return next
}

// Start runs the ticker until ctx is cancelled or Stop is called.
// It returns immediately; calling it twice is a no-op.
func (s *Shuffler[T]) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go s.run(ctx)
}

func (s *Shuffler[T]) run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			// stop may race with the tick; never publish after it.
			select {
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			default:
			}
			next := s.reshuffle()
			if s.onTick != nil {
				s.onTick(next)
			}
		}
	}
}

// Stop halts the ticker and waits for the loop to exit. No update is
// published after Stop returns.
func (s *Shuffler[T]) Stop() {
	s.once.Do(func() { close(s.stop) })
	if s.started.Load() {
		<-s.done
	}
}
