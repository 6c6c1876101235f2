// Package notices produces the "recent request" ticker shown on the public pages.
package notices

import (
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultInterval is the pause between generated notices.
const DefaultInterval = 20 * time.Second

const defaultCapacity = 10

var (
	firstNames = []string{"محمد", "عبدالله", "فهد", "سارة", "نورة", "خالد", "ريم", "سلطان", "هند", "فيصل"}
	cities     = []string{"الرياض", "جدة", "مكة المكرمة", "المدينة المنورة", "الدمام", "الخبر", "الطائف", "أبها", "تبوك", "بريدة"}
	services   = []string{"نقل عفش", "تغليف أثاث", "فك وتركيب", "تخزين أثاث", "نقل مكاتب"}
)

// Notice is one simulated customer request.
type Notice struct {
	Name      string    `json:"name"`
	City      string    `json:"city"`
	Service   string    `json:"service"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Feed keeps the latest generated notices, newest first.
type Feed struct {
	interval time.Duration
	capacity int
	now      func() time.Time

	mu    sync.Mutex
	rng   *rand.Rand
	items []Notice

	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	started atomic.Bool
}

// NewFeed builds a feed. A nil rng uses a time seeded source.
func NewFeed(interval time.Duration, rng *rand.Rand) *Feed {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return &Feed{
		interval: interval,
		capacity: defaultCapacity,
		now:      time.Now,
		rng:      rng,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start generates one notice immediately and then one per interval until
// ctx is cancelled or Stop is called.
func (f *Feed) Start(ctx context.Context) {
	if !f.started.CompareAndSwap(false, true) {
		return
	}
	f.Tick()
	go func() {
		defer close(f.done)
		ticker := time.NewTicker(f.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-f.stop:
				return
			case <-ticker.C:
				f.Tick()
			}
		}
	}()
}

// Stop halts a started feed and waits for its goroutine.
func (f *Feed) Stop() {
	f.once.Do(func() { close(f.stop) })
	if f.started.Load() {
		<-f.done
	}
}

// Tick appends one generated notice and returns it.
func (f *Feed) Tick() Notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := Notice{
		Name:      firstNames[f.rng.IntN(len(firstNames))],
		City:      cities[f.rng.IntN(len(cities))],
		Service:   services[f.rng.IntN(len(services))],
		CreatedAt: f.now(),
	}
	n.Text = n.Name + " من " + n.City + " طلب خدمة " + n.Service
	f.items = append([]Notice{n}, f.items...)
	if len(f.items) > f.capacity {
		f.items = f.items[:f.capacity]
	}
	return n
}

// Latest returns up to limit notices, newest first. limit<=0 returns all.
func (f *Feed) Latest(limit int) []Notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit <= 0 || limit > len(f.items) {
		limit = len(f.items)
	}
	out := make([]Notice, limit)
	copy(out, f.items)
	return out
}
