package kvstore

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// plainStore hides Advance so the read then write path is used.
type plainStore struct{ inner *Memory }

func (p plainStore) Get(ctx context.Context, key string) (string, bool, error) {
	return p.inner.Get(ctx, key)
}

func (p plainStore) Set(ctx context.Context, key, value string) error {
	return p.inner.Set(ctx, key, value)
}

func exerciseAdvance(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	got := make([]int, 0, 7)
	for i := 0; i < 7; i++ {
		idx, err := Advance(ctx, s, KeyLastAdvertiserIndex, 3)
		require.NoError(t, err)
		got = append(got, idx)
	}
	assert.Equal(t, []int{0, 1, 2, 0, 1, 2, 0}, got)
	v, _, err := s.Get(ctx, KeyLastAdvertiserIndex)
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	// Shrunk list.
	require.NoError(t, s.Set(ctx, KeyLastAdvertiserIndex, "7"))
	idx, err := Advance(ctx, s, KeyLastAdvertiserIndex, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	v, _, err = s.Get(ctx, KeyLastAdvertiserIndex)
	require.NoError(t, err)
	assert.Equal(t, "2", v)

	for _, garbage := range []string{"NaN", "-4", "1.5", ""} {
		require.NoError(t, s.Set(ctx, KeyLastAdvertiserIndex, garbage))
		idx, err := Advance(ctx, s, KeyLastAdvertiserIndex, 3)
		require.NoError(t, err)
		assert.Equal(t, 0, idx, "cursor %q", garbage)
	}

	idx, err = Advance(ctx, s, "single", 1)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	v, _, err = s.Get(ctx, "single")
	require.NoError(t, err)
	assert.Equal(t, "0", v)

	_, err = Advance(ctx, s, KeyLastAdvertiserIndex, 0)
	require.ErrorIs(t, err, ErrEmptyCycle)
}

func TestAdvanceMemory(t *testing.T) {
	exerciseAdvance(t, NewMemory())
}

func TestAdvanceWithoutAtomicSupport(t *testing.T) {
	exerciseAdvance(t, plainStore{inner: NewMemory()})
}

func TestAdvanceScoped(t *testing.T) {
	inner := NewMemory()
	exerciseAdvance(t, Scoped(inner, "moving"))
	_, ok, err := inner.Get(context.Background(), "moving:"+KeyLastAdvertiserIndex)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestAdvanceRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	exerciseAdvance(t, NewRedis(client, ""))
}

func TestAdvanceRedisSharedAcrossClients(t *testing.T) {
	mr := miniredis.RunT(t)
	stores := make([]*Redis, 2)
	for i := range stores {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		stores[i] = NewRedis(client, "")
	}

	const n = 41
	ctx := context.Background()
	var mu sync.Mutex
	counts := make(map[int]int)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(s *Redis) {
			defer wg.Done()
			idx, err := s.Advance(ctx, KeyLastAdvertiserIndex, n)
			if err != nil {
				return
			}
			mu.Lock()
			counts[idx]++
			mu.Unlock()
		}(stores[i%2])
	}
	wg.Wait()
	require.Len(t, counts, n)
	for idx, c := range counts {
		require.Equal(t, 1, c, "index %d", idx)
	}
}
