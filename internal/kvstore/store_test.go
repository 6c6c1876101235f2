package kvstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, KeyLastAdvertiserIndex)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, KeyLastAdvertiserIndex, "2"))
	v, ok, err := s.Get(ctx, KeyLastAdvertiserIndex)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2", v)

	require.NoError(t, s.Set(ctx, KeyLastAdvertiserIndex, "0"))
	v, _, err = s.Get(ctx, KeyLastAdvertiserIndex)
	require.NoError(t, err)
	require.Equal(t, "0", v)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	exerciseStore(t, NewRedis(client, ""))
	require.True(t, mr.Exists("khadamat:kv:"+KeyLastAdvertiserIndex))
}

func TestRedisStoreSurfacesErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	_, _, err := NewRedis(client, "x:").Get(context.Background(), KeyHideNotifications)
	require.Error(t, err)
}

func TestScopedKeysDoNotCollide(t *testing.T) {
	ctx := context.Background()
	base := NewMemory()
	moving := Scoped(base, "moving")
	cleaning := Scoped(base, "cleaning")

	require.NoError(t, moving.Set(ctx, KeyLastAdvertiserIndex, "1"))
	require.NoError(t, cleaning.Set(ctx, KeyLastAdvertiserIndex, "3"))

	v, _, _ := moving.Get(ctx, KeyLastAdvertiserIndex)
	require.Equal(t, "1", v)
	v, _, _ = base.Get(ctx, "cleaning:"+KeyLastAdvertiserIndex)
	require.Equal(t, "3", v)
	require.Equal(t, base, Scoped(base, ""))
}
