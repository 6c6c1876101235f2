package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrEmptyCycle is returned by Advance when the cycle length is not positive.
var ErrEmptyCycle = errors.New("kvstore: cycle length must be positive")

// Advancer is implemented by stores that can move a cyclic cursor in one
// atomic step, so several processes sharing the backend never hand out the
// same position twice in a cycle.
type Advancer interface {
	// Advance reads the cursor stored under key, reduces it modulo n, stores
	// the following position and returns the reduced value. Missing or
	// unreadable cursors count as 0.
	Advance(ctx context.Context, key string, n int) (int, error)
}

// Advance moves the cursor under key using the store's atomic Advance when it
// has one, and a plain read then write otherwise.
func Advance(ctx context.Context, s Store, key string, n int) (int, error) {
	if n <= 0 {
		return 0, ErrEmptyCycle
	}
	if a, ok := s.(Advancer); ok {
		return a.Advance(ctx, key, n)
	}
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	idx := cursorIndex(raw, ok, n)
	if err := s.Set(ctx, key, strconv.Itoa((idx+1)%n)); err != nil {
		return 0, err
	}
	return idx, nil
}

func cursorIndex(raw string, ok bool, n int) int {
	if !ok {
		return 0
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < 0 {
		return 0
	}
	return v % n
}

// Advance implements Advancer.
func (m *Memory) Advance(_ context.Context, key string, n int) (int, error) {
	if n <= 0 {
		return 0, ErrEmptyCycle
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.values[key]
	idx := cursorIndex(raw, ok, n)
	m.values[key] = strconv.Itoa((idx + 1) % n)
	return idx, nil
}

func (s scoped) Advance(ctx context.Context, key string, n int) (int, error) {
	return Advance(ctx, s.inner, s.prefix+key, n)
}

// advanceScript mirrors cursorIndex inside Redis.
const advanceScript = `
local n = tonumber(ARGV[1])
local v = tonumber(redis.call('GET', KEYS[1]))
if v == nil or v < 0 or v ~= math.floor(v) then
	v = 0
end
local idx = v % n
redis.call('SET', KEYS[1], (idx + 1) % n)
return idx
`

// Advance implements Advancer with a Lua script.
func (r *Redis) Advance(ctx context.Context, key string, n int) (int, error) {
	if n <= 0 {
		return 0, ErrEmptyCycle
	}
	idx, err := r.advance.Run(ctx, r.client, []string{r.prefix + key}, n).Int()
	if err != nil {
		return 0, fmt.Errorf("kvstore/redis: advance %s: %w", key, err)
	}
	return idx, nil
}

// advanceSQL upserts the following position under the row lock and returns it.
const advanceSQL = `INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $3, now())
ON CONFLICT (key) DO UPDATE SET
	value = ((CASE WHEN kv_store.value ~ '^ *[0-9]{1,18} *$'
		THEN btrim(kv_store.value)::bigint % $2::bigint ELSE 0 END + 1) % $2::bigint)::text,
	updated_at = now()
RETURNING value`

// Advance implements Advancer in a single upsert statement.
func (p *Postgres) Advance(ctx context.Context, key string, n int) (int, error) {
	if n <= 0 {
		return 0, ErrEmptyCycle
	}
	var stored string
	if err := p.db.QueryRow(ctx, advanceSQL, key, int64(n), strconv.Itoa(1%n)).Scan(&stored); err != nil {
		return 0, fmt.Errorf("kvstore/postgres: advance %s: %w", key, err)
	}
	next, err := strconv.Atoi(stored)
	if err != nil {
		return 0, fmt.Errorf("kvstore/postgres: advance %s: %w", key, err)
	}
	return (next - 1 + n) % n, nil
}
