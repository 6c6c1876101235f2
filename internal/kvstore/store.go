// Package kvstore persists small string values such as the round-robin cursor
// and the hide-notifications flag.
package kvstore

import (
	"context"
	"sync"
)

const (
	KeyHideNotifications   = "hideNotifications"
	KeyLastAdvertiserIndex = "lastAdvertiserIndex"
)

// Store is a string key-value store. Get reports ok=false for missing keys.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Memory is an in-process Store, used in tests and when no backend is configured.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Scoped prefixes every key, so one backend can hold several cursors.
func Scoped(s Store, scope string) Store {
	if scope == "" {
		return s
	}
	return scoped{inner: s, prefix: scope + ":"}
}

type scoped struct {
	inner  Store
	prefix string
}

func (s scoped) Get(ctx context.Context, key string) (string, bool, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

func (s scoped) Set(ctx context.Context, key, value string) error {
	return s.inner.Set(ctx, s.prefix+key, value)
}
