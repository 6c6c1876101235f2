package notices

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khadamat/khadamat/internal/kvstore"
)

func newTestFeed() *Feed {
	return NewFeed(time.Hour, rand.New(rand.NewPCG(1, 2)))
}

func TestFeedKeepsNewestFirst(t *testing.T) {
	feed := newTestFeed()
	var last Notice
	for i := 0; i < defaultCapacity+5; i++ {
		last = feed.Tick()
	}

	all := feed.Latest(0)
	require.Len(t, all, defaultCapacity)
	assert.Equal(t, last, all[0])
	assert.Len(t, feed.Latest(3), 3)
	assert.Contains(t, last.Text, last.City)
	assert.Contains(t, last.Text, last.Service)
}

func TestFeedDeterministicWithSeed(t *testing.T) {
	a, b := newTestFeed(), newTestFeed()
	for i := 0; i < 5; i++ {
		na, nb := a.Tick(), b.Tick()
		assert.Equal(t, na.Text, nb.Text)
	}
}

func TestFeedStartStop(t *testing.T) {
	feed := NewFeed(5*time.Millisecond, nil)
	feed.Start(context.Background())
	feed.Start(context.Background())

	require.Eventually(t, func() bool { return len(feed.Latest(0)) >= 3 }, time.Second, 5*time.Millisecond)
	feed.Stop()
	feed.Stop()

	n := len(feed.Latest(0))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, len(feed.Latest(0)))
}

func TestFeedStopsOnContextCancel(t *testing.T) {
	feed := NewFeed(time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	feed.Start(ctx)
	cancel()
	select {
	case <-feed.done:
	case <-time.After(time.Second):
		t.Fatal("feed did not stop after cancel")
	}
}

func TestStopWithoutStart(t *testing.T) {
	newTestFeed().Stop()
}

func TestHiddenFlag(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	svc := NewService(newTestFeed(), store)

	hidden, err := svc.Hidden(ctx, "")
	require.NoError(t, err)
	assert.False(t, hidden)

	require.NoError(t, svc.SetHidden(ctx, "", true))
	v, ok, _ := store.Get(ctx, kvstore.KeyHideNotifications)
	require.True(t, ok)
	assert.Equal(t, "true", v)

	require.NoError(t, store.Set(ctx, kvstore.KeyHideNotifications, "garbage"))
	hidden, err = svc.Hidden(ctx, "")
	require.NoError(t, err)
	assert.False(t, hidden)
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("down")
}
func (failingStore) Set(context.Context, string, string) error { return errors.New("down") }

func TestLatestHonorsFlag(t *testing.T) {
	ctx := context.Background()
	feed := newTestFeed()
	feed.Tick()
	svc := NewService(feed, kvstore.NewMemory())

	hidden, items, err := svc.Latest(ctx, "browser-1", 0)
	require.NoError(t, err)
	assert.False(t, hidden)
	assert.Len(t, items, 1)

	require.NoError(t, svc.SetHidden(ctx, "browser-1", true))
	hidden, items, err = svc.Latest(ctx, "browser-1", 0)
	require.NoError(t, err)
	assert.True(t, hidden)
	assert.Empty(t, items)

	_, items, err = svc.Latest(ctx, "browser-2", 0)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, _, err = NewService(feed, failingStore{}).Latest(ctx, "", 0)
	assert.Error(t, err)
}

func TestHandler(t *testing.T) {
	feed := newTestFeed()
	feed.Tick()
	feed.Tick()
	store := kvstore.NewMemory()
	r := chi.NewRouter()
	r.Route("/api", NewHandler(nil, NewService(feed, store)).MountRoutes)

	req := httptest.NewRequest(http.MethodGet, "/api/notices?limit=1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Hidden bool     `json:"hidden"`
		Data   []Notice `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.False(t, body.Hidden)
	assert.Len(t, body.Data, 1)

	req = httptest.NewRequest(http.MethodPut, "/api/notices/hidden", strings.NewReader(`{"hidden":true}`))
	req.Header.Set(ClientHeader, "abc")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	v, ok, _ := store.Get(context.Background(), "abc:"+kvstore.KeyHideNotifications)
	require.True(t, ok)
	assert.Equal(t, "true", v)

	req = httptest.NewRequest(http.MethodPut, "/api/notices/hidden", strings.NewReader(`{}`))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPut, "/api/notices/hidden", strings.NewReader(`{"hidden":"yes"}`))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
