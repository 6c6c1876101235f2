package app

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("MARKETPLACE_API_URL", "https://api.example.sa/v1")
	t.Setenv("KV_BACKEND", "unset")
	require.NoError(t, os.Unsetenv("KV_BACKEND"))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, KVBackendRedis, cfg.KVBackend)
	assert.Equal(t, 10*time.Second, cfg.ShuffleInterval)
	assert.Equal(t, 20*time.Second, cfg.NoticeInterval)
	assert.Equal(t, 5*time.Minute, cfg.CatalogTTL)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.Equal(t, int32(10), cfg.PGMaxConns)
	assert.Equal(t, "moving", cfg.LeadSector)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresMarketplaceURL(t *testing.T) {
	t.Setenv("MARKETPLACE_API_URL", "")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	base := Config{MarketplaceAPIURL: "http://x", KVBackend: KVBackendMemory, ShuffleInterval: time.Second}
	require.NoError(t, base.validate())

	pg := base
	pg.KVBackend = KVBackendPostgres
	assert.ErrorContains(t, pg.validate(), "PG_DSN")
	pg.PGDSN = "postgres://localhost/khadamat"
	assert.NoError(t, pg.validate())

	bad := base
	bad.KVBackend = "etcd"
	bad.ShuffleInterval = 0
	bad.RateLimitPerMinute = -1
	err := bad.validate()
	assert.ErrorContains(t, err, `unknown KV_BACKEND "etcd"`)
	assert.ErrorContains(t, err, "SHUFFLE_INTERVAL")
	assert.ErrorContains(t, err, "RATE_LIMIT_PER_MINUTE")
}

func TestLoggerFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{AppEnv: "staging", LogFormat: "json"})
	logger.Debug("hello", "k", "v")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "staging", line["env"])
	assert.Equal(t, "v", line["k"])

	buf.Reset()
	prod := newLogger(&buf, &Config{AppEnv: "production", LogFormat: "json"})
	prod.Debug("hidden")
	assert.Empty(t, buf.String())
	prod.Info("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestRefreshTestMode(t *testing.T) {
	t.Setenv(TestModeEnv, "1")
	RefreshTestMode()
	assert.True(t, InTestMode())
	t.Setenv(TestModeEnv, "0")
	RefreshTestMode()
	assert.False(t, InTestMode())
}
