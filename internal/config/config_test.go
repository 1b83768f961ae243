package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/lox/bomweather/internal/cache"
	"github.com/lox/bomweather/internal/store"
)

func parse(t *testing.T, args ...string) *Config {
	t.Helper()
	var cfg Config
	parser, err := kong.New(&cfg, kong.Vars(Vars()), kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	require.NoError(t, err)
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, nil, 0644))
	_, err = parser.Parse(append([]string{"--env-file", envFile}, args...))
	require.NoError(t, err)
	return &cfg
}

func TestDefaults(t *testing.T) {
	cfg := parse(t)

	assert.Equal(t, "http://www.bom.gov.au", cfg.BaseURL)
	assert.Equal(t, "ftp.bom.gov.au:21", cfg.FTPHost)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, CacheDir, cfg.Cache)
	assert.Zero(t, cfg.CacheMaxAge)
	assert.Zero(t, cfg.Retries)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestEnvironment(t *testing.T) {
	t.Setenv("BOM_TIMEOUT", "30s")
	t.Setenv("BOM_CACHE", "sqlite")
	t.Setenv("BOM_CACHE_MAX_AGE", "168h")
	t.Setenv("BOM_RETRIES", "3")
	t.Setenv("BOM_JURISDICTIONS", "qld,nsw")

	cfg := parse(t)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, CacheSQLite, cfg.Cache)
	assert.Equal(t, 7*24*time.Hour, cfg.CacheMaxAge)
	assert.Equal(t, uint64(3), cfg.Retries)
	assert.Equal(t, []string{"qld", "nsw"}, cfg.Jurisdictions)

	// Flags win over the environment.
	cfg = parse(t, "--cache", "none")
	assert.Equal(t, CacheNone, cfg.Cache)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := &Config{LogLevel: "info", LogFormat: "json"}
	logger := cfg.NewLogger(&buf)

	logger.Debug("hidden")
	logger.Info("shown", "wmo", "95551")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"wmo":"95551"`)
}

func TestOpenCache(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()

	t.Run("none", func(t *testing.T) {
		p, closeFn, err := (&Config{Cache: CacheNone}).OpenCache(clock)
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, cache.None{}, p)
	})

	t.Run("dir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "cache")
		p, closeFn, err := (&Config{Cache: CacheDir, CachePath: dir}).OpenCache(clock)
		require.NoError(t, err)
		defer closeFn()

		require.NoError(t, p.Store(ctx, "stations.txt", []byte("table")))
		assert.FileExists(t, filepath.Join(dir, "stations.txt"))
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "cache.db")
		p, closeFn, err := (&Config{Cache: CacheSQLite, CachePath: path, CacheMaxAge: time.Hour}).OpenCache(clock)
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &store.Store{}, p)

		require.NoError(t, p.Store(ctx, "products_obs.json", []byte(`{"95551":"IDQ60801"}`)))
		blob, ok, err := p.Load(ctx, "products_obs.json")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.JSONEq(t, `{"95551":"IDQ60801"}`, string(blob))

		clock.Advance(2 * time.Hour)
		_, ok, err = p.Load(ctx, "products_obs.json")
		require.NoError(t, err)
		assert.False(t, ok, "entries past the max age read as missing")
	})

	t.Run("unknown", func(t *testing.T) {
		_, _, err := (&Config{Cache: "redis"}).OpenCache(clock)
		assert.Error(t, err)
	})
}
