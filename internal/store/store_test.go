package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupTestStore(t *testing.T, maxAge time.Duration, clock clockwork.Clock) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// Every pooled connection would otherwise get its own empty database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s := New(db, maxAge, clock)
	require.NoError(t, s.Migrate())
	return s
}

func TestMigrate_Idempotent(t *testing.T) {
	s := setupTestStore(t, 0, nil)
	require.NoError(t, s.Migrate())

	version, err := s.migrationVersion()
	require.NoError(t, err)
	assert.Equal(t, len(migrations), version)
}

func TestStoreAndLoad(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t, 0, nil)

	_, ok, err := s.Load(ctx, "products_obs.json")
	require.NoError(t, err)
	assert.False(t, ok, "empty store should miss")

	payload := []byte(`{"94576":"IDQ60901"}`)
	require.NoError(t, s.Store(ctx, "products_obs.json", payload))

	got, ok, err := s.Load(ctx, "products_obs.json")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, payload, got)
}

func TestStore_ReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t, 0, nil)

	require.NoError(t, s.Store(ctx, "stations.txt", []byte("first version with more bytes")))
	require.NoError(t, s.Store(ctx, "stations.txt", []byte("second")))

	got, ok, err := s.Load(ctx, "stations.txt")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", string(got))

	keys, err := s.keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"stations.txt"}, keys)
}

func TestLoad_ExpiresAfterMaxAge(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC))
	s := setupTestStore(t, 24*time.Hour, clock)

	require.NoError(t, s.Store(ctx, "products_forecast.json", []byte("[]")))

	clock.Advance(23 * time.Hour)
	_, ok, err := s.Load(ctx, "products_forecast.json")
	require.NoError(t, err)
	assert.True(t, ok, "entry within max age should load")

	clock.Advance(2 * time.Hour)
	_, ok, err = s.Load(ctx, "products_forecast.json")
	require.NoError(t, err)
	assert.False(t, ok, "stale entry should load as missing")
}

func TestLoad_DetectsCorruptPayload(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t, 0, nil)

	require.NoError(t, s.Store(ctx, "k", []byte("value")))
	_, err := s.db.Exec(`UPDATE cache_entries SET payload_hash = 'bogus' WHERE key = 'k'`)
	require.NoError(t, err)

	_, _, err = s.Load(ctx, "k")
	assert.ErrorContains(t, err, "hash mismatch")
}
