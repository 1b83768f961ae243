package cache

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_UsesCachedValue(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	require.NoError(t, mem.Store(ctx, "k", []byte("cached")))

	calls := 0
	got, err := Get(ctx, nil, mem, "k", false, func(context.Context) ([]byte, error) {
		calls++
		return []byte("fresh"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "cached", string(got))
	assert.Zero(t, calls)
}

func TestGet_RefreshBypassesAndOverwrites(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	require.NoError(t, mem.Store(ctx, "k", []byte("cached")))

	got, err := Get(ctx, nil, mem, "k", true, func(context.Context) ([]byte, error) {
		return []byte("fresh"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(got))

	stored, ok, err := mem.Load(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "fresh", string(stored))
}

func TestGet_MissDerivesAndStores(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	got, err := Get(ctx, nil, mem, "k", false, func(context.Context) ([]byte, error) {
		return []byte("fresh"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(got))

	_, ok, _ := mem.Load(ctx, "k")
	assert.True(t, ok)
}

func TestGet_DeriveErrorLeavesCacheUntouched(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	require.NoError(t, mem.Store(ctx, "k", []byte("cached")))

	boom := errors.New("boom")
	_, err := Get(ctx, nil, mem, "k", true, func(context.Context) ([]byte, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	stored, _, _ := mem.Load(ctx, "k")
	assert.Equal(t, "cached", string(stored))
}

type brokenProvider struct{}

func (brokenProvider) Load(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("disk on fire")
}

func (brokenProvider) Store(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestGet_ProviderFailuresAreLoggedNotReturned(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	got, err := Get(context.Background(), logger, brokenProvider{}, "k", false, func(context.Context) ([]byte, error) {
		return []byte("fresh"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(got))
	assert.Contains(t, buf.String(), "cache: load failed")
	assert.Contains(t, buf.String(), "disk on fire")
	assert.Contains(t, buf.String(), "cache: store failed")
	assert.Contains(t, buf.String(), "disk full")
}

func TestNone_AlwaysDerives(t *testing.T) {
	ctx := context.Background()
	calls := 0
	for range 2 {
		_, err := Get(ctx, nil, None{}, "k", false, func(context.Context) ([]byte, error) {
			calls++
			return []byte("x"), nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
}

func TestDir_StoreLoadAndExpiry(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC))
	d, err := NewDir(t.TempDir(), time.Hour, clock)
	require.NoError(t, err)

	_, ok, err := d.Load(ctx, "stations.txt")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, d.Store(ctx, "stations.txt", []byte("line one\nline two\n")))
	got, ok, err := d.Load(ctx, "stations.txt")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "line one\nline two\n", string(got))

	clock.Advance(2 * time.Hour)
	_, ok, err = d.Load(ctx, "stations.txt")
	require.NoError(t, err)
	assert.False(t, ok, "entry older than max age should miss")
}

func TestDir_KeysCannotEscapeDirectory(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	d, err := NewDir(dir, 0, nil)
	require.NoError(t, err)

	require.NoError(t, d.Store(ctx, "../outside.json", []byte("{}")))
	got, ok, err := d.Load(ctx, "outside.json")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "{}", string(got))
}
