package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/bomweather/internal/bom"
	"github.com/lox/bomweather/internal/bomerr"
	"github.com/lox/bomweather/internal/cache"
	"github.com/lox/bomweather/internal/config"
	"github.com/lox/bomweather/internal/metrics"
)

func testApp(retries uint64) *App {
	return &App{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Out:     io.Discard,
		Clock:   clockwork.NewFakeClock(),
		Retries: retries,
	}
}

func TestRetry_TransientErrorsAreRetried(t *testing.T) {
	app := testApp(3)
	calls := 0
	err := app.retry(context.Background(), func() error {
		calls++
		if calls < 2 {
			return &bomerr.TransportError{Op: "http get", Target: "x", StatusCode: http.StatusServiceUnavailable}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetry_FormatErrorsAreNot(t *testing.T) {
	app := testApp(3)
	calls := 0
	err := app.retry(context.Background(), func() error {
		calls++
		return bomerr.Formatf("observation feed", "IDQ60801.95551", "missing observations object")
	})
	assert.True(t, bomerr.IsFormat(err))
	assert.Equal(t, 1, calls)
}

func TestRetry_Disabled(t *testing.T) {
	app := testApp(0)
	calls := 0
	want := &bomerr.TransportError{Op: "ftp dial", Target: "ftp.bom.gov.au:21", Err: errors.New("i/o timeout")}
	err := app.retry(context.Background(), func() error {
		calls++
		return want
	})
	assert.ErrorIs(t, err, want)
	assert.Equal(t, 1, calls)
}

func TestWriteMetrics(t *testing.T) {
	metrics.CacheLookups.WithLabelValues("stations.txt", "hit").Inc()

	var buf bytes.Buffer
	require.NoError(t, writeMetrics(&buf))
	assert.Contains(t, buf.String(), `bomweather_cache_lookups_total{key="stations.txt",result="hit"}`)
}

func TestObservationCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fwo/IDQ60801/IDQ60801.95551.json", r.URL.Path)
		w.Write([]byte(`{"observations": {"data": [{
			"wmo": 95551, "name": "Toowoomba", "history_product": "IDQ60801",
			"local_date_time_full": "20260302090000", "aifstime_utc": "20260301230000",
			"lat": -27.5, "lon": 151.9, "apparent_t": "-", "cloud": "-", "cloud_base_m": "-",
			"cloud_oktas": "-", "cloud_type": "-", "delta_t": "-", "gust_kmh": "-", "gust_kt": "-",
			"air_temp": 20.4, "dewpt": "-", "press": "-", "press_msl": "-", "press_qnh": "-",
			"rain_trace": "-", "rel_hum": "-", "vis_km": "-", "weather": "-", "wind_dir": "-",
			"wind_spd_kmh": "-", "wind_spd_kt": "-"
		}]}}`))
	}))
	defer srv.Close()

	var cli CLI
	parser, err := kong.New(&cli, kong.Vars(config.Vars()))
	require.NoError(t, err)
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, nil, 0644))
	kctx, err := parser.Parse([]string{"--env-file", envFile, "observation", "95551", "IDQ60801"})
	require.NoError(t, err)

	var out bytes.Buffer
	app := testApp(0)
	app.Out = &out
	app.Client = bom.New(bom.Options{BaseURL: srv.URL, HTTPClient: srv.Client(), Cache: cache.NewMemory()})

	ctx := context.Background()
	kctx.BindTo(ctx, (*context.Context)(nil))
	require.NoError(t, kctx.Run(app))
	assert.Contains(t, out.String(), "Toowoomba (95551)")
	assert.Contains(t, out.String(), "20.4")
}
