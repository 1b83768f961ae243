// Package config holds the command line and environment settings.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"

	"github.com/lox/bomweather/internal/bom"
	"github.com/lox/bomweather/internal/cache"
	"github.com/lox/bomweather/internal/ftputil"
	"github.com/lox/bomweather/internal/httputil"
	"github.com/lox/bomweather/internal/products"
	"github.com/lox/bomweather/internal/store"
)

const (
	CacheDir    = "dir"
	CacheSQLite = "sqlite"
	CacheNone   = "none"
)

// Config is embedded into the CLI; every field can also be set from a
// BOM_* environment variable or a .env file.
type Config struct {
	EnvFile kongdotenv.ENVFileConfig `kong:"optional,name=env-file,default='.env',help='Path to .env file'"`

	BaseURL string        `name:"base-url" env:"BOM_BASE_URL" default:"${base_url}" help:"Bureau web site root."`
	FTPHost string        `name:"ftp-host" env:"BOM_FTP_HOST" default:"${ftp_host}" help:"Bureau FTP host:port."`
	Timeout time.Duration `env:"BOM_TIMEOUT" default:"${timeout}" help:"Per request timeout."`
	Retries uint64        `env:"BOM_RETRIES" default:"0" help:"Retry transient network failures this many times."`

	Cache       string        `env:"BOM_CACHE" enum:"dir,sqlite,none" default:"dir" help:"Lookup table cache backend (dir, sqlite, none)."`
	CachePath   string        `name:"cache-path" env:"BOM_CACHE_PATH" type:"path" help:"Cache directory, or database file for sqlite. Defaults under the user cache directory."`
	CacheMaxAge time.Duration `name:"cache-max-age" env:"BOM_CACHE_MAX_AGE" default:"0s" help:"Rebuild cached tables older than this; 0 keeps them forever."`

	Jurisdictions []string `env:"BOM_JURISDICTIONS" help:"Limit scraping to these jurisdiction codes."`

	LogLevel  string `name:"log-level" env:"BOM_LOG_LEVEL" enum:"debug,info,warn,error" default:"warn" help:"Log level."`
	LogFormat string `name:"log-format" env:"BOM_LOG_FORMAT" enum:"text,json" default:"text" help:"Log output format."`
	NoColor   bool   `name:"no-color" env:"NO_COLOR" help:"Disable colored output."`
	Metrics   bool   `help:"Print collected metrics after the command."`
}

// Vars are the kong interpolation values for the defaults above.
func Vars() map[string]string {
	return map[string]string{
		"base_url": products.DefaultBaseURL,
		"ftp_host": ftputil.DefaultHost,
		"timeout":  httputil.DefaultTimeout.String(),
	}
}

// NewLogger builds the process logger from the log settings.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// DefaultCachePath is where the cache lives when no path is configured.
func DefaultCachePath(backend string) string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	dir = filepath.Join(dir, "bomweather")
	if backend == CacheSQLite {
		return filepath.Join(dir, "cache.db")
	}
	return dir
}

// OpenCache returns the configured cache provider. The returned close
// function releases it and is never nil.
func (c *Config) OpenCache(clock clockwork.Clock) (cache.Provider, func() error, error) {
	noop := func() error { return nil }

	path := c.CachePath
	if path == "" {
		path = DefaultCachePath(c.Cache)
	}

	switch c.Cache {
	case CacheNone:
		return cache.None{}, noop, nil
	case CacheDir, "":
		d, err := cache.NewDir(path, c.CacheMaxAge, clock)
		if err != nil {
			return nil, noop, err
		}
		return d, noop, nil
	case CacheSQLite:
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, noop, fmt.Errorf("create cache directory: %w", err)
		}
		s, err := store.Open(path, c.CacheMaxAge, clock)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown cache backend %q", c.Cache)
	}
}

// ClientOptions maps the settings onto the query client.
func (c *Config) ClientOptions(p cache.Provider, logger *slog.Logger) bom.Options {
	return bom.Options{
		BaseURL:       c.BaseURL,
		FTPHost:       c.FTPHost,
		Timeout:       c.Timeout,
		Cache:         p,
		Jurisdictions: c.Jurisdictions,
		Logger:        logger,
	}
}
