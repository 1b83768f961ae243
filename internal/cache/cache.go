// Package cache stores the scraped lookup tables between runs.
package cache

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lox/bomweather/internal/metrics"
)

// Provider is a key to blob store. Stores replace an entry wholesale.
type Provider interface {
	// Load returns the blob for key and whether it was present and fresh.
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Store(ctx context.Context, key string, blob []byte) error
}

// Get returns the cached blob for key unless refresh is set or the entry is
// missing, in which case derive is called and its result stored. A failure to
// store is logged and does not fail the lookup. A nil logger uses slog.Default.
func Get(ctx context.Context, logger *slog.Logger, p Provider, key string, refresh bool, derive func(context.Context) ([]byte, error)) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !refresh {
		blob, ok, err := p.Load(ctx, key)
		if err != nil {
			logger.Warn("cache: load failed, deriving from source", "key", key, "error", err)
		} else if ok {
			metrics.CacheLookups.WithLabelValues(key, "hit").Inc()
			return blob, nil
		}
		metrics.CacheLookups.WithLabelValues(key, "miss").Inc()
	} else {
		metrics.CacheLookups.WithLabelValues(key, "refresh").Inc()
	}

	blob, err := derive(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.Store(ctx, key, blob); err != nil {
		logger.Warn("cache: store failed", "key", key, "error", err)
	}
	return blob, nil
}

// Memory is an in-process Provider.
type Memory struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]byte)}
}

func (m *Memory) Load(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	blob, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), blob...), true, nil
}

func (m *Memory) Store(_ context.Context, key string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = append([]byte(nil), blob...)
	return nil
}

// None never holds anything, so every lookup derives from the source.
type None struct{}

func (None) Load(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (None) Store(context.Context, string, []byte) error        { return nil }
