package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
)

// Dir keeps one file per key in a directory.
type Dir struct {
	dir    string
	maxAge time.Duration
	clock  clockwork.Clock
}

// NewDir creates the cache directory if needed. Entries older than maxAge are
// treated as missing; a zero maxAge never expires them.
func NewDir(dir string, maxAge time.Duration, clock clockwork.Clock) (*Dir, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Dir{dir: dir, maxAge: maxAge, clock: clock}, nil
}

func (d *Dir) path(key string) string {
	return filepath.Join(d.dir, filepath.Base(key))
}

func (d *Dir) Load(_ context.Context, key string) ([]byte, bool, error) {
	path := d.path(key)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if d.maxAge > 0 && d.clock.Since(info.ModTime()) > d.maxAge {
		return nil, false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Store writes to a temporary file and renames it over the entry.
func (d *Dir) Store(_ context.Context, key string, blob []byte) error {
	tmp, err := os.CreateTemp(d.dir, ".tmp-"+filepath.Base(key)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", key, err)
	}

	now := d.clock.Now()
	if err := os.Chtimes(tmp.Name(), now, now); err != nil {
		return fmt.Errorf("stamp %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), d.path(key)); err != nil {
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}
