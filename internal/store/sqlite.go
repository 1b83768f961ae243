// Package store is a SQLite-backed cache for the scraped lookup tables.
package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/jonboulle/clockwork"
)

type Store struct {
	db     *sql.DB
	maxAge time.Duration
	clock  clockwork.Clock
}

// New wraps db. Entries older than maxAge load as missing; zero disables expiry.
func New(db *sql.DB, maxAge time.Duration, clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{db: db, maxAge: maxAge, clock: clock}
}

// Open opens (creating if needed) the database at path and applies migrations.
func Open(path string, maxAge time.Duration, clock clockwork.Clock) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	s := New(db, maxAge, clock)
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var storedAt time.Time
	var compressed []byte
	var hash string
	err := s.db.QueryRowContext(ctx, `
		SELECT stored_at, payload_compressed, payload_hash
		FROM cache_entries WHERE key = ?
	`, key).Scan(&storedAt, &compressed, &hash)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query %s: %w", key, err)
	}

	if s.maxAge > 0 && s.clock.Since(storedAt) > s.maxAge {
		return nil, false, nil
	}

	payload, err := decompress(compressed)
	if err != nil {
		return nil, false, fmt.Errorf("decompress %s: %w", key, err)
	}
	if hashOf(payload) != hash {
		return nil, false, fmt.Errorf("entry %s: payload hash mismatch", key)
	}
	return payload, true, nil
}

func (s *Store) Store(ctx context.Context, key string, blob []byte) error {
	compressed, err := compress(blob)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, stored_at, payload_compressed, payload_hash)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			stored_at = excluded.stored_at,
			payload_compressed = excluded.payload_compressed,
			payload_hash = excluded.payload_hash
	`, key, s.clock.Now().UTC(), compressed, hashOf(blob))
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

// keys lists the cached keys in name order.
func (s *Store) keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM cache_entries ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func compress(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		return nil, fmt.Errorf("compress payload: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("close gzip: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(compressed []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("create gzip reader: %w", err)
	}
	defer gz.Close()
	return io.ReadAll(gz)
}

func hashOf(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
