// Package sqlite provides a SQLite-backed store implementation for
// single-node deployments that need persistence across restarts.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Fruitloop24/metergate/ports"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	expires_at INTEGER
);
`

// KVStore is a SQLite implementation of ports.KVStore. Expired rows
// are treated as absent on read and overwritten on write; there is no
// background sweeper. SQLite offers no atomic counter primitive for
// this layout, so the store deliberately does not implement
// ports.CounterStore and callers fall back to read-then-write.
type KVStore struct {
	db    *sql.DB
	clock ports.Clock
}

// Open creates a SQLite-backed store at path and ensures the schema.
func Open(path string, clock ports.Clock) (*KVStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &KVStore{db: db, clock: clock}, nil
}

// Get retrieves the value for a key.
func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	var expiresAt sql.NullInt64

	err := s.db.QueryRowContext(ctx,
		"SELECT value, expires_at FROM kv WHERE key = ?", key,
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ports.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("sqlite get %q: %w", key, err)
	}

	if expiresAt.Valid && s.clock.Now().Unix() >= expiresAt.Int64 {
		// Lazy cleanup; a failed delete only delays it.
		_, _ = s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key)
		return "", ports.ErrNotFound
	}
	return value, nil
}

// Put stores a value. A zero ttl means the key never expires.
func (s *KVStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	var expiresAt sql.NullInt64
	if ttl > 0 {
		expiresAt = sql.NullInt64{Int64: s.clock.Now().Add(ttl).Unix(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO kv (key, value, expires_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at",
		key, value, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite put %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *KVStore) Close() error {
	return s.db.Close()
}

// Ensure interface compliance.
var _ ports.KVStore = (*KVStore)(nil)
