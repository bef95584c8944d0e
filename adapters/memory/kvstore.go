// Package memory provides in-memory store implementations for tests
// and single-node deployments.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/Fruitloop24/metergate/ports"
)

type entry struct {
	value     string
	expiresAt time.Time // zero = never expires
}

// KVStore is an in-memory implementation of ports.KVStore with
// per-key expiry. Expired entries are dropped lazily on access.
type KVStore struct {
	mu      sync.RWMutex
	clock   ports.Clock
	entries map[string]entry
}

// NewKVStore creates a new in-memory key-value store. The clock is
// used for expiry checks so tests can drive TTLs deterministically.
func NewKVStore(clock ports.Clock) *KVStore {
	return &KVStore{
		clock:   clock,
		entries: make(map[string]entry),
	}
}

// Get retrieves the value for a key.
func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return "", ports.ErrNotFound
	}
	if s.expired(e) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return "", ports.ErrNotFound
	}
	return e.value, nil
}

// Put stores a value. A zero ttl means the key never expires.
func (s *KVStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = s.clock.Now().Add(ttl)
	}

	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
	return nil
}

// Increment atomically increments the integer at key. The ttl applies
// only when the increment creates the key; an existing expiry stays.
func (s *KVStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if ok && s.expired(e) {
		ok = false
	}

	var count int64
	if ok {
		n, err := strconv.ParseInt(e.value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("increment %q: stored value is not an integer: %w", key, err)
		}
		count = n
	} else {
		e = entry{}
		if ttl > 0 {
			e.expiresAt = s.clock.Now().Add(ttl)
		}
	}

	count++
	e.value = strconv.FormatInt(count, 10)
	s.entries[key] = e
	return count, nil
}

func (s *KVStore) expired(e entry) bool {
	return !e.expiresAt.IsZero() && !s.clock.Now().Before(e.expiresAt)
}

// Clear removes all entries (for testing).
func (s *KVStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]entry)
}

// Len returns the number of live entries (for testing).
func (s *KVStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.entries {
		if !s.expired(e) {
			n++
		}
	}
	return n
}

// Ensure interface compliance.
var (
	_ ports.KVStore      = (*KVStore)(nil)
	_ ports.CounterStore = (*KVStore)(nil)
)
