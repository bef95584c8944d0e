// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"errors"
	"time"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability. Domain logic never reads it
// directly; the boundary reads it once and threads the value through.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Store Ports
// -----------------------------------------------------------------------------

var (
	// ErrNotFound is returned by KVStore.Get when the key is absent.
	ErrNotFound = errors.New("key not found")
)

// KVStore is a key-value store with per-key expiry. It offers
// last-write-wins semantics per key and no cross-key transactions;
// callers that read-modify-write accept the documented lost-update
// race on concurrent access to the same key.
type KVStore interface {
	// Get retrieves the value for a key. Returns ErrNotFound when the
	// key is absent or expired.
	Get(ctx context.Context, key string) (string, error)

	// Put stores a value. A zero ttl means the key never expires.
	Put(ctx context.Context, key, value string, ttl time.Duration) error
}

// CounterStore is an optional KVStore upgrade for stores with a native
// atomic counter (e.g. Redis INCR). Callers should type-assert and
// prefer it over read-then-write where the store provides it.
type CounterStore interface {
	// Increment atomically increments the integer at key and returns
	// the new value. The ttl is applied when the increment creates
	// the key; an existing expiry is left untouched.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// -----------------------------------------------------------------------------
// External Service Ports
// -----------------------------------------------------------------------------

// IdentityWriter persists tier assignments to the identity provider.
// The authentication layer reflects the stored tier into callers'
// claims on later requests; no tier state is kept locally.
// Implementations must be idempotent: writing the same assignment
// twice produces no observable state difference.
type IdentityWriter interface {
	SetTier(ctx context.Context, principal, tierID string) error
}

// PaymentProvider interfaces with the billing provider (Stripe).
// Calls are black-box side effects returning redirect URLs; failures
// surface to the caller and are never retried automatically.
type PaymentProvider interface {
	// Name returns the provider name (e.g., "stripe").
	Name() string

	// CreateCheckoutSession creates a checkout session for a tier
	// purchase and returns the redirect URL. The principal and tier
	// ride along as session metadata so webhooks can echo them back.
	CreateCheckoutSession(ctx context.Context, principal, email, priceID, tierID string) (sessionURL string, err error)

	// CreatePortalSession creates a customer portal session for
	// managing an existing subscription.
	CreatePortalSession(ctx context.Context, customerID string) (portalURL string, err error)

	// ParseWebhook parses and validates an incoming webhook.
	// Returns the event type and the event object payload.
	ParseWebhook(payload []byte, signature string) (eventType string, data map[string]any, err error)
}
