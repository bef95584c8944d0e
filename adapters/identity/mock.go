package identity

import (
	"context"
	"sync"

	"github.com/Fruitloop24/metergate/ports"
)

// Mock is a recording IdentityWriter for testing.
type Mock struct {
	mu    sync.Mutex
	tiers map[string]string
	calls int

	// FailWith, when set, is returned by every SetTier call.
	FailWith error
}

// NewMock creates a recording identity writer.
func NewMock() *Mock {
	return &Mock{tiers: make(map[string]string)}
}

// SetTier records the assignment.
func (m *Mock) SetTier(ctx context.Context, principal, tierID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.FailWith != nil {
		return m.FailWith
	}
	m.tiers[principal] = tierID
	return nil
}

// TierOf returns the recorded tier for a principal.
func (m *Mock) TierOf(principal string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tier, ok := m.tiers[principal]
	return tier, ok
}

// Calls returns the number of SetTier invocations.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Ensure interface compliance.
var _ ports.IdentityWriter = (*Mock)(nil)
