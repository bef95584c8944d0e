package identity

import (
	"context"

	"github.com/Fruitloop24/metergate/ports"
)

// Noop is an identity writer that discards tier assignments. Used
// when no identity provider is configured; entitlement sync events
// are then acknowledged but not propagated anywhere.
type Noop struct{}

// SetTier does nothing.
func (Noop) SetTier(ctx context.Context, principal, tierID string) error {
	return nil
}

// Ensure interface compliance.
var _ ports.IdentityWriter = Noop{}
