package app

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/Fruitloop24/metergate/adapters/metrics"
	"github.com/Fruitloop24/metergate/domain/tier"
	"github.com/Fruitloop24/metergate/ports"
	"github.com/rs/zerolog"
)

// EntitlementSyncService applies subscription lifecycle events from
// the billing provider to the identity provider. It writes the tier
// onto the principal's identity metadata; the next metered request
// picks it up from there. All handlers are idempotent: writing a tier
// the principal already has is a no-op at the identity provider.
type EntitlementSyncService struct {
	identity    ports.IdentityWriter
	tiers       atomic.Pointer[tier.Registry]
	defaultTier string
	logger      zerolog.Logger
	metrics     *metrics.Collector
}

// EntitlementSyncDeps contains dependencies for EntitlementSyncService.
type EntitlementSyncDeps struct {
	Identity    ports.IdentityWriter
	Tiers       *tier.Registry
	DefaultTier string
	Logger      zerolog.Logger
	Metrics     *metrics.Collector // optional
}

// NewEntitlementSyncService creates a new entitlement sync service.
func NewEntitlementSyncService(deps EntitlementSyncDeps) *EntitlementSyncService {
	s := &EntitlementSyncService{
		identity:    deps.Identity,
		defaultTier: deps.DefaultTier,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
	}
	s.tiers.Store(deps.Tiers)
	return s
}

// UpdateTiers swaps in a new tier registry after a config reload.
func (s *EntitlementSyncService) UpdateTiers(reg *tier.Registry) {
	s.tiers.Store(reg)
}

// HandleSubscriptionCreated records a new subscription's tier on the
// principal's identity. An unknown tier is an error and nothing is
// written.
func (s *EntitlementSyncService) HandleSubscriptionCreated(ctx context.Context, principal, tierID string) error {
	return s.setTier(ctx, "subscription_created", principal, tierID)
}

// HandleSubscriptionUpdated applies a tier change from an upgraded or
// downgraded subscription.
func (s *EntitlementSyncService) HandleSubscriptionUpdated(ctx context.Context, principal, tierID string) error {
	return s.setTier(ctx, "subscription_updated", principal, tierID)
}

// HandleSubscriptionCanceled returns the principal to the default
// tier.
func (s *EntitlementSyncService) HandleSubscriptionCanceled(ctx context.Context, principal string) error {
	return s.setTier(ctx, "subscription_canceled", principal, s.defaultTier)
}

func (s *EntitlementSyncService) setTier(ctx context.Context, event, principal, tierID string) error {
	if principal == "" {
		return fmt.Errorf("entitlement sync %s: missing principal", event)
	}
	if _, ok := s.tiers.Load().Get(tierID); !ok {
		return fmt.Errorf("entitlement sync %s: unknown tier %q for principal %s", event, tierID, principal)
	}

	if err := s.identity.SetTier(ctx, principal, tierID); err != nil {
		s.logger.Error().
			Err(err).
			Str("event", event).
			Str("principal", principal).
			Str("tier", tierID).
			Msg("entitlement sync failed")
		return fmt.Errorf("entitlement sync %s: %w", event, err)
	}

	s.countSync(event)
	s.logger.Info().
		Str("event", event).
		Str("principal", principal).
		Str("tier", tierID).
		Msg("entitlement synced")
	return nil
}

func (s *EntitlementSyncService) countSync(event string) {
	if s.metrics != nil {
		s.metrics.SyncEvents.WithLabelValues(event).Inc()
	}
}
