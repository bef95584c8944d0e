package app

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/Fruitloop24/metergate/domain/tier"
	"github.com/Fruitloop24/metergate/ports"
	"github.com/rs/zerolog"
)

// BillingService creates checkout and portal sessions through the
// payment provider. It never mutates usage or entitlements itself;
// those change only when the provider's webhooks arrive.
type BillingService struct {
	payments ports.PaymentProvider
	tiers    atomic.Pointer[tier.Registry]
	logger   zerolog.Logger
}

// BillingDeps contains dependencies for BillingService.
type BillingDeps struct {
	Payments ports.PaymentProvider
	Tiers    *tier.Registry
	Logger   zerolog.Logger
}

// NewBillingService creates a new billing service.
func NewBillingService(deps BillingDeps) *BillingService {
	s := &BillingService{
		payments: deps.Payments,
		logger:   deps.Logger,
	}
	s.tiers.Store(deps.Tiers)
	return s
}

// UpdateTiers swaps in a new tier registry after a config reload.
func (s *BillingService) UpdateTiers(reg *tier.Registry) {
	s.tiers.Store(reg)
}

// Checkout creates a checkout session for upgrading the principal to
// the given tier and returns the session URL. The tier must exist and
// carry a price ID; free tiers have nothing to check out.
func (s *BillingService) Checkout(ctx context.Context, principal, email, tierID string) (string, error) {
	def, ok := s.tiers.Load().Get(tierID)
	if !ok {
		return "", fmt.Errorf("checkout: unknown tier %q", tierID)
	}
	if def.StripePriceID == "" {
		return "", fmt.Errorf("checkout: tier %q has no price", tierID)
	}

	url, err := s.payments.CreateCheckoutSession(ctx, principal, email, def.StripePriceID, def.ID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("principal", principal).
			Str("tier", tierID).
			Msg("checkout session failed")
		return "", fmt.Errorf("checkout: %w", err)
	}

	s.logger.Info().
		Str("principal", principal).
		Str("tier", tierID).
		Msg("checkout session created")
	return url, nil
}

// Portal creates a self-service billing portal session for an
// existing customer and returns the session URL.
func (s *BillingService) Portal(ctx context.Context, customerID string) (string, error) {
	if customerID == "" {
		return "", fmt.Errorf("portal: missing customer id")
	}

	url, err := s.payments.CreatePortalSession(ctx, customerID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("customer", customerID).
			Msg("portal session failed")
		return "", fmt.Errorf("portal: %w", err)
	}
	return url, nil
}
