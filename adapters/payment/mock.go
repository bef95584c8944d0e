package payment

import (
	"context"
	"sync"

	"github.com/Fruitloop24/metergate/ports"
)

// Mock is a recording payment provider for testing.
type Mock struct {
	mu sync.Mutex

	CheckoutURL string
	PortalURL   string
	// WebhookType and WebhookData are returned by ParseWebhook.
	WebhookType string
	WebhookData map[string]any
	FailWith    error

	CheckoutCalls []CheckoutCall
	PortalCalls   []string
}

// CheckoutCall records the arguments of a CreateCheckoutSession call.
type CheckoutCall struct {
	Principal string
	Email     string
	PriceID   string
	TierID    string
}

// NewMock creates a recording payment provider.
func NewMock() *Mock {
	return &Mock{CheckoutURL: "https://checkout.test/session", PortalURL: "https://portal.test/session"}
}

// Name returns the provider name.
func (m *Mock) Name() string { return "mock" }

// CreateCheckoutSession records the call and returns CheckoutURL.
func (m *Mock) CreateCheckoutSession(ctx context.Context, principal, email, priceID, tierID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return "", m.FailWith
	}
	m.CheckoutCalls = append(m.CheckoutCalls, CheckoutCall{Principal: principal, Email: email, PriceID: priceID, TierID: tierID})
	return m.CheckoutURL, nil
}

// CreatePortalSession records the call and returns PortalURL.
func (m *Mock) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return "", m.FailWith
	}
	m.PortalCalls = append(m.PortalCalls, customerID)
	return m.PortalURL, nil
}

// ParseWebhook returns the configured event.
func (m *Mock) ParseWebhook(payload []byte, signature string) (string, map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return "", nil, m.FailWith
	}
	return m.WebhookType, m.WebhookData, nil
}

// Ensure interface compliance.
var _ ports.PaymentProvider = (*Mock)(nil)
