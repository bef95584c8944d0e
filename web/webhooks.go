package web

import (
	"context"
	"io"
	"net/http"
)

// BillingWebhook receives subscription lifecycle events from the
// payment provider and forwards them to entitlement sync. The
// signature check is the only authentication on this route.
func (h *Handler) BillingWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to read webhook body")
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	eventType, data, err := h.payments.ParseWebhook(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger.Warn().Err(err).Msg("invalid webhook signature")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	h.logger.Info().
		Str("event_type", eventType).
		Msg("received billing webhook")

	if err := h.dispatchBillingEvent(ctx, eventType, data); err != nil {
		h.logger.Error().Err(err).
			Str("event_type", eventType).
			Msg("failed to handle webhook event")
		// Still return 200 to prevent retries for application errors:
		// the provider retries on 4xx/5xx responses.
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *Handler) dispatchBillingEvent(ctx context.Context, eventType string, data map[string]any) error {
	switch eventType {
	case "checkout.session.completed":
		principal, tierID := extractCheckoutCompleted(data)
		return h.sync.HandleSubscriptionCreated(ctx, principal, tierID)

	case "customer.subscription.updated":
		principal, tierID := extractSubscriptionMetadata(data)
		return h.sync.HandleSubscriptionUpdated(ctx, principal, tierID)

	case "customer.subscription.deleted":
		principal, _ := extractSubscriptionMetadata(data)
		return h.sync.HandleSubscriptionCanceled(ctx, principal)

	default:
		h.logger.Debug().
			Str("event_type", eventType).
			Msg("ignoring unhandled webhook event type")
		return nil
	}
}

// extractCheckoutCompleted pulls the principal and tier out of a
// checkout.session.completed payload. The principal travels as the
// session's client_reference_id, the tier in the session metadata.
func extractCheckoutCompleted(data map[string]any) (principal, tierID string) {
	principal, _ = data["client_reference_id"].(string)
	if meta, ok := data["metadata"].(map[string]any); ok {
		tierID, _ = meta["tier"].(string)
		if principal == "" {
			principal, _ = meta["principal"].(string)
		}
	}
	return principal, tierID
}

// extractSubscriptionMetadata pulls the principal and tier out of a
// subscription payload's metadata, where checkout put them.
func extractSubscriptionMetadata(data map[string]any) (principal, tierID string) {
	if meta, ok := data["metadata"].(map[string]any); ok {
		principal, _ = meta["principal"].(string)
		tierID, _ = meta["tier"].(string)
	}
	return principal, tierID
}
