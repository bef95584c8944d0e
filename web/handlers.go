package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Fruitloop24/metergate/adapters/payment"
)

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Proxy is the metered product endpoint: rate limit first, then quota
// check-and-consume. Any store failure fails the request.
func (h *Handler) Proxy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)
	tierID, _ := TierFromContext(ctx)
	now := h.clock.Now()

	decision, err := h.limiter.Allow(ctx, principal, now)
	if err != nil {
		h.logger.Error().Err(err).Str("principal", principal).Msg("rate limit check failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	if !decision.Allowed {
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
		return
	}

	res, err := h.meter.CheckAndConsume(ctx, principal, tierID, now)
	if err != nil {
		h.logger.Error().Err(err).Str("principal", principal).Msg("usage check failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !res.Allowed {
		writeJSON(w, http.StatusForbidden, map[string]any{
			"error":      "Tier limit reached",
			"usageCount": res.Snapshot.UsageCount,
			"limit":      renderLimit(res.Snapshot.Limit),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"usageCount": res.Snapshot.UsageCount,
		"limit":      renderLimit(res.Snapshot.Limit),
		"plan":       res.Snapshot.Plan,
	})
}

// Usage returns the caller's usage snapshot without consuming quota.
func (h *Handler) Usage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)
	tierID, _ := TierFromContext(ctx)

	snap, err := h.meter.Peek(ctx, principal, tierID, h.clock.Now())
	if err != nil {
		h.logger.Error().Err(err).Str("principal", principal).Msg("usage peek failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"userId":      snap.Principal,
		"plan":        snap.Plan,
		"usageCount":  snap.UsageCount,
		"limit":       renderLimit(snap.Limit),
		"remaining":   renderLimit(snap.Remaining),
		"periodStart": snap.PeriodStart.Format(time.RFC3339),
		"periodEnd":   snap.PeriodEnd.Format(time.RFC3339),
	})
}

// Tiers lists the tier table.
func (h *Handler) Tiers(w http.ResponseWriter, r *http.Request) {
	defs := h.meter.Tiers().List()
	out := make([]map[string]any, 0, len(defs))
	for _, d := range defs {
		out = append(out, map[string]any{
			"id":               d.ID,
			"name":             d.Name,
			"priceMonthly":     d.PriceMonthly,
			"requestsPerMonth": renderLimit(d.RequestsPerMonth),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tiers": out})
}

// Checkout creates a checkout session for upgrading to a paid tier.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)
	email, _ := EmailFromContext(ctx)

	var req struct {
		Tier string `json:"tier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Tier == "" {
		writeError(w, http.StatusBadRequest, "tier is required")
		return
	}

	url, err := h.billing.Checkout(ctx, principal, email, req.Tier)
	if err != nil {
		if errors.Is(err, payment.ErrPaymentsDisabled) {
			writeError(w, http.StatusInternalServerError, "billing is not configured: billing.mode, billing.stripe_key")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// Portal creates a billing portal session for an existing customer.
func (h *Handler) Portal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CustomerID string `json:"customerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CustomerID == "" {
		writeError(w, http.StatusBadRequest, "customerId is required")
		return
	}

	url, err := h.billing.Portal(r.Context(), req.CustomerID)
	if err != nil {
		if errors.Is(err, payment.ErrPaymentsDisabled) {
			writeError(w, http.StatusInternalServerError, "billing is not configured: billing.mode, billing.stripe_key")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
