// Package app provides application services that orchestrate domain
// logic with I/O at the edges.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Fruitloop24/metergate/adapters/metrics"
	"github.com/Fruitloop24/metergate/domain/period"
	"github.com/Fruitloop24/metergate/domain/tier"
	"github.com/Fruitloop24/metergate/domain/usage"
	"github.com/Fruitloop24/metergate/ports"
	"github.com/rs/zerolog"
)

// MeterService is the usage accounting engine: it loads a principal's
// usage record, applies the period rollover, enforces the tier limit,
// and consumes quota. All state lives in the store; the service itself
// is stateless per request, so concurrent instances coordinate only
// through the store's per-key semantics.
//
// Two concurrent requests from one principal can both read the same
// pre-increment count and each persist count+1, losing one increment.
// That undercount is accepted: the store offers last-write-wins per
// key, and availability wins over perfect quota enforcement here.
type MeterService struct {
	store   ports.KVStore
	logger  zerolog.Logger
	metrics *metrics.Collector

	// Hot-reloadable tier table.
	tiers atomic.Pointer[tier.Registry]
}

// MeterDeps contains dependencies for MeterService.
type MeterDeps struct {
	Store   ports.KVStore
	Tiers   *tier.Registry
	Logger  zerolog.Logger
	Metrics *metrics.Collector // optional
}

// NewMeterService creates a new usage accounting service.
func NewMeterService(deps MeterDeps) *MeterService {
	s := &MeterService{
		store:   deps.Store,
		logger:  deps.Logger,
		metrics: deps.Metrics,
	}
	s.tiers.Store(deps.Tiers)
	return s
}

// UpdateTiers swaps the tier table. Thread-safe; used by config hot
// reload.
func (s *MeterService) UpdateTiers(reg *tier.Registry) {
	s.tiers.Store(reg)
}

// Tiers returns the current tier table.
func (s *MeterService) Tiers() *tier.Registry {
	return s.tiers.Load()
}

// MeterResult represents the outcome of a consuming check.
type MeterResult struct {
	Allowed  bool
	Snapshot usage.Snapshot
}

// CheckAndConsume enforces the tier limit for principal and, when
// allowed, consumes one unit of quota. The tier always comes from the
// caller's current entitlement and overwrites any cached value on the
// record. now is threaded in by the caller so the engine never reads a
// global clock.
//
// A denied check never mutates or persists the record. Store failures
// and malformed records propagate as errors; the surrounding handler
// fails closed.
func (s *MeterService) CheckAndConsume(ctx context.Context, principal, tierID string, now time.Time) (MeterResult, error) {
	p := period.Current(now)

	// 1. Load or synthesize the record (I/O).
	rec, err := s.loadRecord(ctx, principal, tierID, now, p)
	if err != nil {
		s.countStoreError()
		return MeterResult{}, err
	}

	// 2. Resolve the limit (PURE). Unknown tiers resolve to 0.
	limit := s.tiers.Load().LimitFor(tierID)

	// 3. Period rollover (PURE). Never evaluated for unlimited tiers.
	if !tier.IsUnlimited(limit) && rec.NeedsReset(p) {
		if rec.UsageCount > 0 {
			s.logger.Debug().
				Str("principal", principal).
				Str("period", p.Key()).
				Int64("previous_count", rec.UsageCount).
				Msg("resetting usage for new billing period")
		}
		rec = rec.ResetFor(p)
		s.countReset(tierID)
	}

	// 4. The caller's entitlement wins over the cached plan.
	rec.Plan = tierID

	// 5. Enforce (PURE). Denial leaves stored state untouched.
	if !tier.IsUnlimited(limit) && rec.UsageCount >= limit {
		s.countCheck(tierID, "denied")
		s.logger.Debug().
			Str("principal", principal).
			Str("plan", tierID).
			Int64("usage", rec.UsageCount).
			Int64("limit", limit).
			Msg("tier limit reached")
		return MeterResult{Allowed: false, Snapshot: usage.SnapshotOf(principal, rec, limit)}, nil
	}

	// 6. Consume and persist (I/O).
	rec.UsageCount++
	rec.LastUpdated = now

	encoded, err := usage.EncodeRecord(rec)
	if err != nil {
		return MeterResult{}, err
	}
	if err := s.store.Put(ctx, usage.Key(principal), encoded, 0); err != nil {
		s.countStoreError()
		return MeterResult{}, fmt.Errorf("persist usage record for %s: %w", principal, err)
	}

	s.countCheck(tierID, "allowed")
	return MeterResult{Allowed: true, Snapshot: usage.SnapshotOf(principal, rec, limit)}, nil
}

// Peek returns the principal's current usage snapshot without
// consuming quota or persisting anything. The reset decision is
// re-applied in memory only: it is idempotent and recomputed
// identically on every read, so the next consuming call applies the
// same rollover to stored state.
func (s *MeterService) Peek(ctx context.Context, principal, tierID string, now time.Time) (usage.Snapshot, error) {
	p := period.Current(now)

	rec, err := s.loadRecord(ctx, principal, tierID, now, p)
	if err != nil {
		s.countStoreError()
		return usage.Snapshot{}, err
	}

	limit := s.tiers.Load().LimitFor(tierID)
	if !tier.IsUnlimited(limit) && rec.NeedsReset(p) {
		rec = rec.ResetFor(p)
	}
	rec.Plan = tierID

	return usage.SnapshotOf(principal, rec, limit), nil
}

// loadRecord fetches the stored record or synthesizes a fresh one for
// a principal seen for the first time. A record that exists but fails
// to decode is an error, never a fresh record: silently resetting
// corrupt state would grant a new quota.
func (s *MeterService) loadRecord(ctx context.Context, principal, tierID string, now time.Time, p period.Period) (usage.Record, error) {
	data, err := s.store.Get(ctx, usage.Key(principal))
	if errors.Is(err, ports.ErrNotFound) {
		return usage.New(tierID, now, p), nil
	}
	if err != nil {
		return usage.Record{}, fmt.Errorf("load usage record for %s: %w", principal, err)
	}

	rec, err := usage.DecodeRecord(data)
	if err != nil {
		s.logger.Error().
			Str("principal", principal).
			Err(err).
			Msg("stored usage record is malformed")
		return usage.Record{}, fmt.Errorf("usage record for %s: %w", principal, err)
	}
	return rec, nil
}

func (s *MeterService) countCheck(plan, outcome string) {
	if s.metrics != nil {
		s.metrics.QuotaChecks.WithLabelValues(plan, outcome).Inc()
	}
}

func (s *MeterService) countReset(plan string) {
	if s.metrics != nil {
		s.metrics.QuotaResets.WithLabelValues(plan).Inc()
	}
}

func (s *MeterService) countStoreError() {
	if s.metrics != nil {
		s.metrics.StoreErrors.Inc()
	}
}
