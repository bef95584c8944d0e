package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Fruitloop24/metergate/adapters/metrics"
	"github.com/Fruitloop24/metergate/domain/ratelimit"
	"github.com/Fruitloop24/metergate/ports"
	"github.com/rs/zerolog"
)

// RateLimitService enforces a fixed per-minute request limit per
// principal, independent of tier. Buckets self-expire in the store;
// no cleanup ever runs here.
type RateLimitService struct {
	store   ports.KVStore
	counter ports.CounterStore // nil when the store has no atomic counter
	limit   int
	logger  zerolog.Logger
	metrics *metrics.Collector
}

// RateLimitDeps contains dependencies for RateLimitService.
type RateLimitDeps struct {
	Store     ports.KVStore
	PerMinute int
	Logger    zerolog.Logger
	Metrics   *metrics.Collector // optional
}

// NewRateLimitService creates a new rate limiter. When the store
// implements ports.CounterStore (Redis INCR, the memory adapter) the
// limiter uses the atomic counter; otherwise it falls back to
// read-then-write and accepts the lost-increment race.
func NewRateLimitService(deps RateLimitDeps) *RateLimitService {
	s := &RateLimitService{
		store:   deps.Store,
		limit:   deps.PerMinute,
		logger:  deps.Logger,
		metrics: deps.Metrics,
	}
	if counter, ok := deps.Store.(ports.CounterStore); ok {
		s.counter = counter
	}
	return s
}

// Allow checks and consumes one slot in the principal's current
// minute window. now is threaded in by the caller. Store failures
// propagate as errors; the caller decides the fail mode.
func (s *RateLimitService) Allow(ctx context.Context, principal string, now time.Time) (ratelimit.Decision, error) {
	key := ratelimit.BucketKey(principal, now)

	if s.counter != nil {
		return s.allowAtomic(ctx, key)
	}
	return s.allowReadWrite(ctx, key)
}

// allowAtomic increments first, then checks. A denied request still
// bumps the counter past the limit; that only grows a bucket that is
// already rejecting everything and expires on its own.
func (s *RateLimitService) allowAtomic(ctx context.Context, key string) (ratelimit.Decision, error) {
	n, err := s.counter.Increment(ctx, key, ratelimit.BucketTTL)
	if err != nil {
		s.countStoreError()
		return ratelimit.Decision{}, fmt.Errorf("rate limit bucket %s: %w", key, err)
	}

	if n > int64(s.limit) {
		s.countDecision("denied")
		return ratelimit.Decision{Allowed: false, Remaining: 0}, nil
	}
	s.countDecision("allowed")
	return ratelimit.Decision{Allowed: true, Remaining: s.limit - int(n)}, nil
}

func (s *RateLimitService) allowReadWrite(ctx context.Context, key string) (ratelimit.Decision, error) {
	var count int64

	val, err := s.store.Get(ctx, key)
	switch {
	case errors.Is(err, ports.ErrNotFound):
		count = 0
	case err != nil:
		s.countStoreError()
		return ratelimit.Decision{}, fmt.Errorf("rate limit bucket %s: %w", key, err)
	default:
		count, err = strconv.ParseInt(val, 10, 64)
		if err != nil {
			s.countStoreError()
			return ratelimit.Decision{}, fmt.Errorf("rate limit bucket %s: malformed count %q", key, val)
		}
	}

	decision := ratelimit.Decide(count, s.limit)
	if !decision.Allowed {
		s.countDecision("denied")
		return decision, nil
	}

	if err := s.store.Put(ctx, key, strconv.FormatInt(count+1, 10), ratelimit.BucketTTL); err != nil {
		s.countStoreError()
		return ratelimit.Decision{}, fmt.Errorf("rate limit bucket %s: %w", key, err)
	}
	s.countDecision("allowed")
	return decision, nil
}

// Limit returns the configured per-minute limit.
func (s *RateLimitService) Limit() int {
	return s.limit
}

func (s *RateLimitService) countDecision(outcome string) {
	if s.metrics != nil {
		s.metrics.RateLimitDecisions.WithLabelValues(outcome).Inc()
	}
}

func (s *RateLimitService) countStoreError() {
	if s.metrics != nil {
		s.metrics.StoreErrors.Inc()
	}
}
