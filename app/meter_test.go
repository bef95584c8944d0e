package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Fruitloop24/metergate/adapters/clock"
	"github.com/Fruitloop24/metergate/adapters/memory"
	"github.com/Fruitloop24/metergate/domain/tier"
	"github.com/Fruitloop24/metergate/domain/usage"
	"github.com/Fruitloop24/metergate/ports"
	"github.com/rs/zerolog"
)

func testRegistry() *tier.Registry {
	return tier.NewRegistry([]tier.Definition{
		{ID: "free", Name: "Free", RequestsPerMonth: 6},
		{ID: "pro", Name: "Pro", RequestsPerMonth: 500, StripePriceID: "price_pro"},
		{ID: "developer", Name: "Developer", RequestsPerMonth: tier.Unlimited, StripePriceID: "price_dev"},
	})
}

func newTestMeter(store ports.KVStore) *MeterService {
	return NewMeterService(MeterDeps{
		Store:  store,
		Tiers:  testRegistry(),
		Logger: zerolog.Nop(),
	})
}

// failingStore returns a fixed error from every operation.
type failingStore struct {
	err error
}

func (f failingStore) Get(ctx context.Context, key string) (string, error) { return "", f.err }
func (f failingStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	return f.err
}

func TestCheckAndConsumeCountsUpToLimit(t *testing.T) {
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	store := memory.NewKVStore(clock.NewFake(now))
	svc := newTestMeter(store)
	ctx := context.Background()

	for i := 1; i <= 6; i++ {
		res, err := svc.CheckAndConsume(ctx, "user_1", "free", now)
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("call %d: expected allowed", i)
		}
		if res.Snapshot.UsageCount != int64(i) {
			t.Errorf("call %d: usage count = %d, want %d", i, res.Snapshot.UsageCount, i)
		}
	}

	res, err := svc.CheckAndConsume(ctx, "user_1", "free", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Allowed {
		t.Error("seventh call should be denied")
	}
	if res.Snapshot.UsageCount != 6 || res.Snapshot.Limit != 6 {
		t.Errorf("denied snapshot = {count %d, limit %d}, want {6, 6}", res.Snapshot.UsageCount, res.Snapshot.Limit)
	}
}

func TestCheckAndConsumeUnlimitedTierNeverDenies(t *testing.T) {
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	store := memory.NewKVStore(clock.NewFake(now))
	svc := newTestMeter(store)
	ctx := context.Background()

	for i := 1; i <= 1000; i++ {
		res, err := svc.CheckAndConsume(ctx, "dev_1", "developer", now)
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("call %d: unlimited tier was denied", i)
		}
	}

	snap, err := svc.Peek(ctx, "dev_1", "developer", now)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if snap.UsageCount != 1000 {
		t.Errorf("usage count = %d, want 1000", snap.UsageCount)
	}
	if snap.Limit != tier.Unlimited || snap.Remaining != tier.Unlimited {
		t.Errorf("limit/remaining = %d/%d, want the unlimited sentinel", snap.Limit, snap.Remaining)
	}
}

func TestCheckAndConsumeResetsOnNewPeriod(t *testing.T) {
	january := time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC)
	february := time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC)
	store := memory.NewKVStore(clock.NewFake(january))
	svc := newTestMeter(store)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := svc.CheckAndConsume(ctx, "user_1", "free", january); err != nil {
			t.Fatalf("january call: %v", err)
		}
	}

	res, err := svc.CheckAndConsume(ctx, "user_1", "free", february)
	if err != nil {
		t.Fatalf("february call: %v", err)
	}
	if !res.Allowed {
		t.Fatal("first february call should be allowed")
	}
	if res.Snapshot.UsageCount != 1 {
		t.Errorf("usage count after rollover = %d, want 1", res.Snapshot.UsageCount)
	}
	if !res.Snapshot.PeriodStart.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("period start = %v, want 2024-02-01", res.Snapshot.PeriodStart)
	}
}

func TestCheckAndConsumeDenialDoesNotMutateStore(t *testing.T) {
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	store := memory.NewKVStore(clock.NewFake(now))
	svc := newTestMeter(store)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		if _, err := svc.CheckAndConsume(ctx, "user_1", "free", now); err != nil {
			t.Fatalf("setup call: %v", err)
		}
	}

	before, err := store.Get(ctx, usage.Key("user_1"))
	if err != nil {
		t.Fatalf("get before: %v", err)
	}

	res, err := svc.CheckAndConsume(ctx, "user_1", "free", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("denied call: %v", err)
	}
	if res.Allowed {
		t.Fatal("expected denial")
	}

	after, err := store.Get(ctx, usage.Key("user_1"))
	if err != nil {
		t.Fatalf("get after: %v", err)
	}
	if before != after {
		t.Errorf("denied check mutated stored record:\nbefore: %s\nafter:  %s", before, after)
	}
}

func TestCheckAndConsumeCallerTierOverridesCachedPlan(t *testing.T) {
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	store := memory.NewKVStore(clock.NewFake(now))
	svc := newTestMeter(store)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		if _, err := svc.CheckAndConsume(ctx, "user_1", "free", now); err != nil {
			t.Fatalf("setup call: %v", err)
		}
	}

	// Upgraded mid-period: the count carries over, the new limit applies.
	res, err := svc.CheckAndConsume(ctx, "user_1", "pro", now)
	if err != nil {
		t.Fatalf("upgraded call: %v", err)
	}
	if !res.Allowed {
		t.Fatal("upgraded tier should be allowed past the old limit")
	}
	if res.Snapshot.Plan != "pro" {
		t.Errorf("plan = %q, want %q", res.Snapshot.Plan, "pro")
	}
	if res.Snapshot.UsageCount != 7 {
		t.Errorf("usage count = %d, want 7 (carried over)", res.Snapshot.UsageCount)
	}
}

func TestCheckAndConsumeUnknownTierDenied(t *testing.T) {
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	store := memory.NewKVStore(clock.NewFake(now))
	svc := newTestMeter(store)

	res, err := svc.CheckAndConsume(context.Background(), "user_1", "enterprise", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Allowed {
		t.Error("unknown tier should resolve to limit 0 and be denied")
	}
}

func TestCheckAndConsumeStoreFailure(t *testing.T) {
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	boom := errors.New("connection refused")
	svc := newTestMeter(failingStore{err: boom})

	if _, err := svc.CheckAndConsume(context.Background(), "user_1", "free", now); !errors.Is(err, boom) {
		t.Errorf("error = %v, want wrapped %v", err, boom)
	}
}

func TestCheckAndConsumeMalformedRecordFailsClosed(t *testing.T) {
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	store := memory.NewKVStore(clock.NewFake(now))
	svc := newTestMeter(store)
	ctx := context.Background()

	if err := store.Put(ctx, usage.Key("user_1"), "{not json", 0); err != nil {
		t.Fatalf("put: %v", err)
	}

	if _, err := svc.CheckAndConsume(ctx, "user_1", "free", now); err == nil {
		t.Error("malformed record should fail the request, not grant fresh quota")
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	store := memory.NewKVStore(clock.NewFake(now))
	svc := newTestMeter(store)
	ctx := context.Background()

	if _, err := svc.CheckAndConsume(ctx, "user_1", "free", now); err != nil {
		t.Fatalf("consume: %v", err)
	}

	for i := 0; i < 3; i++ {
		snap, err := svc.Peek(ctx, "user_1", "free", now)
		if err != nil {
			t.Fatalf("peek %d: %v", i, err)
		}
		if snap.UsageCount != 1 {
			t.Errorf("peek %d: usage count = %d, want 1", i, snap.UsageCount)
		}
		if snap.Remaining != 5 {
			t.Errorf("peek %d: remaining = %d, want 5", i, snap.Remaining)
		}
	}
}

func TestPeekUnknownPrincipal(t *testing.T) {
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	store := memory.NewKVStore(clock.NewFake(now))
	svc := newTestMeter(store)

	snap, err := svc.Peek(context.Background(), "nobody", "free", now)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if snap.UsageCount != 0 {
		t.Errorf("usage count = %d, want 0", snap.UsageCount)
	}
	if store.Len() != 0 {
		t.Errorf("peek persisted a record: store has %d keys", store.Len())
	}
}

func TestUpdateTiersTakesEffect(t *testing.T) {
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	store := memory.NewKVStore(clock.NewFake(now))
	svc := newTestMeter(store)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		if _, err := svc.CheckAndConsume(ctx, "user_1", "free", now); err != nil {
			t.Fatalf("setup call: %v", err)
		}
	}

	svc.UpdateTiers(tier.NewRegistry([]tier.Definition{
		{ID: "free", Name: "Free", RequestsPerMonth: 10},
	}))

	res, err := svc.CheckAndConsume(ctx, "user_1", "free", now)
	if err != nil {
		t.Fatalf("call after reload: %v", err)
	}
	if !res.Allowed {
		t.Error("raised limit should allow the request")
	}
	if res.Snapshot.Limit != 10 {
		t.Errorf("limit = %d, want 10", res.Snapshot.Limit)
	}
}
