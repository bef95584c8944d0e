package ratelimit

import (
	"testing"
	"time"
)

func TestMinuteIndex_EpochAligned(t *testing.T) {
	epoch := time.Unix(0, 0)
	if got := MinuteIndex(epoch); got != 0 {
		t.Errorf("expected index 0 at epoch, got %d", got)
	}
	if got := MinuteIndex(epoch.Add(59 * time.Second)); got != 0 {
		t.Errorf("expected index 0 at 59s, got %d", got)
	}
	if got := MinuteIndex(epoch.Add(60 * time.Second)); got != 1 {
		t.Errorf("expected index 1 at 60s, got %d", got)
	}
}

func TestMinuteIndex_SharedAcrossPrincipals(t *testing.T) {
	// Windows are clock-aligned, not per-principal-offset: the index
	// depends only on the wall clock.
	now := time.Date(2024, 6, 1, 12, 30, 45, 0, time.UTC)
	a := BucketKey("u1", now)
	b := BucketKey("u2", now)

	wantSuffix := ":28620750"
	if a != "ratelimit:u1"+wantSuffix {
		t.Errorf("unexpected bucket key %q", a)
	}
	if b != "ratelimit:u2"+wantSuffix {
		t.Errorf("unexpected bucket key %q", b)
	}
}

func TestBucketKey_ChangesOnWindowBoundary(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 30, 59, 0, time.UTC)
	next := now.Add(time.Second)

	if BucketKey("u1", now) == BucketKey("u1", next) {
		t.Errorf("expected a new bucket key after the window boundary")
	}
}

func TestDecide(t *testing.T) {
	cases := []struct {
		count     int64
		limit     int
		allowed   bool
		remaining int
	}{
		{0, 100, true, 99},
		{50, 100, true, 49},
		{99, 100, true, 0},
		{100, 100, false, 0},
		{150, 100, false, 0},
		{0, 1, true, 0},
		{1, 1, false, 0},
	}

	for _, tc := range cases {
		d := Decide(tc.count, tc.limit)
		if d.Allowed != tc.allowed {
			t.Errorf("Decide(%d, %d): expected allowed=%v, got %v", tc.count, tc.limit, tc.allowed, d.Allowed)
		}
		if d.Remaining != tc.remaining {
			t.Errorf("Decide(%d, %d): expected remaining=%d, got %d", tc.count, tc.limit, tc.remaining, d.Remaining)
		}
	}
}

func TestBucketTTL_CoversOneExtraCycle(t *testing.T) {
	if BucketTTL != 2*Window {
		t.Errorf("expected TTL of two windows, got %v", BucketTTL)
	}
}
