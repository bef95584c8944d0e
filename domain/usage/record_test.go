package usage

import (
	"strings"
	"testing"
	"time"

	"github.com/Fruitloop24/metergate/domain/period"
	"github.com/Fruitloop24/metergate/domain/tier"
)

var (
	febNow    = time.Date(2024, 2, 10, 9, 30, 0, 0, time.UTC)
	febPeriod = period.Current(febNow)
)

func TestKey(t *testing.T) {
	if got := Key("u1"); got != "usage:u1" {
		t.Errorf("expected usage:u1, got %q", got)
	}
}

func TestNew(t *testing.T) {
	r := New("free", febNow, febPeriod)

	if r.UsageCount != 0 {
		t.Errorf("expected zero usage, got %d", r.UsageCount)
	}
	if r.Plan != "free" {
		t.Errorf("expected plan=free, got %q", r.Plan)
	}
	if !r.PeriodStart.Equal(febPeriod.Start) || !r.PeriodEnd.Equal(febPeriod.End) {
		t.Errorf("expected current period bounds, got %v .. %v", r.PeriodStart, r.PeriodEnd)
	}
}

func TestNeedsReset(t *testing.T) {
	current := New("free", febNow, febPeriod)
	if current.NeedsReset(febPeriod) {
		t.Errorf("expected no reset within the same period")
	}

	january := Record{
		UsageCount:  42,
		Plan:        "free",
		PeriodStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if !january.NeedsReset(febPeriod) {
		t.Errorf("expected reset when stored period start differs")
	}

	// Absent period (record written before the period fields existed).
	legacy := Record{UsageCount: 7, Plan: "free"}
	if !legacy.NeedsReset(febPeriod) {
		t.Errorf("expected reset when stored period start is absent")
	}
}

func TestResetFor(t *testing.T) {
	january := Record{
		UsageCount:  42,
		Plan:        "pro",
		LastUpdated: time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC),
		PeriodStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	reset := january.ResetFor(febPeriod)

	if reset.UsageCount != 0 {
		t.Errorf("expected counter cleared, got %d", reset.UsageCount)
	}
	if !reset.PeriodStart.Equal(febPeriod.Start) {
		t.Errorf("expected new period start, got %v", reset.PeriodStart)
	}
	if reset.Plan != "pro" {
		t.Errorf("expected plan preserved, got %q", reset.Plan)
	}
	// Value semantics: the original is untouched.
	if january.UsageCount != 42 {
		t.Errorf("expected original record unchanged, got %d", january.UsageCount)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	r := Record{
		UsageCount:  5,
		Plan:        "free",
		LastUpdated: febNow,
		PeriodStart: febPeriod.Start,
		PeriodEnd:   febPeriod.End,
	}

	data, err := EncodeRecord(r)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	got, err := DecodeRecord(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.UsageCount != 5 || got.Plan != "free" {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if !got.PeriodStart.Equal(febPeriod.Start) {
		t.Errorf("expected period start preserved, got %v", got.PeriodStart)
	}
}

func TestEncode_FieldNamesAreStable(t *testing.T) {
	data, err := EncodeRecord(New("free", febNow, febPeriod))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	for _, field := range []string{`"usageCount"`, `"plan"`, `"lastUpdated"`, `"periodStart"`, `"periodEnd"`} {
		if !strings.Contains(data, field) {
			t.Errorf("expected stored layout to contain %s, got %s", field, data)
		}
	}
}

func TestDecode_AbsentPeriodFields(t *testing.T) {
	r, err := DecodeRecord(`{"usageCount":3,"plan":"free","lastUpdated":"2024-01-15T00:00:00Z"}`)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !r.PeriodStart.IsZero() {
		t.Errorf("expected absent period start to decode as zero, got %v", r.PeriodStart)
	}
	if !r.NeedsReset(febPeriod) {
		t.Errorf("expected record with absent period to need reset")
	}
}

func TestDecode_MalformedIsAnError(t *testing.T) {
	cases := []string{
		"not json",
		`{"usageCount":"many"}`,
		`{"usageCount":-1,"plan":"free"}`,
		"",
	}
	for _, data := range cases {
		if _, err := DecodeRecord(data); err == nil {
			t.Errorf("expected decode error for %q, got nil", data)
		}
	}
}

func TestRemaining(t *testing.T) {
	if got := Remaining(3, 10); got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
	if got := Remaining(10, 10); got != 0 {
		t.Errorf("expected 0 at the limit, got %d", got)
	}
	if got := Remaining(15, 10); got != 0 {
		t.Errorf("expected floor at 0 over the limit, got %d", got)
	}
	if got := Remaining(1000000, tier.Unlimited); got != tier.Unlimited {
		t.Errorf("expected unlimited sentinel passthrough, got %d", got)
	}
}

func TestSnapshotOf(t *testing.T) {
	r := Record{
		UsageCount:  4,
		Plan:        "free",
		PeriodStart: febPeriod.Start,
		PeriodEnd:   febPeriod.End,
	}

	s := SnapshotOf("u1", r, 6)

	if s.Principal != "u1" || s.Plan != "free" {
		t.Errorf("unexpected snapshot identity: %+v", s)
	}
	if s.UsageCount != 4 || s.Limit != 6 || s.Remaining != 2 {
		t.Errorf("unexpected snapshot counts: %+v", s)
	}
}
