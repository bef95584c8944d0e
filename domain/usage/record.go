// Package usage provides usage record types and pure accounting
// functions. All functions are pure - no side effects.
package usage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Fruitloop24/metergate/domain/period"
	"github.com/Fruitloop24/metergate/domain/tier"
)

// Record tracks a principal's consumption for one billing period
// (value type). The stored JSON field names are part of the persisted
// state layout and must not change.
type Record struct {
	UsageCount  int64     `json:"usageCount"`
	Plan        string    `json:"plan"`
	LastUpdated time.Time `json:"lastUpdated"`
	PeriodStart time.Time `json:"periodStart,omitzero"`
	PeriodEnd   time.Time `json:"periodEnd,omitzero"`
}

// Key returns the store key for a principal's usage record.
// The layout is fixed: "usage:{principal}".
func Key(principal string) string {
	return "usage:" + principal
}

// New synthesizes a fresh record for a principal seen for the first
// time: zero usage, the caller-supplied tier, the current period.
// This is a PURE function.
func New(plan string, now time.Time, p period.Period) Record {
	return Record{
		UsageCount:  0,
		Plan:        plan,
		LastUpdated: now,
		PeriodStart: p.Start,
		PeriodEnd:   p.End,
	}
}

// NeedsReset reports whether the record belongs to an earlier period
// than p. The decision is purely a period-start mismatch, not "has the
// end date passed", so a principal returning after a long absence
// resets exactly once.
// This is a PURE function.
func (r Record) NeedsReset(p period.Period) bool {
	return r.PeriodStart.IsZero() || !r.PeriodStart.Equal(p.Start)
}

// ResetFor returns a copy of the record rolled over into period p with
// the counter cleared.
// This is a PURE function.
func (r Record) ResetFor(p period.Period) Record {
	r.UsageCount = 0
	r.PeriodStart = p.Start
	r.PeriodEnd = p.End
	return r
}

// EncodeRecord serializes a record for storage.
func EncodeRecord(r Record) (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode usage record: %w", err)
	}
	return string(data), nil
}

// DecodeRecord deserializes a stored record, validating on load.
// Malformed data is an error, never a default value: silently treating
// corrupt state as zero usage would hand out a fresh quota.
func DecodeRecord(data string) (Record, error) {
	var r Record
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return Record{}, fmt.Errorf("decode usage record: %w", err)
	}
	if r.UsageCount < 0 {
		return Record{}, fmt.Errorf("decode usage record: negative usage count %d", r.UsageCount)
	}
	return r, nil
}

// Remaining computes the quota left given a count and a limit.
// Returns the unlimited sentinel unchanged and floors finite results
// at 0. This is a PURE function.
func Remaining(count, limit int64) int64 {
	if tier.IsUnlimited(limit) {
		return tier.Unlimited
	}
	if remaining := limit - count; remaining > 0 {
		return remaining
	}
	return 0
}

// Snapshot is the read model produced by every accounting operation
// (value type).
type Snapshot struct {
	Principal   string
	Plan        string
	UsageCount  int64
	Limit       int64 // finite or tier.Unlimited
	Remaining   int64 // finite or tier.Unlimited
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// SnapshotOf builds a snapshot from a record and a resolved limit.
// This is a PURE function.
func SnapshotOf(principal string, r Record, limit int64) Snapshot {
	return Snapshot{
		Principal:   principal,
		Plan:        r.Plan,
		UsageCount:  r.UsageCount,
		Limit:       limit,
		Remaining:   Remaining(r.UsageCount, limit),
		PeriodStart: r.PeriodStart,
		PeriodEnd:   r.PeriodEnd,
	}
}
