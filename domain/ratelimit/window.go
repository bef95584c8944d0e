// Package ratelimit provides pure fixed-window rate limiting
// calculations. All functions are deterministic - same input always
// produces same output.
package ratelimit

import (
	"strconv"
	"time"
)

const (
	// Window is the fixed bucket duration. Windows are aligned to the
	// Unix epoch and shared by all principals.
	Window = time.Minute

	// BucketTTL is the store expiry for a bucket: one cycle of buffer
	// beyond the bucket's own minute, so cleanup is automatic and no
	// explicit deletion is ever required.
	BucketTTL = 2 * time.Minute
)

// MinuteIndex returns the epoch-aligned window index for now.
// This is a PURE function.
func MinuteIndex(now time.Time) int64 {
	return now.Unix() / 60
}

// BucketKey returns the store key for a principal's current window.
// The layout is fixed: "ratelimit:{principal}:{minuteIndex}".
// This is a PURE function.
func BucketKey(principal string, now time.Time) string {
	return "ratelimit:" + principal + ":" + strconv.FormatInt(MinuteIndex(now), 10)
}

// Decision represents the outcome of a rate limit check (value type).
type Decision struct {
	Allowed   bool
	Remaining int
}

// Decide performs a fixed-window check against the count observed
// before this request. This is an approximate limiter: a burst
// straddling a window edge can reach 2x the limit. Acceptable - it
// protects against abuse, not billing correctness.
// This is a PURE function.
func Decide(count int64, limit int) Decision {
	if count >= int64(limit) {
		return Decision{Allowed: false, Remaining: 0}
	}
	return Decision{Allowed: true, Remaining: limit - int(count) - 1}
}
