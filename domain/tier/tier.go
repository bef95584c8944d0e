// Package tier provides tier value types and pure functions.
package tier

// Unlimited is the sentinel limit for tiers without a monthly quota.
// Comparisons must go through IsUnlimited rather than treating the
// sentinel as a count that could be reached.
const Unlimited int64 = -1

// Definition represents a subscription tier (immutable value type).
type Definition struct {
	ID               string
	Name             string
	PriceMonthly     int64 // cents
	RequestsPerMonth int64 // Unlimited (-1) = no monthly quota
	StripePriceID    string
}

// IsUnlimited checks if a definition has unlimited requests.
// This is a PURE function.
func (d Definition) IsUnlimited() bool {
	return d.RequestsPerMonth < 0
}

// IsUnlimited checks if a limit value is the unlimited sentinel.
// This is a PURE function.
func IsUnlimited(limit int64) bool {
	return limit < 0
}

// Registry is an immutable tier lookup table, constructed once at
// process start. Adding a tier is a data change, not a code change.
type Registry struct {
	defs  map[string]Definition
	order []string
}

// NewRegistry builds a registry from a list of definitions.
// Later duplicates of an ID override earlier ones.
func NewRegistry(defs []Definition) *Registry {
	r := &Registry{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if _, seen := r.defs[d.ID]; !seen {
			r.order = append(r.order, d.ID)
		}
		r.defs[d.ID] = d
	}
	return r
}

// Get retrieves a definition by tier ID.
func (r *Registry) Get(id string) (Definition, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// LimitFor resolves the monthly request limit for a tier ID.
// Unknown tiers resolve to 0: an unrecognized tier grants no quota,
// never unlimited.
func (r *Registry) LimitFor(id string) int64 {
	d, ok := r.defs[id]
	if !ok {
		return 0
	}
	return d.RequestsPerMonth
}

// List returns all definitions in construction order.
func (r *Registry) List() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.defs[id])
	}
	return out
}

// Len returns the number of registered tiers.
func (r *Registry) Len() int {
	return len(r.defs)
}
