package tier

import "testing"

func testRegistry() *Registry {
	return NewRegistry([]Definition{
		{ID: "free", Name: "Free", RequestsPerMonth: 100},
		{ID: "pro", Name: "Pro", PriceMonthly: 2900, RequestsPerMonth: 10000, StripePriceID: "price_pro"},
		{ID: "developer", Name: "Developer", PriceMonthly: 9900, RequestsPerMonth: Unlimited, StripePriceID: "price_dev"},
	})
}

func TestLimitFor_KnownTier(t *testing.T) {
	r := testRegistry()

	if got := r.LimitFor("free"); got != 100 {
		t.Errorf("expected LimitFor(free)=100, got %d", got)
	}
	if got := r.LimitFor("pro"); got != 10000 {
		t.Errorf("expected LimitFor(pro)=10000, got %d", got)
	}
}

func TestLimitFor_UnknownTierFailsClosed(t *testing.T) {
	r := testRegistry()

	if got := r.LimitFor("enterprise"); got != 0 {
		t.Errorf("expected unknown tier to resolve to 0, got %d", got)
	}
	if got := r.LimitFor(""); got != 0 {
		t.Errorf("expected empty tier to resolve to 0, got %d", got)
	}
}

func TestLimitFor_UnlimitedSentinel(t *testing.T) {
	r := testRegistry()

	limit := r.LimitFor("developer")
	if !IsUnlimited(limit) {
		t.Errorf("expected developer limit to be unlimited, got %d", limit)
	}
	// The sentinel must never equal a reachable count.
	if limit >= 0 {
		t.Errorf("expected sentinel to be distinct from any finite count, got %d", limit)
	}
}

func TestGet(t *testing.T) {
	r := testRegistry()

	d, ok := r.Get("pro")
	if !ok {
		t.Fatalf("expected Get(pro) to succeed")
	}
	if d.Name != "Pro" || d.PriceMonthly != 2900 {
		t.Errorf("unexpected definition: %+v", d)
	}

	if _, ok := r.Get("nope"); ok {
		t.Errorf("expected Get(nope) to fail")
	}
}

func TestDefinitionIsUnlimited(t *testing.T) {
	if (Definition{RequestsPerMonth: 100}).IsUnlimited() {
		t.Errorf("expected finite definition not to be unlimited")
	}
	if !(Definition{RequestsPerMonth: Unlimited}).IsUnlimited() {
		t.Errorf("expected sentinel definition to be unlimited")
	}
}

func TestList_PreservesOrder(t *testing.T) {
	r := testRegistry()

	defs := r.List()
	if len(defs) != 3 {
		t.Fatalf("expected 3 definitions, got %d", len(defs))
	}
	if defs[0].ID != "free" || defs[1].ID != "pro" || defs[2].ID != "developer" {
		t.Errorf("unexpected order: %s, %s, %s", defs[0].ID, defs[1].ID, defs[2].ID)
	}
}

func TestNewRegistry_DuplicateOverrides(t *testing.T) {
	r := NewRegistry([]Definition{
		{ID: "free", RequestsPerMonth: 100},
		{ID: "free", RequestsPerMonth: 200},
	})

	if r.Len() != 1 {
		t.Errorf("expected 1 tier, got %d", r.Len())
	}
	if got := r.LimitFor("free"); got != 200 {
		t.Errorf("expected later duplicate to win, got %d", got)
	}
}
