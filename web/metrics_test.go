package web_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/Fruitloop24/metergate/adapters/clock"
	"github.com/Fruitloop24/metergate/adapters/idgen"
	"github.com/Fruitloop24/metergate/adapters/memory"
	"github.com/Fruitloop24/metergate/adapters/metrics"
	"github.com/Fruitloop24/metergate/app"
	"github.com/Fruitloop24/metergate/domain/tier"
	"github.com/Fruitloop24/metergate/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func newMeteredHandler(t *testing.T) (*web.Handler, *metrics.Collector) {
	t.Helper()

	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	fake := clock.NewFake(now)
	store := memory.NewKVStore(fake)
	logger := zerolog.Nop()
	collector := metrics.NewWithRegistry(prometheus.NewRegistry())
	registry := tier.NewRegistry([]tier.Definition{
		{ID: "free", Name: "Free", RequestsPerMonth: 100},
	})

	handler := web.NewHandler(web.Deps{
		Meter: app.NewMeterService(app.MeterDeps{
			Store: store, Tiers: registry, Logger: logger, Metrics: collector,
		}),
		Limiter: app.NewRateLimitService(app.RateLimitDeps{
			Store: store, PerMinute: 100, Logger: logger, Metrics: collector,
		}),
		Clock: fake,
		IDGen: idgen.NewSequential("req_"),
		Auth: web.AuthConfig{
			Mode:            "header",
			PrincipalHeader: "X-User-Id",
			TierHeader:      "X-User-Tier",
		},
		Logger:  logger,
		Metrics: collector,
	})
	return handler, collector
}

func TestRequestMetricsRecorded(t *testing.T) {
	handler, collector := newMeteredHandler(t)
	env := &testEnv{handler: handler}

	rec := env.request(t, http.MethodPost, "/api/proxy", "", authHeaders("user_1", "free"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	if got := testutil.ToFloat64(collector.RequestsTotal.WithLabelValues("/api/proxy", "200")); got != 1 {
		t.Errorf("requests_total{/api/proxy,200} = %f, want 1", got)
	}
	if got := testutil.CollectAndCount(collector.RequestDuration); got == 0 {
		t.Error("request_duration_seconds has no samples after a served request")
	}
}

func TestRequestMetricsLabelStatus(t *testing.T) {
	handler, collector := newMeteredHandler(t)
	env := &testEnv{handler: handler}

	rec := env.request(t, http.MethodPost, "/api/proxy", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	if got := testutil.ToFloat64(collector.RequestsTotal.WithLabelValues("/api/proxy", "401")); got != 1 {
		t.Errorf("requests_total{/api/proxy,401} = %f, want 1", got)
	}
}
