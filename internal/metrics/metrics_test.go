package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fd1az/swapbox/internal/logger"
)

func TestNewMetricProvider_Prometheus(t *testing.T) {
	mp, err := NewMetricProvider(
		WithServiceName("swapbox-test"),
		WithProviderConfig(ProviderCfg{Provider: PrometheusProvider}),
	)
	if err != nil {
		t.Fatalf("NewMetricProvider: %v", err)
	}
	defer mp.Shutdown(context.Background())

	counter, err := mp.Meter("test").Int64Counter("swapbox_test_events_total")
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	counter.Add(context.Background(), 3)

	srv := NewPrometheusServer(logger.New(io.Discard, logger.LevelError, "test", nil), WithPort("0"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "swapbox_test_events_total") {
		t.Errorf("metric missing from scrape output")
	}
}

func TestNewOtelCollectorConfig(t *testing.T) {
	cfg := NewOtelCollectorConfig("http://collector:4317", map[string]string{"k": "v"}, InsecureOtel)
	if cfg.Provider != OtelCollector || cfg.Endpoint != "http://collector:4317" || cfg.Insecure {
		t.Errorf("cfg = %+v", cfg)
	}
}
