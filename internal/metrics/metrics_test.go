package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordStepIncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(stepsTotal.WithLabelValues("SaveOnly", "committed"))
	RecordStep("SaveOnly", "committed", 250*time.Millisecond)
	after := testutil.ToFloat64(stepsTotal.WithLabelValues("SaveOnly", "committed"))
	if after-before != 1 {
		t.Fatalf("expected counter to grow by 1, got %v", after-before)
	}
}

func TestRunGaugeBalances(t *testing.T) {
	start := testutil.ToFloat64(runsInFlight)
	RunStarted()
	if got := testutil.ToFloat64(runsInFlight); got != start+1 {
		t.Fatalf("expected in-flight %v, got %v", start+1, got)
	}
	RunFinished("completed")
	if got := testutil.ToFloat64(runsInFlight); got != start {
		t.Fatalf("expected in-flight back to %v, got %v", start, got)
	}
}

func TestHandlerExposesPodflowMetrics(t *testing.T) {
	RecordProviderCall("openai", "ok")
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "podflow_provider_calls_total") {
		t.Fatal("expected provider call counter in scrape output")
	}
}
