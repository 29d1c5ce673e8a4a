package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegistryCounts(t *testing.T) {
	t.Parallel()
	reg := NewRegistry(nil)
	reg.PlansGenerated.Inc()
	reg.TasksCompleted.WithLabelValues("daily").Inc()
	reg.ObserveStore("save", nil)
	reg.ObserveStore("save", errors.New("disk full"))

	if got := testutil.ToFloat64(reg.PlansGenerated); got != 1 {
		t.Fatalf("plans = %v, want 1", got)
	}
	if got := testutil.ToFloat64(reg.StoreOperations.WithLabelValues("save", "error")); got != 1 {
		t.Fatalf("failed saves = %v, want 1", got)
	}

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `pawpal_tasks_completed_total{recurrence="daily"} 1`) {
		t.Fatalf("metrics output missing counter:\n%s", body)
	}
}

func TestNilRegistryIsSafe(t *testing.T) {
	t.Parallel()
	var reg *Registry
	reg.ObserveStore("load", nil)
}
