package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSweepMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSweepMetrics(reg)

	m.IncSuccess("session-expiry")
	m.IncSuccess("session-expiry")
	m.IncFailure("session-expiry")
	m.ObserveDuration("session-expiry", 120*time.Millisecond)
	m.AddCancelled(3)

	if got := testutil.ToFloat64(m.success.WithLabelValues("session-expiry")); got != 2 {
		t.Fatalf("expected 2 successes, got %v", got)
	}
	if got := testutil.ToFloat64(m.failure.WithLabelValues("session-expiry")); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.cancelled); got != 3 {
		t.Fatalf("expected 3 cancelled, got %v", got)
	}
}

func TestSweepMetricsNilSafe(t *testing.T) {
	var m *SweepMetrics
	m.IncSuccess("x")
	m.IncFailure("x")
	m.ObserveDuration("x", time.Second)
	m.AddCancelled(1)

	empty := NewSweepMetrics(nil)
	empty.IncSuccess("x")
	empty.AddCancelled(2)
}

func TestNormalizeLabel(t *testing.T) {
	if normalizeLabel("") != "unknown" {
		t.Fatal("expected unknown fallback")
	}
	if normalizeLabel("session-expiry") != "session-expiry" {
		t.Fatal("expected label passthrough")
	}
}
