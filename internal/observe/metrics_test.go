package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestWordCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	counters := []struct {
		name string
		c    metric.Int64Counter
	}{
		{"sermable.words.matched", m.WordsMatched},
		{"sermable.words.missed", m.WordsMissed},
		{"sermable.words.hesitated", m.WordsHesitated},
		{"sermable.words.forced", m.WordsForced},
	}
	for _, tc := range counters {
		tc.c.Add(ctx, 3)
	}

	rm := collect(t, reader)
	for _, tc := range counters {
		t.Run(tc.name, func(t *testing.T) {
			met := findMetric(rm, tc.name)
			if met == nil {
				t.Fatalf("metric %q not found", tc.name)
			}
			sum, ok := met.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %q is not a sum", tc.name)
			}
			if got := sum.DataPoints[0].Value; got != 3 {
				t.Errorf("metric %q = %d, want 3", tc.name, got)
			}
		})
	}
}

func TestTurnDurationHistogram(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.TurnDuration.Record(ctx, 12.5)
	m.TurnDuration.Record(ctx, 48.0)

	rm := collect(t, reader)
	met := findMetric(rm, "sermable.turn.duration")
	if met == nil {
		t.Fatal("turn duration metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("turn duration metric is not a histogram")
	}
	if got := hist.DataPoints[0].Count; got != 2 {
		t.Errorf("count = %d, want 2", got)
	}
}

func TestRecordTurnCompleted_Attributes(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordTurnCompleted(ctx, "practice", true)
	m.RecordTurnCompleted(ctx, "practice", false)
	m.RecordTurnCompleted(ctx, "recall", true)

	rm := collect(t, reader)
	met := findMetric(rm, "sermable.turns.completed")
	if met == nil {
		t.Fatal("turns completed metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("turns completed metric is not a sum")
	}
	// One data point per distinct (mode, outcome) pair.
	if got := len(sum.DataPoints); got != 3 {
		t.Errorf("data points = %d, want 3", got)
	}
}

func TestActiveSessionsGauge(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveSessions.Add(ctx, 2)
	m.ActiveSessions.Add(ctx, -1)

	rm := collect(t, reader)
	met := findMetric(rm, "sermable.active_sessions")
	if met == nil {
		t.Fatal("active sessions metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("active sessions metric is not a sum")
	}
	if got := sum.DataPoints[0].Value; got != 1 {
		t.Errorf("value = %d, want 1", got)
	}
}
