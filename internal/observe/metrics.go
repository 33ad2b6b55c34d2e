// Package observe provides application-wide observability primitives for
// sermable: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all sermable metrics.
const meterName = "github.com/Ebbbabebba/sermable-54cd6c15-sub000"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Histograms ---

	// TurnDuration tracks the wall time of one practice turn, from reset to
	// completion. Use with attribute.String("mode", ...).
	TurnDuration metric.Float64Histogram

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("route", ...)
	HTTPRequestDuration metric.Float64Histogram

	// --- Counters ---

	// TurnsCompleted counts finished practice turns. Use with attributes:
	//   attribute.String("mode", ...), attribute.String("outcome", "clean"|"errors")
	TurnsCompleted metric.Int64Counter

	// WordsMatched counts script words confirmed spoken.
	WordsMatched metric.Int64Counter

	// WordsMissed counts hidden words skipped during a turn.
	WordsMissed metric.Int64Counter

	// WordsHesitated counts hesitation flags raised by the stall monitor.
	WordsHesitated metric.Int64Counter

	// WordsForced counts force-advanced cursor rescues.
	WordsForced metric.Int64Counter

	// UnitsMastered counts units that reached beat mastery.
	UnitsMastered metric.Int64Counter

	// RecallsCompleted counts successful scheduled recalls.
	RecallsCompleted metric.Int64Counter

	// StoreErrors counts failed fire-and-forget persistence calls. Use with
	// attribute.String("op", ...).
	StoreErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live coaching sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// turnBuckets defines histogram bucket boundaries (in seconds) sized for
// human-speech-paced practice turns.
var turnBuckets = []float64{
	1, 2.5, 5, 10, 20, 30, 60, 120, 300,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.TurnDuration, err = m.Float64Histogram("sermable.turn.duration",
		metric.WithDescription("Wall time of one practice turn by session mode."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(turnBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("sermable.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if met.TurnsCompleted, err = m.Int64Counter("sermable.turns.completed",
		metric.WithDescription("Total finished practice turns by mode and outcome."),
	); err != nil {
		return nil, err
	}
	if met.WordsMatched, err = m.Int64Counter("sermable.words.matched",
		metric.WithDescription("Total script words confirmed spoken."),
	); err != nil {
		return nil, err
	}
	if met.WordsMissed, err = m.Int64Counter("sermable.words.missed",
		metric.WithDescription("Total hidden words skipped during turns."),
	); err != nil {
		return nil, err
	}
	if met.WordsHesitated, err = m.Int64Counter("sermable.words.hesitated",
		metric.WithDescription("Total hesitation flags raised by the stall monitor."),
	); err != nil {
		return nil, err
	}
	if met.WordsForced, err = m.Int64Counter("sermable.words.forced",
		metric.WithDescription("Total force-advanced cursor rescues."),
	); err != nil {
		return nil, err
	}
	if met.UnitsMastered, err = m.Int64Counter("sermable.units.mastered",
		metric.WithDescription("Total units that reached beat mastery."),
	); err != nil {
		return nil, err
	}
	if met.RecallsCompleted, err = m.Int64Counter("sermable.recalls.completed",
		metric.WithDescription("Total successful scheduled recalls."),
	); err != nil {
		return nil, err
	}
	if met.StoreErrors, err = m.Int64Counter("sermable.store.errors",
		metric.WithDescription("Total failed fire-and-forget persistence calls by operation."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("sermable.active_sessions",
		metric.WithDescription("Number of live coaching sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordTurnCompleted records a finished turn with the standard attribute set.
func (m *Metrics) RecordTurnCompleted(ctx context.Context, mode string, clean bool) {
	outcome := "clean"
	if !clean {
		outcome = "errors"
	}
	m.TurnsCompleted.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("mode", mode),
			attribute.String("outcome", outcome),
		),
	)
}

// RecordStoreError records a failed persistence call by operation name.
func (m *Metrics) RecordStoreError(ctx context.Context, op string) {
	m.StoreErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("op", op)),
	)
}
