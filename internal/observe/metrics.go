// Package observe provides application-wide observability primitives for
// syllabify: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all syllabify metrics.
const meterName = "github.com/MrWong99/syllabify"

// Prism build outcomes reported on [Metrics.PrismBuilds].
const (
	PrismBuilt  = "built"
	PrismLoaded = "loaded"
	PrismFailed = "error"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// --- Segmentation ---

	// GraphBuildDuration tracks how long one syllable graph takes to build.
	GraphBuildDuration metric.Float64Histogram

	// GraphVertices records the vertex count of each built graph.
	GraphVertices metric.Int64Histogram

	// GraphEdges records the edge count of each built graph.
	GraphEdges metric.Int64Histogram

	// Corrections counts edges produced by typo correction.
	Corrections metric.Int64Counter

	// Completions counts edges produced by completing the final syllable.
	Completions metric.Int64Counter

	// SegmentationFailures counts inputs whose graph did not reach the end
	// of the input.
	SegmentationFailures metric.Int64Counter

	// InflightSegmentations tracks segmentations currently running.
	InflightSegmentations metric.Int64UpDownCounter

	// --- Prism ---

	// PrismBuilds counts prism acquisitions. Use with attribute:
	//   attribute.String("status", built|loaded|error)
	PrismBuilds metric.Int64Counter

	// PrismBuildDuration tracks how long building or loading a prism takes.
	PrismBuildDuration metric.Float64Histogram

	// AlgebraRounds counts spelling-algebra rules applied to a script.
	AlgebraRounds metric.Int64Counter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// graphBuckets defines histogram bucket boundaries (in seconds) for single
// graph builds, which usually finish well under a millisecond.
var graphBuckets = []float64{
	0.00001, 0.000025, 0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05,
}

// sizeBuckets defines histogram bucket boundaries for vertex and edge counts.
var sizeBuckets = []float64{1, 2, 4, 8, 16, 32, 64, 128, 256}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.GraphBuildDuration, err = m.Float64Histogram("syllabify.graph.build.duration",
		metric.WithDescription("Latency of building one syllable graph."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(graphBuckets...),
	); err != nil {
		return nil, err
	}
	if met.GraphVertices, err = m.Int64Histogram("syllabify.graph.vertices",
		metric.WithDescription("Vertices per syllable graph."),
		metric.WithExplicitBucketBoundaries(sizeBuckets...),
	); err != nil {
		return nil, err
	}
	if met.GraphEdges, err = m.Int64Histogram("syllabify.graph.edges",
		metric.WithDescription("Edges per syllable graph."),
		metric.WithExplicitBucketBoundaries(sizeBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PrismBuildDuration, err = m.Float64Histogram("syllabify.prism.build.duration",
		metric.WithDescription("Latency of building or loading the prism."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Corrections, err = m.Int64Counter("syllabify.corrections",
		metric.WithDescription("Total edges produced by typo correction."),
	); err != nil {
		return nil, err
	}
	if met.Completions, err = m.Int64Counter("syllabify.completions",
		metric.WithDescription("Total edges produced by syllable completion."),
	); err != nil {
		return nil, err
	}
	if met.SegmentationFailures, err = m.Int64Counter("syllabify.segmentation.failures",
		metric.WithDescription("Total inputs that could not be segmented to the end."),
	); err != nil {
		return nil, err
	}
	if met.PrismBuilds, err = m.Int64Counter("syllabify.prism.builds",
		metric.WithDescription("Total prism acquisitions by status."),
	); err != nil {
		return nil, err
	}
	if met.AlgebraRounds, err = m.Int64Counter("syllabify.algebra.rounds",
		metric.WithDescription("Total spelling-algebra rules applied to a script."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.InflightSegmentations, err = m.Int64UpDownCounter("syllabify.segmentations.inflight",
		metric.WithDescription("Number of segmentations currently running."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("syllabify.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

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

// GraphStats summarises one built syllable graph.
type GraphStats struct {
	Duration    time.Duration
	Vertices    int
	Edges       int
	Corrections int
	Completions int

	// Complete is false when the graph stops short of the input end.
	Complete bool
}

// RecordGraph records every segmentation instrument for one built graph.
func (m *Metrics) RecordGraph(ctx context.Context, s GraphStats) {
	m.GraphBuildDuration.Record(ctx, s.Duration.Seconds())
	m.GraphVertices.Record(ctx, int64(s.Vertices))
	m.GraphEdges.Record(ctx, int64(s.Edges))
	if s.Corrections > 0 {
		m.Corrections.Add(ctx, int64(s.Corrections))
	}
	if s.Completions > 0 {
		m.Completions.Add(ctx, int64(s.Completions))
	}
	if !s.Complete {
		m.SegmentationFailures.Add(ctx, 1)
	}
}

// RecordPrismBuild records a prism acquisition with the given status and
// latency.
func (m *Metrics) RecordPrismBuild(ctx context.Context, status string, d time.Duration) {
	attrs := metric.WithAttributes(Attr("status", status))
	m.PrismBuilds.Add(ctx, 1, attrs)
	m.PrismBuildDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordAlgebraRounds records the number of rules applied to a script.
func (m *Metrics) RecordAlgebraRounds(ctx context.Context, rounds int) {
	m.AlgebraRounds.Add(ctx, int64(rounds))
}
