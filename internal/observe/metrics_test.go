package observe

import (
	"context"
	"testing"
	"time"

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

func TestHistogramObservation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.GraphBuildDuration.Record(ctx, 0.0001)
	m.GraphBuildDuration.Record(ctx, 0.0002)
	m.PrismBuildDuration.Record(ctx, 0.25)
	m.PrismBuildDuration.Record(ctx, 0.5)
	m.HTTPRequestDuration.Record(ctx, 0.05)
	m.HTTPRequestDuration.Record(ctx, 0.01)

	rm := collect(t, reader)

	for _, name := range []string{
		"syllabify.graph.build.duration",
		"syllabify.prism.build.duration",
		"syllabify.http.request.duration",
	} {
		t.Run(name, func(t *testing.T) {
			met := findMetric(rm, name)
			if met == nil {
				t.Fatalf("metric %q not found", name)
			}
			hist, ok := met.Data.(metricdata.Histogram[float64])
			if !ok {
				t.Fatalf("metric %q is not a histogram", name)
			}
			if len(hist.DataPoints) == 0 {
				t.Fatalf("metric %q has no data points", name)
			}
			if got := hist.DataPoints[0].Count; got != 2 {
				t.Errorf("sample count = %d, want 2", got)
			}
		})
	}
}

// sumValue returns the total of an int64 sum metric across data points.
func sumValue(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not a sum", name)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestRecordGraph(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordGraph(ctx, GraphStats{
		Duration:    50 * time.Microsecond,
		Vertices:    4,
		Edges:       5,
		Corrections: 2,
		Complete:    true,
	})
	m.RecordGraph(ctx, GraphStats{
		Duration:    20 * time.Microsecond,
		Vertices:    1,
		Completions: 3,
		Complete:    false,
	})

	rm := collect(t, reader)

	counters := []struct {
		name string
		want int64
	}{
		{"syllabify.corrections", 2},
		{"syllabify.completions", 3},
		{"syllabify.segmentation.failures", 1},
	}
	for _, tc := range counters {
		if got := sumValue(t, rm, tc.name); got != tc.want {
			t.Errorf("%s = %d, want %d", tc.name, got, tc.want)
		}
	}

	for _, name := range []string{"syllabify.graph.vertices", "syllabify.graph.edges"} {
		met := findMetric(rm, name)
		if met == nil {
			t.Fatalf("metric %q not found", name)
		}
		hist, ok := met.Data.(metricdata.Histogram[int64])
		if !ok {
			t.Fatalf("metric %q is not an int64 histogram", name)
		}
		if got := hist.DataPoints[0].Count; got != 2 {
			t.Errorf("%s sample count = %d, want 2", name, got)
		}
	}

	met := findMetric(rm, "syllabify.graph.vertices")
	if got := met.Data.(metricdata.Histogram[int64]).DataPoints[0].Sum; got != 5 {
		t.Errorf("vertices sum = %d, want 5", got)
	}
}

func TestRecordPrismBuild(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordPrismBuild(ctx, PrismBuilt, 10*time.Millisecond)
	m.RecordPrismBuild(ctx, PrismLoaded, time.Millisecond)
	m.RecordPrismBuild(ctx, PrismLoaded, time.Millisecond)

	rm := collect(t, reader)
	met := findMetric(rm, "syllabify.prism.builds")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}

	for _, dp := range sum.DataPoints {
		for _, kv := range dp.Attributes.ToSlice() {
			if string(kv.Key) == "status" && kv.Value.AsString() == PrismLoaded {
				if dp.Value != 2 {
					t.Errorf("counter value = %d, want 2", dp.Value)
				}
				return
			}
		}
	}
	t.Error("data point with status=loaded not found")
}

func TestRecordAlgebraRounds(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordAlgebraRounds(ctx, 3)
	m.RecordAlgebraRounds(ctx, 4)

	if got := sumValue(t, collect(t, reader), "syllabify.algebra.rounds"); got != 7 {
		t.Errorf("algebra rounds = %d, want 7", got)
	}
}

func TestInflightGauge(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.InflightSegmentations.Add(ctx, 1)
	m.InflightSegmentations.Add(ctx, 1)
	m.InflightSegmentations.Add(ctx, -1)

	if got := sumValue(t, collect(t, reader), "syllabify.segmentations.inflight"); got != 1 {
		t.Errorf("inflight = %d, want 1", got)
	}
}

func TestAttr(t *testing.T) {
	kv := Attr("status", "ok")
	if string(kv.Key) != "status" || kv.Value.AsString() != "ok" {
		t.Errorf("Attr = %v, want status=ok", kv)
	}
}

func TestDefaultMetrics_ReturnsSameInstance(t *testing.T) {
	// DefaultMetrics uses the global OTel provider so we just check
	// that repeated calls return the same pointer.
	a := DefaultMetrics()
	b := DefaultMetrics()
	if a != b {
		t.Error("DefaultMetrics returned different pointers")
	}
}
