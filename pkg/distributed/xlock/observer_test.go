package xlock_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/omeyang/xlockkit/pkg/distributed/xlock"
	"github.com/omeyang/xlockkit/pkg/observability/xmetrics"
)

func TestGuard_Observer(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})
	obs, err := xmetrics.NewOTelObserver(xmetrics.WithTracerProvider(tp), xmetrics.WithMeterProvider(mp))
	require.NoError(t, err)

	_, g := setupGuard(t, xlock.WithObserver(obs))
	spec := xlock.NewLockSpec("order:{id}", xlock.TryLock(0, -1))

	require.NoError(t, run(g, spec, xlock.Arg("id", 1)))

	release := holdInBackground(t, g, spec, xlock.Arg("id", 2))
	requireStatus(t, run(g, spec, xlock.Arg("id", 2)), xlock.StatusContention)
	release()

	names := make(map[string]int)
	for _, s := range exporter.GetSpans() {
		names[s.Name]++
		if s.Name == "xlock.acquire" {
			assert.Contains(t, s.Attributes, attribute.String("xlock.type", "reentrant"))
			assert.Contains(t, s.Attributes, attribute.String("xlock.mode", "try"))
		}
	}
	assert.Equal(t, 3, names["xlock.acquire"])
	assert.Equal(t, 2, names["xlock.hold"])

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	totals := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != xmetrics.MetricOperationTotal {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				op, _ := dp.Attributes.Value("operation")
				st, _ := dp.Attributes.Value("status")
				totals[op.AsString()+"/"+st.AsString()] += dp.Value
			}
		}
	}
	assert.Equal(t, int64(2), totals["acquire/ok"])
	assert.Equal(t, int64(1), totals["acquire/contention"])
	assert.Equal(t, int64(2), totals["hold/ok"])
}
