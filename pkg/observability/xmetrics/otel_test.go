package xmetrics_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/omeyang/xlockkit/pkg/observability/xmetrics"
)

func newTestObserver(t *testing.T) (xmetrics.Observer, *tracetest.InMemoryExporter, *sdkmetric.ManualReader) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	obs, err := xmetrics.NewOTelObserver(
		xmetrics.WithInstrumentationName("test"),
		xmetrics.WithTracerProvider(tp),
		xmetrics.WithMeterProvider(mp),
	)
	require.NoError(t, err)
	return obs, exporter, reader
}

func collectTotals(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != xmetrics.MetricOperationTotal {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				op, _ := dp.Attributes.Value("operation")
				status, _ := dp.Attributes.Value("status")
				out[op.AsString()+"/"+status.AsString()] += dp.Value
			}
		}
	}
	return out
}

func TestOTelObserver(t *testing.T) {
	obs, exporter, reader := newTestObserver(t)

	_, span := xmetrics.Start(context.Background(), obs, xmetrics.SpanOptions{
		Component: "xlock",
		Operation: "acquire",
		Attrs: []xmetrics.Attr{
			xmetrics.String("xlock.key", "lock:a"),
			xmetrics.Bool("try", true),
			xmetrics.Int("n", 1),
			xmetrics.Int64("n64", 2),
			xmetrics.Duration("wait", time.Second),
			{Key: "", Value: "skipped"},
		},
	})
	span.End(xmetrics.Result{})
	span.End(xmetrics.Result{Err: errors.New("ignored")})

	_, span = xmetrics.Start(context.Background(), obs, xmetrics.SpanOptions{Component: "xlock", Operation: "acquire"})
	span.End(xmetrics.Result{Status: "contention"})

	_, span = xmetrics.Start(context.Background(), obs, xmetrics.SpanOptions{})
	span.End(xmetrics.Result{Err: errors.New("boom")})

	spans := exporter.GetSpans()
	require.Len(t, spans, 3)
	assert.Equal(t, "xlock.acquire", spans[0].Name)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	assert.Contains(t, spans[0].Attributes, attribute.String("xlock.key", "lock:a"))
	assert.Contains(t, spans[0].Attributes, attribute.Int64("wait", int64(time.Second)))
	assert.Equal(t, codes.Error, spans[1].Status.Code)
	assert.Equal(t, "contention", spans[1].Status.Description)
	assert.Equal(t, "unknown.unknown", spans[2].Name)
	assert.Equal(t, "boom", spans[2].Status.Description)

	totals := collectTotals(t, reader)
	assert.Equal(t, int64(1), totals["acquire/ok"])
	assert.Equal(t, int64(1), totals["acquire/contention"])
	assert.Equal(t, int64(1), totals["unknown/error"])
}

func TestStart_Fallbacks(t *testing.T) {
	//nolint:staticcheck // 测试 nil context
	ctx, span := xmetrics.Start(nil, nil, xmetrics.SpanOptions{})
	assert.NotNil(t, ctx)
	assert.Equal(t, xmetrics.NoopSpan{}, span)

	ctx, span = xmetrics.Start(context.Background(), xmetrics.NoopObserver{}, xmetrics.SpanOptions{})
	assert.NotNil(t, ctx)
	span.End(xmetrics.Result{})

	assert.Equal(t, "Server", xmetrics.KindServer.String())
	assert.Equal(t, "Kind(9)", xmetrics.Kind(9).String())
}
