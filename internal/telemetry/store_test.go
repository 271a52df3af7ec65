package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/steveyegge/kanbeads/internal/remote"
	"github.com/steveyegge/kanbeads/internal/remote/memstore"
	"github.com/steveyegge/kanbeads/internal/types"
)

func TestWrapDocumentStoreDisabledIsIdentity(t *testing.T) {
	t.Setenv("KB_OTEL_ENABLED", "")
	s := memstore.New()
	assert.Same(t, remote.DocumentStore(s), WrapDocumentStore(s))
}

func TestInstrumentedStoreRecords(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))

	inner := memstore.New()
	s := newInstrumentedStore(inner, mp.Meter("test"), tp.Tracer("test"))

	doc, err := s.Insert(ctx, types.KindCard, "1", []byte(`{"title":"A"}`))
	require.NoError(t, err)
	require.NoError(t, s.Patch(ctx, types.KindCard, doc.ID, map[string]any{"title": "B"}))

	inner.SetInterceptor(func(context.Context, memstore.Call) error { return remote.Transient(errors.New("reset")) })
	_, err = s.List(ctx, types.KindCard, "1")
	require.Error(t, err)

	ended := spans.Ended()
	require.Len(t, ended, 3)
	assert.Equal(t, "remote.insert", ended[0].Name())
	assert.Equal(t, "remote.list", ended[2].Name())

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					totals[m.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(3), totals["kb.remote.operations"])
	assert.Equal(t, int64(1), totals["kb.remote.errors"])
}
