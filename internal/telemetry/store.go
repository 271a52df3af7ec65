package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/steveyegge/kanbeads/internal/remote"
	"github.com/steveyegge/kanbeads/internal/types"
)

const storeScopeName = "github.com/steveyegge/kanbeads/remote"

// InstrumentedStore wraps a remote.DocumentStore with tracing and
// kb.remote.* metrics.
type InstrumentedStore struct {
	inner  remote.DocumentStore
	tracer trace.Tracer
	ops    metric.Int64Counter
	dur    metric.Float64Histogram
	errs   metric.Int64Counter
}

// WrapDocumentStore returns s decorated with OTel instrumentation. When
// telemetry is disabled, s is returned as-is.
func WrapDocumentStore(s remote.DocumentStore) remote.DocumentStore {
	if !Enabled() {
		return s
	}
	return newInstrumentedStore(s, Meter(storeScopeName), Tracer(storeScopeName))
}

func newInstrumentedStore(s remote.DocumentStore, m metric.Meter, tracer trace.Tracer) *InstrumentedStore {
	ops, _ := m.Int64Counter("kb.remote.operations",
		metric.WithDescription("Total remote store calls"),
	)
	dur, _ := m.Float64Histogram("kb.remote.operation.duration",
		metric.WithDescription("Remote store call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("kb.remote.errors",
		metric.WithDescription("Total failed remote store calls"),
	)
	return &InstrumentedStore{inner: s, tracer: tracer, ops: ops, dur: dur, errs: errs}
}

func (s *InstrumentedStore) op(ctx context.Context, name string, kind types.Kind) (context.Context, trace.Span, time.Time, []attribute.KeyValue) {
	attrs := []attribute.KeyValue{
		attribute.String("kb.remote.operation", name),
		attribute.String("kb.entity.kind", string(kind)),
	}
	ctx, span := s.tracer.Start(ctx, "remote."+name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	s.ops.Add(ctx, 1, metric.WithAttributes(attrs...))
	return ctx, span, time.Now(), attrs
}

func (s *InstrumentedStore) done(ctx context.Context, span trace.Span, start time.Time, err error, attrs []attribute.KeyValue) {
	s.dur.Record(ctx, float64(time.Since(start).Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.errs.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.Bool("kb.remote.transient", remote.IsTransient(err)))...))
	}
	span.End()
}

func (s *InstrumentedStore) Insert(ctx context.Context, kind types.Kind, parentID string, body []byte) (remote.Document, error) {
	ctx, span, t, attrs := s.op(ctx, "insert", kind)
	doc, err := s.inner.Insert(ctx, kind, parentID, body)
	if err == nil {
		span.SetAttributes(attribute.String("kb.entity.id", doc.ID))
	}
	s.done(ctx, span, t, err, attrs)
	return doc, err
}

func (s *InstrumentedStore) Patch(ctx context.Context, kind types.Kind, id string, updates map[string]any) error {
	ctx, span, t, attrs := s.op(ctx, "patch", kind)
	span.SetAttributes(attribute.String("kb.entity.id", id), attribute.Int("kb.update.count", len(updates)))
	err := s.inner.Patch(ctx, kind, id, updates)
	s.done(ctx, span, t, err, attrs)
	return err
}

func (s *InstrumentedStore) Remove(ctx context.Context, kind types.Kind, id string) error {
	ctx, span, t, attrs := s.op(ctx, "remove", kind)
	span.SetAttributes(attribute.String("kb.entity.id", id))
	err := s.inner.Remove(ctx, kind, id)
	s.done(ctx, span, t, err, attrs)
	return err
}

func (s *InstrumentedStore) List(ctx context.Context, kind types.Kind, parentID string) ([]remote.Document, error) {
	ctx, span, t, attrs := s.op(ctx, "list", kind)
	docs, err := s.inner.List(ctx, kind, parentID)
	span.SetAttributes(attribute.Int("kb.result.count", len(docs)))
	s.done(ctx, span, t, err, attrs)
	return docs, err
}

func (s *InstrumentedStore) Close() error {
	return s.inner.Close()
}
