package reconcile

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type metrics struct {
	pending   metric.Int64UpDownCounter
	ops       metric.Int64Counter
	rollbacks metric.Int64Counter
	discarded metric.Int64Counter
}

func newMetrics(m metric.Meter) *metrics {
	pending, _ := m.Int64UpDownCounter("kb.reconcile.pending",
		metric.WithDescription("Remote operations in flight"),
	)
	ops, _ := m.Int64Counter("kb.reconcile.operations",
		metric.WithDescription("Finished remote operations by outcome"),
	)
	rollbacks, _ := m.Int64Counter("kb.reconcile.rollbacks",
		metric.WithDescription("Local mutations undone after a remote failure"),
	)
	discarded, _ := m.Int64Counter("kb.reconcile.discarded",
		metric.WithDescription("Create responses discarded because the entity was gone"),
	)
	return &metrics{pending: pending, ops: ops, rollbacks: rollbacks, discarded: discarded}
}

func opAttrs(op *Operation) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("kb.reconcile.op", op.Op),
		attribute.String("kb.entity.kind", string(op.Kind)),
	)
}

func (x *metrics) started(op *Operation) {
	x.pending.Add(context.Background(), 1, opAttrs(op))
}

func (x *metrics) finished(op *Operation, err error) {
	ctx := context.Background()
	x.pending.Add(ctx, -1, opAttrs(op))
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	x.ops.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kb.reconcile.op", op.Op),
		attribute.String("kb.entity.kind", string(op.Kind)),
		attribute.String("kb.reconcile.outcome", outcome),
	))
}

func (x *metrics) rolledBack(op *Operation) {
	x.rollbacks.Add(context.Background(), 1, opAttrs(op))
}

func (x *metrics) discardedCreate(op *Operation) {
	x.discarded.Add(context.Background(), 1, opAttrs(op))
}
