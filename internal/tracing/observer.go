package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/pulse/internal/event"
)

// Observer records one span per ProcessEvents call and one span event per
// dispatched event. It implements event.Observer.
type Observer struct {
	ctx    context.Context
	tracer trace.Tracer
	span   trace.Span
}

var _ event.Observer = (*Observer)(nil)

// NewObserver creates an observer whose spans are children of ctx.
func NewObserver(ctx context.Context, tracer trace.Tracer) *Observer {
	return &Observer{ctx: ctx, tracer: tracer}
}

// ProcessStarted opens the span for a ProcessEvents call.
func (o *Observer) ProcessStarted(budget, pending int) {
	_, o.span = o.tracer.Start(o.ctx, SpanProcessEvents,
		trace.WithAttributes(
			attribute.Int(AttrBudget, budget),
			attribute.Int(AttrPending, pending),
		),
	)
}

// EventDispatched records the event's kind and delivery count on the span.
func (o *Observer) EventDispatched(evt event.Event, delivered int) {
	if o.span == nil {
		return
	}
	o.span.AddEvent(EventDispatched, trace.WithAttributes(
		attribute.String(AttrKind, string(evt.Kind())),
		attribute.Int(AttrDelivered, delivered),
	))
}

// ProcessFinished closes the span.
func (o *Observer) ProcessFinished(consumed, remaining int) {
	if o.span == nil {
		return
	}
	o.span.SetAttributes(
		attribute.Int(AttrConsumed, consumed),
		attribute.Int(AttrRemaining, remaining),
	)
	o.span.End()
	o.span = nil
}
