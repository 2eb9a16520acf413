package tracing

// Span names and attribute keys emitted by Observer.
const (
	SpanProcessEvents = "pulse.process_events"
	EventDispatched   = "pulse.event_dispatched"

	AttrBudget    = "pulse.budget"
	AttrPending   = "pulse.pending"
	AttrConsumed  = "pulse.consumed"
	AttrRemaining = "pulse.remaining"
	AttrKind      = "pulse.event.kind"
	AttrDelivered = "pulse.event.delivered"
)
