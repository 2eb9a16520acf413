package event

// Observer is notified as ProcessEvents runs.
// Calls happen on the dispatching goroutine, in order.
type Observer interface {
	// ProcessStarted is called once per ProcessEvents call with a valid budget.
	ProcessStarted(budget, pending int)
	// EventDispatched is called after each consumed event with the number of
	// listeners it was delivered to. Zero means the event was discarded.
	EventDispatched(evt Event, delivered int)
	// ProcessFinished is called when the call returns.
	ProcessFinished(consumed, remaining int)
}

// NopObserver ignores all notifications.
type NopObserver struct{}

func (NopObserver) ProcessStarted(int, int) {}

func (NopObserver) EventDispatched(Event, int) {}

func (NopObserver) ProcessFinished(int, int) {}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithObserver sets the observer notified during processing.
// A nil observer restores the no-op default.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		if o == nil {
			o = NopObserver{}
		}
		d.observer = o
	}
}
