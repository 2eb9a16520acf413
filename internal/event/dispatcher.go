package event

import (
	"fmt"

	"github.com/zjrosen/pulse/internal/log"
)

// Stats holds dispatcher counters.
type Stats struct {
	Queued    uint64 // Events accepted by QueueEvent
	Processed uint64 // Events consumed by ProcessEvents
	Delivered uint64 // Listener invocations
	Discarded uint64 // Consumed events that reached no listener
	Resets    uint64 // RemoveListeners calls
	Pending   int    // Events currently queued
	Listeners int    // Registrations currently held
}

// Dispatcher owns a listener registry and an event queue.
// The zero value is not usable; create one with NewDispatcher.
type Dispatcher struct {
	registry *Registry
	queue    *Queue
	observer Observer
	stats    Stats
}

// NewDispatcher creates a dispatcher with no listeners and an empty queue.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: NewRegistry(),
		queue:    NewQueue(),
		observer: NopObserver{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AddListener registers l for every event of kind until it is removed.
func (d *Dispatcher) AddListener(kind Kind, l Listener) {
	d.add(kind, l, Persistent)
}

// AddListenerOnce registers l for the next event of kind only.
// Registering the same listener again before it fires has no effect.
func (d *Dispatcher) AddListenerOnce(kind Kind, l Listener) {
	d.add(kind, l, Once)
}

func (d *Dispatcher) add(kind Kind, l Listener, mode Mode) {
	if kind == "" || l == nil {
		log.Warn(log.CatDispatch, "ignoring invalid registration", "kind", kind, "mode", mode)
		return
	}
	d.registry.Add(kind, l, mode)
}

// RemoveListener unregisters l for kind, whether persistent or once.
func (d *Dispatcher) RemoveListener(kind Kind, l Listener) {
	if l == nil {
		return
	}
	d.registry.Remove(kind, l)
}

// RemoveListeners clears every registration and every pending event.
// Nothing queued before the call is ever delivered.
func (d *Dispatcher) RemoveListeners() {
	dropped := d.queue.Len()
	listeners := d.registry.Len()

	d.registry.Clear()
	d.queue.Drain()
	d.stats.Resets++

	log.Debug(log.CatDispatch, "dispatcher reset", "listeners", listeners, "dropped", dropped)
}

// HasListener reports whether l is registered for kind in either mode.
func (d *Dispatcher) HasListener(kind Kind, l Listener) bool {
	if l == nil {
		return false
	}
	return d.registry.Has(kind, l)
}

// HasNoActiveListeners reports whether nothing is registered for any kind.
func (d *Dispatcher) HasNoActiveListeners() bool {
	return d.registry.Len() == 0
}

// ListenerCount returns the number of registrations for kind.
func (d *Dispatcher) ListenerCount(kind Kind) int {
	return d.registry.KindLen(kind)
}

// QueueEvent appends evt to the queue. Events with no listeners are accepted
// and discarded when processed. A nil event is ignored.
func (d *Dispatcher) QueueEvent(evt Event) {
	if evt == nil {
		return
	}
	d.queue.Enqueue(evt)
	d.stats.Queued++
}

// QueueSize returns the number of pending events.
func (d *Dispatcher) QueueSize() int {
	return d.queue.Len()
}

// IsQueueEmpty reports whether no events are pending.
func (d *Dispatcher) IsQueueEmpty() bool {
	return d.queue.Len() == 0
}

// ProcessEvents delivers up to budget queued events in FIFO order and returns
// how many were consumed. Events left over stay queued for the next call.
//
// For each event, persistent listeners run first and once listeners second,
// each group in registration order. A once listener is unregistered just
// before it runs. Listeners may register, remove and queue during delivery:
// a listener removed before its turn is skipped, and events queued by a
// listener are eligible within the same call while budget remains.
func (d *Dispatcher) ProcessEvents(budget int) (int, error) {
	if budget < 0 {
		log.Error(log.CatDispatch, "negative processing budget", "budget", budget)
		return 0, fmt.Errorf("%w: %d", ErrInvalidBudget, budget)
	}

	d.observer.ProcessStarted(budget, d.queue.Len())

	consumed := 0
	for consumed < budget {
		evt, ok := d.queue.Dequeue()
		if !ok {
			break
		}
		consumed++
		d.stats.Processed++

		delivered := d.dispatch(evt)
		if delivered == 0 {
			d.stats.Discarded++
		}
		d.observer.EventDispatched(evt, delivered)
	}

	d.observer.ProcessFinished(consumed, d.queue.Len())
	return consumed, nil
}

// dispatch delivers evt to the listeners registered for its kind and returns
// the number of invocations.
func (d *Dispatcher) dispatch(evt Event) int {
	kind := evt.Kind()
	persistent, once := d.registry.Snapshot(kind)

	delivered := 0
	for _, l := range persistent {
		if !d.registry.hasMode(kind, l, Persistent) {
			continue
		}
		l.OnEvent(evt)
		delivered++
	}
	for _, l := range once {
		if !d.registry.removeMode(kind, l, Once) {
			continue
		}
		l.OnEvent(evt)
		delivered++
	}

	d.stats.Delivered += uint64(delivered)
	return delivered
}

// Stats returns a copy of the dispatcher counters.
func (d *Dispatcher) Stats() Stats {
	s := d.stats
	s.Pending = d.queue.Len()
	s.Listeners = d.registry.Len()
	return s
}
