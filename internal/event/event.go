// Package event provides a queued, budgeted event dispatcher.
//
// Listeners register for an event Kind either persistently or for a single
// firing. Producers queue events, and a driver later calls ProcessEvents with
// a budget that bounds how many queued events one call may deliver. The
// dispatcher is not safe for concurrent use; callers serialize access.
package event

// Kind identifies one event shape and is the dispatch key.
type Kind string

// Event is any value that declares its kind.
// The dispatcher routes on Kind and never inspects other fields.
type Event interface {
	Kind() Kind
}

// Listener receives events of the kinds it was registered for.
// Listener identity is interface equality, so implementations must have a
// comparable dynamic type. Pointer receivers are the usual choice.
type Listener interface {
	OnEvent(evt Event)
}

// FuncListener adapts a plain function to the Listener interface.
// The *FuncListener pointer is the identity used for registration.
type FuncListener struct {
	fn func(Event)
}

// ListenerFunc wraps fn in a FuncListener.
// Each call returns a distinct listener, even for the same fn.
func ListenerFunc(fn func(Event)) *FuncListener {
	return &FuncListener{fn: fn}
}

// OnEvent calls the wrapped function.
func (l *FuncListener) OnEvent(evt Event) {
	if l.fn != nil {
		l.fn(evt)
	}
}

// TypedListener delivers only events whose concrete type is E.
type TypedListener[E Event] struct {
	fn func(E)
}

// Typed wraps a function taking a concrete event type.
// Register it under its own Kind:
//
//	l := event.Typed(func(e events.WaveEnded) { ... })
//	d.AddListener(l.Kind(), l)
func Typed[E Event](fn func(E)) *TypedListener[E] {
	return &TypedListener[E]{fn: fn}
}

// Kind returns the kind declared by the zero value of E.
// E's Kind method must not depend on its fields.
func (l *TypedListener[E]) Kind() Kind {
	var zero E
	return zero.Kind()
}

// OnEvent calls the wrapped function when evt is an E and ignores it otherwise.
func (l *TypedListener[E]) OnEvent(evt Event) {
	e, ok := evt.(E)
	if !ok || l.fn == nil {
		return
	}
	l.fn(e)
}
