package scenario

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/zjrosen/pulse/internal/event"
	"github.com/zjrosen/pulse/internal/event/events"
	"github.com/zjrosen/pulse/internal/log"
)

// Recorder is the listener type scenarios register.
// It records the IDs of the events it receives, in order.
type Recorder struct {
	ID       string
	Received []string
}

// OnEvent implements event.Listener.
func (r *Recorder) OnEvent(evt event.Event) {
	id := string(evt.Kind())
	if sig, ok := evt.(events.Signal); ok && sig.ID != "" {
		id = sig.ID
	}
	r.Received = append(r.Received, id)
}

// Failure is an expectation that did not hold.
type Failure struct {
	Step    int
	Message string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("step %d: %s", f.Step, f.Message)
}

// Result summarizes one scenario run.
type Result struct {
	Name     string
	Path     string
	Steps    int
	Failures []*Failure
	Stats    event.Stats
}

// Passed reports whether every expectation held.
func (r *Result) Passed() bool {
	return len(r.Failures) == 0
}

// Runner replays a scenario against its own dispatcher.
type Runner struct {
	scenario      *Scenario
	dispatcher    *event.Dispatcher
	recorders     map[string]*Recorder
	lastProcessed int
	lastErr       error
}

// NewRunner creates a runner with a fresh dispatcher built from opts.
func NewRunner(s *Scenario, opts ...event.Option) *Runner {
	recorders := make(map[string]*Recorder, len(s.Listeners))
	for _, l := range s.Listeners {
		recorders[l.ID] = &Recorder{ID: l.ID}
	}
	return &Runner{
		scenario:   s,
		dispatcher: event.NewDispatcher(opts...),
		recorders:  recorders,
	}
}

// Dispatcher returns the dispatcher the runner drives.
func (r *Runner) Dispatcher() *event.Dispatcher {
	return r.dispatcher
}

// Recorder returns the recording listener declared with id.
func (r *Runner) Recorder(id string) (*Recorder, bool) {
	rec, ok := r.recorders[id]
	return rec, ok
}

// Run executes every step and returns the result.
func (r *Runner) Run() *Result {
	res := &Result{Name: r.scenario.Name, Path: r.scenario.Path}
	for i, step := range r.scenario.Steps {
		res.Failures = append(res.Failures, r.apply(i, step)...)
		res.Steps++
	}
	res.Stats = r.dispatcher.Stats()

	log.Debug(log.CatScenario, "scenario finished",
		"name", res.Name, "steps", res.Steps, "failures", len(res.Failures))
	return res
}

// Prepare applies only the registration and queue steps, leaving processing
// to an external driver.
func (r *Runner) Prepare() {
	for i, step := range r.scenario.Steps {
		if step.Process != nil || step.Expect != nil {
			continue
		}
		r.apply(i, step)
	}
}

func (r *Runner) apply(i int, step Step) []*Failure {
	d := r.dispatcher
	switch {
	case step.Add != nil:
		rec := r.recorders[step.Add.Listener]
		if step.Add.Once {
			d.AddListenerOnce(step.Add.Kind, rec)
		} else {
			d.AddListener(step.Add.Kind, rec)
		}
	case step.Remove != nil:
		d.RemoveListener(step.Remove.Kind, r.recorders[step.Remove.Listener])
	case step.Reset:
		d.RemoveListeners()
	case step.Queue != nil:
		r.queue(step.Queue)
	case step.Process != nil:
		return r.process(i, step.Process)
	case step.Expect != nil:
		return r.expect(i, step.Expect)
	}
	return nil
}

func (r *Runner) queue(q *QueueSpec) {
	count := max(q.Count, 1)
	for n := 0; n < count; n++ {
		id := q.ID
		if count > 1 || id == "" {
			id = uuid.NewString()
		}
		r.dispatcher.QueueEvent(events.Signal{Tag: q.Kind, ID: id, Data: q.Data})
	}
}

func (r *Runner) process(i int, p *ProcessSpec) []*Failure {
	r.lastProcessed, r.lastErr = r.dispatcher.ProcessEvents(p.Budget)
	switch {
	case p.Error && r.lastErr == nil:
		return []*Failure{{Step: i, Message: fmt.Sprintf("process %d: expected an error", p.Budget)}}
	case p.Error && !errors.Is(r.lastErr, event.ErrInvalidBudget):
		return []*Failure{{Step: i, Message: fmt.Sprintf("process %d: unexpected error %v", p.Budget, r.lastErr)}}
	case !p.Error && r.lastErr != nil:
		return []*Failure{{Step: i, Message: fmt.Sprintf("process %d: %v", p.Budget, r.lastErr)}}
	}
	return nil
}

func (r *Runner) expect(i int, e *Expectation) []*Failure {
	d := r.dispatcher
	var failures []*Failure
	fail := func(format string, args ...any) {
		failures = append(failures, &Failure{Step: i, Message: fmt.Sprintf(format, args...)})
	}

	if e.QueueSize != nil && d.QueueSize() != *e.QueueSize {
		fail("queue_size: want %d, got %d", *e.QueueSize, d.QueueSize())
	}
	if e.Empty != nil && d.IsQueueEmpty() != *e.Empty {
		fail("empty: want %t, got %t", *e.Empty, d.IsQueueEmpty())
	}
	if e.NoListeners != nil && d.HasNoActiveListeners() != *e.NoListeners {
		fail("no_listeners: want %t, got %t", *e.NoListeners, d.HasNoActiveListeners())
	}
	for _, check := range e.HasListener {
		got := d.HasListener(check.Kind, r.recorders[check.Listener])
		if got != check.Want {
			fail("has_listener(%s, %s): want %t, got %t", check.Kind, check.Listener, check.Want, got)
		}
	}
	for _, id := range sortedKeys(e.Calls) {
		if got := len(r.recorders[id].Received); got != e.Calls[id] {
			fail("calls[%s]: want %d, got %d", id, e.Calls[id], got)
		}
	}
	for _, id := range sortedKeys(e.Received) {
		if got := r.recorders[id].Received; !slices.Equal(got, e.Received[id]) {
			fail("received[%s]: want %v, got %v (%s)", id, e.Received[id], got, sequenceDiff(e.Received[id], got))
		}
	}
	if e.Processed != nil && r.lastProcessed != *e.Processed {
		fail("processed: want %d, got %d", *e.Processed, r.lastProcessed)
	}
	return failures
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
