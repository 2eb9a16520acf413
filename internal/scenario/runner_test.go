package scenario

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/pulse/internal/event"
	"github.com/zjrosen/pulse/internal/event/events"
)

func TestRunner_Testdata(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := Load(path)
			require.NoError(t, err)

			res := NewRunner(s).Run()
			require.True(t, res.Passed(), "failures: %v", res.Failures)
			require.Equal(t, len(s.Steps), res.Steps)
		})
	}
}

func TestRunner_ReportsFailures(t *testing.T) {
	s, err := Parse([]byte(`
name: wrong
listeners: [{id: a}]
steps:
  - add: {kind: game, listener: a}
  - queue: {kind: game, id: e1}
  - process: 1
  - expect:
      queue_size: 3
      empty: false
      no_listeners: true
      has_listener: [{kind: game, listener: a, want: false}]
      calls: {a: 2}
      received: {a: [e2]}
      processed: 0
  - process: 1
  - expect: {processed: 0}
  - process: -1
  - process: {budget: 1, error: true}
`))
	require.NoError(t, err)

	res := NewRunner(s).Run()

	require.False(t, res.Passed())
	var steps []int
	for _, f := range res.Failures {
		steps = append(steps, f.Step)
	}
	require.Equal(t, []int{3, 3, 3, 3, 3, 3, 3, 6, 7}, steps)
	require.Equal(t, "step 3: queue_size: want 3, got 0", res.Failures[0].Error())
	require.Equal(t, "received[a]: want [e2], got [e1] (-e2 +e1)", res.Failures[5].Message)
	require.Contains(t, res.Failures[7].Message, "invalid processing budget")
	require.Contains(t, res.Failures[8].Message, "expected an error")
}

func TestRunner_RecordsEventIDs(t *testing.T) {
	rec := &Recorder{ID: "r"}
	rec.OnEvent(events.Signal{Tag: "game", ID: "abc"})
	rec.OnEvent(events.GameEvent{})
	require.Equal(t, []string{"abc", "game"}, rec.Received)
}

func TestRunner_CountQueuesDistinctEvents(t *testing.T) {
	s, err := Parse([]byte(`
listeners: [{id: a}]
steps:
  - add: {kind: game, listener: a}
  - queue: {kind: game, count: 3}
  - process: 3
`))
	require.NoError(t, err)

	r := NewRunner(s)
	res := r.Run()
	require.True(t, res.Passed())

	rec, ok := r.Recorder("a")
	require.True(t, ok)
	require.Len(t, rec.Received, 3)
	require.NotEqual(t, rec.Received[0], rec.Received[1])
	require.Equal(t, uint64(3), res.Stats.Delivered)
}

func TestRunner_PrepareSkipsProcessing(t *testing.T) {
	s, err := Parse([]byte(`
listeners: [{id: a}]
steps:
  - add: {kind: game, listener: a, once: true}
  - queue: {kind: game}
  - process: 1
  - expect: {queue_size: 99}
  - queue: {kind: game}
`))
	require.NoError(t, err)

	r := NewRunner(s)
	r.Prepare()

	d := r.Dispatcher()
	require.Equal(t, 2, d.QueueSize())
	require.Equal(t, 1, d.ListenerCount("game"))
}

type countingObserver struct{ calls int }

func (o *countingObserver) ProcessStarted(int, int)          { o.calls++ }
func (o *countingObserver) EventDispatched(event.Event, int) {}
func (o *countingObserver) ProcessFinished(int, int)         {}

func TestRunner_PassesDispatcherOptions(t *testing.T) {
	s, err := Parse([]byte("steps:\n  - process: 1\n  - process: 2\n"))
	require.NoError(t, err)

	obs := &countingObserver{}
	NewRunner(s, event.WithObserver(obs)).Run()
	require.Equal(t, 2, obs.calls)
}
