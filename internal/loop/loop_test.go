package loop

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/pulse/internal/event"
	"github.com/zjrosen/pulse/internal/event/events"
)

func queueGames(d *event.Dispatcher, n int) {
	for i := 0; i < n; i++ {
		d.QueueEvent(events.GameEvent{})
	}
}

func TestNew_Validation(t *testing.T) {
	d := event.NewDispatcher()

	tests := []struct {
		name string
		d    *event.Dispatcher
		cfg  Config
	}{
		{"nil dispatcher", nil, Config{Budget: 1, Tick: time.Millisecond}},
		{"negative budget", d, Config{Budget: -1, Tick: time.Millisecond}},
		{"zero tick", d, Config{Budget: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.d, tt.cfg)
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestRun_BudgetPerFrame(t *testing.T) {
	d := event.NewDispatcher()
	queueGames(d, 7)

	var frames []Frame
	l, err := New(d, Config{
		Budget:       3,
		Tick:         time.Millisecond,
		StopWhenIdle: true,
		OnFrame:      func(f Frame) { frames = append(frames, f) },
	})
	require.NoError(t, err)

	sum, err := l.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, Summary{Ticks: 3, Consumed: 7, Remaining: 0}, sum)
	require.Equal(t, []Frame{
		{Number: 1, Consumed: 3, Remaining: 4},
		{Number: 2, Consumed: 3, Remaining: 1},
		{Number: 3, Consumed: 1, Remaining: 0},
	}, frames)
}

func TestRun_MaxTicks(t *testing.T) {
	d := event.NewDispatcher()
	queueGames(d, 10)

	l, err := New(d, Config{Budget: 1, Tick: time.Millisecond, MaxTicks: 4})
	require.NoError(t, err)

	sum, err := l.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, sum.Ticks)
	require.Equal(t, 4, sum.Consumed)
	require.Equal(t, 6, sum.Remaining)
}

func TestRun_EmitTicks(t *testing.T) {
	d := event.NewDispatcher()
	var seen []uint64
	tick := event.Typed(func(e events.Tick) { seen = append(seen, e.Frame) })
	d.AddListener(tick.Kind(), tick)

	l, err := New(d, Config{Budget: 1, Tick: time.Millisecond, MaxTicks: 3, EmitTicks: true})
	require.NoError(t, err)

	_, err = l.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2, 3}, seen)
}

func TestRun_ContextCancel(t *testing.T) {
	d := event.NewDispatcher()
	l, err := New(d, Config{Budget: 1, Tick: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := l.Run(ctx)
	require.NoError(t, err)
	require.Zero(t, sum.Ticks)
}

func TestPost_RunsOnLoopGoroutine(t *testing.T) {
	d := event.NewDispatcher()
	var received atomic.Int64
	d.AddListener(events.KindGame, event.ListenerFunc(func(event.Event) { received.Add(1) }))

	l, err := New(d, Config{Budget: 10, Tick: time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	result := make(chan Summary, 1)
	go func() {
		sum, _ := l.Run(ctx)
		result <- sum
	}()

	var producers sync.WaitGroup
	for i := 0; i < 5; i++ {
		producers.Add(1)
		go func() {
			defer producers.Done()
			_ = l.Post(ctx, func(d *event.Dispatcher) { queueGames(d, 2) })
		}()
	}
	producers.Wait()

	require.Eventually(t, func() bool { return received.Load() == 10 }, time.Second, 2*time.Millisecond)

	cancel()
	sum := <-result
	require.Equal(t, 10, sum.Consumed)
	require.Zero(t, sum.Remaining)
	require.ErrorIs(t, l.Post(context.Background(), func(*event.Dispatcher) {}), ErrStopped)
}

func TestPost_CancelledContext(t *testing.T) {
	l, err := New(event.NewDispatcher(), Config{Budget: 1, Tick: time.Millisecond})
	require.NoError(t, err)

	for i := 0; i < defaultPostBuffer; i++ {
		require.NoError(t, l.Post(context.Background(), func(*event.Dispatcher) {}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, l.Post(ctx, func(*event.Dispatcher) {}), context.Canceled)
}
