// Package loop drives a dispatcher from a ticker, one ProcessEvents call per
// frame. The loop goroutine is the dispatcher's only user; other goroutines
// reach it through Post.
package loop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zjrosen/pulse/internal/event"
	"github.com/zjrosen/pulse/internal/event/events"
	"github.com/zjrosen/pulse/internal/log"
)

const defaultPostBuffer = 64

var (
	// ErrInvalidConfig is returned by New for a bad Config.
	ErrInvalidConfig = errors.New("invalid loop config")
	// ErrStopped is returned by Post once the loop has exited.
	ErrStopped = errors.New("loop stopped")
)

// Config holds loop settings.
type Config struct {
	// Budget is passed to ProcessEvents every tick.
	Budget int
	// Tick is the interval between frames.
	Tick time.Duration
	// MaxTicks ends the loop after that many frames. Zero means no limit.
	MaxTicks int
	// StopWhenIdle ends the loop after a frame that leaves the queue empty.
	StopWhenIdle bool
	// EmitTicks queues an events.Tick before each frame's processing.
	EmitTicks bool
	// OnFrame, if set, is called on the loop goroutine after each frame.
	OnFrame func(Frame)
}

// Frame describes one completed tick.
type Frame struct {
	Number    uint64
	Consumed  int
	Remaining int
}

// Summary is returned when the loop exits.
type Summary struct {
	Ticks     int
	Consumed  int
	Remaining int
}

// Loop owns a dispatcher and calls ProcessEvents on every tick.
type Loop struct {
	d     *event.Dispatcher
	cfg   Config
	posts chan func(*event.Dispatcher)
	done  chan struct{}
}

// New validates cfg and creates a loop around d.
func New(d *event.Dispatcher, cfg Config) (*Loop, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil dispatcher", ErrInvalidConfig)
	}
	if cfg.Budget < 0 {
		return nil, fmt.Errorf("%w: negative budget %d", ErrInvalidConfig, cfg.Budget)
	}
	if cfg.Tick <= 0 {
		return nil, fmt.Errorf("%w: tick must be positive", ErrInvalidConfig)
	}
	return &Loop{
		d:     d,
		cfg:   cfg,
		posts: make(chan func(*event.Dispatcher), defaultPostBuffer),
		done:  make(chan struct{}),
	}, nil
}

// Post schedules fn to run on the loop goroutine before the next frame.
// It blocks while the post buffer is full.
func (l *Loop) Post(ctx context.Context, fn func(*event.Dispatcher)) error {
	select {
	case <-l.done:
		return ErrStopped
	default:
	}

	select {
	case l.posts <- fn:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run blocks until ctx is cancelled, MaxTicks frames have run, or the queue
// goes idle with StopWhenIdle set. Cancellation is not an error.
// Run must be called at most once.
func (l *Loop) Run(ctx context.Context) (Summary, error) {
	defer close(l.done)

	ticker := time.NewTicker(l.cfg.Tick)
	defer ticker.Stop()

	var sum Summary
	var frame uint64
	for {
		select {
		case <-ctx.Done():
			sum.Remaining = l.d.QueueSize()
			log.Info(log.CatLoop, "loop cancelled", "ticks", sum.Ticks, "remaining", sum.Remaining)
			return sum, nil
		case fn := <-l.posts:
			fn(l.d)
		case <-ticker.C:
			frame++
			l.drainPosts()
			if l.cfg.EmitTicks {
				l.d.QueueEvent(events.Tick{Frame: frame})
			}

			consumed, err := l.d.ProcessEvents(l.cfg.Budget)
			if err != nil {
				return sum, fmt.Errorf("frame %d: %w", frame, err)
			}

			sum.Ticks++
			sum.Consumed += consumed
			sum.Remaining = l.d.QueueSize()
			log.Debug(log.CatLoop, "frame", "n", frame, "consumed", consumed, "remaining", sum.Remaining)

			if l.cfg.OnFrame != nil {
				l.cfg.OnFrame(Frame{Number: frame, Consumed: consumed, Remaining: sum.Remaining})
			}

			if l.cfg.MaxTicks > 0 && sum.Ticks >= l.cfg.MaxTicks {
				return sum, nil
			}
			if l.cfg.StopWhenIdle && sum.Remaining == 0 && len(l.posts) == 0 {
				return sum, nil
			}
		}
	}
}

func (l *Loop) drainPosts() {
	for {
		select {
		case fn := <-l.posts:
			fn(l.d)
		default:
			return
		}
	}
}
