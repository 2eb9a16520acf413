package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zjrosen/pulse/internal/event"
	"github.com/zjrosen/pulse/internal/log"
	"github.com/zjrosen/pulse/internal/loop"
	"github.com/zjrosen/pulse/internal/scenario"
	"github.com/zjrosen/pulse/internal/tracing"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <scenario.yaml>",
	Short: "Drive a scenario's queue from a frame loop",
	Long: `Register the scenario's listeners and queue its events, then call
process once per tick with a fixed budget until the queue drains or
--max-ticks frames have run. Process and expect steps are skipped.

Example:
  pulse simulate testdata/budget.yaml --budget 2 --tick 10ms`,
	Args: cobra.ExactArgs(1),
	RunE: runSimulate,
}

var (
	simBudget    int
	simTick      time.Duration
	simMaxTicks  int
	simTicks     bool
	simFollowLog bool
)

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().IntVar(&simBudget, "budget", 0, "events processed per tick (overrides config)")
	simulateCmd.Flags().DurationVar(&simTick, "tick", 0, "frame interval (overrides config)")
	simulateCmd.Flags().IntVar(&simMaxTicks, "max-ticks", 0, "stop after this many frames (overrides config)")
	simulateCmd.Flags().BoolVar(&simTicks, "emit-ticks", false, "queue a tick event before every frame")
	simulateCmd.Flags().BoolVar(&simFollowLog, "follow-log", false, "stream log entries to stderr")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	s, err := scenario.Load(args[0])
	if err != nil {
		return err
	}

	lc := loop.Config{
		Budget:       cfg.Budget,
		Tick:         cfg.Tick,
		MaxTicks:     cfg.MaxTicks,
		StopWhenIdle: true,
		EmitTicks:    simTicks,
	}
	if cmd.Flags().Changed("budget") {
		lc.Budget = simBudget
	}
	if cmd.Flags().Changed("tick") {
		lc.Tick = simTick
	}
	if cmd.Flags().Changed("max-ticks") {
		lc.MaxTicks = simMaxTicks
	}

	provider, shutdown, err := newTracing()
	if err != nil {
		return err
	}
	defer shutdown()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if simFollowLog {
		followLog(ctx, cmd.ErrOrStderr())
	}

	runner := scenario.NewRunner(s, event.WithObserver(tracing.NewObserver(ctx, provider.Tracer())))
	runner.Prepare()

	out := cmd.OutOrStdout()
	lc.OnFrame = func(f loop.Frame) {
		_, _ = fmt.Fprintf(out, "frame %d: consumed %d, remaining %d\n", f.Number, f.Consumed, f.Remaining)
	}

	l, err := loop.New(runner.Dispatcher(), lc)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "%s: %d queued, budget %d every %s\n",
		s.Name, runner.Dispatcher().QueueSize(), lc.Budget, lc.Tick)

	sum, err := l.Run(ctx)
	if err != nil {
		return fmt.Errorf("simulating %s: %w", s.Name, err)
	}

	_, _ = fmt.Fprintf(out, "\n%d ticks, %d consumed, %d remaining\n", sum.Ticks, sum.Consumed, sum.Remaining)
	for _, spec := range s.Listeners {
		if rec, ok := runner.Recorder(spec.ID); ok {
			_, _ = fmt.Fprintf(out, "  %s: %d calls\n", spec.ID, len(rec.Received))
		}
	}
	return nil
}

// followLog streams log entries to w until ctx is done. Logging is started
// in memory when --debug was not given.
func followLog(ctx context.Context, w io.Writer) {
	entries := log.NewListener(ctx)
	if entries == nil {
		cleanup := log.InitWriter(io.Discard)
		context.AfterFunc(ctx, cleanup)
		entries = log.NewListener(ctx)
	}

	go func() {
		for e := range entries {
			_, _ = io.WriteString(w, e.Payload)
		}
	}()
}
