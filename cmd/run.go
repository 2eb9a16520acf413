package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/pulse/internal/event"
	"github.com/zjrosen/pulse/internal/history"
	"github.com/zjrosen/pulse/internal/log"
	"github.com/zjrosen/pulse/internal/scenario"
	"github.com/zjrosen/pulse/internal/tracing"
	"github.com/zjrosen/pulse/internal/watcher"
)

// ErrScenarioFailed is returned by run when any expectation does not hold.
var ErrScenarioFailed = errors.New("scenario failed")

var runCmd = &cobra.Command{
	Use:   "run <scenario.yaml>...",
	Short: "Replay scenarios and check their expectations",
	Long: `Replay one or more scenario files against a fresh dispatcher each and
report every expectation that does not hold.

Example:
  pulse run testdata/once.yaml
  pulse run 'scenarios/*.yaml' --watch`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScenarios,
}

var (
	runWatch  bool
	runRecord bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVarP(&runWatch, "watch", "w", false,
		"re-run when a scenario file changes")
	runCmd.Flags().BoolVar(&runRecord, "record", false,
		"append results to the history database")
}

// scenarioRun carries what every pass over the scenario files shares.
type scenarioRun struct {
	out    io.Writer
	tracer trace.Tracer
	cache  *scenario.Cache
	store  *history.Store // nil unless --record
	paths  []string
}

func runScenarios(cmd *cobra.Command, args []string) error {
	paths, err := expandArgs(args)
	if err != nil {
		return err
	}

	provider, shutdown, err := newTracing()
	if err != nil {
		return err
	}
	defer shutdown()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sr := &scenarioRun{
		out:    cmd.OutOrStdout(),
		tracer: provider.Tracer(),
		cache:  scenario.NewCache(scenario.DefaultCacheTTL),
		paths:  paths,
	}
	if runRecord {
		store, err := history.Open(cfg.History)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		sr.store = store
	}

	runErr := sr.once(ctx)
	if !runWatch {
		return runErr
	}
	if runErr != nil {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), runErr)
	}

	return sr.watch(ctx, cmd.ErrOrStderr())
}

func (sr *scenarioRun) watch(ctx context.Context, errOut io.Writer) error {
	w, err := watcher.New(watcher.Config{Paths: sr.paths, Debounce: watcher.DefaultDebounce})
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	changes, err := w.Start()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer func() { _ = w.Stop() }()

	_, _ = fmt.Fprintln(errOut, "watching for changes, press Ctrl+C to stop")
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			log.Debug(log.CatWatcher, "scenario files changed, re-running",
				"count", len(sr.paths), "cached", sr.cache.Len())
			if err := sr.once(ctx); err != nil {
				_, _ = fmt.Fprintln(errOut, err)
			}
		}
	}
}

// once loads and runs every scenario, writing a report to out.
// Unchanged files are served from cache.
func (sr *scenarioRun) once(ctx context.Context) error {
	scenarios, err := sr.cache.LoadAll(sr.paths)
	if err != nil {
		return err
	}

	failed := 0
	for _, s := range scenarios {
		runner := scenario.NewRunner(s, event.WithObserver(tracing.NewObserver(ctx, sr.tracer)))
		res := runner.Run()
		writeResult(sr.out, res)
		if !res.Passed() {
			failed++
		}
		if sr.store != nil {
			if _, err := sr.store.Record(res); err != nil {
				return fmt.Errorf("recording %s: %w", res.Name, err)
			}
		}
	}

	_, _ = fmt.Fprintf(sr.out, "\n%d passed, %d failed\n", len(scenarios)-failed, failed)
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrScenarioFailed, failed, len(scenarios))
	}
	return nil
}

func writeResult(out io.Writer, res *scenario.Result) {
	status := "PASS"
	if !res.Passed() {
		status = "FAIL"
	}
	_, _ = fmt.Fprintf(out, "%s  %s (%d steps, %d processed, %d delivered)\n",
		status, res.Name, res.Steps, res.Stats.Processed, res.Stats.Delivered)
	for _, f := range res.Failures {
		_, _ = fmt.Fprintf(out, "      %s\n", f)
	}
}
