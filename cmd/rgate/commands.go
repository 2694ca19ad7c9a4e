package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/aristath/rgate/internal/bench"
	"github.com/aristath/rgate/internal/directive"
	"github.com/aristath/rgate/internal/events"
	"github.com/aristath/rgate/internal/gate"
	"github.com/aristath/rgate/internal/junit"
	"github.com/aristath/rgate/internal/suite"
	"github.com/aristath/rgate/internal/tui"
)

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func (a *app) gate(ctx context.Context, args []string) (int, error) {
	fs := a.flagSet("gate")
	useTUI := fs.Bool("tui", false, "show a live view of the gate")
	if err := fs.Parse(args); err != nil {
		return 2, nil
	}
	if err := directive.CheckResidual(fs.Args()); err != nil {
		return 2, err
	}

	a.suite.Quiet()
	if *useTUI && !a.canShowTUI() {
		*useTUI = false
	}

	plan := a.suite.Gate()
	defer func() {
		if err := plan.Close(); err != nil {
			log.Printf("WARNING: failed to remove registry snapshot: %v", err)
		}
	}()

	var report *gate.Report
	if *useTUI {
		var err error
		if report, err = a.gateTUI(ctx, plan.Phases); err != nil {
			return 1, err
		}
	} else {
		runner := gate.NewRunner(
			gate.WithOutput(a.stdout),
			gate.WithLogger(log.New(a.stdout, "", 0)),
		)
		report = runner.Run(ctx, plan.Phases)
	}

	// The summary already names the abort error
	report.WriteSummary(a.stdout)
	a.recordGate(ctx, report)

	return report.ExitCode, nil
}

// canShowTUI reports whether stdout can host the live view, warning when
// it cannot.
func (a *app) canShowTUI() bool {
	if a.isTerminal() {
		return true
	}
	log.Printf("WARNING: --tui needs a terminal, using plain output")
	return false
}

// gateTUI runs the gate behind the live view.
func (a *app) gateTUI(ctx context.Context, phases []gate.Phase) (*gate.Report, error) {
	bus := events.NewEventBus()
	var report *gate.Report
	err := a.runTUI(ctx, bus, func(ctx context.Context) {
		report = gate.NewRunner(gate.WithEventBus(bus)).Run(ctx, phases)
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// runTUI shows the live view fed by bus while work runs, and closes bus when
// work returns. Quitting the view cancels work.
func (a *app) runTUI(ctx context.Context, bus *events.EventBus, work func(ctx context.Context)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := tui.New(bus, a.cfg, a.globalPath, a.projectPath)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	done := make(chan struct{})
	go func() {
		defer close(done)
		work(ctx)
		bus.Close()
	}()

	_, err := p.Run()
	failed := err != nil && ctx.Err() == nil
	cancel()
	<-done

	if failed {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

func (a *app) recordGate(ctx context.Context, report *gate.Report) {
	store := a.openHistory(ctx)
	if store == nil {
		return
	}
	defer store.Close()

	// The run context may already be cancelled
	if _, err := store.SaveGateReport(context.WithoutCancel(ctx), report); err != nil {
		log.Printf("WARNING: failed to record gate run: %v", err)
	}
}

// junit runs the unit tests. defaultTests is used when --tests is absent.
func (a *app) junit(ctx context.Context, name string, args []string, defaultTests string) (int, error) {
	req, err := junit.ParseArgs(name, args, a.stderr)
	if err != nil {
		return 2, nil
	}
	if req.Tests == "" {
		req.Tests = defaultTests
	}
	return a.suite.JUnit(ctx, req, a.stdout)
}

func (a *app) testgen(ctx context.Context, args []string) (int, error) {
	req, err := junit.ParseArgs("testgen", args, a.stderr)
	if err != nil {
		return 2, nil
	}
	return 0, a.suite.TestGen(ctx, req, a.stdout)
}

func (a *app) rbench(ctx context.Context, args []string) (int, error) {
	fs := a.flagSet("rbench")
	var (
		opts      bench.Options
		benchOpts suite.BenchOptions
		suiteName string
		useTUI    bool
	)
	fs.BoolVar(&opts.PathOnly, "path", false, "print path to benchmark")
	fs.BoolVar(&benchOpts.GnuR, "gnur", false, "run under GnuR")
	fs.StringVar(&benchOpts.GnuRPath, "gnur-path", "", "specify `path` to GnuR")
	fs.BoolVar(&opts.FailFast, "fail-fast", false, "abort on first failure")
	fs.BoolVar(&benchOpts.GnuRJIT, "gnur-jit", false, "enable GnuR JIT")
	fs.StringVar(&suiteName, "suite", "", "run the benchmarks of a manifest `suite`")
	fs.BoolVar(&useTUI, "tui", false, "show a live view of the benchmarks")
	if err := fs.Parse(args); err != nil {
		return 2, nil
	}

	manifest, err := a.suite.Manifest()
	if err != nil {
		return 1, err
	}
	ids, err := manifest.Expand(fs.Args())
	if err != nil {
		return 2, err
	}
	if suiteName != "" {
		suiteIDs, err := manifest.Suite(suiteName)
		if err != nil {
			return 2, err
		}
		ids = append(suiteIDs, ids...)
	}
	if len(ids) == 0 {
		fmt.Fprintf(a.stderr, "no benchmarks given; suites: %s\n", strings.Join(manifest.Names(), ", "))
		return 2, nil
	}

	if useTUI && (opts.PathOnly || !a.canShowTUI()) {
		useTUI = false
	}
	return a.dispatch(ctx, ids, benchOpts, opts, useTUI)
}

func (a *app) rbcheck(ctx context.Context, args []string) (int, error) {
	fs := a.flagSet("rbcheck")
	var opts suite.RBCheckOptions
	fs.BoolVar(&opts.CheckInternal, "check-internal", false, "check .Internal functions")
	fs.BoolVar(&opts.UnknownToGnuR, "unknown-to-gnur", false, "list builtins not in GnuR FUNCTAB")
	fs.BoolVar(&opts.Todo, "todo", false, "show unimplemented")
	fs.BoolVar(&opts.NoEvalArgs, "no-eval-args", false, "list functions that do not evaluate their args")
	fs.BoolVar(&opts.Visibility, "visibility", false, "list visibility specification")
	fs.StringVar(&opts.PrintGnuRFunctions, "printGnuRFunctions", "", "ask GnuR to print the value of `functions`")
	if err := fs.Parse(args); err != nil {
		return 2, nil
	}
	if err := directive.CheckResidual(fs.Args()); err != nil {
		return 2, err
	}
	return 0, a.suite.RBCheck(ctx, opts, a.stdout)
}

// bench runs the default suite on FastR.
func (a *app) bench(ctx context.Context, args []string) (int, error) {
	if err := directive.CheckResidual(args); err != nil {
		return 2, err
	}
	a.suite.Quiet()

	manifest, err := a.suite.Manifest()
	if err != nil {
		return 1, err
	}
	ids, err := manifest.Suite(bench.DefaultSuiteName)
	if err != nil {
		return 1, err
	}
	return a.dispatch(ctx, ids, suite.BenchOptions{}, bench.Options{}, false)
}

func (a *app) dispatch(ctx context.Context, ids []string, benchOpts suite.BenchOptions, opts bench.Options, useTUI bool) (int, error) {
	var (
		bus *events.EventBus
		pub events.Publisher
		out = a.stdout
	)
	if useTUI {
		bus = events.NewEventBus()
		pub = bus
		out = io.Discard
	}

	d, err := a.suite.Dispatcher(ctx, benchOpts, out, pub)
	if err != nil {
		return 1, err
	}

	start := time.Now()
	var agg *bench.Aggregate
	if useTUI {
		err := a.runTUI(ctx, bus, func(ctx context.Context) {
			agg = d.Run(ctx, ids, opts)
		})
		if err != nil {
			return 1, err
		}
		// The live view is gone; repeat the failures on the terminal
		for _, run := range agg.Runs {
			if run.Message != "" {
				fmt.Fprintln(a.stdout, run.Message)
			}
		}
	} else {
		agg = d.Run(ctx, ids, opts)
	}
	if !opts.PathOnly {
		a.recordBench(ctx, d.BackendName(), opts, start, agg)
	}

	if err := agg.Err(); err != nil {
		var runErr *bench.RunError
		if errors.As(err, &runErr) {
			return runErr.Failure, err
		}
		return 1, err
	}
	return 0, nil
}

func (a *app) recordBench(ctx context.Context, backendName string, opts bench.Options, start time.Time, agg *bench.Aggregate) {
	store := a.openHistory(ctx)
	if store == nil {
		return
	}
	defer store.Close()

	if _, err := store.SaveBenchAggregate(context.WithoutCancel(ctx), backendName, opts, start, agg); err != nil {
		log.Printf("WARNING: failed to record benchmark run: %v", err)
	}
}
