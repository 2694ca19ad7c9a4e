package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sony/gobreaker"

	"github.com/aristath/rgate/internal/backend"
	"github.com/aristath/rgate/internal/events"
)

// Outcome classifies a benchmark run.
type Outcome int

const (
	OutcomePassed      Outcome = iota // Exit code 0
	OutcomeFailed                     // Ran and exited non-zero, or could not be launched
	OutcomeNotFound                   // Id could not be resolved
	OutcomeUnavailable                // Skipped because the backend kept failing to launch
)

func (o Outcome) String() string {
	switch o {
	case OutcomePassed:
		return "passed"
	case OutcomeFailed:
		return "failed"
	case OutcomeNotFound:
		return "not-found"
	case OutcomeUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Run is the result of one benchmark id.
type Run struct {
	ID       string
	Backend  backend.Kind
	Path     string
	Outcome  Outcome
	ExitCode int
	Message  string
	Duration time.Duration
}

// Options control a dispatch.
type Options struct {
	// FailFast stops at the first non-zero exit.
	FailFast bool

	// PathOnly prints each resolved path instead of running it.
	PathOnly bool
}

// Dispatcher runs benchmarks one at a time against a single backend.
type Dispatcher struct {
	resolver Resolver
	backend  backend.Backend
	out      io.Writer
	bus      events.Publisher
	breaker  *gobreaker.CircuitBreaker
	now      func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithOutput sets where headlines, failure lines and benchmark output go.
func WithOutput(w io.Writer) Option {
	return func(d *Dispatcher) { d.out = w }
}

// WithEventBus publishes benchmark events to p.
func WithEventBus(p events.Publisher) Option {
	return func(d *Dispatcher) { d.bus = p }
}

// WithLaunchFailureThreshold sets how many consecutive launch failures mark
// the backend unavailable.
func WithLaunchFailureThreshold(n int) Option {
	return func(d *Dispatcher) { d.breaker = newLaunchBreaker(d.backend.Name(), n) }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher creates a Dispatcher for b.
func NewDispatcher(r Resolver, b backend.Backend, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		resolver: r,
		backend:  b,
		out:      io.Discard,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.breaker == nil {
		d.breaker = newLaunchBreaker(b.Name(), DefaultLaunchFailureThreshold)
	}
	return d
}

// Run dispatches ids in order. Without FailFast every id is attempted once;
// with FailFast the dispatch returns right after the first non-zero exit.
func (d *Dispatcher) Run(ctx context.Context, ids []string, opts Options) *Aggregate {
	agg := &Aggregate{}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			agg.Cancelled = err
			return agg
		}

		run := d.runOne(ctx, id, opts)
		agg.add(run)

		if err := ctx.Err(); err != nil {
			agg.Cancelled = err
			return agg
		}
		if run.ExitCode != 0 && opts.FailFast {
			agg.FailedFast = true
			agg.Message = run.Message
			return agg
		}
	}
	return agg
}

func (d *Dispatcher) runOne(ctx context.Context, id string, opts Options) Run {
	run := Run{ID: id, Backend: d.backend.Kind()}
	start := d.now()

	path, err := d.resolver.Resolve(ctx, id)
	if err != nil {
		run.ExitCode = 1
		if errors.Is(err, ErrNotFound) {
			run.Outcome = OutcomeNotFound
			run.Message = fmt.Sprintf("benchmark %s not found", id)
		} else {
			run.Outcome = OutcomeFailed
			run.Message = fmt.Sprintf("benchmark %s: %v", id, err)
		}
		fmt.Fprintln(d.out, run.Message)
		return d.completed(run, start)
	}
	run.Path = path

	if opts.PathOnly {
		fmt.Fprintln(d.out, path)
		return run
	}

	fmt.Fprintf(d.out, "%s running %s\n", d.backend.Name(), id)
	d.publish(events.BenchmarkStartedEvent{
		ID:        id,
		Backend:   d.backend.Name(),
		Path:      path,
		Timestamp: start,
	})

	res, err := d.breaker.Execute(func() (interface{}, error) {
		return d.backend.Run(ctx, path, d.out)
	})
	switch {
	case err != nil && unavailable(err):
		run.Outcome = OutcomeUnavailable
		run.ExitCode = 1
		run.Message = fmt.Sprintf("benchmark %s skipped: %s unavailable", id, d.backend.Name())
		fmt.Fprintln(d.out, run.Message)
	case err != nil:
		run.Outcome = OutcomeFailed
		run.ExitCode = 1
		run.Message = fmt.Sprintf("benchmark %s failed: %v", id, err)
		fmt.Fprintln(d.out, run.Message)
	default:
		run.ExitCode = res.(backend.Result).ExitCode
		if run.ExitCode != 0 {
			run.Outcome = OutcomeFailed
			run.Message = fmt.Sprintf("benchmark %s failed", id)
			fmt.Fprintln(d.out, run.Message)
		}
	}

	return d.completed(run, start)
}

// completed stamps the duration and publishes the outcome.
func (d *Dispatcher) completed(run Run, start time.Time) Run {
	run.Duration = d.now().Sub(start)
	d.publish(events.BenchmarkCompletedEvent{
		ID:        run.ID,
		Backend:   d.backend.Name(),
		Outcome:   run.Outcome.String(),
		ExitCode:  run.ExitCode,
		Duration:  run.Duration,
		Timestamp: start.Add(run.Duration),
	})
	return run
}

func (d *Dispatcher) publish(e events.Event) {
	if d.bus != nil {
		d.bus.Publish(events.TopicBench, e)
	}
}

// BackendName returns the name of the backend benchmarks run on.
func (d *Dispatcher) BackendName() string {
	return d.backend.Name()
}
