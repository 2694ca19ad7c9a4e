// Package gate runs an ordered list of named, timed phases with an
// explicit abort policy per phase.
package gate

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/aristath/rgate/internal/backend"
	"github.com/aristath/rgate/internal/events"
)

// Runner executes phases sequentially in declared order.
type Runner struct {
	bus    events.Publisher
	logger *log.Logger
	out    io.Writer
	now    func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithEventBus publishes phase and progress events to p.
func WithEventBus(p events.Publisher) Option {
	return func(r *Runner) { r.bus = p }
}

// WithLogger sets the logger for phase start and stop lines.
func WithLogger(l *log.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithOutput sets where phases write their output. Defaults to io.Discard.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) { r.out = w }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		out: io.Discard,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes phases in order. Every started phase yields exactly one
// stopped Task in the report. A failing fatal phase, or a cancelled
// context, ends the run; the remaining phases are never started.
func (r *Runner) Run(ctx context.Context, phases []Phase) *Report {
	report := &Report{StartedAt: r.now()}
	defer func() { report.StoppedAt = r.now() }()

	for i, phase := range phases {
		if err := ctx.Err(); err != nil {
			report.abort(phase.Name, err)
			r.logf("gate cancelled before %q: %v", phase.Name, err)
			r.progress(report, len(phases), true)
			return report
		}

		task := r.runPhase(ctx, i, phase)
		report.Tasks = append(report.Tasks, task)

		if task.Err != nil {
			if phase.Fatal {
				report.abort(phase.Name, task.Err)
				r.progress(report, len(phases), true)
				return report
			}
			if report.ExitCode == 0 {
				report.ExitCode = exitCodeOf(task.Err)
			}
		}
		r.progress(report, len(phases), false)
	}
	return report
}

// runPhase starts a task, runs the phase and stops the task, converting a
// panic into a phase error.
func (r *Runner) runPhase(ctx context.Context, index int, phase Phase) (task *Task) {
	task = &Task{Name: phase.Name, Fatal: phase.Fatal, StartedAt: r.now()}
	r.logf("Running: %s", phase.Name)
	r.publish(events.TopicPhase, events.PhaseStartedEvent{
		Name:      phase.Name,
		Fatal:     phase.Fatal,
		Index:     index,
		Timestamp: task.StartedAt,
	})

	out := r.out
	var lw *lineWriter
	if r.bus != nil {
		lw = &lineWriter{bus: r.bus, phase: phase.Name, now: r.now}
		out = io.MultiWriter(r.out, lw)
	}

	var err error
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic in phase %q: %v", phase.Name, p)
		}
		if lw != nil {
			lw.flush()
		}
		task.stop(r.now(), err)
		r.finish(task)
	}()

	if phase.Run == nil {
		err = fmt.Errorf("phase %q has no action", phase.Name)
		return task
	}
	err = phase.Run(ctx, out)
	return task
}

// finish logs and publishes a stopped task.
func (r *Runner) finish(task *Task) {
	if task.Err == nil {
		r.logf("%s: passed (%s)", task.Name, formatDuration(task.Duration()))
		r.publish(events.TopicPhase, events.PhaseCompletedEvent{
			Name:      task.Name,
			Duration:  task.Duration(),
			Timestamp: task.StoppedAt,
		})
		return
	}

	r.logf("%s: FAILED (%s): %v", task.Name, formatDuration(task.Duration()), task.Err)
	r.publish(events.TopicPhase, events.PhaseFailedEvent{
		Name:      task.Name,
		Err:       task.Err,
		Fatal:     task.Fatal,
		Duration:  task.Duration(),
		Timestamp: task.StoppedAt,
	})
}

func (r *Runner) progress(report *Report, total int, aborted bool) {
	passed, failed := report.counts()
	r.publish(events.TopicGate, events.GateProgressEvent{
		Total:     total,
		Passed:    passed,
		Failed:    failed,
		Pending:   total - passed - failed,
		Aborted:   aborted,
		Timestamp: r.now(),
	})
}

func (r *Runner) publish(topic string, e events.Event) {
	if r.bus != nil {
		r.bus.Publish(topic, e)
	}
}

func (r *Runner) logf(format string, args ...any) {
	if r.logger != nil {
		r.logger.Printf(format, args...)
	}
}

// exitCodeOf returns the child exit code carried by err, or 1.
func exitCodeOf(err error) int {
	if code, ok := backend.ExitCode(err); ok && code != 0 {
		return code
	}
	return 1
}
