package bench

import (
	"fmt"
)

// Aggregate collects the runs of one dispatch.
type Aggregate struct {
	Runs []Run

	// Failure is the largest exit code observed; 0 means every run passed.
	Failure int

	// NotFound counts unresolved ids. They also contribute exit code 1 to
	// Failure.
	NotFound int

	// Unavailable counts runs skipped by the launch breaker.
	Unavailable int

	// FailedFast is set when FailFast ended the dispatch early; Message is
	// then the failing benchmark's message.
	FailedFast bool
	Message    string

	// Cancelled holds the context error if the dispatch was interrupted.
	Cancelled error
}

func (a *Aggregate) add(run Run) {
	a.Runs = append(a.Runs, run)
	if run.ExitCode > a.Failure {
		a.Failure = run.ExitCode
	}
	switch run.Outcome {
	case OutcomeNotFound:
		a.NotFound++
	case OutcomeUnavailable:
		a.Unavailable++
	}
}

// Passed counts runs that exited 0.
func (a *Aggregate) Passed() int {
	n := 0
	for _, r := range a.Runs {
		if r.Outcome == OutcomePassed {
			n++
		}
	}
	return n
}

// Err returns nil when every run passed, otherwise a *RunError.
func (a *Aggregate) Err() error {
	if a.Cancelled != nil {
		return &RunError{Msg: fmt.Sprintf("benchmark run interrupted: %v", a.Cancelled), Failure: max(a.Failure, 1), cause: a.Cancelled}
	}
	if a.Failure == 0 {
		return nil
	}
	if a.FailedFast {
		return &RunError{Msg: a.Message, Failure: a.Failure}
	}
	return &RunError{Msg: "benchmark run failed", Failure: a.Failure}
}

// RunError reports a failed dispatch. Failure is the exit code to use.
type RunError struct {
	Msg     string
	Failure int
	cause   error
}

func (e *RunError) Error() string {
	return e.Msg
}

func (e *RunError) Unwrap() error {
	return e.cause
}
