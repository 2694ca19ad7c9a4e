package gate

import (
	"fmt"
	"io"
	"time"
)

// Report is the outcome of a gate run.
type Report struct {
	Tasks     []*Task
	StartedAt time.Time
	StoppedAt time.Time

	// ExitCode is 0 when every phase passed. On abort it is the exit code of
	// the failing process, or 1.
	ExitCode int

	// Err is an *AbortError when the run was aborted.
	Err error
}

// Passed reports whether every executed phase passed and the run was not
// aborted.
func (r *Report) Passed() bool {
	return r.ExitCode == 0 && r.Err == nil
}

// Task returns the task named name, if it ran.
func (r *Report) Task(name string) (*Task, bool) {
	for _, t := range r.Tasks {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

func (r *Report) abort(phase string, err error) {
	r.Err = &AbortError{Phase: phase, Err: err}
	r.ExitCode = exitCodeOf(err)
}

func (r *Report) counts() (passed, failed int) {
	for _, t := range r.Tasks {
		switch t.Status {
		case TaskPassed:
			passed++
		case TaskFailed:
			failed++
		}
	}
	return passed, failed
}

// WriteSummary prints the per-task times and the total.
func (r *Report) WriteSummary(w io.Writer) {
	fmt.Fprintln(w, "Gate task times:")
	var total time.Duration
	for _, t := range r.Tasks {
		total += t.Duration()
		mark := ""
		if t.Status == TaskFailed {
			mark = " [FAILED]"
		}
		fmt.Fprintf(w, "  %s\t%s%s\n", formatDuration(t.Duration()), t.Name, mark)
	}
	fmt.Fprintln(w, "  =======")
	fmt.Fprintf(w, "  %s\n", formatDuration(total))
	if r.Err != nil {
		fmt.Fprintf(w, "Error: %v\n", r.Err)
	}
}

// formatDuration renders d as h:mm:ss.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	return fmt.Sprintf("%d:%02d:%02d", h, m, d/time.Second)
}
