package gate

import (
	"time"
)

// TaskStatus represents the state of a gate task.
type TaskStatus int

const (
	TaskRunning TaskStatus = iota // Started, not yet stopped
	TaskPassed                    // Phase returned nil
	TaskFailed                    // Phase returned an error or panicked
)

func (s TaskStatus) String() string {
	switch s {
	case TaskRunning:
		return "running"
	case TaskPassed:
		return "passed"
	case TaskFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Task is the timed record of one executed phase.
type Task struct {
	Name      string
	Fatal     bool
	StartedAt time.Time
	StoppedAt time.Time
	Status    TaskStatus
	Err       error // Error if failed
}

// Duration returns the wall time between start and stop, or zero for a task
// that has not been stopped.
func (t *Task) Duration() time.Duration {
	if t.StoppedAt.IsZero() {
		return 0
	}
	return t.StoppedAt.Sub(t.StartedAt)
}

// Stopped reports whether the task has been stopped.
func (t *Task) Stopped() bool {
	return t.Status != TaskRunning
}

// stop records the outcome. Only the first call has an effect.
func (t *Task) stop(at time.Time, err error) {
	if t.Stopped() {
		return
	}
	t.StoppedAt = at
	t.Err = err
	if err != nil {
		t.Status = TaskFailed
	} else {
		t.Status = TaskPassed
	}
}
