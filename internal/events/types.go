package events

import (
	"time"
)

// Event is the base interface for all events.
type Event interface {
	EventType() string
	// Subject is the phase name or benchmark id the event is about.
	Subject() string
}

// Topic constants
const (
	TopicPhase = "phase"
	TopicGate  = "gate"
	TopicBench = "bench"
)

// Event type constants
const (
	EventTypePhaseStarted       = "phase.started"
	EventTypePhaseOutput        = "phase.output"
	EventTypePhaseCompleted     = "phase.completed"
	EventTypePhaseFailed        = "phase.failed"
	EventTypeGateProgress       = "gate.progress"
	EventTypeBenchmarkStarted   = "bench.started"
	EventTypeBenchmarkCompleted = "bench.completed"
)

// PhaseStartedEvent is published when a gate phase begins.
type PhaseStartedEvent struct {
	Name      string
	Fatal     bool
	Index     int
	Timestamp time.Time
}

func (e PhaseStartedEvent) EventType() string { return EventTypePhaseStarted }
func (e PhaseStartedEvent) Subject() string   { return e.Name }

// PhaseOutputEvent carries one line of a phase's output.
type PhaseOutputEvent struct {
	Name      string
	Line      string
	Timestamp time.Time
}

func (e PhaseOutputEvent) EventType() string { return EventTypePhaseOutput }
func (e PhaseOutputEvent) Subject() string   { return e.Name }

// PhaseCompletedEvent is published when a phase passes.
type PhaseCompletedEvent struct {
	Name      string
	Duration  time.Duration
	Timestamp time.Time
}

func (e PhaseCompletedEvent) EventType() string { return EventTypePhaseCompleted }
func (e PhaseCompletedEvent) Subject() string   { return e.Name }

// PhaseFailedEvent is published when a phase fails. Fatal failures abort
// the gate.
type PhaseFailedEvent struct {
	Name      string
	Err       error
	Fatal     bool
	Duration  time.Duration
	Timestamp time.Time
}

func (e PhaseFailedEvent) EventType() string { return EventTypePhaseFailed }
func (e PhaseFailedEvent) Subject() string   { return e.Name }

// GateProgressEvent is published after every phase.
type GateProgressEvent struct {
	Total     int
	Passed    int
	Failed    int
	Pending   int
	Aborted   bool
	Timestamp time.Time
}

func (e GateProgressEvent) EventType() string { return EventTypeGateProgress }
func (e GateProgressEvent) Subject() string   { return "" }

// BenchmarkStartedEvent is published before a benchmark is launched.
type BenchmarkStartedEvent struct {
	ID        string
	Backend   string
	Path      string
	Timestamp time.Time
}

func (e BenchmarkStartedEvent) EventType() string { return EventTypeBenchmarkStarted }
func (e BenchmarkStartedEvent) Subject() string   { return e.ID }

// BenchmarkCompletedEvent is published with the outcome of one benchmark.
type BenchmarkCompletedEvent struct {
	ID        string
	Backend   string
	Outcome   string
	ExitCode  int
	Duration  time.Duration
	Timestamp time.Time
}

func (e BenchmarkCompletedEvent) EventType() string { return EventTypeBenchmarkCompleted }
func (e BenchmarkCompletedEvent) Subject() string   { return e.ID }
