package backend

import (
	"io"
	"time"
)

// Kind identifies which execution engine a backend drives.
type Kind string

const (
	KindPrimary   Kind = "fastr" // Implementation under test
	KindReference Kind = "gnur"  // External oracle
)

// Invocation describes one child process launch.
type Invocation struct {
	Name string   // Executable (looked up on PATH when not absolute)
	Args []string // Arguments, not including Name
	Dir  string   // Working directory (empty = current)

	// Env is overlaid onto the parent environment for this launch only.
	// The parent process environment is never modified.
	Env map[string]string

	// FatalOnNonZero turns a non-zero exit into a *ProcessFailure error.
	// When false, the exit code is only reported in Result.
	FatalOnNonZero bool

	// Stdin is connected to the child when set. Such a child stays in the
	// parent's process group so it can read from the terminal.
	Stdin io.Reader

	// Optional live copies of the child's output. Output is always
	// captured in Result regardless.
	Stdout io.Writer
	Stderr io.Writer
}

// Result is the outcome of a finished child process.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// Config defines the configuration for a benchmark backend.
type Config struct {
	Type      Kind     // KindPrimary or KindReference
	Command   string   // Java launcher (primary) or R executable (reference)
	SuiteDir  string   // Root of the suite checkout, exported as R_HOME
	Classpath string   // Shell classpath (primary only)
	MainClass string   // Shell entry point (primary only)
	VMArgs    []string // JVM arguments (primary only)
	ExtraArgs []string // Arguments placed before "-f <script>"
	JIT       bool     // Enable the reference interpreter's JIT
	GOOS      string   // Target OS for library path selection (default runtime.GOOS)
}
