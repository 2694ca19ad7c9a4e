package backend

import (
	"context"
	"fmt"
	"io"
)

// Shell entry points of the FastR launcher.
const (
	RCommandClass       = "com.oracle.truffle.r.shell.RCommand"
	RscriptCommandClass = "com.oracle.truffle.r.shell.RscriptCommand"
)

// DefaultVMArgs enables assertions in the JVM running the shell.
var DefaultVMArgs = []string{"-ea", "-esa"}

// FastRAdapter implements the Backend interface for the implementation under
// test. It launches the FastR shell on a JVM.
type FastRAdapter struct {
	java      string
	suiteDir  string
	classpath string
	mainClass string
	vmArgs    []string
	extraArgs []string
	goos      string
	inv       Invoker
}

// NewFastRAdapter creates the primary backend.
func NewFastRAdapter(cfg Config, inv Invoker) (*FastRAdapter, error) {
	if inv == nil {
		return nil, fmt.Errorf("fastr backend requires an invoker")
	}

	java := cfg.Command
	if java == "" {
		java = "java"
	}
	mainClass := cfg.MainClass
	if mainClass == "" {
		mainClass = RCommandClass
	}
	vmArgs := cfg.VMArgs
	if vmArgs == nil {
		vmArgs = DefaultVMArgs
	}

	return &FastRAdapter{
		java:      java,
		suiteDir:  cfg.SuiteDir,
		classpath: cfg.Classpath,
		mainClass: mainClass,
		vmArgs:    vmArgs,
		extraArgs: cfg.ExtraArgs,
		goos:      cfg.GOOS,
		inv:       inv,
	}, nil
}

// Name returns "FastR".
func (a *FastRAdapter) Name() string { return "FastR" }

// Kind returns KindPrimary.
func (a *FastRAdapter) Kind() Kind { return KindPrimary }

// Run executes script with the configured shell class.
func (a *FastRAdapter) Run(ctx context.Context, script string, out io.Writer) (Result, error) {
	args := append(append([]string{}, a.extraArgs...), "-f", script)
	return a.Launch(ctx, a.mainClass, args, out, false)
}

// Launch runs an arbitrary shell class with args, e.g. the interactive R
// command or Rscript. fatal selects whether a non-zero exit is an error.
func (a *FastRAdapter) Launch(ctx context.Context, mainClass string, args []string, out io.Writer, fatal bool) (Result, error) {
	return a.launch(ctx, mainClass, args, nil, out, fatal)
}

// Shell runs a shell class attached to in, for interactive use. A non-zero
// exit is a *ProcessFailure.
func (a *FastRAdapter) Shell(ctx context.Context, mainClass string, args []string, in io.Reader, out io.Writer) (Result, error) {
	return a.launch(ctx, mainClass, args, in, out, true)
}

func (a *FastRAdapter) launch(ctx context.Context, mainClass string, args []string, in io.Reader, out io.Writer, fatal bool) (Result, error) {
	return a.inv.Invoke(ctx, Invocation{
		Name:           a.java,
		Args:           a.buildArgs(mainClass, args),
		Env:            RuntimeEnv(a.goos, a.suiteDir),
		FatalOnNonZero: fatal,
		Stdin:          in,
		Stdout:         out,
		Stderr:         out,
	})
}

// buildArgs constructs the JVM command line for a shell class.
func (a *FastRAdapter) buildArgs(mainClass string, args []string) []string {
	argv := append([]string{}, a.vmArgs...)
	if a.classpath != "" {
		argv = append(argv, "-cp", a.classpath)
	}
	argv = append(argv, mainClass)
	return append(argv, args...)
}
