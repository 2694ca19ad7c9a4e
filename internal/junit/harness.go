// Package junit builds and runs the unit test runner invocation for the
// R test suite.
package junit

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/aristath/rgate/internal/backend"
	"github.com/aristath/rgate/internal/directive"
)

// Defaults for the R test suite.
const (
	DefaultRunnerClass          = "com.oracle.mxtool.junit.MxJUnitWrapper"
	DefaultListenerClass        = "com.oracle.truffle.r.test.TestBase$RunListener"
	DefaultSelector             = "com.oracle.truffle.r.test.simple"
	DefaultCompilationThreshold = 100000
)

// Config describes how to launch the test runner.
type Config struct {
	Java                 string
	VMArgs               []string
	Classpath            string
	RunnerClass          string
	ListenerClass        string
	CompilationThreshold int

	// TestSrcDir is where the expected output file lives. It is always
	// passed to the listener.
	TestSrcDir string
	Env        map[string]string
}

// Request is one test run.
type Request struct {
	// Tests is the test selector, e.g. a package name.
	Tests string

	// Residual holds positional arguments left over after flag parsing.
	// Any residual argument is an error.
	Residual []string

	Output directive.Options
}

// Harness runs the test runner through an Invoker.
type Harness struct {
	cfg Config
	inv backend.Invoker
}

// New creates a Harness, filling unset fields of cfg with defaults.
func New(cfg Config, inv backend.Invoker) *Harness {
	if cfg.Java == "" {
		cfg.Java = "java"
	}
	if cfg.RunnerClass == "" {
		cfg.RunnerClass = DefaultRunnerClass
	}
	if cfg.ListenerClass == "" {
		cfg.ListenerClass = DefaultListenerClass
	}
	if cfg.CompilationThreshold == 0 {
		cfg.CompilationThreshold = DefaultCompilationThreshold
	}
	return &Harness{cfg: cfg, inv: inv}
}

// Args returns the runner argv for req. The expected output directory is
// always taken from the harness configuration.
func (h *Harness) Args(req Request) ([]string, error) {
	if err := directive.CheckResidual(req.Residual); err != nil {
		return nil, err
	}
	if req.Tests == "" {
		return nil, &directive.ConfigurationError{Msg: "no tests selected; use --tests"}
	}

	opts := req.Output
	opts.ExpectedDir = h.cfg.TestSrcDir
	d, err := directive.Build(opts)
	if err != nil {
		return nil, err
	}

	args := append([]string{}, h.cfg.VMArgs...)
	args = append(args, "-G:TruffleCompilationThreshold="+strconv.Itoa(h.cfg.CompilationThreshold))
	if h.cfg.Classpath != "" {
		args = append(args, "-cp", h.cfg.Classpath)
	}
	args = append(args, h.cfg.RunnerClass, req.Tests,
		"--runlistener", directive.RunListener(h.cfg.ListenerClass, d))
	return args, nil
}

// Run executes the tests and returns the runner's exit code. A non-zero exit
// is not an error; errors mean the request was invalid or the runner could
// not be launched.
func (h *Harness) Run(ctx context.Context, req Request, out io.Writer) (int, error) {
	args, err := h.Args(req)
	if err != nil {
		return 1, err
	}

	res, err := h.inv.Invoke(ctx, backend.Invocation{
		Name:   h.cfg.Java,
		Args:   args,
		Env:    h.cfg.Env,
		Stdout: out,
		Stderr: out,
	})
	if err != nil {
		return 1, fmt.Errorf("test runner: %w", err)
	}
	return res.ExitCode, nil
}

// ParseArgs parses the test harness command line into a Request. Unparsed
// positional arguments end up in Request.Residual.
func ParseArgs(name string, args []string, stderr io.Writer) (Request, error) {
	var req Request
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&req.Tests, "tests", "", "test selector (package or class)")
	fs.BoolVar(&req.Output.GenExpected, "gen-expected-output", false, "generate/update expected test output file")
	fs.BoolVar(&req.Output.KeepTrailingWhitespace, "keep-trailing-whitespace", false, "keep trailing whitespace in expected test output file")
	fs.BoolVar(&req.Output.CheckExpected, "check-expected-output", false, "check but do not update expected test output file")
	fs.BoolVar(&req.Output.GenExpectedQuiet, "gen-expected-quiet", false, "do not report expected output updates")
	fs.StringVar(&req.Output.GenFastROutput, "gen-fastr-output", "", "generate FastR test output file at `path`")
	fs.StringVar(&req.Output.GenDiffOutput, "gen-diff-output", "", "generate difference test output file at `path`")

	if err := fs.Parse(args); err != nil {
		return Request{}, err
	}
	req.Residual = fs.Args()
	return req, nil
}
