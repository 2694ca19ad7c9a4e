// Package suite wires the gate, test harness and benchmark dispatcher to a
// FastR checkout and its build tool.
package suite

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/aristath/rgate/internal/backend"
	"github.com/aristath/rgate/internal/config"
	"github.com/aristath/rgate/internal/junit"
)

// Projects whose classpaths the suite needs.
const (
	ShellProject = "com.oracle.truffle.r.shell"
	BenchProject = "r.benchmarks"
)

// Suite is a FastR checkout together with the invoker used to run its tools.
type Suite struct {
	cfg   *config.RGateConfig
	inv   backend.Invoker
	goos  string
	quiet bool

	classpaths map[string]string
}

// New creates a Suite from cfg.
func New(cfg *config.RGateConfig, inv backend.Invoker) *Suite {
	goos := cfg.Suite.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	return &Suite{
		cfg:        cfg,
		inv:        inv,
		goos:       goos,
		classpaths: make(map[string]string),
	}
}

// Quiet suppresses the build tool's download progress meter for every
// subsequent build tool invocation.
func (s *Suite) Quiet() {
	s.quiet = true
}

// Dir returns the suite checkout directory.
func (s *Suite) Dir() string {
	return s.cfg.Suite.Dir
}

// TestSrcDir returns the directory holding the expected test output and
// the generated test registries.
func (s *Suite) TestSrcDir() string {
	if s.cfg.Tests.SrcDir != "" {
		return s.cfg.Tests.SrcDir
	}
	tp := s.cfg.Suite.TestProject
	return filepath.Join(s.cfg.Suite.Dir, tp, "src", filepath.FromSlash(strings.ReplaceAll(tp, ".", "/")))
}

// BuildTool runs the build tool with args in the suite directory. A non-zero
// exit is a *backend.ProcessFailure.
func (s *Suite) BuildTool(ctx context.Context, out io.Writer, env map[string]string, args ...string) (backend.Result, error) {
	argv := make([]string, 0, len(args)+1)
	if s.quiet {
		argv = append(argv, "--no-download-progress")
	}
	argv = append(argv, args...)

	return s.inv.Invoke(ctx, backend.Invocation{
		Name:           s.cfg.Suite.BuildTool,
		Args:           argv,
		Dir:            s.cfg.Suite.Dir,
		Env:            env,
		FatalOnNonZero: true,
		Stdout:         out,
		Stderr:         out,
	})
}

// CheckCopyrights runs the copyright header check over the primary suite.
func (s *Suite) CheckCopyrights(ctx context.Context, out io.Writer) error {
	if _, err := s.BuildTool(ctx, out, nil, "checkcopyrights", "--primary"); err != nil {
		return fmt.Errorf("copyright errors: %w", err)
	}
	return nil
}

// Build builds all projects of the suite.
func (s *Suite) Build(ctx context.Context, out io.Writer) error {
	if _, err := s.BuildTool(ctx, out, nil, "build"); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	return nil
}

// NativeBuildEnv returns the environment overlay for the native VM build.
// On Darwin the HotSpot build needs clang and non-fatal compiler warnings.
func (s *Suite) NativeBuildEnv() map[string]string {
	if s.goos != "darwin" {
		return nil
	}
	return map[string]string{
		"COMPILER_WARNINGS_FATAL": "false",
		"USE_CLANG":               "true",
		"LFLAGS":                  "-Xlinker -lstdc++",
	}
}

// BuildNative builds the server VM in product mode.
func (s *Suite) BuildNative(ctx context.Context, out io.Writer) error {
	if _, err := s.BuildTool(ctx, out, s.NativeBuildEnv(), "build", "--vms", "server", "--builds", "product"); err != nil {
		return fmt.Errorf("native build failed: %w", err)
	}
	return nil
}

// Classpath returns the classpath of project. A classpath set in the
// configuration wins; otherwise the build tool is asked once and the answer
// cached.
func (s *Suite) Classpath(ctx context.Context, project string) (string, error) {
	if cp := s.configuredClasspath(project); cp != "" {
		return cp, nil
	}
	if cp, ok := s.classpaths[project]; ok {
		return cp, nil
	}

	res, err := s.BuildTool(ctx, nil, nil, "classpath", project)
	if err != nil {
		return "", fmt.Errorf("resolving classpath of %s: %w", project, err)
	}
	cp := strings.TrimSpace(lastLine(string(res.Stdout)))
	if cp == "" {
		return "", fmt.Errorf("resolving classpath of %s: build tool printed nothing", project)
	}
	s.classpaths[project] = cp
	return cp, nil
}

func (s *Suite) configuredClasspath(project string) string {
	switch project {
	case ShellProject:
		return s.cfg.Suite.ShellClasspath
	case BenchProject:
		return s.cfg.Suite.BenchClasspath
	case s.cfg.Suite.TestProject:
		return s.cfg.Suite.TestClasspath
	}
	return ""
}

// Harness returns the unit test harness for this suite.
func (s *Suite) Harness(ctx context.Context) (*junit.Harness, error) {
	cp, err := s.Classpath(ctx, s.cfg.Suite.TestProject)
	if err != nil {
		return nil, err
	}
	return junit.New(junit.Config{
		Java:                 s.cfg.Suite.Java,
		VMArgs:               s.cfg.Tests.VMArgs,
		Classpath:            cp,
		RunnerClass:          s.cfg.Tests.RunnerClass,
		ListenerClass:        s.cfg.Tests.ListenerClass,
		CompilationThreshold: s.cfg.Tests.CompilationThreshold,
		TestSrcDir:           s.TestSrcDir(),
		Env:                  backend.RuntimeEnv(s.goos, s.cfg.Suite.Dir),
	}, s.inv), nil
}

// JUnit runs the unit tests for req and returns the runner's exit code.
func (s *Suite) JUnit(ctx context.Context, req junit.Request, out io.Writer) (int, error) {
	h, err := s.Harness(ctx)
	if err != nil {
		return 1, err
	}
	return h.Run(ctx, req, out)
}

// DefaultTests returns the default test selector.
func (s *Suite) DefaultTests() string {
	if s.cfg.Tests.Selector != "" {
		return s.cfg.Tests.Selector
	}
	return junit.DefaultSelector
}

// TestGen regenerates the expected test output and the test registries:
// the test project is cleaned and rebuilt, which re-runs the registry
// generator, then the tests run with expected output generation on.
func (s *Suite) TestGen(ctx context.Context, req junit.Request, out io.Writer) error {
	project := []string{"--projects", s.cfg.Suite.TestProject}
	if _, err := s.BuildTool(ctx, out, nil, append([]string{"clean"}, project...)...); err != nil {
		return fmt.Errorf("cleaning test project: %w", err)
	}
	if _, err := s.BuildTool(ctx, out, nil, append([]string{"build"}, project...)...); err != nil {
		return fmt.Errorf("building test project: %w", err)
	}

	req.Tests = s.DefaultTests()
	req.Output.GenExpected = true
	code, err := s.JUnit(ctx, req, out)
	if err != nil {
		return err
	}
	if code != 0 {
		return &backend.ProcessFailure{Name: "unit tests", ExitCode: code}
	}
	return nil
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
