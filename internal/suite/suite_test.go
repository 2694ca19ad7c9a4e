package suite

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/rgate/internal/autogen"
	"github.com/aristath/rgate/internal/backend"
	"github.com/aristath/rgate/internal/bench"
	"github.com/aristath/rgate/internal/config"
	"github.com/aristath/rgate/internal/events"
	"github.com/aristath/rgate/internal/gate"
	"github.com/aristath/rgate/internal/junit"
)

// scriptedInvoker records invocations and answers them with a hook.
type scriptedInvoker struct {
	calls []backend.Invocation
	hook  func(inv backend.Invocation) (backend.Result, error)
}

func (s *scriptedInvoker) Invoke(ctx context.Context, inv backend.Invocation) (backend.Result, error) {
	s.calls = append(s.calls, inv)
	if s.hook != nil {
		return s.hook(inv)
	}
	return backend.Result{}, nil
}

func (s *scriptedInvoker) argv(i int) string {
	return s.calls[i].Name + " " + strings.Join(s.calls[i].Args, " ")
}

func testConfig(t *testing.T) *config.RGateConfig {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Suite.Dir = t.TempDir()
	cfg.Suite.GOOS = "linux"
	cfg.Suite.ShellClasspath = "/cp/shell"
	cfg.Suite.TestClasspath = "/cp/test"
	cfg.Suite.BenchClasspath = "/cp/bench"
	return cfg
}

func writeRegistries(t *testing.T, s *Suite) {
	t.Helper()
	for _, rel := range []string{"all/AllTests.java", "failing/FailingTests.java"} {
		path := filepath.Join(s.TestSrcDir(), rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("// "+rel+"\n"), 0644))
	}
}

func TestTestSrcDir(t *testing.T) {
	cfg := testConfig(t)
	s := New(cfg, &scriptedInvoker{})

	want := filepath.Join(cfg.Suite.Dir, "com.oracle.truffle.r.test", "src", "com", "oracle", "truffle", "r", "test")
	assert.Equal(t, want, s.TestSrcDir())

	cfg.Tests.SrcDir = "/explicit"
	assert.Equal(t, "/explicit", s.TestSrcDir())
}

func TestQuiet(t *testing.T) {
	inv := &scriptedInvoker{}
	s := New(testConfig(t), inv)

	require.NoError(t, s.Build(context.Background(), io.Discard))
	s.Quiet()
	require.NoError(t, s.Build(context.Background(), io.Discard))

	assert.Equal(t, "mx build", inv.argv(0))
	assert.Equal(t, "mx --no-download-progress build", inv.argv(1))
	assert.True(t, inv.calls[0].FatalOnNonZero)
	assert.Equal(t, s.Dir(), inv.calls[0].Dir)
}

func TestBuildNative_Env(t *testing.T) {
	for _, goos := range []string{"linux", "darwin"} {
		t.Run(goos, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Suite.GOOS = goos
			inv := &scriptedInvoker{}
			s := New(cfg, inv)

			require.NoError(t, s.BuildNative(context.Background(), io.Discard))
			assert.Equal(t, "mx build --vms server --builds product", inv.argv(0))

			env := inv.calls[0].Env
			if goos == "darwin" {
				assert.Equal(t, map[string]string{
					"COMPILER_WARNINGS_FATAL": "false",
					"USE_CLANG":               "true",
					"LFLAGS":                  "-Xlinker -lstdc++",
				}, env)
			} else {
				assert.Empty(t, env)
			}
			_, leaked := os.LookupEnv("USE_CLANG")
			assert.False(t, leaked)
		})
	}
}

func TestCheckCopyrights_Failure(t *testing.T) {
	inv := &scriptedInvoker{hook: func(inv backend.Invocation) (backend.Result, error) {
		return backend.Result{ExitCode: 2}, &backend.ProcessFailure{Name: inv.Name, ExitCode: 2}
	}}
	s := New(testConfig(t), inv)

	err := s.CheckCopyrights(context.Background(), io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copyright errors")
	code, ok := backend.ExitCode(err)
	assert.True(t, ok)
	assert.Equal(t, 2, code)
	assert.Equal(t, "mx checkcopyrights --primary", inv.argv(0))
}

func TestClasspath_QueriedOnceWhenUnset(t *testing.T) {
	cfg := testConfig(t)
	cfg.Suite.TestClasspath = ""
	inv := &scriptedInvoker{hook: func(inv backend.Invocation) (backend.Result, error) {
		return backend.Result{Stdout: []byte("warming up\n/a.jar:/b.jar\n")}, nil
	}}
	s := New(cfg, inv)

	for i := 0; i < 2; i++ {
		cp, err := s.Classpath(context.Background(), "com.oracle.truffle.r.test")
		require.NoError(t, err)
		assert.Equal(t, "/a.jar:/b.jar", cp)
	}
	assert.Len(t, inv.calls, 1)
	assert.Equal(t, "mx classpath com.oracle.truffle.r.test", inv.argv(0))
}

func TestGate_PhaseOrderAndPolicy(t *testing.T) {
	s := New(testConfig(t), &scriptedInvoker{})
	plan := s.Gate()
	defer plan.Close()

	var names []string
	var fatal []bool
	for _, p := range plan.Phases {
		names = append(names, p.Name)
		fatal = append(fatal, p.Fatal)
	}
	assert.Equal(t, []string{
		PhaseCopyright, PhaseAutogenSnapshot, PhaseBuild, PhaseAutogenVerify,
		PhaseNativeBuild, PhaseExpectedOutput, PhaseUnitTests,
	}, names)
	assert.Equal(t, []bool{true, true, true, true, true, true, true}, fatal)
}

func TestGate_Overrides(t *testing.T) {
	cfg := testConfig(t)
	notFatal := false
	cfg.Phases = map[string]config.PhaseOverride{
		PhaseCopyright:   {Skip: true},
		PhaseNativeBuild: {Fatal: &notFatal},
	}
	plan := New(cfg, &scriptedInvoker{}).Gate()

	require.Len(t, plan.Phases, 6)
	assert.Equal(t, PhaseAutogenSnapshot, plan.Phases[0].Name)
	assert.False(t, plan.Phases[3].Fatal, "native build should be downgraded")
}

func TestGate_FullRun(t *testing.T) {
	inv := &scriptedInvoker{}
	s := New(testConfig(t), inv)
	writeRegistries(t, s)
	s.Quiet()

	plan := s.Gate()
	defer plan.Close()
	report := gate.NewRunner().Run(context.Background(), plan.Phases)

	require.True(t, report.Passed(), "gate failed: %v", report.Err)
	assert.Len(t, report.Tasks, 7)

	var argvs []string
	for i := range inv.calls {
		argvs = append(argvs, inv.argv(i))
	}
	require.Len(t, argvs, 5)
	assert.Equal(t, "mx --no-download-progress checkcopyrights --primary", argvs[0])
	assert.Equal(t, "mx --no-download-progress build", argvs[1])
	assert.Equal(t, "mx --no-download-progress build --vms server --builds product", argvs[2])
	assert.Contains(t, argvs[3], "check-expected,gen-expected")
	assert.Contains(t, argvs[3], "-G:TruffleCompilationThreshold=100000")
	assert.NotContains(t, argvs[4], "gen-expected")
	assert.Equal(t, s.Dir(), inv.calls[3].Env["R_HOME"])
}

func TestGate_RegistryDriftAborts(t *testing.T) {
	var s *Suite
	inv := &scriptedInvoker{}
	inv.hook = func(call backend.Invocation) (backend.Result, error) {
		if strings.Join(call.Args, " ") == "build" {
			path := filepath.Join(s.TestSrcDir(), "failing", "FailingTests.java")
			if err := os.WriteFile(path, []byte("// regenerated\n"), 0644); err != nil {
				return backend.Result{}, err
			}
		}
		return backend.Result{}, nil
	}
	s = New(testConfig(t), inv)
	writeRegistries(t, s)

	var snapDir string
	plan := s.Gate()
	phases := plan.Phases
	snapRun := phases[1].Run
	phases[1].Run = func(ctx context.Context, out io.Writer) error {
		var buf bytes.Buffer
		err := snapRun(ctx, io.MultiWriter(out, &buf))
		snapDir = strings.TrimSpace(buf.String()[strings.LastIndex(buf.String(), " ")+1:])
		return err
	}

	report := gate.NewRunner().Run(context.Background(), phases)
	require.NoError(t, plan.Close())

	require.Len(t, report.Tasks, 4)
	assert.NotZero(t, report.ExitCode)

	var oos *autogen.OutOfSyncError
	require.True(t, errors.As(report.Err, &oos), "expected OutOfSyncError, got %v", report.Err)
	assert.Equal(t, []string{"failing/FailingTests.java"}, oos.Files)
	assert.Contains(t, report.Err.Error(), "regenerate with rgate testgen")

	require.NotEmpty(t, snapDir)
	assert.NoDirExists(t, snapDir)
}

func TestGate_CloseReleasesSnapshotAfterAbort(t *testing.T) {
	inv := &scriptedInvoker{hook: func(call backend.Invocation) (backend.Result, error) {
		if strings.Join(call.Args, " ") == "build" {
			return backend.Result{ExitCode: 1}, &backend.ProcessFailure{Name: "mx", ExitCode: 1}
		}
		return backend.Result{}, nil
	}}
	s := New(testConfig(t), inv)
	writeRegistries(t, s)

	plan := s.Gate()
	report := gate.NewRunner().Run(context.Background(), plan.Phases)
	require.Len(t, report.Tasks, 3)

	require.NotNil(t, plan.snap)
	dir := plan.snap.Dir()
	assert.DirExists(t, dir)
	require.NoError(t, plan.Close())
	assert.NoDirExists(t, dir)
}

func TestGate_ExpectedOutputFailureAborts(t *testing.T) {
	inv := &scriptedInvoker{hook: func(call backend.Invocation) (backend.Result, error) {
		if strings.Contains(strings.Join(call.Args, " "), "check-expected") {
			return backend.Result{ExitCode: 3}, nil
		}
		return backend.Result{}, nil
	}}
	s := New(testConfig(t), inv)
	writeRegistries(t, s)

	plan := s.Gate()
	defer plan.Close()
	report := gate.NewRunner().Run(context.Background(), plan.Phases)

	require.Len(t, report.Tasks, 6)
	var abort *gate.AbortError
	require.True(t, errors.As(report.Err, &abort), "expected AbortError, got %v", report.Err)
	assert.Equal(t, PhaseExpectedOutput, abort.Phase)
	assert.Equal(t, 3, report.ExitCode)
}

func TestGate_ExpectedOutputDowngradedByOverride(t *testing.T) {
	cfg := testConfig(t)
	notFatal := false
	cfg.Phases = map[string]config.PhaseOverride{PhaseExpectedOutput: {Fatal: &notFatal}}
	inv := &scriptedInvoker{hook: func(call backend.Invocation) (backend.Result, error) {
		if strings.Contains(strings.Join(call.Args, " "), "check-expected") {
			return backend.Result{ExitCode: 3}, nil
		}
		return backend.Result{}, nil
	}}
	s := New(cfg, inv)
	writeRegistries(t, s)

	plan := s.Gate()
	defer plan.Close()
	report := gate.NewRunner().Run(context.Background(), plan.Phases)

	assert.Len(t, report.Tasks, 7)
	assert.Nil(t, report.Err)
	assert.Equal(t, 3, report.ExitCode)
}

func TestGate_SnapshotCountsDefaultFiles(t *testing.T) {
	cfg := testConfig(t)
	cfg.Autogen.Files = nil
	s := New(cfg, &scriptedInvoker{})
	writeRegistries(t, s)

	plan := s.Gate()
	defer plan.Close()

	var out bytes.Buffer
	require.NoError(t, plan.Phases[1].Run(context.Background(), &out))
	assert.Contains(t, out.String(), "saved 2 registry files to ")
}

func TestTestGen(t *testing.T) {
	inv := &scriptedInvoker{}
	s := New(testConfig(t), inv)

	err := s.TestGen(context.Background(), junit.Request{}, io.Discard)
	require.NoError(t, err)

	require.Len(t, inv.calls, 3)
	assert.Equal(t, "mx clean --projects com.oracle.truffle.r.test", inv.argv(0))
	assert.Equal(t, "mx build --projects com.oracle.truffle.r.test", inv.argv(1))
	assert.Contains(t, inv.argv(2), "com.oracle.truffle.r.test.simple --runlistener")
	assert.True(t, strings.HasSuffix(inv.argv(2), ",gen-expected"))
}

func TestBackend_Selection(t *testing.T) {
	cfg := testConfig(t)
	cfg.Bench.GnuRPath = "/usr/bin/R"
	inv := &scriptedInvoker{}
	s := New(cfg, inv)

	fastr, err := s.Backend(context.Background(), BenchOptions{})
	require.NoError(t, err)
	assert.Equal(t, backend.KindPrimary, fastr.Kind())

	_, err = fastr.Run(context.Background(), "/b/nbody.r", io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "java -ea -esa -cp /cp/shell com.oracle.truffle.r.shell.RCommand --DisableGroupGenerics -f /b/nbody.r", inv.argv(0))

	gnur, err := s.Backend(context.Background(), BenchOptions{GnuR: true, GnuRJIT: true})
	require.NoError(t, err)
	_, err = gnur.Run(context.Background(), "/b/nbody.r", io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/R --slave -f /b/nbody.r", inv.argv(1))
	assert.Equal(t, "3", inv.calls[1].Env["R_ENABLE_JIT"])
}

func TestDispatcher_EndToEnd(t *testing.T) {
	inv := &scriptedInvoker{hook: func(call backend.Invocation) (backend.Result, error) {
		if strings.Contains(strings.Join(call.Args, " "), "RBenchmarks") {
			id := call.Args[len(call.Args)-1]
			if id == "missing" {
				return backend.Result{ExitCode: 1}, nil
			}
			return backend.Result{Stdout: []byte("/bench/" + id + ".r\n")}, nil
		}
		return backend.Result{}, nil
	}}
	s := New(testConfig(t), inv)

	var out bytes.Buffer
	d, err := s.Dispatcher(context.Background(), BenchOptions{GnuR: true}, &out, nil)
	require.NoError(t, err)

	agg := d.Run(context.Background(), []string{"shootout.fasta", "missing"}, bench.Options{})
	assert.Equal(t, 1, agg.NotFound)
	assert.Equal(t, "GnuR running shootout.fasta\nbenchmark missing not found\n", out.String())
	assert.EqualError(t, agg.Err(), "benchmark run failed")
}

func TestDispatcher_PublishesToBus(t *testing.T) {
	inv := &scriptedInvoker{hook: func(call backend.Invocation) (backend.Result, error) {
		if strings.Contains(strings.Join(call.Args, " "), "RBenchmarks") {
			return backend.Result{Stdout: []byte("/bench/x.r\n")}, nil
		}
		return backend.Result{}, nil
	}}
	s := New(testConfig(t), inv)

	bus := events.NewEventBus()
	defer bus.Close()
	ch := bus.Subscribe(events.TopicBench, 8)

	d, err := s.Dispatcher(context.Background(), BenchOptions{}, io.Discard, bus)
	require.NoError(t, err)
	agg := d.Run(context.Background(), []string{"shootout.fasta"}, bench.Options{})
	require.NoError(t, agg.Err())

	require.Len(t, ch, 2)
	assert.Equal(t, events.EventTypeBenchmarkStarted, (<-ch).EventType())
	done := (<-ch).(events.BenchmarkCompletedEvent)
	assert.Equal(t, "shootout.fasta", done.ID)
	assert.Equal(t, "passed", done.Outcome)
}

func TestShell(t *testing.T) {
	inv := &scriptedInvoker{}
	s := New(testConfig(t), inv)

	require.NoError(t, s.Rscript(context.Background(), []string{"script.R"}, nil, io.Discard))
	assert.Equal(t, "java -ea -esa -cp /cp/shell com.oracle.truffle.r.shell.RscriptCommand script.R", inv.argv(0))
	assert.True(t, inv.calls[0].FatalOnNonZero)
}

func writeSource(t *testing.T, s *Suite, rel, body string) string {
	t.Helper()
	path := filepath.Join(s.Dir(), NodesProject, "src", rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestRBCheck(t *testing.T) {
	var listed string
	var listPath string
	inv := &scriptedInvoker{}
	inv.hook = func(call backend.Invocation) (backend.Result, error) {
		listPath = call.Args[len(call.Args)-1]
		data, err := os.ReadFile(listPath)
		if err != nil {
			return backend.Result{}, err
		}
		listed = string(data)
		return backend.Result{}, nil
	}
	s := New(testConfig(t), inv)

	pkg := "package com.oracle.truffle.r.nodes.builtin.base;\n\n"
	unlist := writeSource(t, s, "com/oracle/truffle/r/nodes/builtin/base/Unlist.java",
		pkg+"@RBuiltin(name = \"unlist\", kind = SUBSTITUTE)\npublic abstract class Unlist extends RBuiltinNode {\n}\n")
	ops := writeSource(t, s, "com/oracle/truffle/r/nodes/builtin/base/Ops.java",
		pkg+"public class Ops {\n    @RBuiltin(name = \"+\", kind = PRIMITIVE)\n    public abstract static class Plus extends RBuiltinNode {\n    }\n}\n")
	writeSource(t, s, "com/oracle/truffle/r/nodes/builtin/base/UnlistFactory.java",
		pkg+"@RBuiltin(name = \"unlist\")\npublic final class UnlistFactory {\n}\n")
	writeSource(t, s, "com/oracle/truffle/r/nodes/builtin/base/Helper.java",
		pkg+"public class Helper {\n}\n")

	err := s.RBCheck(context.Background(), RBCheckOptions{Todo: true, PrintGnuRFunctions: "sum"}, io.Discard)
	require.NoError(t, err)

	require.Len(t, inv.calls, 1)
	assert.Equal(t, "java -cp /cp/test "+AnalyzerClass+" --todo --printGnuRFunctions sum "+listPath, inv.argv(0))
	assert.True(t, strings.HasSuffix(listPath, ".classes"))
	assert.Equal(t,
		"com.oracle.truffle.r.nodes.builtin.base.Ops$Plus,"+ops+"\n"+
			"com.oracle.truffle.r.nodes.builtin.base.Unlist,"+unlist+"\n",
		listed)
	assert.NoFileExists(t, listPath)
}

func TestRBCheck_AnalyzerFailure(t *testing.T) {
	inv := &scriptedInvoker{hook: func(call backend.Invocation) (backend.Result, error) {
		return backend.Result{ExitCode: 2}, &backend.ProcessFailure{Name: call.Name, ExitCode: 2}
	}}
	s := New(testConfig(t), inv)
	writeSource(t, s, "Unlist.java", "@RBuiltin(name = \"unlist\")\nclass Unlist {}\n")

	err := s.RBCheck(context.Background(), RBCheckOptions{}, io.Discard)
	require.Error(t, err)
	code, ok := backend.ExitCode(err)
	assert.True(t, ok)
	assert.Equal(t, 2, code)
	assert.True(t, inv.calls[0].FatalOnNonZero)
}
