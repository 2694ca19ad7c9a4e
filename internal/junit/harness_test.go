package junit

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/rgate/internal/backend"
	"github.com/aristath/rgate/internal/directive"
)

type fakeInvoker struct {
	calls []backend.Invocation
	code  int
	err   error
}

func (f *fakeInvoker) Invoke(ctx context.Context, inv backend.Invocation) (backend.Result, error) {
	f.calls = append(f.calls, inv)
	return backend.Result{ExitCode: f.code}, f.err
}

func newHarness(inv backend.Invoker) *Harness {
	return New(Config{
		Classpath:  "/cp/tests.jar",
		VMArgs:     []string{"-server"},
		TestSrcDir: "/src/test",
	}, inv)
}

func TestArgs_CheckExpected(t *testing.T) {
	h := newHarness(&fakeInvoker{})

	args, err := h.Args(Request{
		Tests:  DefaultSelector,
		Output: directive.Options{CheckExpected: true},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"-server",
		"-G:TruffleCompilationThreshold=100000",
		"-cp", "/cp/tests.jar",
		DefaultRunnerClass,
		DefaultSelector,
		"--runlistener", DefaultListenerClass + ":expected=/src/test,check-expected,gen-expected",
	}, args)
}

func TestArgs_ResidualArguments(t *testing.T) {
	h := newHarness(&fakeInvoker{})

	_, err := h.Args(Request{Tests: DefaultSelector, Residual: []string{"simple", "extra"}})
	require.Error(t, err)

	var ae *directive.ArgumentError
	require.True(t, errors.As(err, &ae))
	assert.Contains(t, err.Error(), "'simple', 'extra'")
}

func TestArgs_RequiresSelector(t *testing.T) {
	h := newHarness(&fakeInvoker{})

	_, err := h.Args(Request{})
	var ce *directive.ConfigurationError
	assert.True(t, errors.As(err, &ce))
}

func TestRun_NonZeroExitIsReturned(t *testing.T) {
	inv := &fakeInvoker{code: 4}
	h := newHarness(inv)

	code, err := h.Run(context.Background(), Request{Tests: DefaultSelector}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 4, code)

	require.Len(t, inv.calls, 1)
	assert.Equal(t, "java", inv.calls[0].Name)
	assert.False(t, inv.calls[0].FatalOnNonZero)
}

func TestRun_InvalidRequestDoesNotInvoke(t *testing.T) {
	inv := &fakeInvoker{}
	h := newHarness(inv)

	code, err := h.Run(context.Background(), Request{Tests: "x", Residual: []string{"y"}}, io.Discard)
	assert.Error(t, err)
	assert.Equal(t, 1, code)
	assert.Empty(t, inv.calls)
}

func TestRun_LaunchError(t *testing.T) {
	inv := &fakeInvoker{err: &backend.LaunchError{Name: "java", Err: errors.New("not found")}}
	h := newHarness(inv)

	_, err := h.Run(context.Background(), Request{Tests: DefaultSelector}, io.Discard)
	var le *backend.LaunchError
	assert.True(t, errors.As(err, &le))
}

func TestParseArgs(t *testing.T) {
	req, err := ParseArgs("junit", []string{
		"--tests", "com.oracle.truffle.r.test.simple",
		"--gen-expected-output",
		"--keep-trailing-whitespace",
		"--gen-diff-output", "/tmp/diff",
		"leftover",
	}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "com.oracle.truffle.r.test.simple", req.Tests)
	assert.True(t, req.Output.GenExpected)
	assert.True(t, req.Output.KeepTrailingWhitespace)
	assert.Equal(t, "/tmp/diff", req.Output.GenDiffOutput)
	assert.Equal(t, []string{"leftover"}, req.Residual)
}

func TestParseArgs_UnknownFlag(t *testing.T) {
	_, err := ParseArgs("junit", []string{"--bogus"}, io.Discard)
	assert.Error(t, err)
}
