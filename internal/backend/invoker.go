package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// Invoker runs external executables. It is the single seam through which
// every child process of the gate and the benchmark dispatcher is started.
type Invoker interface {
	Invoke(ctx context.Context, inv Invocation) (Result, error)
}

// ProcessFailure reports a child that exited non-zero when the caller asked
// for non-zero exits to be fatal.
type ProcessFailure struct {
	Name     string
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *ProcessFailure) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", commandLine(e.Name, e.Args), e.ExitCode)
	if e.Stderr != "" {
		msg += " (stderr: " + e.Stderr + ")"
	}
	return msg
}

// LaunchError reports a child that could not be started at all.
type LaunchError struct {
	Name string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Name, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// ExitCode returns the process exit code carried by err, and false when err
// does not describe a finished child process.
func ExitCode(err error) (int, bool) {
	var pf *ProcessFailure
	if errors.As(err, &pf) {
		return pf.ExitCode, true
	}
	return 0, false
}

// ExecInvoker is the os/exec implementation of Invoker.
type ExecInvoker struct {
	procMgr *ProcessManager
}

// NewExecInvoker creates an invoker. The ProcessManager is optional - if nil,
// subprocesses won't be tracked for shutdown.
func NewExecInvoker(procMgr *ProcessManager) *ExecInvoker {
	return &ExecInvoker{procMgr: procMgr}
}

// Invoke runs the invocation to completion.
//
// Errors: *LaunchError when the executable could not be started, the context
// error when ctx was cancelled while the child ran, and *ProcessFailure for a
// non-zero exit when inv.FatalOnNonZero is set. Otherwise the exit code is
// only reported in Result.
func (e *ExecInvoker) Invoke(ctx context.Context, inv Invocation) (Result, error) {
	if inv.Name == "" {
		return Result{ExitCode: -1}, fmt.Errorf("invocation has no executable")
	}

	cmd := newCommand(ctx, inv.Name, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Env = Environ(os.Environ(), inv.Env)
	if inv.Stdin != nil {
		cmd.Stdin = inv.Stdin
		cmd.SysProcAttr.Setpgid = false
		cmd.Cancel = func() error { return cmd.Process.Kill() }
	}

	start := time.Now()
	stdout, stderr, err := executeCommand(ctx, cmd, e.procMgr, inv.Stdout, inv.Stderr)
	res := Result{
		Stdout:   stdout,
		Stderr:   stderr,
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			res.ExitCode = -1
			return res, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			res.ExitCode = exitStatus(exitErr)
			return res, fmt.Errorf("%s interrupted: %w", inv.Name, ctxErr)
		}
		res.ExitCode = exitStatus(exitErr)
	}

	if res.ExitCode != 0 && inv.FatalOnNonZero {
		return res, &ProcessFailure{
			Name:     inv.Name,
			Args:     inv.Args,
			ExitCode: res.ExitCode,
			Stderr:   strings.TrimSpace(lastLine(stderr)),
		}
	}

	return res, nil
}

// exitStatus maps a wait error to a positive exit code. Children killed by a
// signal report 128+signal, the shell convention.
func exitStatus(exitErr *exec.ExitError) int {
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal())
	}
	if code := exitErr.ExitCode(); code > 0 {
		return code
	}
	return 1
}

func lastLine(b []byte) string {
	s := strings.TrimRight(string(b), "\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

func commandLine(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}
