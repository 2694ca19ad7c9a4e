package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aristath/rgate/internal/backend"
	"github.com/aristath/rgate/internal/config"
	"github.com/aristath/rgate/internal/persistence"
	"github.com/aristath/rgate/internal/suite"
)

var version = "dev"

const usage = `usage: rgate <command> [options]

Commands:
  gate [--tui]             run the full gate
  junit [options]          run unit tests (--tests selector)
  junitsimple [options]    run the simple unit tests
  testgen [options]        regenerate expected output and test registries
  rbench [options] ids...  run benchmarks (@suite expands a manifest suite)
  bench                    run the default benchmark suite on FastR
  rbcheck [options]        check FastR builtins against GnuR
  r [args...]              run the FastR shell
  rscript [args...]        run an R script with FastR
  unittest                 show how to run the unit tests
  history [options]        list recorded gate and benchmark runs
  version                  print the version
`

// app holds everything a command needs.
type app struct {
	cfg         *config.RGateConfig
	globalPath  string
	projectPath string
	pm          *backend.ProcessManager
	inv         backend.Invoker
	suite       *suite.Suite
	stdin       io.Reader
	stdout      io.Writer
	stderr      io.Writer
	isTerminal  func() bool
}

func main() {
	// Create signal-aware context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pm := backend.NewProcessManager()

	a, err := newApp(pm, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	code := a.run(ctx, os.Args[1:])

	if ctx.Err() != nil {
		log.Println("Shutdown signal received, cleaning up...")
		if err := pm.KillAll(); err != nil {
			log.Printf("Error killing subprocesses: %v", err)
		}
		if code == 0 {
			code = 130
		}
	}
	stop()
	os.Exit(code)
}

// newApp loads the configuration from the conventional paths.
func newApp(pm *backend.ProcessManager, stdin io.Reader, stdout, stderr io.Writer) (*app, error) {
	globalPath, projectPath, err := config.DefaultPaths()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(globalPath, projectPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	inv := backend.NewExecInvoker(pm)
	return &app{
		cfg:         cfg,
		globalPath:  globalPath,
		projectPath: projectPath,
		pm:          pm,
		inv:         inv,
		suite:       suite.New(cfg, inv),
		stdin:       stdin,
		stdout:      stdout,
		stderr:      stderr,
		isTerminal:  stdoutIsTerminal,
	}, nil
}

// run dispatches args to a command and returns the process exit code.
func (a *app) run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(a.stderr, usage)
		return 2
	}

	cmd, rest := args[0], args[1:]
	var (
		code int
		err  error
	)
	switch cmd {
	case "gate":
		code, err = a.gate(ctx, rest)
	case "junit":
		code, err = a.junit(ctx, cmd, rest, "")
	case "junitsimple":
		code, err = a.junit(ctx, cmd, rest, a.suite.DefaultTests())
	case "testgen":
		code, err = a.testgen(ctx, rest)
	case "rbench":
		code, err = a.rbench(ctx, rest)
	case "bench":
		code, err = a.bench(ctx, rest)
	case "rbcheck":
		code, err = a.rbcheck(ctx, rest)
	case "r":
		err = a.suite.R(ctx, rest, a.stdin, a.stdout)
	case "rscript":
		err = a.suite.Rscript(ctx, rest, a.stdin, a.stdout)
	case "unittest":
		fmt.Fprintln(a.stdout, "use 'junit --tests testclasses' or 'junitsimple' to run FastR unit tests")
	case "history":
		code, err = a.history(ctx, rest)
	case "version":
		fmt.Fprintf(a.stdout, "rgate %s\n", version)
	case "help", "-h", "--help":
		fmt.Fprint(a.stdout, usage)
	default:
		fmt.Fprintf(a.stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	return a.exit(code, err)
}

// exit prints err and picks the exit code. A process failure carries the
// child's exit code.
func (a *app) exit(code int, err error) int {
	if err == nil {
		return code
	}
	fmt.Fprintf(a.stderr, "Error: %v\n", err)
	if c, ok := backend.ExitCode(err); ok && c != 0 {
		return c
	}
	if code != 0 {
		return code
	}
	return 1
}

// openHistory opens the history store, or returns nil when history is
// disabled or unavailable.
func (a *app) openHistory(ctx context.Context) *persistence.SQLiteStore {
	if a.cfg.History.Disabled || a.cfg.History.Path == "" {
		return nil
	}
	store, err := persistence.NewSQLiteStore(ctx, a.cfg.History.Path)
	if err != nil {
		log.Printf("WARNING: run history unavailable: %v", err)
		return nil
	}
	return store
}
