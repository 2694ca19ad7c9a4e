package suite

import (
	"context"
	"io"

	"github.com/aristath/rgate/internal/backend"
	"github.com/aristath/rgate/internal/bench"
	"github.com/aristath/rgate/internal/events"
)

// BenchOptions selects the backend for a benchmark run.
type BenchOptions struct {
	GnuR     bool
	GnuRPath string // Overrides the configured path when set
	GnuRJIT  bool
}

// Backend returns the benchmark backend selected by opts.
func (s *Suite) Backend(ctx context.Context, opts BenchOptions) (backend.Backend, error) {
	if opts.GnuR {
		path := opts.GnuRPath
		if path == "" {
			path = s.cfg.Bench.GnuRPath
		}
		return backend.New(backend.Config{
			Type:    backend.KindReference,
			Command: path,
			JIT:     opts.GnuRJIT || s.cfg.Bench.GnuRJIT,
		}, s.inv)
	}
	a, err := s.fastR(ctx, s.cfg.Bench.FastRArgs)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Suite) fastR(ctx context.Context, extraArgs []string) (*backend.FastRAdapter, error) {
	cp, err := s.Classpath(ctx, ShellProject)
	if err != nil {
		return nil, err
	}
	return backend.NewFastRAdapter(backend.Config{
		Type:      backend.KindPrimary,
		Command:   s.cfg.Suite.Java,
		SuiteDir:  s.cfg.Suite.Dir,
		Classpath: cp,
		ExtraArgs: extraArgs,
		GOOS:      s.goos,
	}, s.inv)
}

// Resolver returns the helper-program resolver for benchmark ids.
func (s *Suite) Resolver(ctx context.Context) (*bench.HelperResolver, error) {
	cp, err := s.Classpath(ctx, BenchProject)
	if err != nil {
		return nil, err
	}
	return &bench.HelperResolver{
		Java:        s.cfg.Suite.Java,
		Classpath:   cp,
		HelperClass: s.cfg.Bench.HelperClass,
		Inv:         s.inv,
	}, nil
}

// Dispatcher returns a benchmark dispatcher for the selected backend.
func (s *Suite) Dispatcher(ctx context.Context, opts BenchOptions, out io.Writer, bus events.Publisher) (*bench.Dispatcher, error) {
	b, err := s.Backend(ctx, opts)
	if err != nil {
		return nil, err
	}
	r, err := s.Resolver(ctx)
	if err != nil {
		return nil, err
	}

	dopts := []bench.Option{
		bench.WithOutput(out),
		bench.WithLaunchFailureThreshold(s.cfg.Bench.LaunchFailureThreshold),
	}
	if bus != nil {
		dopts = append(dopts, bench.WithEventBus(bus))
	}
	return bench.NewDispatcher(r, b, dopts...), nil
}

// Manifest loads the configured benchmark suites.
func (s *Suite) Manifest() (*bench.Manifest, error) {
	return bench.LoadManifest(s.cfg.Bench.Manifest)
}
