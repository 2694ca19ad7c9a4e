package backend

import (
	"context"
	"fmt"
	"io"
)

// GnuRAdapter implements the Backend interface for the reference R
// interpreter.
type GnuRAdapter struct {
	command   string
	extraArgs []string
	jit       bool
	inv       Invoker
}

// NewGnuRAdapter creates the reference backend. cfg.Command defaults to "R".
func NewGnuRAdapter(cfg Config, inv Invoker) (*GnuRAdapter, error) {
	if inv == nil {
		return nil, fmt.Errorf("gnur backend requires an invoker")
	}

	command := cfg.Command
	if command == "" {
		command = "R"
	}

	return &GnuRAdapter{
		command:   command,
		extraArgs: cfg.ExtraArgs,
		jit:       cfg.JIT,
		inv:       inv,
	}, nil
}

// Name returns "GnuR".
func (g *GnuRAdapter) Name() string { return "GnuR" }

// Kind returns KindReference.
func (g *GnuRAdapter) Kind() Kind { return KindReference }

// Run executes script with `R --slave -f script`.
func (g *GnuRAdapter) Run(ctx context.Context, script string, out io.Writer) (Result, error) {
	return g.inv.Invoke(ctx, Invocation{
		Name:   g.command,
		Args:   g.buildArgs(script),
		Env:    g.env(),
		Stdout: out,
		Stderr: out,
	})
}

func (g *GnuRAdapter) buildArgs(script string) []string {
	args := []string{"--slave"}
	args = append(args, g.extraArgs...)
	return append(args, "-f", script)
}

func (g *GnuRAdapter) env() map[string]string {
	if !g.jit {
		return nil
	}
	return map[string]string{"R_ENABLE_JIT": "3"}
}
