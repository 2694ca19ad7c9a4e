package backend

import (
	"context"
	"fmt"
	"io"
)

// Backend defines the interface that both benchmark engines implement.
type Backend interface {
	// Name returns the display name used in benchmark headlines.
	Name() string

	// Kind reports whether this is the primary or the reference engine.
	Kind() Kind

	// Run executes an R script. A non-zero exit is reported in Result, not as
	// an error; errors mean the engine could not be launched.
	Run(ctx context.Context, script string, out io.Writer) (Result, error)
}

// New creates a new backend based on the provided configuration.
// This factory function switches on cfg.Type and returns the appropriate adapter.
func New(cfg Config, inv Invoker) (Backend, error) {
	switch cfg.Type {
	case KindPrimary:
		return NewFastRAdapter(cfg, inv)
	case KindReference:
		return NewGnuRAdapter(cfg, inv)
	default:
		return nil, fmt.Errorf("unknown backend type: %s", cfg.Type)
	}
}
