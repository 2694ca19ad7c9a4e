// Package bench resolves benchmark identifiers to R scripts and runs them
// against the primary or reference backend.
package bench

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aristath/rgate/internal/backend"
)

// DefaultHelperClass prints the script path for a benchmark id.
const DefaultHelperClass = "r.benchmarks.RBenchmarks"

// ErrNotFound is returned by a Resolver for an unknown benchmark id.
var ErrNotFound = errors.New("benchmark not found")

// Resolver maps a benchmark id to the path of its script.
type Resolver interface {
	Resolve(ctx context.Context, id string) (string, error)
}

// HelperResolver asks a helper program for the script path. The helper gets
// the id as its only argument and prints the path on stdout; a non-zero exit
// means the id is unknown.
type HelperResolver struct {
	Java        string
	Classpath   string
	HelperClass string
	Inv         backend.Invoker
}

// Resolve runs the helper for id.
func (h *HelperResolver) Resolve(ctx context.Context, id string) (string, error) {
	java := h.Java
	if java == "" {
		java = "java"
	}
	class := h.HelperClass
	if class == "" {
		class = DefaultHelperClass
	}

	var args []string
	if h.Classpath != "" {
		args = append(args, "-cp", h.Classpath)
	}
	args = append(args, class, id)

	res, err := h.Inv.Invoke(ctx, backend.Invocation{Name: java, Args: args})
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", id, err)
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	path := strings.TrimSpace(string(res.Stdout))
	if path == "" {
		return "", fmt.Errorf("%w: %s (helper printed no path)", ErrNotFound, id)
	}
	return path, nil
}

// StaticResolver resolves ids from a fixed map.
type StaticResolver map[string]string

// Resolve returns the mapped path or ErrNotFound.
func (s StaticResolver) Resolve(ctx context.Context, id string) (string, error) {
	if path, ok := s[id]; ok {
		return path, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, id)
}
