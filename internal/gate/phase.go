package gate

import (
	"context"
	"fmt"
	"io"
)

// Phase is one named step of a gate run.
type Phase struct {
	Name string

	// Fatal phases abort the gate on failure. Non-fatal failures are
	// recorded and later phases still run.
	Fatal bool

	// Run performs the step, writing progress to out.
	Run func(ctx context.Context, out io.Writer) error
}

// AbortError is returned in Report.Err when a fatal phase failed or the run
// was cancelled.
type AbortError struct {
	Phase string
	Err   error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("gate aborted in %q: %v", e.Phase, e.Err)
}

func (e *AbortError) Unwrap() error {
	return e.Err
}
