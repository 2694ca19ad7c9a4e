package bench

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sony/gobreaker"

	"github.com/aristath/rgate/internal/backend"
)

// DefaultLaunchFailureThreshold is the number of consecutive launch
// failures after which the backend is considered unavailable.
const DefaultLaunchFailureThreshold = 3

// newLaunchBreaker creates the circuit breaker guarding backend launches.
// Only failures to start the backend count; a benchmark that runs and
// exits non-zero is a successful launch.
func newLaunchBreaker(name string, threshold int) *gobreaker.CircuitBreaker {
	if threshold <= 0 {
		threshold = DefaultLaunchFailureThreshold
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,         // Don't clear counts automatically
		Timeout:     time.Hour, // A run never waits for half-open
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(threshold)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("WARNING: backend %q breaker: %s -> %s", name, from, to)
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// Don't count user cancellation as backend failure
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return true
			}
			var le *backend.LaunchError
			return !errors.As(err, &le)
		},
	})
}

// unavailable reports whether err came from an open breaker.
func unavailable(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
