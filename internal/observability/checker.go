package observability

import "context"

// Checker defines the contract for any component that reports its health
// in the readiness probe. Implementations must be thread-safe and respect
// the provided context's deadline.
type Checker interface {
	// Name returns the unique identifier of the component (e.g., "redis").
	Name() string
	// Check performs the health verification. Returns nil if healthy.
	Check(ctx context.Context) error
}
