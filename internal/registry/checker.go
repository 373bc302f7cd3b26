package registry

import (
	"context"

	"github.com/rafaeljc/mimir/internal/observability"
)

// Compile-time check that the registry exposes a readiness checker.
var _ observability.Checker = (*HealthChecker)(nil)

// HealthChecker reports the registry's readiness: the raw datafile store
// must be reachable, since it is the fallback for every memory miss.
type HealthChecker struct {
	svc *Service
}

// NewHealthChecker wraps a registry service for the readiness probe.
func NewHealthChecker(svc *Service) *HealthChecker {
	if svc == nil {
		panic("registry: service cannot be nil")
	}
	return &HealthChecker{svc: svc}
}

// Name implements observability.Checker.
func (c *HealthChecker) Name() string { return "registry" }

// Check implements observability.Checker.
func (c *HealthChecker) Check(ctx context.Context) error {
	return c.svc.l2.HealthCheck(ctx)
}
