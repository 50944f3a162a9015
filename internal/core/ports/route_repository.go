package ports

import (
	"context"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/route"
)

// RouteRepository defines the persistence contract for route aggregates,
// including their ordered stops.
type RouteRepository interface {
	// Add persists a new route with its stops.
	Add(ctx context.Context, aggregate *route.Route) error

	// Update persists status, driver and progress changes of an existing route.
	Update(ctx context.Context, aggregate *route.Route) error

	// Get retrieves a route with its stops.
	// Returns errs.ErrObjectNotFound when the route does not exist.
	Get(ctx context.Context, id kernel.UUID) (*route.Route, error)
}
