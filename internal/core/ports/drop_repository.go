// Package ports defines the contracts between the dispatch core and its infrastructure:
// persistence, the driver directory, distance estimation and the grouping advisor.
package ports

import (
	"context"

	"dispatch/internal/core/domain/model/drop"
	"dispatch/internal/core/domain/model/kernel"
)

// DropRepository defines the persistence contract for drop aggregates.
type DropRepository interface {
	// Add persists a new drop.
	Add(ctx context.Context, aggregate *drop.Drop) error

	// Get retrieves a drop by identifier.
	// Returns errs.ErrObjectNotFound when the drop does not exist.
	Get(ctx context.Context, id kernel.UUID) (*drop.Drop, error)

	// GetPendingSnapshot returns at most limit drops that are pending and not bound
	// to any route, ordered by time window start and then by ID.
	// Malformed rows are returned as-is so that callers can reject them individually.
	GetPendingSnapshot(ctx context.Context, limit int) ([]*drop.Drop, error)

	// ClaimForRoute binds the given pending drops to routeID. The update is
	// conditional on each drop still being pending and unbound. When any drop was
	// already claimed, it returns *ClaimConflictError listing the lost drops and the
	// caller must roll back the surrounding transaction.
	ClaimForRoute(ctx context.Context, routeID kernel.UUID, dropIDs []kernel.UUID) error

	// ReleaseRoute returns every drop bound to routeID that is still AssignedToRoute
	// to the pending pool and reports how many were released.
	ReleaseRoute(ctx context.Context, routeID kernel.UUID) (int, error)
}
