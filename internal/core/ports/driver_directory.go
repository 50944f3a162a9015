package ports

import (
	"context"

	"dispatch/internal/core/domain/model/driver"
	"dispatch/internal/core/domain/model/kernel"
)

// DriverDirectory exposes the drivers that can take routes, together with their
// current workload.
type DriverDirectory interface {
	// GetAvailable lists active drivers with their count of assigned or in-progress routes.
	GetAvailable(ctx context.Context) ([]*driver.Driver, error)

	// Get retrieves one active driver with its workload.
	// Returns errs.ErrObjectNotFound for unknown or deactivated drivers.
	Get(ctx context.Context, id kernel.UUID) (*driver.Driver, error)
}
