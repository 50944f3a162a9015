package commands

import (
	"context"
	"errors"
	"fmt"

	"dispatch/internal/core/domain/model/driver"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/route"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
)

var (
	ErrNoDriverFound      = errors.New("no available driver found")
	ErrDriverUnavailable  = errors.New("driver is already on an active route")
	ErrRouteNotAssignable = errors.New("route is not waiting for a driver")
)

// AssignRouteDriverCommandHandler binds a driver to a pending_assignment route.
//
// Business rules:
//   - The route must exist and be pending_assignment
//   - An explicitly requested driver must exist and have no active route
//   - Without a requested driver the DriverMatcher picks among idle drivers
type AssignRouteDriverCommandHandler struct {
	uowFactory UoWFactory
	drivers    ports.DriverDirectory
	matcher    services.DriverMatcher
}

func NewAssignRouteDriverCommandHandler(uowFactory UoWFactory, drivers ports.DriverDirectory) AssignRouteDriverCommandHandler {
	return AssignRouteDriverCommandHandler{
		uowFactory: uowFactory,
		drivers:    drivers,
		matcher:    services.NewDriverMatcher(),
	}
}

// Handle returns the ID of the bound driver.
func (h AssignRouteDriverCommandHandler) Handle(ctx context.Context, cmd AssignRouteDriverCommand) (kernel.UUID, error) {
	if err := cmd.Validate(); err != nil {
		return kernel.UUID{}, err
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return kernel.UUID{}, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	routeRepo := uow.RouteRepository()

	r, err := routeRepo.Get(ctx, cmd.RouteID())
	if err != nil {
		return kernel.UUID{}, err
	}
	if r.Status() != route.PendingAssignment {
		return kernel.UUID{}, fmt.Errorf("%w: %s", ErrRouteNotAssignable, r.Status())
	}

	driverID, err := h.pick(ctx, r, cmd.DriverID())
	if err != nil {
		return kernel.UUID{}, err
	}

	if err = r.AssignDriver(driverID); err != nil {
		return kernel.UUID{}, err
	}

	if err = routeRepo.Update(ctx, r); err != nil {
		return kernel.UUID{}, err
	}

	if err = uow.Commit(ctx); err != nil {
		return kernel.UUID{}, err
	}

	return driverID, nil
}

func (h AssignRouteDriverCommandHandler) pick(ctx context.Context, r *route.Route, requested *kernel.UUID) (kernel.UUID, error) {
	if requested != nil {
		d, err := h.drivers.Get(ctx, *requested)
		if err != nil {
			return kernel.UUID{}, err
		}
		if !d.IsAvailable() {
			return kernel.UUID{}, ErrDriverUnavailable
		}
		return d.ID(), nil
	}

	pool, err := h.drivers.GetAvailable(ctx)
	if err != nil {
		return kernel.UUID{}, err
	}

	idle := make([]*driver.Driver, 0, len(pool))
	for _, d := range pool {
		if d.IsAvailable() {
			idle = append(idle, d)
		}
	}

	id := h.matcher.Match(r, idle)
	if id == nil {
		return kernel.UUID{}, ErrNoDriverFound
	}
	return *id, nil
}
