package commands

import (
	"errors"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/guard"
)

var ErrAssignRouteDriverCommandIsNotConstructed = errors.New(
	"AssignRouteDriverCommand must be created via NewAssignRouteDriverCommand constructor",
)

// AssignRouteDriverCommand binds a driver to a route that is still waiting for
// one. Without an explicit driver the workload-balancing matcher picks one.
//
// Example:
//
//	cmd, err := NewAssignRouteDriverCommand(routeID, nil)
//	if err != nil {
//	    return err
//	}
//	driverID, err := handler.Handle(ctx, cmd)
type AssignRouteDriverCommand struct { //nolint:recvcheck //using for validation
	routeID  kernel.UUID
	driverID *kernel.UUID

	guard guard.ConstructorGuard
}

// NewAssignRouteDriverCommand validates the identifiers. driverID is optional.
func NewAssignRouteDriverCommand(routeID kernel.UUID, driverID *kernel.UUID) (AssignRouteDriverCommand, error) {
	cmd := AssignRouteDriverCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setRouteID(routeID),
		cmd.setDriverID(driverID),
	); err != nil {
		return AssignRouteDriverCommand{}, err
	}

	return cmd, nil
}

func (c AssignRouteDriverCommand) Validate() error {
	return c.guard.Validate(ErrAssignRouteDriverCommandIsNotConstructed)
}

func (c AssignRouteDriverCommand) RouteID() kernel.UUID {
	return c.routeID
}

// DriverID returns the requested driver, or nil to let the matcher choose.
func (c AssignRouteDriverCommand) DriverID() *kernel.UUID {
	if c.driverID == nil {
		return nil
	}
	id := *c.driverID
	return &id
}

func (c *AssignRouteDriverCommand) setRouteID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	c.routeID = id
	return nil
}

func (c *AssignRouteDriverCommand) setDriverID(id *kernel.UUID) error {
	if id == nil {
		return nil
	}
	if err := id.Validate(); err != nil {
		return err
	}
	cp := *id
	c.driverID = &cp
	return nil
}
