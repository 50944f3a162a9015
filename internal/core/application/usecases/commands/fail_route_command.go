package commands

import (
	"errors"
	"strings"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

var ErrFailRouteCommandIsNotConstructed = errors.New(
	"FailRouteCommand must be created via NewFailRouteCommand constructor",
)

// FailRouteCommand abandons a route and returns its unfinished drops to the
// pending pool so that the next pass can plan them again.
type FailRouteCommand struct { //nolint:recvcheck //using for validation
	routeID kernel.UUID
	reason  string

	guard guard.ConstructorGuard
}

// NewFailRouteCommand requires the route ID and a non-blank reason.
func NewFailRouteCommand(routeID kernel.UUID, reason string) (FailRouteCommand, error) {
	cmd := FailRouteCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setRouteID(routeID),
		cmd.setReason(reason),
	); err != nil {
		return FailRouteCommand{}, err
	}

	return cmd, nil
}

func (c FailRouteCommand) Validate() error {
	return c.guard.Validate(ErrFailRouteCommandIsNotConstructed)
}

func (c FailRouteCommand) RouteID() kernel.UUID {
	return c.routeID
}

func (c FailRouteCommand) Reason() string {
	return c.reason
}

func (c *FailRouteCommand) setRouteID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	c.routeID = id
	return nil
}

func (c *FailRouteCommand) setReason(reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return errs.NewValueIsRequiredError("reason")
	}
	c.reason = reason
	return nil
}
