package commands

import (
	"context"
)

// FailRouteCommandHandler marks a route as failed and releases the drops that
// are still only assigned to it. Both changes commit in one transaction.
type FailRouteCommandHandler struct {
	uowFactory UoWFactory
}

func NewFailRouteCommandHandler(uowFactory UoWFactory) FailRouteCommandHandler {
	return FailRouteCommandHandler{
		uowFactory: uowFactory,
	}
}

// Handle returns the number of drops put back into the pending pool.
func (h FailRouteCommandHandler) Handle(ctx context.Context, cmd FailRouteCommand) (int, error) {
	if err := cmd.Validate(); err != nil {
		return 0, err
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	routeRepo := uow.RouteRepository()
	dropRepo := uow.DropRepository()

	r, err := routeRepo.Get(ctx, cmd.RouteID())
	if err != nil {
		return 0, err
	}

	if err = r.Fail(cmd.Reason()); err != nil {
		return 0, err
	}

	if err = routeRepo.Update(ctx, r); err != nil {
		return 0, err
	}

	released, err := dropRepo.ReleaseRoute(ctx, r.ID())
	if err != nil {
		return 0, err
	}

	if err = uow.Commit(ctx); err != nil {
		return 0, err
	}

	return released, nil
}
