package queries

import (
	"errors"

	"dispatch/internal/core/domain/model/drop"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

var (
	ErrValidateDropsQueryIsNotConstructed = errors.New(
		"ValidateDropsQuery must be created via NewValidateDropsQuery constructor",
	)
)

// ValidateDropsQuery is a dry run of the structural checks an orchestration
// pass applies to its input. Nothing is clustered or stored.
type ValidateDropsQuery struct {
	drops []*drop.Drop
	guard guard.ConstructorGuard
}

func NewValidateDropsQuery(drops []*drop.Drop) (ValidateDropsQuery, error) {
	if len(drops) == 0 {
		return ValidateDropsQuery{}, errs.NewValueIsRequiredError("drops")
	}

	return ValidateDropsQuery{
		drops: append([]*drop.Drop(nil), drops...),
		guard: guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the query was created through the constructor.
func (q ValidateDropsQuery) Validate() error {
	return q.guard.Validate(ErrValidateDropsQueryIsNotConstructed)
}

func (q ValidateDropsQuery) Drops() []*drop.Drop {
	return q.drops
}

// ValidateDropsQueryResponse lists the issues of every drop in request order.
type ValidateDropsQueryResponse struct {
	Results []services.DropIssues
	Valid   int
	Invalid int
}
