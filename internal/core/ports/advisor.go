package ports

import (
	"context"

	"dispatch/internal/core/domain/model/drop"
	"dispatch/internal/core/domain/model/kernel"
)

// AdvisorService is an optional external suggester of drop groupings.
// Its output is only a hint: every suggested group is re-validated by the
// constraint validator before it can become a route.
type AdvisorService interface {
	SuggestGroupings(ctx context.Context, drops []*drop.Drop) ([][]kernel.UUID, error)
}
