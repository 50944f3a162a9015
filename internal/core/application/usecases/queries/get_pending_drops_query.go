// Package queries contains read-only operations over the dispatch store.
// Handlers read with raw SQL and return flat response structs, bypassing the
// aggregates used by commands.
package queries

import (
	"errors"
	"time"

	"dispatch/internal/core/domain/model/drop"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

// MaxPendingDropsLimit bounds a single pending pool listing.
const MaxPendingDropsLimit = 1000

var (
	ErrGetPendingDropsQueryIsNotConstructed = errors.New(
		"GetPendingDropsQuery must be created via NewGetPendingDropsQuery constructor",
	)
)

// GetPendingDropsQuery lists the drops waiting for the next orchestration pass,
// earliest window first.
//
// Example:
//
//	query, err := NewGetPendingDropsQuery(100)
//	if err != nil {
//	    return err
//	}
//	drops, err := handler.Handle(ctx, query)
type GetPendingDropsQuery struct {
	limit int
	guard guard.ConstructorGuard
}

// NewGetPendingDropsQuery creates the query. limit must lie in [1..MaxPendingDropsLimit].
func NewGetPendingDropsQuery(limit int) (GetPendingDropsQuery, error) {
	if limit < 1 || limit > MaxPendingDropsLimit {
		return GetPendingDropsQuery{}, errs.NewValueIsOutOfRangeError("limit", limit, 1, MaxPendingDropsLimit)
	}

	return GetPendingDropsQuery{limit: limit, guard: guard.NewConstructorGuard()}, nil
}

// Validate ensures the query was created through the constructor.
func (q GetPendingDropsQuery) Validate() error {
	return q.guard.Validate(ErrGetPendingDropsQueryIsNotConstructed)
}

func (q GetPendingDropsQuery) Limit() int {
	return q.limit
}

// GetPendingDropsQueryResponse is one pending drop.
type GetPendingDropsQueryResponse struct {
	ID                kernel.UUID
	Pickup            kernel.Location
	Delivery          kernel.Location
	Earliest          time.Time
	Latest            time.Time
	Weight            float64
	Volume            float64
	Value             float64
	Tier              drop.ServiceTier
	Priority          int
	EstimatedDuration time.Duration
}
