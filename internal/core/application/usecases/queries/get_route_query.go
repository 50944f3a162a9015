package queries

import (
	"errors"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/guard"
)

var (
	ErrGetRouteQueryIsNotConstructed = errors.New(
		"GetRouteQuery must be created via NewGetRouteQuery constructor",
	)
)

// GetRouteQuery retrieves one route with its ordered stops.
type GetRouteQuery struct {
	routeID kernel.UUID
	guard   guard.ConstructorGuard
}

func NewGetRouteQuery(routeID kernel.UUID) (GetRouteQuery, error) {
	if err := routeID.Validate(); err != nil {
		return GetRouteQuery{}, err
	}

	return GetRouteQuery{routeID: routeID, guard: guard.NewConstructorGuard()}, nil
}

// Validate ensures the query was created through the constructor.
func (q GetRouteQuery) Validate() error {
	return q.guard.Validate(ErrGetRouteQueryIsNotConstructed)
}

func (q GetRouteQuery) RouteID() kernel.UUID {
	return q.routeID
}

// GetRouteQueryResponse is the detail view of a route.
type GetRouteQueryResponse struct {
	ID                  kernel.UUID
	Status              string
	DriverID            *kernel.UUID
	CompletedDrops      int
	TotalOutcome        float64
	TotalWeight         float64
	TotalVolume         float64
	TotalDistanceMeters float64
	TotalDuration       time.Duration
	WindowStart         time.Time
	WindowEnd           time.Time
	ProposedStart       time.Time
	Tier                string
	PriorityScore       float64
	AlgorithmVersion    string
	Warnings            []string
	FailureReason       string
	CreatedAt           time.Time
	Stops               []RouteStopResponse
}

// RouteStopResponse is one stop of a route. Pickup, Delivery and DropStatus are
// empty when the drop row no longer exists.
type RouteStopResponse struct {
	Sequence   int
	DropID     kernel.UUID
	DropStatus string
	Pickup     *kernel.Location
	Delivery   *kernel.Location
}
