package route

import (
	"errors"
	"fmt"
	"math"
	"time"

	"dispatch/internal/core/domain/model/drop"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
)

var (
	// ErrRouteIsNotConstructed is returned when a Route was not created via NewRoute or RestoreRoute.
	ErrRouteIsNotConstructed = errors.New("Route must be created via NewRoute or RestoreRoute constructor")
)

// Params carries the attributes computed by route assembly.
type Params struct {
	ID                  kernel.UUID
	DropIDs             []kernel.UUID
	TotalOutcome        float64
	TotalWeight         float64
	TotalVolume         float64
	TotalDistanceMeters float64
	TotalDuration       time.Duration
	WindowStart         time.Time
	WindowEnd           time.Time
	ProposedStart       time.Time
	CreatedAt           time.Time
	Tier                drop.ServiceTier
	PriorityScore       float64
	Metadata            Metadata
}

// Route is the aggregate root for an ordered multi-stop assignment.
//
// Route follows these invariants:
//   - Must have a valid unique identifier
//   - Holds at least one stop, each drop at most once, sequences 0..n-1
//   - completedDrops never exceeds totalDrops
//   - Aggregates (outcome, weight, volume, distance, duration) are non-negative
//   - timeWindowEnd is not before timeWindowStart
//   - A driver is present exactly when the status requires one
type Route struct {
	id                  kernel.UUID
	status              Status
	driverID            *kernel.UUID
	stops               []Stop
	completedDrops      int
	totalOutcome        float64
	totalWeight         float64
	totalVolume         float64
	totalDistanceMeters float64
	totalDuration       time.Duration
	windowStart         time.Time
	windowEnd           time.Time
	proposedStart       time.Time
	createdAt           time.Time
	tier                drop.ServiceTier
	priorityScore       float64
	metadata            Metadata
	failureReason       string

	isConstructed bool
}

// NewRoute creates a route in PendingAssignment status with no driver.
//
// Example:
//
//	r, err := route.NewRoute(route.Params{
//	    ID:      kernel.NewUUID(),
//	    DropIDs: []kernel.UUID{first.ID(), second.ID()},
//	    ...
//	})
func NewRoute(p Params) (*Route, error) {
	r := &Route{
		status:        PendingAssignment,
		isConstructed: true,
	}

	if err := r.apply(p); err != nil {
		return nil, err
	}

	return r, nil
}

// RestoreRoute rebuilds a Route from persistence and re-checks every invariant.
func RestoreRoute(p Params, status Status, driverID *kernel.UUID, completedDrops int, failureReason string) (*Route, error) {
	r := &Route{
		status:         status,
		completedDrops: completedDrops,
		failureReason:  failureReason,
		isConstructed:  true,
	}

	if driverID != nil {
		id := *driverID
		r.driverID = &id
	}

	if err := errors.Join(
		r.apply(p),
		status.Validate(),
		status.ValidateCanHaveDriver(driverID != nil),
		r.checkCompleted(completedDrops),
	); err != nil {
		return nil, err
	}

	return r, nil
}

// Validate ensures the Route was created via a constructor.
func (r *Route) Validate() error {
	if r == nil || !r.isConstructed {
		return ErrRouteIsNotConstructed
	}
	return nil
}

func (r *Route) IsEqual(other *Route) bool {
	return other != nil && r.id.IsEqual(other.id)
}

func (r *Route) ID() kernel.UUID {
	return r.id
}

func (r *Route) Status() Status {
	return r.status
}

// DriverID returns the bound driver, nil while pending assignment.
func (r *Route) DriverID() *kernel.UUID {
	if r.driverID == nil {
		return nil
	}
	id := *r.driverID
	return &id
}

// Stops returns a copy of the ordered stops.
func (r *Route) Stops() []Stop {
	return append([]Stop(nil), r.stops...)
}

// DropIDs returns the member drop identifiers in sequence order.
func (r *Route) DropIDs() []kernel.UUID {
	ids := make([]kernel.UUID, len(r.stops))
	for i, s := range r.stops {
		ids[i] = s.dropID
	}
	return ids
}

func (r *Route) TotalDrops() int {
	return len(r.stops)
}

func (r *Route) CompletedDrops() int {
	return r.completedDrops
}

// TotalOutcome is the sum of member drop values.
func (r *Route) TotalOutcome() float64 {
	return r.totalOutcome
}

func (r *Route) TotalWeight() float64 {
	return r.totalWeight
}

func (r *Route) TotalVolume() float64 {
	return r.totalVolume
}

func (r *Route) TotalDistanceMeters() float64 {
	return r.totalDistanceMeters
}

func (r *Route) TotalDuration() time.Duration {
	return r.totalDuration
}

func (r *Route) WindowStart() time.Time {
	return r.windowStart
}

func (r *Route) WindowEnd() time.Time {
	return r.windowEnd
}

func (r *Route) ProposedStart() time.Time {
	return r.proposedStart
}

func (r *Route) CreatedAt() time.Time {
	return r.createdAt
}

// Tier is the dominant service tier of the members.
func (r *Route) Tier() drop.ServiceTier {
	return r.tier
}

func (r *Route) PriorityScore() float64 {
	return r.priorityScore
}

func (r *Route) Metadata() Metadata {
	return r.metadata.clone()
}

func (r *Route) FailureReason() string {
	return r.failureReason
}

// AddWarning appends a warning to the optimization metadata.
func (r *Route) AddWarning(warning string) {
	r.metadata.Warnings = append(r.metadata.Warnings, warning)
}

// AssignDriver binds a driver.
//
// Business rules:
//   - The driver ID must be valid
//   - The route must be PendingAssignment, or Assigned for a reassignment
func (r *Route) AssignDriver(driverID kernel.UUID) error {
	if err := driverID.Validate(); err != nil {
		return err
	}

	newStatus, err := r.status.AssignDriver()
	if err != nil {
		return err
	}

	r.status = newStatus
	r.driverID = &driverID
	return nil
}

// Start marks the route as being driven.
func (r *Route) Start() error {
	newStatus, err := r.status.Start()
	if err != nil {
		return err
	}
	r.status = newStatus
	return nil
}

// CompleteDrop records one delivered stop. The route completes itself when the
// last stop is done.
func (r *Route) CompleteDrop() error {
	if r.status != InProgress {
		return errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to complete a drop", r.status),
		)
	}
	if r.completedDrops >= len(r.stops) {
		return errs.NewValueIsOutOfRangeError("completed drops", r.completedDrops+1, 0, len(r.stops))
	}

	r.completedDrops++
	if r.completedDrops == len(r.stops) {
		newStatus, err := r.status.Complete()
		if err != nil {
			return err
		}
		r.status = newStatus
	}
	return nil
}

// Fail marks the route as failed with a reason. Member drops are released by the caller.
func (r *Route) Fail(reason string) error {
	newStatus, err := r.status.Fail()
	if err != nil {
		return err
	}
	r.status = newStatus
	r.failureReason = reason
	return nil
}

func (r *Route) apply(p Params) error {
	return errors.Join(
		r.setID(p.ID),
		r.setStops(p.DropIDs),
		r.setAggregates(p),
		r.setWindow(p.WindowStart, p.WindowEnd),
		p.Tier.Validate(),
	)
}

func (r *Route) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	r.id = id
	return nil
}

func (r *Route) setStops(dropIDs []kernel.UUID) error {
	if len(dropIDs) == 0 {
		return errs.NewValueIsRequiredError("stops")
	}

	seen := make(map[kernel.UUID]struct{}, len(dropIDs))
	stops := make([]Stop, 0, len(dropIDs))
	for i, id := range dropIDs {
		if err := id.Validate(); err != nil {
			return err
		}
		if _, dup := seen[id]; dup {
			return errs.NewValueIsInvalidErrorWithCause("stops", fmt.Errorf("drop %s appears twice", id))
		}
		seen[id] = struct{}{}
		stops = append(stops, Stop{dropID: id, sequence: i})
	}

	r.stops = stops
	return nil
}

func (r *Route) setAggregates(p Params) error {
	if err := errors.Join(
		nonNegative("total outcome", p.TotalOutcome),
		nonNegative("total weight", p.TotalWeight),
		nonNegative("total volume", p.TotalVolume),
		nonNegative("total distance", p.TotalDistanceMeters),
		nonNegative("total duration", p.TotalDuration.Seconds()),
	); err != nil {
		return err
	}

	r.totalOutcome = p.TotalOutcome
	r.totalWeight = p.TotalWeight
	r.totalVolume = p.TotalVolume
	r.totalDistanceMeters = p.TotalDistanceMeters
	r.totalDuration = p.TotalDuration
	r.proposedStart = p.ProposedStart.UTC()
	r.createdAt = p.CreatedAt.UTC()
	r.tier = p.Tier
	r.priorityScore = p.PriorityScore
	r.metadata = p.Metadata.clone()
	return nil
}

func (r *Route) setWindow(start, end time.Time) error {
	if end.Before(start) {
		return errs.NewValueIsInvalidErrorWithCause(
			"time window",
			fmt.Errorf("end %s is before start %s", end.Format(time.RFC3339), start.Format(time.RFC3339)),
		)
	}
	r.windowStart = start.UTC()
	r.windowEnd = end.UTC()
	return nil
}

func (r *Route) checkCompleted(completed int) error {
	if completed < 0 || completed > len(r.stops) {
		return errs.NewValueIsOutOfRangeError("completed drops", completed, 0, len(r.stops))
	}
	return nil
}

func nonNegative(name string, v float64) error {
	if math.IsNaN(v) || v < 0 {
		return errs.NewValueIsInvalidErrorWithCause(name, fmt.Errorf("%v is negative", v))
	}
	return nil
}
