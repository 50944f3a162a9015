package drop

import (
	"errors"
	"fmt"
	"math"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
)

const (
	// MinPriority is the lowest drop priority.
	MinPriority = 1
	// MaxPriority is the highest drop priority.
	MaxPriority = 10
)

var (
	// ErrDropIsNotConstructed is returned when a Drop was not created through NewDrop or RestoreDrop.
	ErrDropIsNotConstructed = errors.New("Drop must be created via NewDrop or RestoreDrop constructor")
)

// Point is the raw form of a pickup or delivery location as it arrives from
// persistence or an API payload.
type Point struct {
	Lat     float64
	Lng     float64
	Address string
}

// Params carries every attribute needed to build a Drop.
type Params struct {
	ID                kernel.UUID
	Pickup            Point
	Delivery          Point
	Earliest          time.Time
	Latest            time.Time
	Weight            float64
	Volume            float64
	Tier              ServiceTier
	Priority          int
	EstimatedDuration time.Duration
	Value             float64
	CreatedAt         time.Time
}

// Drop is the aggregate root for a single pickup-and-deliver job.
//
// Drop follows these invariants:
//   - Must have a valid unique identifier
//   - Pickup and delivery must be valid geographic locations
//   - The time window must satisfy latest > earliest
//   - Weight, volume, estimated duration and value must be positive
//   - Priority lies in [MinPriority..MaxPriority]
//   - A route reference is present exactly when the status is past Pending
//
// Fields are private; state only changes through the transition methods.
type Drop struct {
	id                kernel.UUID
	pickup            kernel.Location
	delivery          kernel.Location
	window            kernel.TimeWindow
	weight            float64
	volume            float64
	tier              ServiceTier
	priority          int
	estimatedDuration time.Duration
	value             float64
	status            Status
	routeID           *kernel.UUID
	createdAt         time.Time

	// issues holds the structural violations found while building the drop.
	issues error

	isConstructed bool
}

// NewDrop creates a pending Drop and fails if any invariant is violated.
//
// Example:
//
//	d, err := drop.NewDrop(drop.Params{
//	    ID:                kernel.NewUUID(),
//	    Pickup:            drop.Point{Lat: 40.71, Lng: -74.00, Address: "Pier 17"},
//	    Delivery:          drop.Point{Lat: 40.73, Lng: -73.99, Address: "Union Sq"},
//	    Earliest:          start,
//	    Latest:            start.Add(2 * time.Hour),
//	    Weight:            25,
//	    Volume:            0.4,
//	    Tier:              drop.Standard,
//	    Priority:          5,
//	    EstimatedDuration: 30 * time.Minute,
//	    Value:             120,
//	})
func NewDrop(p Params) (*Drop, error) {
	d := build(p, Pending, nil)
	if d.issues != nil {
		return nil, d.issues
	}

	return d, nil
}

// RestoreDrop rehydrates a Drop without rejecting structural problems, which are
// reported later by Validate. Only a usable identifier is required.
func RestoreDrop(p Params, status Status, routeID *kernel.UUID) (*Drop, error) {
	if err := p.ID.Validate(); err != nil {
		return nil, err
	}

	return build(p, status, routeID), nil
}

func build(p Params, status Status, routeID *kernel.UUID) *Drop {
	d := &Drop{
		id:                p.ID,
		weight:            p.Weight,
		volume:            p.Volume,
		tier:              p.Tier,
		priority:          p.Priority,
		estimatedDuration: p.EstimatedDuration,
		value:             p.Value,
		status:            status,
		createdAt:         p.CreatedAt.UTC(),
		isConstructed:     true,
	}

	if routeID != nil {
		id := *routeID
		d.routeID = &id
	}

	d.issues = errors.Join(
		d.setID(p.ID),
		d.setPickup(p.Pickup),
		d.setDelivery(p.Delivery),
		d.setWindow(p.Earliest, p.Latest),
		positive("weight", p.Weight),
		positive("volume", p.Volume),
		positive("estimated duration", p.EstimatedDuration.Minutes()),
		positive("value", p.Value),
		p.Tier.Validate(),
		d.checkPriority(p.Priority),
	)

	return d
}

// Validate ensures the Drop was built by a constructor and that all structural
// invariants hold. Every violation is reported, joined with errors.Join.
func (d *Drop) Validate() error {
	if d == nil || !d.isConstructed {
		return ErrDropIsNotConstructed
	}

	var routeErr error
	if statusErr := d.status.Validate(); statusErr != nil {
		routeErr = statusErr
	} else {
		routeErr = d.status.ValidateCanHaveRoute(d.routeID != nil)
	}

	return errors.Join(d.issues, routeErr)
}

// Issues lists each structural violation as a separate message.
func (d *Drop) Issues() []string {
	return errs.Flatten(d.Validate())
}

// IsEqual compares drops by identifier.
func (d *Drop) IsEqual(other *Drop) bool {
	return other != nil && d.id.IsEqual(other.id)
}

func (d *Drop) ID() kernel.UUID {
	return d.id
}

func (d *Drop) Pickup() kernel.Location {
	return d.pickup
}

func (d *Drop) Delivery() kernel.Location {
	return d.delivery
}

func (d *Drop) TimeWindow() kernel.TimeWindow {
	return d.window
}

// Earliest is a shortcut for TimeWindow().Earliest().
func (d *Drop) Earliest() time.Time {
	return d.window.Earliest()
}

// Latest is a shortcut for TimeWindow().Latest().
func (d *Drop) Latest() time.Time {
	return d.window.Latest()
}

func (d *Drop) Weight() float64 {
	return d.weight
}

func (d *Drop) Volume() float64 {
	return d.volume
}

func (d *Drop) Tier() ServiceTier {
	return d.tier
}

func (d *Drop) Priority() int {
	return d.priority
}

func (d *Drop) EstimatedDuration() time.Duration {
	return d.estimatedDuration
}

func (d *Drop) Value() float64 {
	return d.value
}

func (d *Drop) Status() Status {
	return d.status
}

func (d *Drop) CreatedAt() time.Time {
	return d.createdAt
}

// RouteID returns the route back-reference, nil while the drop is pending.
func (d *Drop) RouteID() *kernel.UUID {
	if d.routeID == nil {
		return nil
	}
	id := *d.routeID
	return &id
}

// AssignToRoute binds a pending drop to a route.
//
// Business rules:
//   - The drop must be structurally valid
//   - The route ID must be valid
//   - The drop must be Pending
func (d *Drop) AssignToRoute(routeID kernel.UUID) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if err := routeID.Validate(); err != nil {
		return err
	}

	newStatus, err := d.status.AssignToRoute()
	if err != nil {
		return err
	}

	d.status = newStatus
	d.routeID = &routeID
	return nil
}

// Release returns an assigned drop to the pending pool and clears its route reference.
func (d *Drop) Release() error {
	newStatus, err := d.status.Release()
	if err != nil {
		return err
	}

	d.status = newStatus
	d.routeID = nil
	return nil
}

// PickUp records that the driver collected the drop.
func (d *Drop) PickUp() error {
	return d.apply(d.status.PickUp)
}

// StartTransit records that the drop left the pickup location.
func (d *Drop) StartTransit() error {
	return d.apply(d.status.StartTransit)
}

// Deliver records the final hand-over.
func (d *Drop) Deliver() error {
	return d.apply(d.status.Deliver)
}

func (d *Drop) apply(transition func() (Status, error)) error {
	newStatus, err := transition()
	if err != nil {
		return err
	}
	d.status = newStatus
	return nil
}

func (d *Drop) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	d.id = id
	return nil
}

func (d *Drop) setPickup(p Point) error {
	loc, err := kernel.NewLocation(p.Lat, p.Lng, p.Address)
	if err != nil {
		return errs.NewValueIsInvalidErrorWithCause("pickup location", err)
	}
	d.pickup = loc
	return nil
}

func (d *Drop) setDelivery(p Point) error {
	loc, err := kernel.NewLocation(p.Lat, p.Lng, p.Address)
	if err != nil {
		return errs.NewValueIsInvalidErrorWithCause("delivery location", err)
	}
	d.delivery = loc
	return nil
}

func (d *Drop) setWindow(earliest, latest time.Time) error {
	tw, err := kernel.NewTimeWindow(earliest, latest)
	if err != nil {
		return err
	}
	d.window = tw
	return nil
}

func (d *Drop) checkPriority(priority int) error {
	if priority < MinPriority || priority > MaxPriority {
		return errs.NewValueIsOutOfRangeError("priority", priority, MinPriority, MaxPriority)
	}
	return nil
}

func positive(name string, v float64) error {
	if math.IsNaN(v) || v <= 0 {
		return errs.NewValueIsInvalidErrorWithCause(name, fmt.Errorf("%v is not greater than 0", v))
	}
	return nil
}
