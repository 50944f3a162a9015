package drop

import (
	"fmt"
	"strings"

	"dispatch/internal/pkg/errs"
)

// Status is the lifecycle state of a Drop.
//
// State transitions:
//
//	Pending ──> AssignedToRoute ──> PickedUp ──> InTransit ──> Delivered
//	   ^               │
//	   └───────────────┘
type Status int

const (
	// Unknown catches uninitialised Status values.
	Unknown Status = iota

	// Pending drops are waiting in the pool for the next orchestration pass.
	Pending

	// AssignedToRoute drops are bound to a route and carry its ID.
	AssignedToRoute

	// PickedUp drops have been collected by the driver.
	PickedUp

	// InTransit drops are on their way to the delivery location.
	InTransit

	// Delivered is final.
	Delivered
)

func getStatusStrings() map[Status]string {
	return map[Status]string{
		Unknown:         "unknown",
		Pending:         "pending",
		AssignedToRoute: "assigned_to_route",
		PickedUp:        "picked_up",
		InTransit:       "in_transit",
		Delivered:       "delivered",
	}
}

// ParseStatus converts the persisted/wire name of a status back into a Status.
func ParseStatus(s string) (Status, error) {
	for status, name := range getStatusStrings() {
		if status != Unknown && name == strings.ToLower(strings.TrimSpace(s)) {
			return status, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%q is not a valid drop status", s))
}

// Validate rejects Unknown and out-of-range values.
func (s Status) Validate() error {
	if s <= Unknown || s > Delivered {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

// String returns the snake_case name used in persistence and on the wire.
func (s Status) String() string {
	if str, ok := getStatusStrings()[s]; ok {
		return str
	}
	return "unknown"
}

// ValidateCanHaveRoute checks that the route back-reference is consistent with the status:
// pending drops never carry a route, every later state always does.
func (s Status) ValidateCanHaveRoute(hasRoute bool) error {
	if hasRoute && s == Pending {
		return errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to have a route", s),
		)
	}

	if !hasRoute && s != Pending && s != Unknown {
		return errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to have no route", s),
		)
	}

	return nil
}

// AssignToRoute transitions Pending -> AssignedToRoute.
func (s Status) AssignToRoute() (Status, error) {
	return s.transition(Pending, AssignedToRoute, "assign to a route")
}

// Release transitions AssignedToRoute -> Pending.
func (s Status) Release() (Status, error) {
	return s.transition(AssignedToRoute, Pending, "release")
}

// PickUp transitions AssignedToRoute -> PickedUp.
func (s Status) PickUp() (Status, error) {
	return s.transition(AssignedToRoute, PickedUp, "pick up")
}

// StartTransit transitions PickedUp -> InTransit.
func (s Status) StartTransit() (Status, error) {
	return s.transition(PickedUp, InTransit, "start transit")
}

// Deliver transitions InTransit -> Delivered.
func (s Status) Deliver() (Status, error) {
	return s.transition(InTransit, Delivered, "deliver")
}

func (s Status) transition(from, to Status, action string) (Status, error) {
	if s != from {
		return 0, errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to %s", s, action),
		)
	}
	return to, nil
}
