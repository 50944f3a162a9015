package driver

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
)

const (
	MinRating = 0.0
	MaxRating = 5.0
)

var ErrDriverIsNotConstructed = errors.New("Driver must be created via NewDriver constructor")

// Driver is an immutable snapshot of a driver's dispatch-relevant state.
// Workload changes produce a new value via WithAssignment.
type Driver struct {
	id                kernel.UUID
	name              string
	rating            float64
	registeredAt      time.Time
	activeAssignments int

	isConstructed bool
}

// NewDriver validates and creates a driver snapshot.
//
// Parameters:
//   - id: driver identifier
//   - name: display name, must not be blank
//   - rating: customer rating in [MinRating..MaxRating]
//   - registeredAt: registration instant, required
//   - activeAssignments: routes in assigned or in_progress status, non-negative
func NewDriver(id kernel.UUID, name string, rating float64, registeredAt time.Time, activeAssignments int) (*Driver, error) {
	d := &Driver{isConstructed: true}

	if err := errors.Join(
		d.setID(id),
		d.setName(name),
		d.setRating(rating),
		d.setRegisteredAt(registeredAt),
		d.setActiveAssignments(activeAssignments),
	); err != nil {
		return nil, err
	}

	return d, nil
}

func (d *Driver) Validate() error {
	if d == nil || !d.isConstructed {
		return ErrDriverIsNotConstructed
	}
	return nil
}

func (d *Driver) ID() kernel.UUID {
	return d.id
}

func (d *Driver) Name() string {
	return d.name
}

func (d *Driver) Rating() float64 {
	return d.rating
}

func (d *Driver) RegisteredAt() time.Time {
	return d.registeredAt
}

// ActiveAssignments counts routes that currently occupy the driver.
func (d *Driver) ActiveAssignments() int {
	return d.activeAssignments
}

// IsAvailable reports whether the driver has no active route.
func (d *Driver) IsAvailable() bool {
	return d.activeAssignments == 0
}

// WithAssignment returns a copy carrying one more active assignment. It lets a
// single pass spread routes across drivers without touching persisted state.
func (d *Driver) WithAssignment() *Driver {
	cp := *d
	cp.activeAssignments++
	return &cp
}

func (d *Driver) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	d.id = id
	return nil
}

func (d *Driver) setName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errs.NewValueIsRequiredError("name")
	}
	d.name = name
	return nil
}

func (d *Driver) setRating(rating float64) error {
	if rating < MinRating || rating > MaxRating {
		return errs.NewValueIsOutOfRangeError("rating", rating, MinRating, MaxRating)
	}
	d.rating = rating
	return nil
}

func (d *Driver) setRegisteredAt(at time.Time) error {
	if at.IsZero() {
		return errs.NewValueIsRequiredError("registeredAt")
	}
	d.registeredAt = at.UTC()
	return nil
}

func (d *Driver) setActiveAssignments(n int) error {
	if n < 0 {
		return errs.NewValueIsInvalidErrorWithCause("active assignments", fmt.Errorf("%d is negative", n))
	}
	d.activeAssignments = n
	return nil
}
