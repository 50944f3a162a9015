package services

import (
	"dispatch/internal/core/domain/model/driver"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/route"
)

// DriverMatcher proposes a driver for a route by workload balancing.
//
// Selection order:
//   - Fewest active assignments
//   - Highest rating
//   - Earliest registration
//   - Lowest ID
//
// Match never mutates the route or the drivers. The caller binds the proposed
// driver in the same transaction that persists the route.
type DriverMatcher struct{}

func NewDriverMatcher() DriverMatcher {
	return DriverMatcher{}
}

// Match returns the ID of the best driver, or nil when the pool is empty.
// Drivers that were not built through the constructor are skipped.
func (m DriverMatcher) Match(_ *route.Route, drivers []*driver.Driver) *kernel.UUID {
	var best *driver.Driver

	for _, d := range drivers {
		if d.Validate() != nil {
			continue
		}
		if best == nil || better(d, best) {
			best = d
		}
	}

	if best == nil {
		return nil
	}

	id := best.ID()
	return &id
}

func better(a, b *driver.Driver) bool {
	if a.ActiveAssignments() != b.ActiveAssignments() {
		return a.ActiveAssignments() < b.ActiveAssignments()
	}
	if a.Rating() != b.Rating() {
		return a.Rating() > b.Rating()
	}
	if !a.RegisteredAt().Equal(b.RegisteredAt()) {
		return a.RegisteredAt().Before(b.RegisteredAt())
	}
	return a.ID().Compare(b.ID()) < 0
}
