package kernel

import (
	"fmt"

	"dispatch/internal/pkg/errs"
)

// Geofence is a circular service area.
type Geofence struct {
	center       Location
	radiusMeters float64
}

// NewGeofence requires a valid center and a positive radius.
func NewGeofence(center Location, radiusMeters float64) (Geofence, error) {
	if err := center.Validate(); err != nil {
		return Geofence{}, err
	}
	if radiusMeters <= 0 {
		return Geofence{}, errs.NewValueIsInvalidErrorWithCause(
			"radius", fmt.Errorf("%f is not greater than 0", radiusMeters))
	}

	return Geofence{center: center, radiusMeters: radiusMeters}, nil
}

func (g Geofence) Center() Location {
	return g.center
}

func (g Geofence) RadiusMeters() float64 {
	return g.radiusMeters
}

// Contains reports whether loc lies inside or on the boundary of the circle.
// Invalid locations are never contained.
func (g Geofence) Contains(loc Location) bool {
	d, err := g.center.DistanceTo(loc)
	if err != nil {
		return false
	}
	return d <= g.radiusMeters
}
