package kernel

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

const (
	// MinLatitude is the southern bound of a valid latitude in degrees.
	MinLatitude = -90.0
	// MaxLatitude is the northern bound of a valid latitude in degrees.
	MaxLatitude = 90.0
	// MinLongitude is the western bound of a valid longitude in degrees.
	MinLongitude = -180.0
	// MaxLongitude is the eastern bound of a valid longitude in degrees.
	MaxLongitude = 180.0

	// EarthRadiusMeters is the mean earth radius used by haversine calculations.
	EarthRadiusMeters = 6371000.0
	// MetersPerMile converts statute miles to meters.
	MetersPerMile = 1609.34
	// MetersPerKilometer converts kilometers to meters.
	MetersPerKilometer = 1000.0
)

// ErrLocationIsNotConstructed is returned when a zero-value Location is used.
var ErrLocationIsNotConstructed = errs.NewValueIsRequiredError(
	"location must be created via NewLocation constructor")

// Location is a geographic point with an optional human-readable address.
// Location is an immutable value object; the zero value is invalid.
//
// Example:
//
//	pickup, err := kernel.NewLocation(51.5072, -0.1276, "10 Downing St, London")
//	if err != nil {
//	    // Handle validation error
//	}
//	meters, _ := pickup.DistanceTo(dropoff)
type Location struct { //nolint:recvcheck //using for validation
	lat     float64
	lng     float64
	address string
	guard   guard.ConstructorGuard
}

// NewLocation creates a Location after checking the coordinate bounds.
// Latitude must lie in [MinLatitude..MaxLatitude] and longitude in
// [MinLongitude..MaxLongitude]. The address is trimmed and may be empty.
func NewLocation(lat, lng float64, address string) (Location, error) {
	loc := Location{
		address: strings.TrimSpace(address),
		guard:   guard.NewConstructorGuard(),
	}

	if err := errors.Join(loc.setLat(lat), loc.setLng(lng)); err != nil {
		return Location{}, err
	}

	return loc, nil
}

// Validate reports whether the Location was built by NewLocation.
func (l Location) Validate() error {
	return l.guard.Validate(ErrLocationIsNotConstructed)
}

// Lat returns the latitude in degrees.
func (l Location) Lat() float64 {
	return l.lat
}

// Lng returns the longitude in degrees.
func (l Location) Lng() float64 {
	return l.lng
}

// Address returns the free-text address supplied at construction.
func (l Location) Address() string {
	return l.address
}

// String implements fmt.Stringer, e.g. "Location(51.507200,-0.127600)".
func (l Location) String() string {
	return fmt.Sprintf("Location(%f,%f)", l.lat, l.lng)
}

// IsEqual compares coordinates of two valid locations. Addresses are ignored.
func (l Location) IsEqual(other Location) (bool, error) {
	if err := errors.Join(l.Validate(), other.Validate()); err != nil {
		return false, err
	}

	return l.lat == other.lat && l.lng == other.lng, nil
}

// DistanceTo returns the great-circle distance in meters between two valid
// locations using the haversine formula.
//
// Example:
//
//	a, _ := NewLocation(0, 0, "")
//	b, _ := NewLocation(0, 1, "")
//	d, _ := a.DistanceTo(b) // ≈ 111195 meters
func (l Location) DistanceTo(other Location) (float64, error) {
	if err := errors.Join(l.Validate(), other.Validate()); err != nil {
		return 0, err
	}

	return HaversineMeters(l.lat, l.lng, other.lat, other.lng), nil
}

// HaversineMeters computes the great-circle distance between two coordinate pairs.
func HaversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)

	return EarthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Centroid returns the arithmetic mean of the given locations. It is adequate
// for the small radii the dispatcher clusters over. An empty slice yields an error.
func Centroid(locations []Location) (Location, error) {
	if len(locations) == 0 {
		return Location{}, errs.NewValueIsRequiredError("locations")
	}

	var sumLat, sumLng float64
	for _, loc := range locations {
		if err := loc.Validate(); err != nil {
			return Location{}, err
		}
		sumLat += loc.lat
		sumLng += loc.lng
	}

	n := float64(len(locations))
	return NewLocation(sumLat/n, sumLng/n, "")
}

// setLat uses a pointer receiver so construction can validate in place.
func (l *Location) setLat(lat float64) error {
	if math.IsNaN(lat) || lat < MinLatitude || lat > MaxLatitude {
		return errs.NewValueIsOutOfRangeError("latitude", lat, MinLatitude, MaxLatitude)
	}

	l.lat = lat
	return nil
}

func (l *Location) setLng(lng float64) error {
	if math.IsNaN(lng) || lng < MinLongitude || lng > MaxLongitude {
		return errs.NewValueIsOutOfRangeError("longitude", lng, MinLongitude, MaxLongitude)
	}

	l.lng = lng
	return nil
}
