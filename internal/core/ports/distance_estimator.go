package ports

import (
	"context"
	"time"

	"dispatch/internal/core/domain/model/kernel"
)

// DistanceEstimate is the road distance and travel time between two points.
type DistanceEstimate struct {
	Meters   float64
	Duration time.Duration

	// Degraded is set when the estimate came from a fallback rather than the
	// configured provider.
	Degraded bool

	// Source names the estimator that produced the value, e.g. "ors" or "haversine".
	Source string
}

// DistanceEstimator turns a pair of locations into a distance and duration.
// Implementations must honour ctx cancellation.
type DistanceEstimator interface {
	Estimate(ctx context.Context, from, to kernel.Location) (DistanceEstimate, error)
}
