// Package distance provides the DistanceEstimator adapters: a haversine
// estimate, an OpenRouteService client, a Redis cache and a timeout decorator
// that falls back to haversine.
//
// Production wiring nests them as
//
//	FallbackEstimator(RedisCache(ORSEstimator))
//
// so cache hits are not charged against the provider's rate limit and every
// call is bounded by the per-call timeout.
package distance

import (
	"context"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"
)

// DefaultSpeedKph converts straight-line distance into travel time.
const DefaultSpeedKph = 40.0

// SourceHaversine marks estimates computed from great-circle distance.
const SourceHaversine = "haversine"

// HaversineEstimator estimates road legs as great-circle distance at a constant speed.
type HaversineEstimator struct {
	speedKph float64
}

// NewHaversineEstimator creates the estimator. A non-positive speed falls back to DefaultSpeedKph.
func NewHaversineEstimator(speedKph float64) HaversineEstimator {
	if speedKph <= 0 {
		speedKph = DefaultSpeedKph
	}
	return HaversineEstimator{speedKph: speedKph}
}

func (h HaversineEstimator) Estimate(ctx context.Context, from, to kernel.Location) (ports.DistanceEstimate, error) {
	if err := ctx.Err(); err != nil {
		return ports.DistanceEstimate{}, err
	}

	meters := kernel.HaversineMeters(from.Lat(), from.Lng(), to.Lat(), to.Lng())
	hours := meters / 1000 / h.speedKph

	return ports.DistanceEstimate{
		Meters:   meters,
		Duration: time.Duration(hours * float64(time.Hour)),
		Source:   SourceHaversine,
	}, nil
}
