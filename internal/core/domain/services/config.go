package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
)

// ErrInvalidConfig wraps every configuration problem. It is the only error that
// aborts an orchestration pass before any drop is processed.
var ErrInvalidConfig = errors.New("invalid orchestration config")

// AlgorithmVersion is stamped into the metadata of every route the engine builds.
const AlgorithmVersion = "greedy-nn/1.0"

// EfficiencyWeights tunes the efficiency score. The weights are relative to each
// other; their sum must be positive.
type EfficiencyWeights struct {
	Routed      float64
	Utilization float64
	EmptyTravel float64
}

func (w EfficiencyWeights) sum() float64 {
	return w.Routed + w.Utilization + w.EmptyTravel
}

// Config holds every tunable of an orchestration pass.
type Config struct {
	MaxClusterRadiusMiles float64
	// AdaptiveRadius shrinks the radius as the pending pool grows.
	AdaptiveRadius      bool
	MinDropsPerCluster  int
	MaxDropsPerCluster  int
	MaxClusters         int
	MaxRouteWeight      float64
	MaxRouteVolume      float64
	MaxRouteDuration    time.Duration
	MaxDropsPerRoute    int
	MaxTimeWindowSpread time.Duration
	BufferTimePerDrop   time.Duration
	AllowMixedTiers     bool
	// PriorityWeighting balances average drop priority against route value in the route priority score.
	PriorityWeighting        float64
	MaxDrivingDistanceKm     float64
	MaxWorkingHours          time.Duration
	MinRouteValue            float64
	EmergencyOverrideAllowed bool
	AverageSpeedKph          float64
	Efficiency               EfficiencyWeights
	EmptyKmCost              float64
	LowEfficiencyThreshold   float64
	LowAssignmentRate        float64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxClusterRadiusMiles:    125,
		AdaptiveRadius:           true,
		MinDropsPerCluster:       2,
		MaxDropsPerCluster:       8,
		MaxClusters:              50,
		MaxRouteWeight:           500,
		MaxRouteVolume:           10,
		MaxRouteDuration:         480 * time.Minute,
		MaxDropsPerRoute:         12,
		MaxTimeWindowSpread:      240 * time.Minute,
		BufferTimePerDrop:        15 * time.Minute,
		AllowMixedTiers:          false,
		PriorityWeighting:        0.3,
		MaxDrivingDistanceKm:     200,
		MaxWorkingHours:          10 * time.Hour,
		MinRouteValue:            100,
		EmergencyOverrideAllowed: true,
		AverageSpeedKph:          40,
		Efficiency: EfficiencyWeights{
			Routed:      0.4,
			Utilization: 0.3,
			EmptyTravel: 0.3,
		},
		EmptyKmCost:            1.0,
		LowEfficiencyThreshold: 70,
		LowAssignmentRate:      0.9,
	}
}

// Validate reports every invalid field at once. The returned error wraps ErrInvalidConfig.
func (c Config) Validate() error {
	err := errors.Join(
		positiveFloat("maxClusterRadiusMiles", c.MaxClusterRadiusMiles),
		atLeast("minDropsPerCluster", c.MinDropsPerCluster, 1),
		atLeast("maxDropsPerCluster", c.MaxDropsPerCluster, 1),
		atLeast("maxClusters", c.MaxClusters, 1),
		positiveFloat("maxRouteWeight", c.MaxRouteWeight),
		positiveFloat("maxRouteVolume", c.MaxRouteVolume),
		positiveDuration("maxRouteDuration", c.MaxRouteDuration),
		atLeast("maxDropsPerRoute", c.MaxDropsPerRoute, 1),
		positiveDuration("maxTimeWindowSpread", c.MaxTimeWindowSpread),
		nonNegativeDuration("bufferTimePerDrop", c.BufferTimePerDrop),
		fraction("priorityWeighting", c.PriorityWeighting),
		positiveFloat("maxDrivingDistanceKm", c.MaxDrivingDistanceKm),
		positiveDuration("maxWorkingHours", c.MaxWorkingHours),
		nonNegativeFloat("minRouteValue", c.MinRouteValue),
		positiveFloat("averageSpeedKph", c.AverageSpeedKph),
		nonNegativeFloat("efficiency.routed", c.Efficiency.Routed),
		nonNegativeFloat("efficiency.utilization", c.Efficiency.Utilization),
		nonNegativeFloat("efficiency.emptyTravel", c.Efficiency.EmptyTravel),
		positiveFloat("efficiency weights sum", c.Efficiency.sum()),
		nonNegativeFloat("emptyKmCost", c.EmptyKmCost),
		fraction("lowAssignmentRate", c.LowAssignmentRate),
		nonNegativeFloat("lowEfficiencyThreshold", c.LowEfficiencyThreshold),
	)

	if c.MinDropsPerCluster > c.MaxDropsPerCluster && c.MaxDropsPerCluster > 0 {
		err = errors.Join(err, errs.NewValueIsOutOfRangeError(
			"minDropsPerCluster", c.MinDropsPerCluster, 1, c.MaxDropsPerCluster))
	}

	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ClusterRadiusMeters resolves the clustering radius for a pool of poolSize drops.
// The adaptive radius never exceeds MaxClusterRadiusMiles; emergency doubles the result.
func (c Config) ClusterRadiusMeters(poolSize int, emergency bool) float64 {
	miles := c.MaxClusterRadiusMiles

	if c.AdaptiveRadius {
		miles = math.Min(miles, adaptiveRadiusMiles(poolSize))
	}

	if emergency {
		miles *= 2
	}

	return miles * kernel.MetersPerMile
}

// adaptiveRadiusMiles narrows the search radius when the pool is busy, so dense
// areas produce tight routes while quiet periods still group distant drops.
func adaptiveRadiusMiles(poolSize int) float64 {
	switch {
	case poolSize > 50:
		return 25
	case poolSize > 20:
		return 50
	case poolSize > 10:
		return 75
	case poolSize > 5:
		return 100
	default:
		return 125
	}
}

func positiveFloat(name string, v float64) error {
	if math.IsNaN(v) || v <= 0 {
		return errs.NewValueIsOutOfRangeError(name, v, "> 0", math.Inf(1))
	}
	return nil
}

func nonNegativeFloat(name string, v float64) error {
	if math.IsNaN(v) || v < 0 {
		return errs.NewValueIsOutOfRangeError(name, v, 0, math.Inf(1))
	}
	return nil
}

func fraction(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return errs.NewValueIsOutOfRangeError(name, v, 0, 1)
	}
	return nil
}

func atLeast(name string, v, minValue int) error {
	if v < minValue {
		return errs.NewValueIsOutOfRangeError(name, v, minValue, math.MaxInt)
	}
	return nil
}

func positiveDuration(name string, d time.Duration) error {
	if d <= 0 {
		return errs.NewValueIsOutOfRangeError(name, d, "> 0s", "unbounded")
	}
	return nil
}

func nonNegativeDuration(name string, d time.Duration) error {
	if d < 0 {
		return errs.NewValueIsOutOfRangeError(name, d, 0, "unbounded")
	}
	return nil
}
