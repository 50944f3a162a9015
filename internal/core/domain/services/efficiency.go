package services

import (
	"fmt"
	"time"

	"dispatch/internal/core/domain/model/kernel"
)

// Metrics summarises one orchestration pass.
type Metrics struct {
	RoutesCreated        int
	TotalDrops           int
	AssignedDrops        int
	UnassignedDrops      int
	AssignmentRate       float64
	AverageDropsPerRoute float64
	TotalValue           float64
	TotalDistanceMeters  float64
	EmptyDistanceMeters  float64
	TotalDuration        time.Duration
	DegradedEstimates    int
	EfficiencyScore      float64
}

func computeMetrics(cfg Config, totalDrops int, routes []AssembledRoute) Metrics {
	m := Metrics{
		RoutesCreated: len(routes),
		TotalDrops:    totalDrops,
	}

	var utilization float64
	for _, r := range routes {
		agg := r.Route()
		m.AssignedDrops += agg.TotalDrops()
		m.TotalValue += agg.TotalOutcome()
		m.TotalDistanceMeters += agg.TotalDistanceMeters()
		m.EmptyDistanceMeters += r.EmptyDistanceMeters()
		m.TotalDuration += agg.TotalDuration()
		m.DegradedEstimates += r.DegradedEstimates()
		utilization += min(float64(agg.TotalDrops())/float64(cfg.MaxDropsPerRoute), 1)
	}

	m.UnassignedDrops = totalDrops - m.AssignedDrops
	if totalDrops > 0 {
		m.AssignmentRate = float64(m.AssignedDrops) / float64(totalDrops)
	}
	if len(routes) > 0 {
		m.AverageDropsPerRoute = float64(m.AssignedDrops) / float64(len(routes))
		utilization /= float64(len(routes))
	}

	m.EfficiencyScore = efficiencyScore(cfg, m.AssignmentRate, utilization, m.TotalValue, m.EmptyDistanceMeters)
	return m
}

// efficiencyScore is the weighted mean, scaled to 0..100, of the routed fraction,
// the average route fill against MaxDropsPerRoute and the empty-travel score
// value / (value + emptyKm * EmptyKmCost).
func efficiencyScore(cfg Config, routed, utilization, value, emptyMeters float64) float64 {
	var emptyScore float64
	emptyCost := emptyMeters / kernel.MetersPerKilometer * cfg.EmptyKmCost
	if value+emptyCost > 0 {
		emptyScore = value / (value + emptyCost)
	}

	w := cfg.Efficiency
	if w.sum() <= 0 {
		return 0
	}

	return 100 * (w.Routed*routed + w.Utilization*utilization + w.EmptyTravel*emptyScore) / w.sum()
}

func passWarnings(cfg Config, m Metrics) []string {
	if m.TotalDrops == 0 {
		return nil
	}

	var out []string
	if m.AssignmentRate < cfg.LowAssignmentRate {
		out = append(out, fmt.Sprintf("low assignment rate: %.1f%%", m.AssignmentRate*100))
	}
	if m.RoutesCreated > 0 && m.AverageDropsPerRoute < float64(cfg.MinDropsPerCluster) {
		out = append(out, fmt.Sprintf("low drops per route: %.1f average", m.AverageDropsPerRoute))
	}
	if m.EfficiencyScore < cfg.LowEfficiencyThreshold {
		out = append(out, fmt.Sprintf("low efficiency score: %.1f", m.EfficiencyScore))
	}
	if m.DegradedEstimates > 0 {
		out = append(out, fmt.Sprintf("%d distance estimates fell back to haversine", m.DegradedEstimates))
	}
	return out
}
