package services

import (
	"fmt"
	"sort"
	"time"

	"dispatch/internal/core/domain/model/drop"
	"dispatch/internal/core/domain/model/kernel"
)

// EmergencyOverrideWarning marks routes and passes that were built with the value
// floor removed and the radius doubled.
const EmergencyOverrideWarning = "emergency override applied"

// ValidationOptions carries the per-pass switches that affect validation.
type ValidationOptions struct {
	// Emergency removes the minimum route value. Callers must only set it when the
	// config allows the override.
	Emergency bool

	// RadiusMeters bounds geographic coherence: no two pickups may be further apart
	// than twice the radius. Zero disables the check.
	RadiusMeters float64

	// Geofences, when present, reject drops whose pickup and delivery are both outside every circle.
	Geofences []kernel.Geofence
}

// ValidationOutcome is the result of validating one candidate.
type ValidationOutcome struct {
	Valid    []ValidatedCluster
	Rejected []Rejection
}

// ConstraintValidator is a domain service that turns candidates into feasible clusters.
//
// Business rules checked on every group:
//   - Total weight and volume stay within the route ceilings
//   - Time window spread (max latest minus min earliest) stays within MaxTimeWindowSpread
//   - A single service tier unless AllowMixedTiers
//   - At most MaxDropsPerRoute members
//   - Work time (estimated duration plus buffer per drop) within MaxRouteDuration
//   - Total value at least MinRouteValue unless in emergency mode
//   - Pickups no further apart than twice the cluster radius
//
// An infeasible group is split deterministically: members are ordered by priority
// descending, then window start, then ID, and the tail is peeled off until the kept
// prefix is feasible or a singleton. The peeled remainder is validated the same way.
//
// A singleton is always accepted unless it cannot fit a route on its own.
type ConstraintValidator struct {
	cfg Config
}

func NewConstraintValidator(cfg Config) ConstraintValidator {
	return ConstraintValidator{cfg: cfg}
}

// Validate checks the candidate and splits it when needed. Every member ends up
// either in exactly one valid cluster or in Rejected.
func (v ConstraintValidator) Validate(candidate ClusterCandidate, opts ValidationOptions) ValidationOutcome {
	var outcome ValidationOutcome

	members := make([]*drop.Drop, 0, candidate.Size())
	for _, d := range candidate.drops {
		if len(opts.Geofences) > 0 && !insideAnyGeofence(d, opts.Geofences) {
			outcome.Rejected = append(outcome.Rejected, reject(d, ReasonOutsideAllGeofences,
				"pickup and delivery are outside every geofence"))
			continue
		}
		members = append(members, d)
	}

	if len(members) == 0 {
		return outcome
	}

	queue := [][]*drop.Drop{bySplitOrder(members)}
	for len(queue) > 0 {
		group := queue[0]
		queue = queue[1:]

		if len(group) == 1 {
			if reason, detail := v.singletonViolation(group[0]); reason != "" {
				outcome.Rejected = append(outcome.Rejected, reject(group[0], reason, detail))
				continue
			}
			outcome.Valid = append(outcome.Valid, v.accept(candidate.source, group, opts))
			continue
		}

		if len(v.Violations(group, opts)) == 0 {
			outcome.Valid = append(outcome.Valid, v.accept(candidate.source, group, opts))
			continue
		}

		keep := len(group) - 1
		for keep > 1 && len(v.Violations(group[:keep], opts)) > 0 {
			keep--
		}
		queue = append(queue, group[:keep], group[keep:])
	}

	return outcome
}

// Violations lists every constraint the group breaks. An empty result means the
// group may become a route as-is.
func (v ConstraintValidator) Violations(group []*drop.Drop, opts ValidationOptions) []string {
	var (
		out                 []string
		weight, volume, val float64
		work                time.Duration
		earliest, latest    time.Time
		tiers               = make(map[drop.ServiceTier]bool)
	)

	for i, d := range group {
		weight += d.Weight()
		volume += d.Volume()
		val += d.Value()
		work += d.EstimatedDuration() + v.cfg.BufferTimePerDrop
		tiers[d.Tier()] = true

		if i == 0 || d.Earliest().Before(earliest) {
			earliest = d.Earliest()
		}
		if i == 0 || d.Latest().After(latest) {
			latest = d.Latest()
		}
	}

	if weight > v.cfg.MaxRouteWeight {
		out = append(out, fmt.Sprintf("total weight %.2f exceeds %.2f", weight, v.cfg.MaxRouteWeight))
	}
	if volume > v.cfg.MaxRouteVolume {
		out = append(out, fmt.Sprintf("total volume %.2f exceeds %.2f", volume, v.cfg.MaxRouteVolume))
	}
	if spread := latest.Sub(earliest); spread > v.cfg.MaxTimeWindowSpread {
		out = append(out, fmt.Sprintf("time window spread %s exceeds %s", spread, v.cfg.MaxTimeWindowSpread))
	}
	if !v.cfg.AllowMixedTiers && len(tiers) > 1 {
		out = append(out, fmt.Sprintf("%d service tiers mixed", len(tiers)))
	}
	if len(group) > v.cfg.MaxDropsPerRoute {
		out = append(out, fmt.Sprintf("%d drops exceed %d per route", len(group), v.cfg.MaxDropsPerRoute))
	}
	if work > v.cfg.MaxRouteDuration {
		out = append(out, fmt.Sprintf("work time %s exceeds %s", work, v.cfg.MaxRouteDuration))
	}
	if !opts.Emergency && val < v.cfg.MinRouteValue {
		out = append(out, fmt.Sprintf("total value %.2f below %.2f", val, v.cfg.MinRouteValue))
	}
	if opts.RadiusMeters > 0 {
		if span := maxPickupSpan(group); span > 2*opts.RadiusMeters {
			out = append(out, fmt.Sprintf("pickups span %.0fm, more than twice the %.0fm radius", span, opts.RadiusMeters))
		}
	}

	return out
}

func (v ConstraintValidator) singletonViolation(d *drop.Drop) (RejectionReason, string) {
	switch {
	case d.Weight() > v.cfg.MaxRouteWeight:
		return ReasonExceedsCapacityAlone, fmt.Sprintf("weight %.2f exceeds %.2f", d.Weight(), v.cfg.MaxRouteWeight)
	case d.Volume() > v.cfg.MaxRouteVolume:
		return ReasonExceedsCapacityAlone, fmt.Sprintf("volume %.2f exceeds %.2f", d.Volume(), v.cfg.MaxRouteVolume)
	case d.EstimatedDuration()+v.cfg.BufferTimePerDrop > v.cfg.MaxRouteDuration:
		return ReasonExceedsDurationAlone, fmt.Sprintf("work time %s exceeds %s",
			d.EstimatedDuration()+v.cfg.BufferTimePerDrop, v.cfg.MaxRouteDuration)
	case d.TimeWindow().Spread() > v.cfg.MaxTimeWindowSpread:
		return ReasonTimeWindowTooWide, fmt.Sprintf("window %s exceeds %s",
			d.TimeWindow().Spread(), v.cfg.MaxTimeWindowSpread)
	default:
		return "", ""
	}
}

func (v ConstraintValidator) accept(source CandidateSource, group []*drop.Drop, opts ValidationOptions) ValidatedCluster {
	cluster := ValidatedCluster{
		source: source,
		drops:  append([]*drop.Drop(nil), group...),
	}

	if opts.Emergency {
		var total float64
		for _, d := range group {
			total += d.Value()
		}
		if total < v.cfg.MinRouteValue {
			cluster.warnings = append(cluster.warnings, EmergencyOverrideWarning)
		}
	}

	return cluster
}

// bySplitOrder sorts by priority descending, then window start, then ID, so the
// members peeled first are the least urgent.
func bySplitOrder(drops []*drop.Drop) []*drop.Drop {
	out := append([]*drop.Drop(nil), drops...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority() != out[j].Priority() {
			return out[i].Priority() > out[j].Priority()
		}
		return earlierWindow(out[i], out[j])
	})
	return out
}

func insideAnyGeofence(d *drop.Drop, fences []kernel.Geofence) bool {
	for _, f := range fences {
		if f.Contains(d.Pickup()) || f.Contains(d.Delivery()) {
			return true
		}
	}
	return false
}

func maxPickupSpan(group []*drop.Drop) float64 {
	var span float64
	for i := range group {
		for j := i + 1; j < len(group); j++ {
			if d := pickupDistance(group[i], group[j]); d > span {
				span = d
			}
		}
	}
	return span
}
