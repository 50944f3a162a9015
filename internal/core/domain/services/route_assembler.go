package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"dispatch/internal/core/domain/model/drop"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/route"
	"dispatch/internal/core/ports"
)

// Clock returns the current time. Tests inject a fixed clock.
type Clock func() time.Time

// legDeadlineReserve caps the part of a pass deadline that precise estimates may
// not consume. Shorter deadlines reserve half of what remains.
const legDeadlineReserve = time.Second

const skippedEstimateWarning = "precise distances disabled for the rest of the pass, used haversine"

// legBreaker stops precise estimates for the rest of a pass once the estimator
// has failed or timed out, so a slow service costs at most one call timeout.
type legBreaker struct {
	open bool
}

func (b *legBreaker) isOpen() bool {
	return b != nil && b.open
}

func (b *legBreaker) trip() {
	if b != nil {
		b.open = true
	}
}

// AssembleOptions carries the per-pass switches that affect assembly.
type AssembleOptions struct {
	// PreferredStart overrides the proposed start time, which defaults to now.
	PreferredStart *time.Time

	// PreciseDistances routes every leg through the configured DistanceEstimator.
	PreciseDistances bool

	// breaker is shared by every route of a pass; nil scopes it to one route.
	breaker *legBreaker
}

// RouteAssembler is a domain service that sequences a validated cluster into a Route.
//
// Sequencing is nearest-neighbour: the drop with the earliest window goes first,
// then the unvisited drop whose pickup is closest to the current position, where
// the current position is the previous drop's delivery. Ties go to the earlier
// window, then the lower ID.
//
// Distance is the sum of loaded legs (pickup to delivery of each drop) and empty
// legs (delivery to the next pickup). Duration is the sum of estimated drop
// durations, empty-leg travel time and a fixed buffer per drop.
type RouteAssembler struct {
	cfg       Config
	estimator ports.DistanceEstimator
	clock     Clock
}

// NewRouteAssembler creates an assembler. estimator may be nil, in which case
// precise distances silently use haversine.
func NewRouteAssembler(cfg Config, estimator ports.DistanceEstimator, clock Clock) RouteAssembler {
	if clock == nil {
		clock = time.Now
	}
	return RouteAssembler{
		cfg:       cfg,
		estimator: estimator,
		clock:     clock,
	}
}

// Assemble builds the route. A cluster with no drops returns ErrEmptyCluster.
// Estimator failures never fail assembly; the leg falls back to haversine and a
// warning is recorded on the route. After the first failure, or once the context
// deadline has run out, the remaining legs skip the estimator entirely.
func (a RouteAssembler) Assemble(ctx context.Context, cluster ValidatedCluster, opts AssembleOptions) (AssembledRoute, error) {
	if cluster.Size() == 0 {
		return AssembledRoute{}, ErrEmptyCluster
	}
	if opts.breaker == nil {
		opts.breaker = &legBreaker{}
	}

	now := a.clock().UTC()
	ordered := a.sequence(cluster.drops)

	var (
		loaded, empty float64
		emptyTravel   time.Duration
		work          time.Duration
		weight        float64
		volume        float64
		value         float64
		prioritySum   int
		degraded      int
		warnings      = cluster.Warnings()
		windowStart   = ordered[0].Earliest()
		windowEnd     = ordered[0].Latest()
	)

	for i, d := range ordered {
		leg, warn := a.leg(ctx, d.Pickup(), d.Delivery(), opts)
		loaded += leg.Meters
		if leg.Degraded {
			degraded++
		}
		if warn != "" && !slices.Contains(warnings, warn) {
			warnings = append(warnings, warn)
		}

		if i+1 < len(ordered) {
			leg, warn = a.leg(ctx, d.Delivery(), ordered[i+1].Pickup(), opts)
			empty += leg.Meters
			emptyTravel += leg.Duration
			if leg.Degraded {
				degraded++
			}
			if warn != "" && !slices.Contains(warnings, warn) {
				warnings = append(warnings, warn)
			}
		}

		work += d.EstimatedDuration() + a.cfg.BufferTimePerDrop
		weight += d.Weight()
		volume += d.Volume()
		value += d.Value()
		prioritySum += d.Priority()

		if d.Earliest().Before(windowStart) {
			windowStart = d.Earliest()
		}
		if d.Latest().After(windowEnd) {
			windowEnd = d.Latest()
		}
	}

	proposedStart := now
	if opts.PreferredStart != nil && !opts.PreferredStart.IsZero() {
		proposedStart = opts.PreferredStart.UTC()
	}

	avgPriority := float64(prioritySum) / float64(len(ordered))
	r, err := route.NewRoute(route.Params{
		ID:                  kernel.NewUUID(),
		DropIDs:             dropIDs(ordered),
		TotalOutcome:        value,
		TotalWeight:         weight,
		TotalVolume:         volume,
		TotalDistanceMeters: loaded + empty,
		TotalDuration:       work + emptyTravel,
		WindowStart:         windowStart,
		WindowEnd:           windowEnd,
		ProposedStart:       proposedStart,
		CreatedAt:           now,
		Tier:                dominantTier(ordered),
		PriorityScore:       a.priorityScore(avgPriority, value),
		Metadata: route.Metadata{
			AlgorithmVersion: AlgorithmVersion,
			Notes:            fmt.Sprintf("source=%s drops=%d", cluster.source, len(ordered)),
			Warnings:         warnings,
		},
	})
	if err != nil {
		return AssembledRoute{}, err
	}

	return AssembledRoute{
		route:             r,
		drops:             ordered,
		loadedMeters:      loaded,
		emptyMeters:       empty,
		emptyTravel:       emptyTravel,
		degradedEstimates: degraded,
		source:            cluster.source,
	}, nil
}

func (a RouteAssembler) sequence(members []*drop.Drop) []*drop.Drop {
	remaining := byWindow(members)
	ordered := make([]*drop.Drop, 0, len(remaining))

	current := remaining[0]
	ordered = append(ordered, current)
	remaining = remaining[1:]

	for len(remaining) > 0 {
		best := 0
		bestDist := math.Inf(1)
		for i, d := range remaining {
			dist := kernel.HaversineMeters(current.Delivery().Lat(), current.Delivery().Lng(), d.Pickup().Lat(), d.Pickup().Lng())
			// remaining is window-ordered, so strict less keeps the earlier window on ties
			if dist < bestDist {
				best = i
				bestDist = dist
			}
		}

		current = remaining[best]
		ordered = append(ordered, current)
		remaining = append(remaining[:best:best], remaining[best+1:]...)
	}

	return ordered
}

func (a RouteAssembler) leg(ctx context.Context, from, to kernel.Location, opts AssembleOptions) (ports.DistanceEstimate, string) {
	if !opts.PreciseDistances || a.estimator == nil {
		return a.haversine(from, to), ""
	}

	callCtx := ctx
	if deadline, ok := ctx.Deadline(); ok {
		reserve := min(legDeadlineReserve, time.Until(deadline)/2)
		cutoff := deadline.Add(-reserve)
		if reserve <= 0 || !time.Now().Before(cutoff) {
			opts.breaker.trip()
		} else {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithDeadline(ctx, cutoff)
			defer cancel()
		}
	}

	if opts.breaker.isOpen() {
		fallback := a.haversine(from, to)
		fallback.Degraded = true
		return fallback, skippedEstimateWarning
	}

	est, err := a.estimator.Estimate(callCtx, from, to)
	if err == nil {
		if est.Degraded {
			opts.breaker.trip()
			return est, fmt.Sprintf("distance estimate degraded to %s", est.Source)
		}
		return est, ""
	}

	opts.breaker.trip()
	fallback := a.haversine(from, to)
	fallback.Degraded = true
	reason := "estimator error"
	if errors.Is(err, context.DeadlineExceeded) {
		reason = "estimator timeout"
	}
	return fallback, fmt.Sprintf("%s, used haversine: %v", reason, err)
}

func (a RouteAssembler) haversine(from, to kernel.Location) ports.DistanceEstimate {
	meters := kernel.HaversineMeters(from.Lat(), from.Lng(), to.Lat(), to.Lng())
	return ports.DistanceEstimate{
		Meters:   meters,
		Duration: TravelTime(meters, a.cfg.AverageSpeedKph),
		Source:   "haversine",
	}
}

// priorityScore blends the average drop priority with route value capped at 1000.
func (a RouteAssembler) priorityScore(avgPriority, value float64) float64 {
	pw := a.cfg.PriorityWeighting
	return avgPriority*(1-pw) + math.Min(value/1000, 1)*10*pw
}

// TravelTime converts a distance into driving time at a constant average speed.
func TravelTime(meters, speedKph float64) time.Duration {
	if speedKph <= 0 {
		return 0
	}
	hours := meters / kernel.MetersPerKilometer / speedKph
	return time.Duration(hours * float64(time.Hour)).Round(time.Second)
}

// dominantTier returns premium or standard when they hold a strict majority,
// otherwise economy.
func dominantTier(drops []*drop.Drop) drop.ServiceTier {
	counts := make(map[drop.ServiceTier]int)
	for _, d := range drops {
		counts[d.Tier()]++
	}

	half := len(drops) / 2
	switch {
	case counts[drop.Premium] > half:
		return drop.Premium
	case counts[drop.Standard] > half:
		return drop.Standard
	default:
		return drop.Economy
	}
}
