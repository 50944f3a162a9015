package services

import (
	"sort"
	"time"

	"dispatch/internal/core/domain/model/drop"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/route"
	"dispatch/internal/pkg/errs"
)

// ErrEmptyCluster is returned when a cluster with no drops reaches a pipeline stage.
var ErrEmptyCluster = errs.NewValueIsRequiredError("cluster drops")

// RejectionReason is the machine-readable code attached to an unassigned drop.
type RejectionReason string

const (
	ReasonInvalidStructure        RejectionReason = "invalid_structure"
	ReasonNotPending              RejectionReason = "not_pending"
	ReasonDuplicateDrop           RejectionReason = "duplicate_drop"
	ReasonOutsideAllGeofences     RejectionReason = "outside_all_geofences"
	ReasonExceedsCapacityAlone    RejectionReason = "exceeds_capacity_alone"
	ReasonExceedsDurationAlone    RejectionReason = "exceeds_duration_alone"
	ReasonTimeWindowTooWide       RejectionReason = "time_window_too_wide"
	ReasonClusterLimitReached     RejectionReason = "cluster_limit_reached"
	ReasonNoDriverAvailable       RejectionReason = "no_driver_available"
	ReasonAssemblyFailed          RejectionReason = "assembly_failed"
	ReasonClaimedByConcurrentPass RejectionReason = "claimed_by_concurrent_pass"
	ReasonRouteRolledBack         RejectionReason = "route_rolled_back"
)

// Rejection is a drop that did not make it into a route during this pass.
type Rejection struct {
	DropID  kernel.UUID
	Drop    *drop.Drop
	Reason  RejectionReason
	Details []string
}

func reject(d *drop.Drop, reason RejectionReason, details ...string) Rejection {
	return Rejection{
		DropID:  d.ID(),
		Drop:    d,
		Reason:  reason,
		Details: details,
	}
}

// CandidateSource tells where a cluster candidate came from.
type CandidateSource int

const (
	SourceBuilder CandidateSource = iota
	SourceAdvisor
)

func (s CandidateSource) String() string {
	if s == SourceAdvisor {
		return "advisor"
	}
	return "builder"
}

// ClusterCandidate is a provisional grouping of drops that has not been checked
// against route constraints yet. It is never persisted.
type ClusterCandidate struct {
	source   CandidateSource
	drops    []*drop.Drop
	centroid kernel.Location
	weight   float64
	volume   float64
	tiers    []drop.ServiceTier
}

// NewClusterCandidate computes the aggregates of a grouping.
func NewClusterCandidate(source CandidateSource, drops []*drop.Drop) (ClusterCandidate, error) {
	if len(drops) == 0 {
		return ClusterCandidate{}, ErrEmptyCluster
	}
	return buildCandidate(source, drops), nil
}

// buildCandidate expects at least one structurally valid drop.
func buildCandidate(source CandidateSource, drops []*drop.Drop) ClusterCandidate {
	pickups := make([]kernel.Location, 0, len(drops))
	seenTier := make(map[drop.ServiceTier]bool)
	c := ClusterCandidate{
		source: source,
		drops:  append([]*drop.Drop(nil), drops...),
	}

	for _, d := range drops {
		pickups = append(pickups, d.Pickup())
		c.weight += d.Weight()
		c.volume += d.Volume()
		if !seenTier[d.Tier()] {
			seenTier[d.Tier()] = true
			c.tiers = append(c.tiers, d.Tier())
		}
	}
	sort.Slice(c.tiers, func(i, j int) bool { return c.tiers[i] < c.tiers[j] })

	// a failed centroid leaves the zero location; it is informational only
	c.centroid, _ = kernel.Centroid(pickups)

	return c
}

func (c ClusterCandidate) Source() CandidateSource {
	return c.source
}

func (c ClusterCandidate) Drops() []*drop.Drop {
	return append([]*drop.Drop(nil), c.drops...)
}

func (c ClusterCandidate) DropIDs() []kernel.UUID {
	return dropIDs(c.drops)
}

func (c ClusterCandidate) Size() int {
	return len(c.drops)
}

// Centroid is the mean pickup position of the members.
func (c ClusterCandidate) Centroid() kernel.Location {
	return c.centroid
}

func (c ClusterCandidate) TotalWeight() float64 {
	return c.weight
}

func (c ClusterCandidate) TotalVolume() float64 {
	return c.volume
}

// Tiers lists the distinct service tiers present, ordered.
func (c ClusterCandidate) Tiers() []drop.ServiceTier {
	return append([]drop.ServiceTier(nil), c.tiers...)
}

// ValidatedCluster is a grouping that satisfies every route constraint.
// Only ConstraintValidator can produce one.
type ValidatedCluster struct {
	source   CandidateSource
	drops    []*drop.Drop
	warnings []string
}

func (v ValidatedCluster) Source() CandidateSource {
	return v.source
}

func (v ValidatedCluster) Drops() []*drop.Drop {
	return append([]*drop.Drop(nil), v.drops...)
}

func (v ValidatedCluster) DropIDs() []kernel.UUID {
	return dropIDs(v.drops)
}

func (v ValidatedCluster) Size() int {
	return len(v.drops)
}

// Warnings holds relaxations applied while validating, such as the emergency override.
func (v ValidatedCluster) Warnings() []string {
	return append([]string(nil), v.warnings...)
}

// AssembledRoute is a sequenced route ready to be persisted, together with the
// member drops in stop order and the distance breakdown.
type AssembledRoute struct {
	route             *route.Route
	drops             []*drop.Drop
	loadedMeters      float64
	emptyMeters       float64
	emptyTravel       time.Duration
	degradedEstimates int
	source            CandidateSource
}

func (a AssembledRoute) Route() *route.Route {
	return a.route
}

// Drops returns the member drops in stop order.
func (a AssembledRoute) Drops() []*drop.Drop {
	return append([]*drop.Drop(nil), a.drops...)
}

func (a AssembledRoute) DropIDs() []kernel.UUID {
	return dropIDs(a.drops)
}

// LoadedDistanceMeters sums the pickup to delivery legs.
func (a AssembledRoute) LoadedDistanceMeters() float64 {
	return a.loadedMeters
}

// EmptyDistanceMeters sums the legs driven between a delivery and the next pickup.
func (a AssembledRoute) EmptyDistanceMeters() float64 {
	return a.emptyMeters
}

func (a AssembledRoute) EmptyTravel() time.Duration {
	return a.emptyTravel
}

// DegradedEstimates counts legs that fell back to the haversine estimate.
func (a AssembledRoute) DegradedEstimates() int {
	return a.degradedEstimates
}

func (a AssembledRoute) Source() CandidateSource {
	return a.source
}

func (a AssembledRoute) Warnings() []string {
	return a.route.Metadata().Warnings
}

func dropIDs(drops []*drop.Drop) []kernel.UUID {
	ids := make([]kernel.UUID, len(drops))
	for i, d := range drops {
		ids[i] = d.ID()
	}
	return ids
}

// byWindow orders drops by time window start, breaking ties by ID.
func byWindow(drops []*drop.Drop) []*drop.Drop {
	out := append([]*drop.Drop(nil), drops...)
	sort.SliceStable(out, func(i, j int) bool {
		return earlierWindow(out[i], out[j])
	})
	return out
}

func earlierWindow(a, b *drop.Drop) bool {
	if !a.Earliest().Equal(b.Earliest()) {
		return a.Earliest().Before(b.Earliest())
	}
	return a.ID().Compare(b.ID()) < 0
}

func pickupDistance(a, b *drop.Drop) float64 {
	return kernel.HaversineMeters(a.Pickup().Lat(), a.Pickup().Lng(), b.Pickup().Lat(), b.Pickup().Lng())
}
