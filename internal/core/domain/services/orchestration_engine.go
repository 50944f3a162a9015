package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dispatch/internal/core/domain/model/driver"
	"dispatch/internal/core/domain/model/drop"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
)

// Options carries the per-pass switches of an orchestration run.
type Options struct {
	// EmergencyMode doubles the cluster radius and removes the value floor.
	// It is honoured only when Config.EmergencyOverrideAllowed is set.
	EmergencyMode bool

	Geofences      []kernel.Geofence
	PreferredStart *time.Time

	// PreciseDistances sends every leg through the DistanceEstimator instead of haversine.
	PreciseDistances bool

	// AssignDrivers proposes a driver for every route.
	AssignDrivers bool

	// RequireDriver turns "no driver found" into no_driver_available rejections
	// instead of routes left in pending_assignment. Implies AssignDrivers.
	RequireDriver bool

	// UseAdvisor asks the AdvisorService for grouping hints before clustering.
	UseAdvisor bool
}

// OrchestrationResult is the outcome of one pass. Every input drop is either a
// member of exactly one route or listed once in Unassigned.
type OrchestrationResult struct {
	Routes      []AssembledRoute
	Unassigned  []Rejection
	Metrics     Metrics
	Warnings    []string
	GeneratedAt time.Time

	// notes are pass-level warnings that do not depend on the routes kept
	notes []string
	total int
}

// DropIssues lists the structural problems of one drop.
type DropIssues struct {
	DropID kernel.UUID
	Issues []string
}

// Valid reports whether the drop has no issues.
func (d DropIssues) Valid() bool {
	return len(d.Issues) == 0
}

// OrchestrationEngine runs clustering, validation, assembly and driver matching
// over a snapshot of drops. It performs no persistence: the caller decides
// whether to store the result (apply) or only return it (preview).
//
// The pipeline is deterministic for identical input, config and options, apart
// from the random route IDs and the advisor's own output.
type OrchestrationEngine struct {
	cfg       Config
	builder   Clusterer
	validator ConstraintValidator
	assembler RouteAssembler
	matcher   DriverMatcher
	advisor   ports.AdvisorService
	clock     Clock
}

// EngineOption customises an OrchestrationEngine.
type EngineOption func(*OrchestrationEngine)

// WithClusterer replaces the greedy cluster builder.
func WithClusterer(c Clusterer) EngineOption {
	return func(e *OrchestrationEngine) {
		if c != nil {
			e.builder = c
		}
	}
}

// WithAdvisor enables grouping hints for passes run with Options.UseAdvisor.
func WithAdvisor(a ports.AdvisorService) EngineOption {
	return func(e *OrchestrationEngine) {
		e.advisor = a
	}
}

// WithClock injects the time source used for createdAt and proposed start times.
func WithClock(c Clock) EngineOption {
	return func(e *OrchestrationEngine) {
		if c != nil {
			e.clock = c
		}
	}
}

// NewOrchestrationEngine wires the pipeline stages. estimator may be nil when
// precise distances are never requested. The config is checked on every pass,
// not here.
func NewOrchestrationEngine(cfg Config, estimator ports.DistanceEstimator, opts ...EngineOption) *OrchestrationEngine {
	e := &OrchestrationEngine{
		cfg:       cfg,
		builder:   NewGreedyClusterBuilder(cfg),
		validator: NewConstraintValidator(cfg),
		matcher:   NewDriverMatcher(),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.assembler = NewRouteAssembler(cfg, estimator, e.clock)

	return e
}

// Config returns the configuration the engine runs with.
func (e *OrchestrationEngine) Config() Config {
	return e.cfg
}

// Orchestrate turns drops into routes. Only an invalid configuration or a
// cancelled context fails the pass; every other problem becomes a rejection or
// a warning.
func (e *OrchestrationEngine) Orchestrate(
	ctx context.Context,
	drops []*drop.Drop,
	drivers []*driver.Driver,
	opts Options,
) (*OrchestrationResult, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}

	result := &OrchestrationResult{GeneratedAt: e.clock().UTC()}

	emergency := opts.EmergencyMode && e.cfg.EmergencyOverrideAllowed
	if opts.EmergencyMode && !emergency {
		result.notes = append(result.notes, "emergency override requested but not allowed by config")
	}

	pool, rejected := screen(drops)
	result.Unassigned = append(result.Unassigned, rejected...)
	result.total = len(pool) + len(rejected)

	radius := e.cfg.ClusterRadiusMeters(len(pool), emergency)
	validation := ValidationOptions{
		Emergency:    emergency,
		RadiusMeters: radius,
		Geofences:    opts.Geofences,
	}

	var candidates []ClusterCandidate
	remaining := pool
	if opts.UseAdvisor && e.advisor != nil && len(pool) > 0 {
		var warning string
		candidates, remaining, warning = e.advise(ctx, pool)
		if warning != "" {
			result.notes = append(result.notes, warning)
		}
	}

	built := e.builder.Build(remaining, radius)
	candidates = append(candidates, built.Clusters...)
	for _, d := range built.Overflow {
		result.Unassigned = append(result.Unassigned, reject(d, ReasonClusterLimitReached,
			fmt.Sprintf("cluster cap of %d reached", e.cfg.MaxClusters)))
	}

	var valid []ValidatedCluster
	for _, c := range candidates {
		outcome := e.validator.Validate(c, validation)
		valid = append(valid, outcome.Valid...)
		result.Unassigned = append(result.Unassigned, outcome.Rejected...)
	}

	driverPool := append([]*driver.Driver(nil), drivers...)
	assembleOpts := AssembleOptions{
		PreferredStart:   opts.PreferredStart,
		PreciseDistances: opts.PreciseDistances,
		breaker:          &legBreaker{},
	}

	for _, cluster := range valid {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("orchestration pass interrupted: %w", err)
		}

		assembled, err := e.assembler.Assemble(ctx, cluster, assembleOpts)
		if err != nil {
			for _, d := range cluster.drops {
				result.Unassigned = append(result.Unassigned, reject(d, ReasonAssemblyFailed, errs.Flatten(err)...))
			}
			continue
		}

		if opts.AssignDrivers || opts.RequireDriver {
			if !e.bindDriver(assembled, &driverPool) && opts.RequireDriver {
				for _, d := range assembled.drops {
					result.Unassigned = append(result.Unassigned, reject(d, ReasonNoDriverAvailable))
				}
				continue
			}
		}

		e.checkLimits(assembled)
		result.Routes = append(result.Routes, assembled)
	}

	e.finalize(result)
	return result, nil
}

// Withdraw removes a route that could not be persisted and lists its members as
// unassigned: drops in conflicted as claimed_by_concurrent_pass, the others as
// route_rolled_back. Metrics and warnings are recomputed. Unknown route IDs are ignored.
func (e *OrchestrationEngine) Withdraw(result *OrchestrationResult, routeID kernel.UUID, conflicted []kernel.UUID, detail string) {
	lost := make(map[kernel.UUID]bool, len(conflicted))
	for _, id := range conflicted {
		lost[id] = true
	}

	for i, r := range result.Routes {
		if !r.route.ID().IsEqual(routeID) {
			continue
		}

		for _, d := range r.drops {
			reason := ReasonRouteRolledBack
			if lost[d.ID()] {
				reason = ReasonClaimedByConcurrentPass
			}
			result.Unassigned = append(result.Unassigned, reject(d, reason, detail))
		}
		result.Routes = append(result.Routes[:i:i], result.Routes[i+1:]...)
		result.notes = append(result.notes, fmt.Sprintf("%s withdrawn: %s", routeLabel(r), detail))
		e.finalize(result)
		return
	}
}

func (e *OrchestrationEngine) finalize(result *OrchestrationResult) {
	result.Metrics = computeMetrics(e.cfg, result.total, result.Routes)

	var (
		overridden bool
		routed     []string
	)
	for _, r := range result.Routes {
		for _, w := range r.Warnings() {
			if w == EmergencyOverrideWarning {
				overridden = true
				continue
			}
			routed = append(routed, fmt.Sprintf("%s: %s", routeLabel(r), w))
		}
	}

	result.Warnings = nil
	if overridden {
		result.Warnings = append(result.Warnings, EmergencyOverrideWarning)
	}
	result.Warnings = append(result.Warnings, result.notes...)
	result.Warnings = append(result.Warnings, routed...)
	result.Warnings = append(result.Warnings, passWarnings(e.cfg, result.Metrics)...)
}

// routeLabel names a route by its first stop so warnings read the same on every
// run over the same input; route IDs are random.
func routeLabel(r AssembledRoute) string {
	if len(r.drops) == 0 {
		return "route " + r.route.ID().String()
	}
	return "route from drop " + r.drops[0].ID().String()
}

// Inspect reports the structural issues of each drop without clustering.
// Drops are reported in input order; a repeated ID is an issue of the repeat.
func (e *OrchestrationEngine) Inspect(drops []*drop.Drop) []DropIssues {
	out := make([]DropIssues, 0, len(drops))
	seen := make(map[kernel.UUID]bool, len(drops))

	for _, d := range drops {
		if d == nil {
			continue
		}
		report := DropIssues{DropID: d.ID(), Issues: d.Issues()}
		if seen[d.ID()] {
			report.Issues = append(report.Issues, "duplicate drop id in request")
		}
		seen[d.ID()] = true
		out = append(out, report)
	}

	return out
}

// screen removes drops that cannot enter clustering: malformed, already routed or repeated.
func screen(drops []*drop.Drop) ([]*drop.Drop, []Rejection) {
	var (
		pool     = make([]*drop.Drop, 0, len(drops))
		rejected []Rejection
		seen     = make(map[kernel.UUID]bool, len(drops))
	)

	for _, d := range drops {
		if d == nil {
			continue
		}

		switch {
		case seen[d.ID()]:
			rejected = append(rejected, reject(d, ReasonDuplicateDrop))
		case d.Validate() != nil:
			rejected = append(rejected, reject(d, ReasonInvalidStructure, d.Issues()...))
		case d.Status() != drop.Pending || d.RouteID() != nil:
			rejected = append(rejected, reject(d, ReasonNotPending, "status is "+d.Status().String()))
		default:
			pool = append(pool, d)
		}
		seen[d.ID()] = true
	}

	return pool, rejected
}

// advise turns advisor groupings into candidates. Unknown or repeated IDs are
// ignored; the drops not covered by any hint are returned for regular clustering.
func (e *OrchestrationEngine) advise(ctx context.Context, pool []*drop.Drop) ([]ClusterCandidate, []*drop.Drop, string) {
	groups, err := e.advisor.SuggestGroupings(ctx, pool)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return nil, pool, "advisor skipped: pass cancelled"
		}
		return nil, pool, fmt.Sprintf("advisor unavailable, using builder only: %v", err)
	}

	byID := make(map[kernel.UUID]*drop.Drop, len(pool))
	for _, d := range pool {
		byID[d.ID()] = d
	}

	used := make(map[kernel.UUID]bool, len(pool))
	var candidates []ClusterCandidate
	for _, group := range groups {
		var members []*drop.Drop
		for _, id := range group {
			d, ok := byID[id]
			if !ok || used[id] {
				continue
			}
			used[id] = true
			members = append(members, d)
		}
		if len(members) > 0 {
			candidates = append(candidates, buildCandidate(SourceAdvisor, members))
		}
	}

	remaining := make([]*drop.Drop, 0, len(pool)-len(used))
	for _, d := range pool {
		if !used[d.ID()] {
			remaining = append(remaining, d)
		}
	}

	return candidates, remaining, ""
}

// bindDriver proposes a driver and charges the pass-local workload so the next
// route prefers someone else.
func (e *OrchestrationEngine) bindDriver(assembled AssembledRoute, pool *[]*driver.Driver) bool {
	id := e.matcher.Match(assembled.route, *pool)
	if id == nil {
		return false
	}

	if err := assembled.route.AssignDriver(*id); err != nil {
		return false
	}

	for i, d := range *pool {
		if d.ID().IsEqual(*id) {
			(*pool)[i] = d.WithAssignment()
			break
		}
	}
	return true
}

func (e *OrchestrationEngine) checkLimits(assembled AssembledRoute) {
	r := assembled.route

	if km := r.TotalDistanceMeters() / kernel.MetersPerKilometer; km > e.cfg.MaxDrivingDistanceKm {
		r.AddWarning(fmt.Sprintf("driving distance %.1f km exceeds %.1f km", km, e.cfg.MaxDrivingDistanceKm))
	}
	if r.TotalDuration() > e.cfg.MaxWorkingHours {
		r.AddWarning(fmt.Sprintf("duration %s exceeds working hours %s", r.TotalDuration(), e.cfg.MaxWorkingHours))
	}
}
