package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dispatch/internal/core/domain/model/driver"
	"dispatch/internal/core/domain/model/drop"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
)

// DefaultSnapshotLimit caps the pending pool read by one pass when neither the
// caller nor the engine configuration bounds it. It equals the cluster capacity
// of services.DefaultConfig.
const DefaultSnapshotLimit = 400

// OrchestrateDropsResult is the outcome of one pass. Preview and apply return
// the same shape; in preview Persisted and Conflicts stay zero.
type OrchestrateDropsResult struct {
	Mode         Mode
	Trigger      string
	Result       *services.OrchestrationResult
	SnapshotSize int
	Persisted    int
	Conflicts    int
	StartedAt    time.Time
	FinishedAt   time.Time
}

// OrchestrateDropsCommandHandler loads the pending pool and the available
// drivers, runs the orchestration engine and, in apply mode, stores every route
// in its own transaction together with the claim of its drops.
//
// A route whose claim loses against a concurrent pass is rolled back alone; its
// drops are reported unassigned and the remaining routes are still persisted.
type OrchestrateDropsCommandHandler struct {
	uowFactory    UoWFactory
	drivers       ports.DriverDirectory
	engine        *services.OrchestrationEngine
	snapshotLimit int
	metrics       ports.MetricsRecorder
	logger        *slog.Logger
}

// NewOrchestrateDropsCommandHandler creates the handler. metrics may be nil.
// A non-positive snapshotLimit falls back to the engine's cluster capacity
// (MaxClusters × MaxDropsPerCluster), or DefaultSnapshotLimit without an engine.
func NewOrchestrateDropsCommandHandler(
	uowFactory UoWFactory,
	drivers ports.DriverDirectory,
	engine *services.OrchestrationEngine,
	snapshotLimit int,
	metrics ports.MetricsRecorder,
	logger *slog.Logger,
) OrchestrateDropsCommandHandler {
	if snapshotLimit <= 0 {
		snapshotLimit = DefaultSnapshotLimit
		if engine != nil {
			if capacity := engine.Config().MaxClusters * engine.Config().MaxDropsPerCluster; capacity > 0 {
				snapshotLimit = capacity
			}
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return OrchestrateDropsCommandHandler{
		uowFactory:    uowFactory,
		drivers:       drivers,
		engine:        engine,
		snapshotLimit: snapshotLimit,
		metrics:       metrics,
		logger:        logger.With("component", "orchestrate-drops"),
	}
}

// Handle runs one pass. Errors are returned only for an invalid command, a
// failed snapshot read, an invalid engine configuration or a cancelled context
// before the engine finished.
func (h OrchestrateDropsCommandHandler) Handle(
	ctx context.Context,
	cmd OrchestrateDropsCommand,
) (OrchestrateDropsResult, error) {
	if err := cmd.Validate(); err != nil {
		return OrchestrateDropsResult{}, err
	}

	out := OrchestrateDropsResult{
		Mode:      cmd.Mode(),
		Trigger:   cmd.Trigger(),
		StartedAt: time.Now(),
	}

	drops, inline := cmd.Drops()
	if !inline {
		snapshot, err := h.uowFactory.Create().DropRepository().GetPendingSnapshot(ctx, h.snapshotLimit)
		if err != nil {
			h.record(out, true)
			return OrchestrateDropsResult{}, fmt.Errorf("load pending snapshot: %w", err)
		}
		drops = snapshot
	}
	out.SnapshotSize = len(drops)

	var extra []string
	drivers, err := h.availableDrivers(ctx, cmd.Options())
	if err != nil {
		h.logger.WarnContext(ctx, "driver directory unavailable", "trigger", out.Trigger, "error", err)
		extra = append(extra, fmt.Sprintf("driver directory unavailable: %v", err))
	}

	result, err := h.engine.Orchestrate(ctx, drops, drivers, cmd.Options())
	if err != nil {
		h.record(out, true)
		return OrchestrateDropsResult{}, err
	}
	out.Result = result

	if out.Mode == ModeApply {
		out.Persisted, out.Conflicts = h.persist(ctx, result)
	}
	if len(drops) == h.snapshotLimit && !inline {
		extra = append(extra, fmt.Sprintf("pending snapshot truncated at %d drops", h.snapshotLimit))
	}
	result.Warnings = append(result.Warnings, extra...)

	out.FinishedAt = time.Now()
	h.record(out, false)

	h.logger.InfoContext(ctx, "orchestration pass finished",
		"mode", out.Mode.String(),
		"trigger", out.Trigger,
		"snapshot", out.SnapshotSize,
		"routes", result.Metrics.RoutesCreated,
		"assigned", result.Metrics.AssignedDrops,
		"unassigned", result.Metrics.UnassignedDrops,
		"persisted", out.Persisted,
		"conflicts", out.Conflicts,
		"efficiency", result.Metrics.EfficiencyScore,
		"duration", out.FinishedAt.Sub(out.StartedAt),
	)

	return out, nil
}

func (h OrchestrateDropsCommandHandler) availableDrivers(
	ctx context.Context,
	opts services.Options,
) ([]*driver.Driver, error) {
	if !opts.AssignDrivers && !opts.RequireDriver {
		return nil, nil
	}
	if h.drivers == nil {
		return nil, errors.New("no driver directory configured")
	}
	return h.drivers.GetAvailable(ctx)
}

// persist stores the routes one by one. Routes that fail are withdrawn from
// the result; the pass itself never fails here.
func (h OrchestrateDropsCommandHandler) persist(ctx context.Context, result *services.OrchestrationResult) (int, int) {
	routes := append([]services.AssembledRoute(nil), result.Routes...)

	var persisted, conflicts int
	for _, r := range routes {
		routeID := r.Route().ID()

		if ctxErr := ctx.Err(); ctxErr != nil {
			h.engine.Withdraw(result, routeID, nil, fmt.Sprintf("pass interrupted: %v", ctxErr))
			continue
		}

		err := h.persistRoute(ctx, r)
		if err == nil {
			persisted++
			markAssigned(r.Drops(), routeID)
			continue
		}

		var conflict *ports.ClaimConflictError
		var lost []kernel.UUID
		switch {
		case errors.As(err, &conflict):
			lost = conflict.Conflicted
			conflicts++
		case errors.Is(err, ports.ErrConcurrentUpdate):
			lost = r.DropIDs()
			conflicts++
		}

		h.logger.WarnContext(ctx, "route rolled back",
			"route_id", routeID.String(),
			"drops", len(r.DropIDs()),
			"lost", len(lost),
			"error", err,
		)
		h.engine.Withdraw(result, routeID, lost, err.Error())
	}

	return persisted, conflicts
}

func (h OrchestrateDropsCommandHandler) persistRoute(ctx context.Context, r services.AssembledRoute) error {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if err := uow.RouteRepository().Add(ctx, r.Route()); err != nil {
		return err
	}

	if err := uow.DropRepository().ClaimForRoute(ctx, r.Route().ID(), r.DropIDs()); err != nil {
		return err
	}

	return uow.Commit(ctx)
}

// markAssigned mirrors the committed claim on the in-memory drops.
func markAssigned(drops []*drop.Drop, routeID kernel.UUID) {
	for _, d := range drops {
		_ = d.AssignToRoute(routeID)
	}
}

func (h OrchestrateDropsCommandHandler) record(out OrchestrateDropsResult, failed bool) {
	if h.metrics == nil {
		return
	}

	summary := ports.PassSummary{
		Trigger:   out.Trigger,
		Mode:      out.Mode.String(),
		Duration:  time.Since(out.StartedAt),
		Failed:    failed,
		Conflicts: out.Conflicts,
	}
	if out.Result != nil {
		m := out.Result.Metrics
		summary.Routes = m.RoutesCreated
		summary.AssignedDrops = m.AssignedDrops
		summary.EfficiencyScore = m.EfficiencyScore
		summary.DegradedEstimates = m.DegradedEstimates
		summary.UnassignedByReason = make(map[string]int)
		for _, u := range out.Result.Unassigned {
			summary.UnassignedByReason[string(u.Reason)]++
		}
	}

	h.metrics.RecordPass(summary)
}
