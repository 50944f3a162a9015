// Package services implements the drop-to-route orchestration pipeline.
//
// A pass runs four stages over an immutable snapshot of pending drops:
//   - GreedyClusterBuilder groups drops around seeds within a radius
//   - ConstraintValidator checks capacity, window spread, tier and value rules and splits infeasible groups
//   - RouteAssembler sequences each valid cluster nearest-neighbour style and estimates cost
//   - DriverMatcher proposes the least loaded driver
//
// OrchestrationEngine chains the stages and aggregates routes, rejections and
// efficiency metrics. Each stage has its own type (ClusterCandidate,
// ValidatedCluster, AssembledRoute) so an unvalidated grouping can never reach assembly.
package services
