package services

import (
	"dispatch/internal/core/domain/model/drop"
)

// ClusterBuildResult holds the candidates produced by a Clusterer together with the
// drops that were left out because the cluster cap was reached.
type ClusterBuildResult struct {
	Clusters []ClusterCandidate
	Overflow []*drop.Drop
}

// Clusterer groups pending drops into candidate clusters. A stronger solver can
// replace the greedy builder behind this interface.
type Clusterer interface {
	Build(drops []*drop.Drop, radiusMeters float64) ClusterBuildResult
}

var _ Clusterer = GreedyClusterBuilder{}

// GreedyClusterBuilder is a domain service that groups drops around seeds.
//
// Algorithm:
//   - Drops are ordered by time window start (older requests first), ties by ID
//   - The first unclustered drop becomes the seed
//   - Unclustered drops whose pickup lies within the radius of the seed pickup
//     are absorbed in order until MaxDropsPerCluster is reached
//   - A drop with no neighbour becomes a singleton cluster
//   - Once MaxClusters candidates exist, the remaining drops are returned as overflow
//
// The builder is deterministic: the same drops and radius always yield the same clusters.
type GreedyClusterBuilder struct {
	maxDropsPerCluster int
	maxClusters        int
}

// NewGreedyClusterBuilder creates a builder bounded by the cluster size and count limits of cfg.
func NewGreedyClusterBuilder(cfg Config) GreedyClusterBuilder {
	return GreedyClusterBuilder{
		maxDropsPerCluster: cfg.MaxDropsPerCluster,
		maxClusters:        cfg.MaxClusters,
	}
}

// Build partitions drops into candidates. Empty input produces an empty result.
func (b GreedyClusterBuilder) Build(drops []*drop.Drop, radiusMeters float64) ClusterBuildResult {
	var result ClusterBuildResult

	sorted := byWindow(drops)
	claimed := make([]bool, len(sorted))

	for i, seed := range sorted {
		if claimed[i] {
			continue
		}

		if len(result.Clusters) >= b.maxClusters {
			for j := i; j < len(sorted); j++ {
				if !claimed[j] {
					result.Overflow = append(result.Overflow, sorted[j])
				}
			}
			break
		}

		claimed[i] = true
		members := []*drop.Drop{seed}

		for j := i + 1; j < len(sorted) && len(members) < b.maxDropsPerCluster; j++ {
			if claimed[j] {
				continue
			}
			if pickupDistance(seed, sorted[j]) <= radiusMeters {
				claimed[j] = true
				members = append(members, sorted[j])
			}
		}

		result.Clusters = append(result.Clusters, buildCandidate(SourceBuilder, members))
	}

	return result
}
