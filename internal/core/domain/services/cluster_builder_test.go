package services_test

import (
	"testing"
	"time"

	"dispatch/internal/core/domain/model/drop"
	"dispatch/internal/core/domain/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fiveMiles = 5 * 1609.34

func TestGreedyClusterBuilder_Build(t *testing.T) {
	t.Run("should return empty result for empty input", func(t *testing.T) {
		builder := services.NewGreedyClusterBuilder(services.DefaultConfig())

		result := builder.Build(nil, fiveMiles)

		assert.Empty(t, result.Clusters)
		assert.Empty(t, result.Overflow)
	})

	t.Run("should group nearby drops around the earliest seed", func(t *testing.T) {
		late := newDrop(t, at(0.01, 0), window(time.Hour, 2*time.Hour))
		early := newDrop(t, at(0, 0), window(0, 2*time.Hour))
		mid := newDrop(t, at(0.02, 0), window(30*time.Minute, 2*time.Hour))

		builder := services.NewGreedyClusterBuilder(services.DefaultConfig())
		result := builder.Build([]*drop.Drop{late, early, mid}, fiveMiles)

		require.Len(t, result.Clusters, 1)
		cluster := result.Clusters[0]
		assert.Equal(t, ids([]*drop.Drop{early, mid, late}), cluster.DropIDs())
		assert.Equal(t, services.SourceBuilder, cluster.Source())
		assert.InDelta(t, 60, cluster.TotalWeight(), 0.0001)
		assert.InDelta(t, 1.5, cluster.TotalVolume(), 0.0001)
		assert.Equal(t, []drop.ServiceTier{drop.Standard}, cluster.Tiers())
		assert.InDelta(t, baseLat+0.01, cluster.Centroid().Lat(), 0.0001)
	})

	t.Run("should leave a distant drop as singleton", func(t *testing.T) {
		near := newDrop(t, at(0, 0))
		far := newDrop(t, at(1.0, 0), window(time.Minute, 2*time.Hour))

		builder := services.NewGreedyClusterBuilder(services.DefaultConfig())
		result := builder.Build([]*drop.Drop{near, far}, fiveMiles)

		require.Len(t, result.Clusters, 2)
		assert.Equal(t, 1, result.Clusters[0].Size())
		assert.Equal(t, 1, result.Clusters[1].Size())
		assert.True(t, result.Clusters[1].DropIDs()[0].IsEqual(far.ID()))
	})

	t.Run("should measure the radius from the seed pickup", func(t *testing.T) {
		seed := newDrop(t, at(0, 0))
		// 4 miles north of the seed, within radius
		inside := newDrop(t, at(0.058, 0), window(time.Minute, 2*time.Hour))
		// 8 miles north of the seed but within 5 miles of inside
		outside := newDrop(t, at(0.116, 0), window(2*time.Minute, 2*time.Hour))

		builder := services.NewGreedyClusterBuilder(services.DefaultConfig())
		result := builder.Build([]*drop.Drop{seed, inside, outside}, fiveMiles)

		require.Len(t, result.Clusters, 2)
		assert.Equal(t, ids([]*drop.Drop{seed, inside}), result.Clusters[0].DropIDs())
		assert.Equal(t, ids([]*drop.Drop{outside}), result.Clusters[1].DropIDs())
	})

	t.Run("should cap cluster size", func(t *testing.T) {
		cfg := services.DefaultConfig()
		cfg.MaxDropsPerCluster = 3

		var drops []*drop.Drop
		for i := 0; i < 7; i++ {
			drops = append(drops, newDrop(t, window(time.Duration(i)*time.Minute, 2*time.Hour)))
		}

		result := services.NewGreedyClusterBuilder(cfg).Build(drops, fiveMiles)

		require.Len(t, result.Clusters, 3)
		assert.Equal(t, 3, result.Clusters[0].Size())
		assert.Equal(t, 3, result.Clusters[1].Size())
		assert.Equal(t, 1, result.Clusters[2].Size())
	})

	t.Run("should return overflow once the cluster cap is reached", func(t *testing.T) {
		cfg := services.DefaultConfig()
		cfg.MaxClusters = 2

		var drops []*drop.Drop
		for i := 0; i < 4; i++ {
			drops = append(drops, newDrop(t, at(float64(i), 0), window(time.Duration(i)*time.Minute, 2*time.Hour)))
		}

		result := services.NewGreedyClusterBuilder(cfg).Build(drops, fiveMiles)

		require.Len(t, result.Clusters, 2)
		assert.Equal(t, ids(drops[2:]), ids(result.Overflow))
	})

	t.Run("should break window ties by ID", func(t *testing.T) {
		a := newDrop(t)
		b := newDrop(t)
		first, second := a, b
		if b.ID().Compare(a.ID()) < 0 {
			first, second = b, a
		}

		result := services.NewGreedyClusterBuilder(services.DefaultConfig()).Build([]*drop.Drop{second, first}, fiveMiles)

		require.Len(t, result.Clusters, 1)
		assert.Equal(t, ids([]*drop.Drop{first, second}), result.Clusters[0].DropIDs())
	})

	t.Run("should never place a drop in two clusters", func(t *testing.T) {
		cfg := services.DefaultConfig()
		cfg.MaxDropsPerCluster = 4

		var drops []*drop.Drop
		for i := 0; i < 25; i++ {
			drops = append(drops, newDrop(t,
				at(float64(i%5)*0.03, float64(i/5)*0.03),
				window(time.Duration(i)*time.Minute, 2*time.Hour),
			))
		}

		result := services.NewGreedyClusterBuilder(cfg).Build(drops, fiveMiles)

		seen := map[string]int{}
		for _, c := range result.Clusters {
			assert.LessOrEqual(t, c.Size(), 4)
			for _, id := range c.DropIDs() {
				seen[id.String()]++
			}
		}
		assert.Len(t, seen, len(drops))
		for id, n := range seen {
			assert.Equal(t, 1, n, "drop %s clustered %d times", id, n)
		}
	})
}

func TestNewClusterCandidate_Empty(t *testing.T) {
	_, err := services.NewClusterCandidate(services.SourceAdvisor, nil)

	require.ErrorIs(t, err, services.ErrEmptyCluster)
}
