package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"dispatch/internal/core/domain/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(values map[string]string) func(string) string {
	return func(key string) string {
		return values[key]
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfig(envFrom(nil))
		require.NoError(t, err)

		assert.Equal(t, "8080", cfg.HTTPPort)
		assert.Equal(t, "host=localhost port=5432 user=postgres password= dbname=dispatch sslmode=disable", cfg.DSN())
		assert.Equal(t, 2*time.Second, cfg.DistanceTimeout)
		assert.Equal(t, 5*time.Second, cfg.AdvisorTimeout)
		assert.Empty(t, cfg.ORSAPIKey)
		assert.Empty(t, cfg.AdvisorURL)
		assert.False(t, cfg.AutoAssignDrivers)
	})

	t.Run("overrides", func(t *testing.T) {
		cfg, err := LoadConfig(envFrom(map[string]string{
			"HTTP_PORT":                    "9090",
			"DB_HOST":                      "db",
			"REDIS_URL":                    "redis://cache:6379/0",
			"ORS_API_KEY":                  " key ",
			"ORS_RATE_PER_SECOND":          "2.5",
			"DISTANCE_TIMEOUT":             "750ms",
			"ORCHESTRATION_SCHEDULE":       "@every 5m",
			"ORCHESTRATION_PASS_TIMEOUT":   "1m",
			"ORCHESTRATION_SNAPSHOT_LIMIT": "250",
			"AUTO_ASSIGN_DRIVERS":          "true",
			"PRECISE_DISTANCES":            "1",
		}))
		require.NoError(t, err)

		assert.Equal(t, "9090", cfg.HTTPPort)
		assert.Equal(t, "db", cfg.DBHost)
		assert.Equal(t, "redis://cache:6379/0", cfg.RedisURL)
		assert.Equal(t, "key", cfg.ORSAPIKey)
		assert.InDelta(t, 2.5, cfg.ORSRatePerSecond, 1e-9)
		assert.Equal(t, 750*time.Millisecond, cfg.DistanceTimeout)
		assert.Equal(t, "@every 5m", cfg.OrchestrationSchedule)
		assert.Equal(t, time.Minute, cfg.OrchestrationPassTimeout)
		assert.Equal(t, 250, cfg.OrchestrationSnapshotLimit)
		assert.True(t, cfg.AutoAssignDrivers)
		assert.True(t, cfg.PreciseDistances)
	})

	t.Run("reports every malformed value", func(t *testing.T) {
		_, err := LoadConfig(envFrom(map[string]string{
			"DISTANCE_TIMEOUT":             "soon",
			"ORCHESTRATION_SNAPSHOT_LIMIT": "many",
			"AUTO_ASSIGN_DRIVERS":          "maybe",
		}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DISTANCE_TIMEOUT")
		assert.Contains(t, err.Error(), "ORCHESTRATION_SNAPSHOT_LIMIT")
		assert.Contains(t, err.Error(), "AUTO_ASSIGN_DRIVERS")
	})
}

func TestLoadDotEnv_MissingFileIsIgnored(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func TestLoadDotEnv_SetsVariables(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DISPATCH_TEST_DOTENV=loaded\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("DISPATCH_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("DISPATCH_TEST_DOTENV"))
}

func TestParseOrchestrationConfig(t *testing.T) {
	t.Run("overlays present keys only", func(t *testing.T) {
		cfg, err := ParseOrchestrationConfig([]byte(`
maxRouteWeight: 750
maxRouteDuration: 6h
allowMixedTiers: true
efficiency:
  routed: 0.5
`), services.DefaultConfig())
		require.NoError(t, err)

		defaults := services.DefaultConfig()
		assert.InDelta(t, 750.0, cfg.MaxRouteWeight, 1e-9)
		assert.Equal(t, 6*time.Hour, cfg.MaxRouteDuration)
		assert.True(t, cfg.AllowMixedTiers)
		assert.InDelta(t, 0.5, cfg.Efficiency.Routed, 1e-9)
		assert.InDelta(t, defaults.Efficiency.Utilization, cfg.Efficiency.Utilization, 1e-9)
		assert.Equal(t, defaults.MaxDropsPerRoute, cfg.MaxDropsPerRoute)
		assert.InDelta(t, defaults.MinRouteValue, cfg.MinRouteValue, 1e-9)
	})

	t.Run("empty document keeps the base", func(t *testing.T) {
		cfg, err := ParseOrchestrationConfig(nil, services.DefaultConfig())
		require.NoError(t, err)
		assert.Equal(t, services.DefaultConfig(), cfg)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := ParseOrchestrationConfig([]byte("maxRouteWieght: 10\n"), services.DefaultConfig())
		require.Error(t, err)
	})

	t.Run("invalid value fails validation", func(t *testing.T) {
		_, err := ParseOrchestrationConfig([]byte("maxRouteWeight: -1\n"), services.DefaultConfig())
		require.ErrorIs(t, err, services.ErrInvalidConfig)
	})
}

func TestLoadOrchestrationConfig(t *testing.T) {
	t.Run("empty path yields defaults", func(t *testing.T) {
		cfg, err := LoadOrchestrationConfig("")
		require.NoError(t, err)
		assert.Equal(t, services.DefaultConfig(), cfg)
	})

	t.Run("reads the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "orchestration.yaml")
		require.NoError(t, os.WriteFile(path, []byte("minRouteValue: 250\n"), 0o600))

		cfg, err := LoadOrchestrationConfig(path)
		require.NoError(t, err)
		assert.InDelta(t, 250.0, cfg.MinRouteValue, 1e-9)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadOrchestrationConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})
}
