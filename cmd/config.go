package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"dispatch/internal/core/domain/services"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPPort   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	RedisURL string

	ORSAPIKey        string
	ORSBaseURL       string
	ORSRatePerSecond float64
	DistanceTimeout  time.Duration

	AdvisorURL     string
	AdvisorTimeout time.Duration

	OrchestrationSchedule      string
	OrchestrationPassTimeout   time.Duration
	OrchestrationSnapshotLimit int
	OrchestrationConfigPath    string
	AutoAssignDrivers          bool
	PreciseDistances           bool
}

// DSN is the libpq connection string for the configured database.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSslMode)
}

// LoadDotEnv reads path into the process environment. Variables already set
// in the environment win, and a missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// LoadConfig builds the Config from getenv, usually os.Getenv. Every malformed
// value is reported at once.
func LoadConfig(getenv func(string) string) (Config, error) {
	env := envReader{getenv: getenv}

	cfg := Config{
		HTTPPort:   env.getString("HTTP_PORT", "8080"),
		DBHost:     env.getString("DB_HOST", "localhost"),
		DBPort:     env.getString("DB_PORT", "5432"),
		DBUser:     env.getString("DB_USER", "postgres"),
		DBPassword: env.getString("DB_PASSWORD", ""),
		DBName:     env.getString("DB_NAME", "dispatch"),
		DBSslMode:  env.getString("DB_SSLMODE", "disable"),

		RedisURL: env.getString("REDIS_URL", ""),

		ORSAPIKey:        env.getString("ORS_API_KEY", ""),
		ORSBaseURL:       env.getString("ORS_BASE_URL", ""),
		ORSRatePerSecond: env.getFloat("ORS_RATE_PER_SECOND", 0),
		DistanceTimeout:  env.getDuration("DISTANCE_TIMEOUT", 2*time.Second),

		AdvisorURL:     env.getString("ADVISOR_URL", ""),
		AdvisorTimeout: env.getDuration("ADVISOR_TIMEOUT", 5*time.Second),

		OrchestrationSchedule:      env.getString("ORCHESTRATION_SCHEDULE", ""),
		OrchestrationPassTimeout:   env.getDuration("ORCHESTRATION_PASS_TIMEOUT", 0),
		OrchestrationSnapshotLimit: env.getInt("ORCHESTRATION_SNAPSHOT_LIMIT", 0),
		OrchestrationConfigPath:    env.getString("ORCHESTRATION_CONFIG", ""),
		AutoAssignDrivers:          env.getBool("AUTO_ASSIGN_DRIVERS", false),
		PreciseDistances:           env.getBool("PRECISE_DISTANCES", false),
	}

	if env.err != nil {
		return Config{}, env.err
	}
	return cfg, nil
}

type envReader struct {
	getenv func(string) string
	err    error
}

func (r *envReader) getString(key, def string) string {
	if v := strings.TrimSpace(r.getenv(key)); v != "" {
		return v
	}
	return def
}

func (r *envReader) parse(key string, parse func(string) error) {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return
	}
	if err := parse(v); err != nil {
		r.err = errors.Join(r.err, fmt.Errorf("%s: %w", key, err))
	}
}

func (r *envReader) getFloat(key string, def float64) float64 {
	out := def
	r.parse(key, func(v string) (err error) {
		out, err = strconv.ParseFloat(v, 64)
		return err
	})
	return out
}

func (r *envReader) getInt(key string, def int) int {
	out := def
	r.parse(key, func(v string) (err error) {
		out, err = strconv.Atoi(v)
		return err
	})
	return out
}

func (r *envReader) getBool(key string, def bool) bool {
	out := def
	r.parse(key, func(v string) (err error) {
		out, err = strconv.ParseBool(v)
		return err
	})
	return out
}

func (r *envReader) getDuration(key string, def time.Duration) time.Duration {
	out := def
	r.parse(key, func(v string) (err error) {
		out, err = time.ParseDuration(v)
		return err
	})
	return out
}

// orchestrationFile is the YAML form of services.Config. Absent keys keep the
// default value.
type orchestrationFile struct {
	MaxClusterRadiusMiles    *float64       `yaml:"maxClusterRadiusMiles"`
	AdaptiveRadius           *bool          `yaml:"adaptiveRadius"`
	MinDropsPerCluster       *int           `yaml:"minDropsPerCluster"`
	MaxDropsPerCluster       *int           `yaml:"maxDropsPerCluster"`
	MaxClusters              *int           `yaml:"maxClusters"`
	MaxRouteWeight           *float64       `yaml:"maxRouteWeight"`
	MaxRouteVolume           *float64       `yaml:"maxRouteVolume"`
	MaxRouteDuration         *time.Duration `yaml:"maxRouteDuration"`
	MaxDropsPerRoute         *int           `yaml:"maxDropsPerRoute"`
	MaxTimeWindowSpread      *time.Duration `yaml:"maxTimeWindowSpread"`
	BufferTimePerDrop        *time.Duration `yaml:"bufferTimePerDrop"`
	AllowMixedTiers          *bool          `yaml:"allowMixedTiers"`
	PriorityWeighting        *float64       `yaml:"priorityWeighting"`
	MaxDrivingDistanceKm     *float64       `yaml:"maxDrivingDistanceKm"`
	MaxWorkingHours          *time.Duration `yaml:"maxWorkingHours"`
	MinRouteValue            *float64       `yaml:"minRouteValue"`
	EmergencyOverrideAllowed *bool          `yaml:"emergencyOverrideAllowed"`
	AverageSpeedKph          *float64       `yaml:"averageSpeedKph"`
	EmptyKmCost              *float64       `yaml:"emptyKmCost"`
	LowEfficiencyThreshold   *float64       `yaml:"lowEfficiencyThreshold"`
	LowAssignmentRate        *float64       `yaml:"lowAssignmentRate"`
	Efficiency               *struct {
		Routed      *float64 `yaml:"routed"`
		Utilization *float64 `yaml:"utilization"`
		EmptyTravel *float64 `yaml:"emptyTravel"`
	} `yaml:"efficiency"`
}

// LoadOrchestrationConfig layers the YAML file at path over
// services.DefaultConfig and validates the result. An empty path yields the
// defaults.
func LoadOrchestrationConfig(path string) (services.Config, error) {
	cfg := services.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return services.Config{}, fmt.Errorf("read orchestration config: %w", err)
	}

	cfg, err = ParseOrchestrationConfig(data, cfg)
	if err != nil {
		return services.Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseOrchestrationConfig applies the YAML document in data on top of base.
// Unknown keys are rejected.
func ParseOrchestrationConfig(data []byte, base services.Config) (services.Config, error) {
	var file orchestrationFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return services.Config{}, fmt.Errorf("decode orchestration config: %w", err)
	}

	cfg := base
	set(&cfg.MaxClusterRadiusMiles, file.MaxClusterRadiusMiles)
	set(&cfg.AdaptiveRadius, file.AdaptiveRadius)
	set(&cfg.MinDropsPerCluster, file.MinDropsPerCluster)
	set(&cfg.MaxDropsPerCluster, file.MaxDropsPerCluster)
	set(&cfg.MaxClusters, file.MaxClusters)
	set(&cfg.MaxRouteWeight, file.MaxRouteWeight)
	set(&cfg.MaxRouteVolume, file.MaxRouteVolume)
	set(&cfg.MaxRouteDuration, file.MaxRouteDuration)
	set(&cfg.MaxDropsPerRoute, file.MaxDropsPerRoute)
	set(&cfg.MaxTimeWindowSpread, file.MaxTimeWindowSpread)
	set(&cfg.BufferTimePerDrop, file.BufferTimePerDrop)
	set(&cfg.AllowMixedTiers, file.AllowMixedTiers)
	set(&cfg.PriorityWeighting, file.PriorityWeighting)
	set(&cfg.MaxDrivingDistanceKm, file.MaxDrivingDistanceKm)
	set(&cfg.MaxWorkingHours, file.MaxWorkingHours)
	set(&cfg.MinRouteValue, file.MinRouteValue)
	set(&cfg.EmergencyOverrideAllowed, file.EmergencyOverrideAllowed)
	set(&cfg.AverageSpeedKph, file.AverageSpeedKph)
	set(&cfg.EmptyKmCost, file.EmptyKmCost)
	set(&cfg.LowEfficiencyThreshold, file.LowEfficiencyThreshold)
	set(&cfg.LowAssignmentRate, file.LowAssignmentRate)
	if file.Efficiency != nil {
		set(&cfg.Efficiency.Routed, file.Efficiency.Routed)
		set(&cfg.Efficiency.Utilization, file.Efficiency.Utilization)
		set(&cfg.Efficiency.EmptyTravel, file.Efficiency.EmptyTravel)
	}

	if err := cfg.Validate(); err != nil {
		return services.Config{}, err
	}
	return cfg, nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
