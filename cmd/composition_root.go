package cmd

import (
	"context"
	"errors"
	"log/slog"

	http_adapter "dispatch/internal/adapters/in/http"
	"dispatch/internal/adapters/out/advisor"
	"dispatch/internal/adapters/out/distance"
	"dispatch/internal/adapters/out/metrics"
	"dispatch/internal/adapters/out/postgres"
	"dispatch/internal/adapters/out/postgres/driverrepo"
	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
	"dispatch/internal/jobs"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// CompositionRoot wires adapters, use cases and jobs together. It owns the
// long-lived clients and closes them in Close.
type CompositionRoot struct {
	cfg    Config
	logger *slog.Logger

	gormDB     *gorm.DB
	redis      *redis.Client
	uowFactory *postgres.GormUnitOfWorkFactory
	drivers    ports.DriverDirectory
	metrics    *metrics.Recorder
	engine     *services.OrchestrationEngine

	orchestrationJob *jobs.OrchestrationJob
}

func NewCompositionRoot(cfg Config, engineCfg services.Config, gormDB *gorm.DB, logger *slog.Logger) (*CompositionRoot, error) {
	c := &CompositionRoot{
		cfg:        cfg,
		logger:     logger,
		gormDB:     gormDB,
		uowFactory: postgres.NewGormUnitOfWorkFactory(gormDB),
		drivers:    driverrepo.NewGormDriverDirectory(gormDB),
		metrics:    metrics.NewRecorder(),
	}

	estimator, err := c.buildEstimator(engineCfg.AverageSpeedKph)
	if err != nil {
		return nil, err
	}

	var opts []services.EngineOption
	if cfg.AdvisorURL != "" {
		client, clientErr := advisor.NewClient(cfg.AdvisorURL, cfg.AdvisorTimeout)
		if clientErr != nil {
			return nil, clientErr
		}
		opts = append(opts, services.WithAdvisor(client))
	}
	c.engine = services.NewOrchestrationEngine(engineCfg, estimator, opts...)

	c.orchestrationJob = jobs.NewOrchestrationJob(
		c.CreateOrchestrateDropsCommandHandler(),
		jobs.OrchestrationJobConfig{
			Schedule:    cfg.OrchestrationSchedule,
			PassTimeout: cfg.OrchestrationPassTimeout,
			Options: services.Options{
				AssignDrivers:    cfg.AutoAssignDrivers,
				PreciseDistances: cfg.PreciseDistances,
				UseAdvisor:       cfg.AdvisorURL != "",
			},
		},
		c.metrics,
		logger,
	)

	return c, nil
}

// buildEstimator returns haversine alone without an ORS key, otherwise
// FallbackEstimator(RedisCache(ORSEstimator)), the cache being optional.
func (c *CompositionRoot) buildEstimator(speedKph float64) (ports.DistanceEstimator, error) {
	haversine := distance.NewHaversineEstimator(speedKph)
	if c.cfg.ORSAPIKey == "" {
		return haversine, nil
	}

	ors, err := distance.NewORSEstimator(distance.ORSConfig{
		APIKey:        c.cfg.ORSAPIKey,
		BaseURL:       c.cfg.ORSBaseURL,
		RatePerSecond: c.cfg.ORSRatePerSecond,
	})
	if err != nil {
		return nil, err
	}

	var primary ports.DistanceEstimator = ors
	if c.cfg.RedisURL != "" {
		rdb, redisErr := distance.NewRedisClient(c.cfg.RedisURL)
		if redisErr != nil {
			return nil, redisErr
		}
		c.redis = rdb
		primary = distance.NewRedisCache(primary, rdb, distance.DefaultCacheTTL, c.logger)
	}

	return distance.NewFallbackEstimator(primary, haversine, c.cfg.DistanceTimeout, c.metrics, c.logger), nil
}

func (c *CompositionRoot) uow() commands.UoWFactory {
	return FuncUoWFactory(func() commands.UoW {
		return c.uowFactory.Create()
	})
}

func (c *CompositionRoot) CreateOrchestrateDropsCommandHandler() commands.OrchestrateDropsCommandHandler {
	return commands.NewOrchestrateDropsCommandHandler(
		c.uow(),
		c.drivers,
		c.engine,
		c.cfg.OrchestrationSnapshotLimit,
		c.metrics,
		c.logger,
	)
}

func (c *CompositionRoot) CreateAssignRouteDriverCommandHandler() commands.AssignRouteDriverCommandHandler {
	return commands.NewAssignRouteDriverCommandHandler(c.uow(), c.drivers)
}

func (c *CompositionRoot) CreateFailRouteCommandHandler() commands.FailRouteCommandHandler {
	return commands.NewFailRouteCommandHandler(c.uow())
}

func (c *CompositionRoot) CreateValidateDropsQueryHandler() queries.ValidateDropsQueryHandler {
	return queries.NewValidateDropsQueryHandler(c.engine)
}

func (c *CompositionRoot) CreateGetPendingDropsQueryHandler() queries.GetPendingDropsQueryHandler {
	return queries.NewGetPendingDropsQueryHandler(c.gormDB)
}

func (c *CompositionRoot) CreateGetRouteQueryHandler() queries.GetRouteQueryHandler {
	return queries.NewGetRouteQueryHandler(c.gormDB)
}

func (c *CompositionRoot) CreateJobManager() *jobs.JobManager {
	return jobs.NewJobManager(c.orchestrationJob)
}

// CreateHTTPHandler builds the echo instance with every route mounted.
func (c *CompositionRoot) CreateHTTPHandler(ctx context.Context) (*echo.Echo, error) {
	doc, err := http_adapter.LoadOpenAPI(ctx)
	if err != nil {
		return nil, err
	}

	server := http_adapter.NewServer(
		c.CreateOrchestrateDropsCommandHandler(),
		c.orchestrationJob,
		c.CreateAssignRouteDriverCommandHandler(),
		c.CreateFailRouteCommandHandler(),
		c.CreateValidateDropsQueryHandler(),
		c.CreateGetPendingDropsQueryHandler(),
		c.CreateGetRouteQueryHandler(),
	)

	return http_adapter.NewRouter(server, http_adapter.RouterConfig{
		Logger:  c.logger,
		Metrics: c.metrics,
		OpenAPI: doc,
		Health:  c.health,
	})
}

// health pings PostgreSQL and, when configured, Redis.
func (c *CompositionRoot) health(ctx context.Context) error {
	sqlDB, err := c.gormDB.DB()
	if err != nil {
		return err
	}
	if err = sqlDB.PingContext(ctx); err != nil {
		return err
	}
	if c.redis != nil {
		return c.redis.Ping(ctx).Err()
	}
	return nil
}

// Close releases the Redis client and the database pool.
func (c *CompositionRoot) Close() error {
	var errs []error
	if c.redis != nil {
		errs = append(errs, c.redis.Close())
	}
	if sqlDB, err := c.gormDB.DB(); err != nil {
		errs = append(errs, err)
	} else {
		errs = append(errs, sqlDB.Close())
	}
	return errors.Join(errs...)
}

type FuncUoWFactory func() commands.UoW

func (f FuncUoWFactory) Create() commands.UoW {
	return f()
}
