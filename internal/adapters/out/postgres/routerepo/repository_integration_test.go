package routerepo_test

import (
	"context"
	"testing"
	"time"

	postgres_adapter "dispatch/internal/adapters/out/postgres"
	"dispatch/internal/adapters/out/postgres/pgtest"
	"dispatch/internal/adapters/out/postgres/routerepo"
	"dispatch/internal/core/domain/model/drop"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/route"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"
)

var baseTime = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type RouteRepositoryIntegrationTestSuite struct {
	suite.Suite
	container  *postgres.PostgresContainer
	db         *gorm.DB
	repository *routerepo.GormRouteRepository
}

func (suite *RouteRepositoryIntegrationTestSuite) SetupSuite() {
	container, db, err := pgtest.Start(context.Background())
	suite.Require().NoError(err)
	suite.container = container
	suite.db = db

	suite.Require().NoError(postgres_adapter.Migrate(db))
}

func (suite *RouteRepositoryIntegrationTestSuite) SetupTest() {
	suite.Require().NoError(suite.db.Exec("TRUNCATE TABLE " + pgtest.Tables).Error)
	suite.repository = routerepo.NewGormRouteRepository(suite.db)
}

func (suite *RouteRepositoryIntegrationTestSuite) TearDownSuite() {
	if suite.container != nil {
		suite.Require().NoError(suite.container.Terminate(context.Background()))
	}
}

func (suite *RouteRepositoryIntegrationTestSuite) createRoute(dropIDs ...kernel.UUID) *route.Route {
	r, err := route.NewRoute(route.Params{
		ID:                  kernel.NewUUID(),
		DropIDs:             dropIDs,
		TotalOutcome:        450,
		TotalWeight:         35,
		TotalVolume:         1.2,
		TotalDistanceMeters: 8200,
		TotalDuration:       95 * time.Minute,
		WindowStart:         baseTime,
		WindowEnd:           baseTime.Add(3 * time.Hour),
		ProposedStart:       baseTime.Add(15 * time.Minute),
		CreatedAt:           baseTime,
		Tier:                drop.Premium,
		PriorityScore:       7.25,
		Metadata: route.Metadata{
			AlgorithmVersion: "v2",
			Notes:            "cluster 1",
			Warnings:         []string{"few drops"},
		},
	})
	suite.Require().NoError(err)
	return r
}

func (suite *RouteRepositoryIntegrationTestSuite) TestAddAndGet_PreservesStopsAndMetadata() {
	ctx := suite.T().Context()
	ids := []kernel.UUID{kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID()}
	original := suite.createRoute(ids...)

	suite.Require().NoError(suite.repository.Add(ctx, original))

	stored, err := suite.repository.Get(ctx, original.ID())
	suite.Require().NoError(err)

	suite.Require().NoError(stored.Validate())
	suite.Equal(route.PendingAssignment, stored.Status())
	suite.Nil(stored.DriverID())
	suite.Equal(ids, stored.DropIDs())
	for i, stop := range stored.Stops() {
		suite.Equal(i, stop.Sequence())
	}
	suite.InDelta(450.0, stored.TotalOutcome(), 1e-9)
	suite.InDelta(8200.0, stored.TotalDistanceMeters(), 1e-9)
	suite.Equal(95*time.Minute, stored.TotalDuration())
	suite.True(stored.ProposedStart().Equal(original.ProposedStart()))
	suite.Equal(drop.Premium, stored.Tier())
	suite.InDelta(7.25, stored.PriorityScore(), 1e-9)
	suite.Equal("v2", stored.Metadata().AlgorithmVersion)
	suite.Equal("cluster 1", stored.Metadata().Notes)
	suite.Equal([]string{"few drops"}, stored.Metadata().Warnings)
}

func (suite *RouteRepositoryIntegrationTestSuite) TestGet_UnknownID_ReturnsNotFound() {
	_, err := suite.repository.Get(suite.T().Context(), kernel.NewUUID())
	suite.Require().ErrorIs(err, errs.ErrObjectNotFound)
}

func (suite *RouteRepositoryIntegrationTestSuite) TestUpdate_PersistsDriverAndFailure() {
	ctx := suite.T().Context()
	r := suite.createRoute(kernel.NewUUID())
	suite.Require().NoError(suite.repository.Add(ctx, r))

	driverID := kernel.NewUUID()
	suite.Require().NoError(r.AssignDriver(driverID))
	suite.Require().NoError(suite.repository.Update(ctx, r))

	stored, err := suite.repository.Get(ctx, r.ID())
	suite.Require().NoError(err)
	suite.Equal(route.Assigned, stored.Status())
	suite.Require().NotNil(stored.DriverID())
	suite.True(stored.DriverID().IsEqual(driverID))

	suite.Require().NoError(stored.Fail("vehicle breakdown"))
	suite.Require().NoError(suite.repository.Update(ctx, stored))

	failed, err := suite.repository.Get(ctx, r.ID())
	suite.Require().NoError(err)
	suite.Equal(route.Failed, failed.Status())
	suite.Equal("vehicle breakdown", failed.FailureReason())
}

func (suite *RouteRepositoryIntegrationTestSuite) TestUpdate_UnknownRoute_ReturnsNotFound() {
	r := suite.createRoute(kernel.NewUUID())

	err := suite.repository.Update(suite.T().Context(), r)
	suite.Require().ErrorIs(err, errs.ErrObjectNotFound)
}

func (suite *RouteRepositoryIntegrationTestSuite) TestUpdate_StaleCopyIsRejected() {
	ctx := suite.T().Context()
	r := suite.createRoute(kernel.NewUUID())
	suite.Require().NoError(suite.repository.Add(ctx, r))

	failing := routerepo.NewGormRouteRepository(suite.db)
	assigning := routerepo.NewGormRouteRepository(suite.db)

	toFail, err := failing.Get(ctx, r.ID())
	suite.Require().NoError(err)
	toAssign, err := assigning.Get(ctx, r.ID())
	suite.Require().NoError(err)

	suite.Require().NoError(toFail.Fail("vehicle breakdown"))
	suite.Require().NoError(failing.Update(ctx, toFail))

	suite.Require().NoError(toAssign.AssignDriver(kernel.NewUUID()))
	err = assigning.Update(ctx, toAssign)
	suite.Require().ErrorIs(err, ports.ErrConcurrentUpdate)

	stored, err := suite.repository.Get(ctx, r.ID())
	suite.Require().NoError(err)
	suite.Equal(route.Failed, stored.Status())
	suite.Nil(stored.DriverID())
}

func TestRouteRepositoryIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(RouteRepositoryIntegrationTestSuite))
}
