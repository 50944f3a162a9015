package commands_test

import (
	"context"
	"testing"
	"time"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/domain/model/driver"
	"dispatch/internal/core/domain/model/drop"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/route"
	"dispatch/internal/core/ports"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type MockDropRepository struct{ mock.Mock }

func (m *MockDropRepository) Add(ctx context.Context, d *drop.Drop) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDropRepository) Get(ctx context.Context, id kernel.UUID) (*drop.Drop, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*drop.Drop), args.Error(1)
}

func (m *MockDropRepository) GetPendingSnapshot(ctx context.Context, limit int) ([]*drop.Drop, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*drop.Drop), args.Error(1)
}

func (m *MockDropRepository) ClaimForRoute(ctx context.Context, routeID kernel.UUID, dropIDs []kernel.UUID) error {
	args := m.Called(ctx, routeID, dropIDs)
	return args.Error(0)
}

func (m *MockDropRepository) ReleaseRoute(ctx context.Context, routeID kernel.UUID) (int, error) {
	args := m.Called(ctx, routeID)
	return args.Int(0), args.Error(1)
}

type MockRouteRepository struct{ mock.Mock }

func (m *MockRouteRepository) Add(ctx context.Context, r *route.Route) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRouteRepository) Update(ctx context.Context, r *route.Route) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRouteRepository) Get(ctx context.Context, id kernel.UUID) (*route.Route, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*route.Route), args.Error(1)
}

type MockUoW struct{ mock.Mock }

func (m *MockUoW) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUoW) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUoW) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUoW) DropRepository() ports.DropRepository {
	args := m.Called()
	return args.Get(0).(ports.DropRepository)
}

func (m *MockUoW) RouteRepository() ports.RouteRepository {
	args := m.Called()
	return args.Get(0).(ports.RouteRepository)
}

type MockUoWFactory struct{ mock.Mock }

func (m *MockUoWFactory) Create() commands.UoW {
	args := m.Called()
	return args.Get(0).(commands.UoW)
}

type MockDriverDirectory struct{ mock.Mock }

func (m *MockDriverDirectory) GetAvailable(ctx context.Context) ([]*driver.Driver, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*driver.Driver), args.Error(1)
}

func (m *MockDriverDirectory) Get(ctx context.Context, id kernel.UUID) (*driver.Driver, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*driver.Driver), args.Error(1)
}

type MockMetricsRecorder struct{ mock.Mock }

func (m *MockMetricsRecorder) RecordPass(summary ports.PassSummary) {
	m.Called(summary)
}

func (m *MockMetricsRecorder) RecordSkippedTick(job string) {
	m.Called(job)
}

// newDrop builds a pending drop in Manhattan. latOffset moves it north; drops
// three degrees apart never share a route.
func newDrop(t *testing.T, latOffset float64, startOffset time.Duration) *drop.Drop {
	t.Helper()

	d, err := drop.NewDrop(drop.Params{
		ID:                kernel.NewUUID(),
		Pickup:            drop.Point{Lat: 40.7128 + latOffset, Lng: -74.0060, Address: "pickup"},
		Delivery:          drop.Point{Lat: 40.7178 + latOffset, Lng: -74.0010, Address: "delivery"},
		Earliest:          baseTime.Add(startOffset),
		Latest:            baseTime.Add(startOffset + 2*time.Hour),
		Weight:            20,
		Volume:            0.5,
		Tier:              drop.Standard,
		Priority:          5,
		EstimatedDuration: 30 * time.Minute,
		Value:             150,
		CreatedAt:         baseTime.Add(-time.Hour),
	})
	require.NoError(t, err)
	return d
}

func newRoute(t *testing.T, dropIDs ...kernel.UUID) *route.Route {
	t.Helper()

	r, err := route.NewRoute(route.Params{
		ID:                  kernel.NewUUID(),
		DropIDs:             dropIDs,
		TotalOutcome:        150,
		TotalWeight:         20,
		TotalVolume:         0.5,
		TotalDistanceMeters: 1200,
		TotalDuration:       45 * time.Minute,
		WindowStart:         baseTime,
		WindowEnd:           baseTime.Add(2 * time.Hour),
		ProposedStart:       baseTime,
		CreatedAt:           baseTime.Add(-time.Hour),
		Tier:                drop.Standard,
		PriorityScore:       5,
		Metadata:            route.Metadata{AlgorithmVersion: "test"},
	})
	require.NoError(t, err)
	return r
}

func newDriver(t *testing.T, name string, rating float64, active int) *driver.Driver {
	t.Helper()

	d, err := driver.NewDriver(kernel.NewUUID(), name, rating, baseTime.Add(-365*24*time.Hour), active)
	require.NoError(t, err)
	return d
}
