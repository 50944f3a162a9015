package commands_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/domain/model/driver"
	"dispatch/internal/core/domain/model/drop"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/route"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testEngine(cfg services.Config) *services.OrchestrationEngine {
	return services.NewOrchestrationEngine(cfg, nil, services.WithClock(func() time.Time {
		return baseTime.Add(-time.Hour)
	}))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func unassignedReasons(result *services.OrchestrationResult) map[kernel.UUID]services.RejectionReason {
	out := make(map[kernel.UUID]services.RejectionReason, len(result.Unassigned))
	for _, u := range result.Unassigned {
		out[u.DropID] = u.Reason
	}
	return out
}

// snapshotFactory returns a factory whose first UoW serves the pending snapshot.
func snapshotFactory(t *testing.T, drops []*drop.Drop) (*MockUoWFactory, *MockUoW, *MockDropRepository) {
	t.Helper()

	repo := new(MockDropRepository)
	uow := new(MockUoW)
	factory := new(MockUoWFactory)

	factory.On("Create").Return(uow).Once()
	uow.On("DropRepository").Return(repo).Once()
	repo.On("GetPendingSnapshot", t.Context(), commands.DefaultSnapshotLimit).Return(drops, nil).Once()

	return factory, uow, repo
}

func TestOrchestrateDropsCommandHandler_Handle_PreviewDoesNotWrite(t *testing.T) {
	ctx := t.Context()
	first := newDrop(t, 0, 0)
	second := newDrop(t, 3, time.Minute)

	factory, uow, repo := snapshotFactory(t, []*drop.Drop{first, second})
	metrics := new(MockMetricsRecorder)
	metrics.On("RecordPass", mock.Anything).Return().Once()

	cmd, err := commands.NewOrchestrateDropsCommand(commands.ModePreview, "test", services.Options{})
	require.NoError(t, err)

	handler := commands.NewOrchestrateDropsCommandHandler(
		factory, nil, testEngine(services.DefaultConfig()), 0, metrics, discardLogger(),
	)
	out, err := handler.Handle(ctx, cmd)

	require.NoError(t, err)
	assert.Equal(t, commands.ModePreview, out.Mode)
	assert.Equal(t, 2, out.SnapshotSize)
	assert.Zero(t, out.Persisted)
	require.Len(t, out.Result.Routes, 2)
	assert.Equal(t, drop.Pending, first.Status())

	summary := metrics.Calls[0].Arguments.Get(0).(ports.PassSummary)
	assert.Equal(t, "preview", summary.Mode)
	assert.Equal(t, 2, summary.Routes)
	assert.False(t, summary.Failed)

	factory.AssertExpectations(t)
	uow.AssertExpectations(t)
	uow.AssertNotCalled(t, "Begin", mock.Anything)
	repo.AssertExpectations(t)
}

func TestOrchestrateDropsCommandHandler_Handle_ApplyPersistsEachRoute(t *testing.T) {
	ctx := t.Context()
	first := newDrop(t, 0, 0)
	second := newDrop(t, 3, time.Minute)

	factory, _, _ := snapshotFactory(t, []*drop.Drop{first, second})

	firstUoW, secondUoW := new(MockUoW), new(MockUoW)
	routeRepo := new(MockRouteRepository)
	dropRepo := new(MockDropRepository)

	factory.On("Create").Return(firstUoW).Once()
	factory.On("Create").Return(secondUoW).Once()

	mock.InOrder(
		firstUoW.On("Begin", ctx).Return(nil).Once(),
		firstUoW.On("RouteRepository").Return(routeRepo).Once(),
		routeRepo.On("Add", ctx, mock.AnythingOfType("*route.Route")).Return(nil).Once(),
		firstUoW.On("DropRepository").Return(dropRepo).Once(),
		dropRepo.On("ClaimForRoute", ctx, mock.Anything, []kernel.UUID{first.ID()}).Return(nil).Once(),
		firstUoW.On("Commit", ctx).Return(nil).Once(),
		firstUoW.On("Rollback", ctx).Return(nil).Once(),
		secondUoW.On("Begin", ctx).Return(nil).Once(),
		secondUoW.On("RouteRepository").Return(routeRepo).Once(),
		routeRepo.On("Add", ctx, mock.AnythingOfType("*route.Route")).Return(nil).Once(),
		secondUoW.On("DropRepository").Return(dropRepo).Once(),
		dropRepo.On("ClaimForRoute", ctx, mock.Anything, []kernel.UUID{second.ID()}).Return(nil).Once(),
		secondUoW.On("Commit", ctx).Return(nil).Once(),
		secondUoW.On("Rollback", ctx).Return(nil).Once(),
	)

	cmd, err := commands.NewOrchestrateDropsCommand(commands.ModeApply, "test", services.Options{})
	require.NoError(t, err)

	handler := commands.NewOrchestrateDropsCommandHandler(
		factory, nil, testEngine(services.DefaultConfig()), 0, nil, discardLogger(),
	)
	out, err := handler.Handle(ctx, cmd)

	require.NoError(t, err)
	assert.Equal(t, 2, out.Persisted)
	assert.Zero(t, out.Conflicts)
	assert.Len(t, out.Result.Routes, 2)
	assert.Empty(t, out.Result.Unassigned)

	assert.Equal(t, drop.AssignedToRoute, first.Status())
	require.NotNil(t, first.RouteID())
	assert.True(t, first.RouteID().IsEqual(out.Result.Routes[0].Route().ID()))

	factory.AssertExpectations(t)
	firstUoW.AssertExpectations(t)
	secondUoW.AssertExpectations(t)
	routeRepo.AssertExpectations(t)
	dropRepo.AssertExpectations(t)
}

func TestOrchestrateDropsCommandHandler_Handle_ClaimConflictRollsBackOneRoute(t *testing.T) {
	ctx := t.Context()
	first := newDrop(t, 0, 0)
	sibling := newDrop(t, 0.01, 30*time.Second)
	second := newDrop(t, 3, time.Minute)

	factory, _, _ := snapshotFactory(t, []*drop.Drop{first, sibling, second})

	lostUoW, keptUoW := new(MockUoW), new(MockUoW)
	routeRepo := new(MockRouteRepository)
	dropRepo := new(MockDropRepository)
	metrics := new(MockMetricsRecorder)
	metrics.On("RecordPass", mock.Anything).Return().Once()

	factory.On("Create").Return(lostUoW).Once()
	factory.On("Create").Return(keptUoW).Once()

	mock.InOrder(
		lostUoW.On("Begin", ctx).Return(nil).Once(),
		lostUoW.On("RouteRepository").Return(routeRepo).Once(),
		routeRepo.On("Add", ctx, mock.AnythingOfType("*route.Route")).Return(nil).Once(),
		lostUoW.On("DropRepository").Return(dropRepo).Once(),
		dropRepo.On("ClaimForRoute", ctx, mock.Anything, []kernel.UUID{first.ID(), sibling.ID()}).
			Return(ports.NewClaimConflictError(kernel.NewUUID(), []kernel.UUID{first.ID()})).Once(),
		lostUoW.On("Rollback", ctx).Return(nil).Once(),
		keptUoW.On("Begin", ctx).Return(nil).Once(),
		keptUoW.On("RouteRepository").Return(routeRepo).Once(),
		routeRepo.On("Add", ctx, mock.AnythingOfType("*route.Route")).Return(nil).Once(),
		keptUoW.On("DropRepository").Return(dropRepo).Once(),
		dropRepo.On("ClaimForRoute", ctx, mock.Anything, []kernel.UUID{second.ID()}).Return(nil).Once(),
		keptUoW.On("Commit", ctx).Return(nil).Once(),
		keptUoW.On("Rollback", ctx).Return(nil).Once(),
	)

	cmd, err := commands.NewOrchestrateDropsCommand(commands.ModeApply, "test", services.Options{})
	require.NoError(t, err)

	handler := commands.NewOrchestrateDropsCommandHandler(
		factory, nil, testEngine(services.DefaultConfig()), 0, metrics, discardLogger(),
	)
	out, err := handler.Handle(ctx, cmd)

	require.NoError(t, err)
	assert.Equal(t, 1, out.Persisted)
	assert.Equal(t, 1, out.Conflicts)
	require.Len(t, out.Result.Routes, 1)
	assert.Equal(t, []kernel.UUID{second.ID()}, out.Result.Routes[0].DropIDs())

	got := unassignedReasons(out.Result)
	assert.Equal(t, services.ReasonClaimedByConcurrentPass, got[first.ID()])
	assert.Equal(t, services.ReasonRouteRolledBack, got[sibling.ID()])
	assert.Equal(t, 1, out.Result.Metrics.AssignedDrops)
	assert.Equal(t, drop.Pending, first.Status())

	summary := metrics.Calls[0].Arguments.Get(0).(ports.PassSummary)
	assert.Equal(t, 1, summary.Conflicts)
	assert.Equal(t, 1, summary.UnassignedByReason[string(services.ReasonClaimedByConcurrentPass)])

	lostUoW.AssertNotCalled(t, "Commit", mock.Anything)
	lostUoW.AssertExpectations(t)
	keptUoW.AssertExpectations(t)
}

func TestOrchestrateDropsCommandHandler_Handle_CommitFailures(t *testing.T) {
	tests := []struct {
		name          string
		commitErr     error
		wantReason    services.RejectionReason
		wantConflicts int
	}{
		{"serialization failure", ports.ErrConcurrentUpdate, services.ReasonClaimedByConcurrentPass, 1},
		{"other database error", errors.New("connection reset"), services.ReasonRouteRolledBack, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := t.Context()
			only := newDrop(t, 0, 0)

			factory, _, _ := snapshotFactory(t, []*drop.Drop{only})
			uow := new(MockUoW)
			routeRepo := new(MockRouteRepository)
			dropRepo := new(MockDropRepository)

			factory.On("Create").Return(uow).Once()
			mock.InOrder(
				uow.On("Begin", ctx).Return(nil).Once(),
				uow.On("RouteRepository").Return(routeRepo).Once(),
				routeRepo.On("Add", ctx, mock.AnythingOfType("*route.Route")).Return(nil).Once(),
				uow.On("DropRepository").Return(dropRepo).Once(),
				dropRepo.On("ClaimForRoute", ctx, mock.Anything, []kernel.UUID{only.ID()}).Return(nil).Once(),
				uow.On("Commit", ctx).Return(tt.commitErr).Once(),
				uow.On("Rollback", ctx).Return(nil).Once(),
			)

			cmd, err := commands.NewOrchestrateDropsCommand(commands.ModeApply, "test", services.Options{})
			require.NoError(t, err)

			handler := commands.NewOrchestrateDropsCommandHandler(
				factory, nil, testEngine(services.DefaultConfig()), 0, nil, discardLogger(),
			)
			out, err := handler.Handle(ctx, cmd)

			require.NoError(t, err)
			assert.Zero(t, out.Persisted)
			assert.Equal(t, tt.wantConflicts, out.Conflicts)
			assert.Empty(t, out.Result.Routes)
			assert.Equal(t, tt.wantReason, unassignedReasons(out.Result)[only.ID()])
			uow.AssertExpectations(t)
		})
	}
}

func TestOrchestrateDropsCommandHandler_Handle_BeginErrorWithdrawsRoute(t *testing.T) {
	ctx := t.Context()
	only := newDrop(t, 0, 0)

	factory, _, _ := snapshotFactory(t, []*drop.Drop{only})
	uow := new(MockUoW)
	factory.On("Create").Return(uow).Once()
	uow.On("Begin", ctx).Return(errors.New("begin error")).Once()

	cmd, err := commands.NewOrchestrateDropsCommand(commands.ModeApply, "test", services.Options{})
	require.NoError(t, err)

	handler := commands.NewOrchestrateDropsCommandHandler(
		factory, nil, testEngine(services.DefaultConfig()), 0, nil, discardLogger(),
	)
	out, err := handler.Handle(ctx, cmd)

	require.NoError(t, err)
	assert.Empty(t, out.Result.Routes)
	assert.Equal(t, services.ReasonRouteRolledBack, unassignedReasons(out.Result)[only.ID()])
	uow.AssertNotCalled(t, "Rollback", mock.Anything)
}

func TestOrchestrateDropsCommandHandler_Handle_SnapshotError(t *testing.T) {
	ctx := t.Context()

	repo := new(MockDropRepository)
	uow := new(MockUoW)
	factory := new(MockUoWFactory)
	metrics := new(MockMetricsRecorder)

	mock.InOrder(
		factory.On("Create").Return(uow).Once(),
		uow.On("DropRepository").Return(repo).Once(),
		repo.On("GetPendingSnapshot", ctx, 100).Return(nil, errors.New("db down")).Once(),
	)
	metrics.On("RecordPass", mock.MatchedBy(func(s ports.PassSummary) bool { return s.Failed })).Return().Once()

	cmd, err := commands.NewOrchestrateDropsCommand(commands.ModeApply, "test", services.Options{})
	require.NoError(t, err)

	handler := commands.NewOrchestrateDropsCommandHandler(
		factory, nil, testEngine(services.DefaultConfig()), 100, metrics, discardLogger(),
	)
	_, err = handler.Handle(ctx, cmd)

	require.ErrorContains(t, err, "db down")
	metrics.AssertExpectations(t)
}

func TestOrchestrateDropsCommandHandler_Handle_Drivers(t *testing.T) {
	t.Run("should propose drivers from the directory", func(t *testing.T) {
		ctx := t.Context()
		factory, _, _ := snapshotFactory(t, []*drop.Drop{newDrop(t, 0, 0)})
		alice := newDriver(t, "Alice", 4.8, 0)

		drivers := new(MockDriverDirectory)
		drivers.On("GetAvailable", ctx).Return([]*driver.Driver{alice}, nil).Once()

		cmd, err := commands.NewOrchestrateDropsCommand(commands.ModePreview, "test", services.Options{AssignDrivers: true})
		require.NoError(t, err)

		handler := commands.NewOrchestrateDropsCommandHandler(
			factory, drivers, testEngine(services.DefaultConfig()), 0, nil, discardLogger(),
		)
		out, err := handler.Handle(ctx, cmd)

		require.NoError(t, err)
		require.Len(t, out.Result.Routes, 1)
		r := out.Result.Routes[0].Route()
		assert.Equal(t, route.Assigned, r.Status())
		assert.True(t, r.DriverID().IsEqual(alice.ID()))
		drivers.AssertExpectations(t)
	})

	t.Run("should warn and continue when the directory fails", func(t *testing.T) {
		ctx := t.Context()
		factory, _, _ := snapshotFactory(t, []*drop.Drop{newDrop(t, 0, 0)})

		drivers := new(MockDriverDirectory)
		drivers.On("GetAvailable", ctx).Return(nil, errors.New("directory down")).Once()

		cmd, err := commands.NewOrchestrateDropsCommand(commands.ModePreview, "test", services.Options{AssignDrivers: true})
		require.NoError(t, err)

		handler := commands.NewOrchestrateDropsCommandHandler(
			factory, drivers, testEngine(services.DefaultConfig()), 0, nil, discardLogger(),
		)
		out, err := handler.Handle(ctx, cmd)

		require.NoError(t, err)
		require.Len(t, out.Result.Routes, 1)
		assert.Equal(t, route.PendingAssignment, out.Result.Routes[0].Route().Status())
		assert.Contains(t, out.Result.Warnings, "driver directory unavailable: directory down")
	})

	t.Run("should not query drivers unless asked", func(t *testing.T) {
		ctx := t.Context()
		factory, _, _ := snapshotFactory(t, []*drop.Drop{newDrop(t, 0, 0)})
		drivers := new(MockDriverDirectory)

		cmd, err := commands.NewOrchestrateDropsCommand(commands.ModePreview, "test", services.Options{})
		require.NoError(t, err)

		handler := commands.NewOrchestrateDropsCommandHandler(
			factory, drivers, testEngine(services.DefaultConfig()), 0, nil, discardLogger(),
		)
		_, err = handler.Handle(ctx, cmd)

		require.NoError(t, err)
		drivers.AssertNotCalled(t, "GetAvailable", mock.Anything)
	})
}

func TestOrchestrateDropsCommandHandler_Handle_InlinePreview(t *testing.T) {
	factory := new(MockUoWFactory)
	d := newDrop(t, 0, 0)

	cmd, err := commands.NewPreviewDropsCommand("api", []*drop.Drop{d}, services.Options{})
	require.NoError(t, err)

	handler := commands.NewOrchestrateDropsCommandHandler(
		factory, nil, testEngine(services.DefaultConfig()), 0, nil, discardLogger(),
	)
	out, err := handler.Handle(t.Context(), cmd)

	require.NoError(t, err)
	assert.Equal(t, 1, out.SnapshotSize)
	require.Len(t, out.Result.Routes, 1)
	factory.AssertNotCalled(t, "Create")
}

func TestOrchestrateDropsCommandHandler_Handle_SnapshotTruncationWarning(t *testing.T) {
	ctx := t.Context()
	only := newDrop(t, 0, 0)

	repo := new(MockDropRepository)
	uow := new(MockUoW)
	factory := new(MockUoWFactory)
	factory.On("Create").Return(uow).Once()
	uow.On("DropRepository").Return(repo).Once()
	repo.On("GetPendingSnapshot", ctx, 1).Return([]*drop.Drop{only}, nil).Once()

	cmd, err := commands.NewOrchestrateDropsCommand(commands.ModePreview, "test", services.Options{})
	require.NoError(t, err)

	handler := commands.NewOrchestrateDropsCommandHandler(
		factory, nil, testEngine(services.DefaultConfig()), 1, nil, discardLogger(),
	)
	out, err := handler.Handle(ctx, cmd)

	require.NoError(t, err)
	assert.Contains(t, out.Result.Warnings, "pending snapshot truncated at 1 drops")
}

func TestOrchestrateDropsCommandHandler_Handle_SnapshotLimitFollowsClusterCapacity(t *testing.T) {
	t.Run("should read the default cluster capacity", func(t *testing.T) {
		cfg := services.DefaultConfig()
		assert.Equal(t, cfg.MaxClusters*cfg.MaxDropsPerCluster, commands.DefaultSnapshotLimit)
	})

	t.Run("should size the snapshot from the engine configuration", func(t *testing.T) {
		ctx := t.Context()
		cfg := services.DefaultConfig()
		cfg.MaxClusters = 3
		cfg.MaxDropsPerCluster = 4

		repo := new(MockDropRepository)
		uow := new(MockUoW)
		factory := new(MockUoWFactory)
		factory.On("Create").Return(uow).Once()
		uow.On("DropRepository").Return(repo).Once()
		repo.On("GetPendingSnapshot", ctx, 12).Return([]*drop.Drop{newDrop(t, 0, 0)}, nil).Once()

		cmd, err := commands.NewOrchestrateDropsCommand(commands.ModePreview, "test", services.Options{})
		require.NoError(t, err)

		handler := commands.NewOrchestrateDropsCommandHandler(factory, nil, testEngine(cfg), 0, nil, discardLogger())
		out, err := handler.Handle(ctx, cmd)

		require.NoError(t, err)
		assert.Equal(t, 1, out.SnapshotSize)
		repo.AssertExpectations(t)
	})
}

func TestOrchestrateDropsCommandHandler_Handle_InvalidConfig(t *testing.T) {
	cfg := services.DefaultConfig()
	cfg.MaxDropsPerRoute = 0

	cmd, err := commands.NewPreviewDropsCommand("api", nil, services.Options{})
	require.NoError(t, err)

	handler := commands.NewOrchestrateDropsCommandHandler(new(MockUoWFactory), nil, testEngine(cfg), 0, nil, discardLogger())
	_, err = handler.Handle(t.Context(), cmd)

	require.ErrorIs(t, err, services.ErrInvalidConfig)
}

func TestOrchestrateDropsCommandHandler_Handle_ValidationError(t *testing.T) {
	factory := new(MockUoWFactory)
	handler := commands.NewOrchestrateDropsCommandHandler(factory, nil, testEngine(services.DefaultConfig()), 0, nil, nil)

	_, err := handler.Handle(t.Context(), commands.OrchestrateDropsCommand{})

	require.ErrorIs(t, err, commands.ErrOrchestrateDropsCommandIsNotConstructed)
	factory.AssertNotCalled(t, "Create")
}
