package distance

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockEstimator struct{ mock.Mock }

func (m *MockEstimator) Estimate(ctx context.Context, from, to kernel.Location) (ports.DistanceEstimate, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(ports.DistanceEstimate), args.Error(1)
}

type MockFallbackRecorder struct{ mock.Mock }

func (m *MockFallbackRecorder) RecordEstimatorFallback(reason string) {
	m.Called(reason)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func location(t *testing.T, lat, lng float64) kernel.Location {
	t.Helper()

	loc, err := kernel.NewLocation(lat, lng, "")
	require.NoError(t, err)
	return loc
}
