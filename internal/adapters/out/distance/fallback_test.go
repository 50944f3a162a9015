package distance

import (
	"context"
	"errors"
	"testing"
	"time"

	"dispatch/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFallbackEstimator_Estimate(t *testing.T) {
	from := location(t, 40.7128, -74.0060)
	to := location(t, 40.7306, -73.9352)
	haversine := NewHaversineEstimator(40)

	t.Run("primary answer is passed through", func(t *testing.T) {
		road := ports.DistanceEstimate{Meters: 8450, Duration: 21 * time.Minute, Source: SourceORS}
		primary := new(MockEstimator)
		primary.On("Estimate", mock.Anything, from, to).Return(road, nil).Once()

		est := NewFallbackEstimator(primary, haversine, time.Second, nil, discardLogger())

		got, err := est.Estimate(t.Context(), from, to)
		require.NoError(t, err)
		assert.Equal(t, road, got)
	})

	t.Run("primary error falls back to degraded haversine", func(t *testing.T) {
		primary := new(MockEstimator)
		primary.On("Estimate", mock.Anything, from, to).Return(ports.DistanceEstimate{}, errors.New("ors down")).Once()
		recorder := new(MockFallbackRecorder)
		recorder.On("RecordEstimatorFallback", FallbackReasonError).Once()

		est := NewFallbackEstimator(primary, haversine, time.Second, recorder, discardLogger())

		got, err := est.Estimate(t.Context(), from, to)
		require.NoError(t, err)
		assert.True(t, got.Degraded)
		assert.Equal(t, SourceHaversine, got.Source)
		assert.Positive(t, got.Meters)
		recorder.AssertExpectations(t)
	})

	t.Run("slow primary is cut off by the call timeout", func(t *testing.T) {
		primary := new(MockEstimator)
		primary.On("Estimate", mock.Anything, from, to).
			Run(func(args mock.Arguments) {
				<-args.Get(0).(context.Context).Done()
			}).
			Return(ports.DistanceEstimate{}, context.DeadlineExceeded).
			Once()
		recorder := new(MockFallbackRecorder)
		recorder.On("RecordEstimatorFallback", FallbackReasonTimeout).Once()

		est := NewFallbackEstimator(primary, haversine, 20*time.Millisecond, recorder, discardLogger())

		start := time.Now()
		got, err := est.Estimate(t.Context(), from, to)
		require.NoError(t, err)
		assert.True(t, got.Degraded)
		assert.Less(t, time.Since(start), time.Second)
		recorder.AssertExpectations(t)
	})

	t.Run("cancelled caller gets the cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		primary := new(MockEstimator)
		primary.On("Estimate", mock.Anything, from, to).
			Run(func(mock.Arguments) { cancel() }).
			Return(ports.DistanceEstimate{}, context.Canceled).
			Once()

		est := NewFallbackEstimator(primary, haversine, time.Second, nil, discardLogger())

		_, err := est.Estimate(ctx, from, to)
		require.ErrorIs(t, err, context.Canceled)
	})
}
