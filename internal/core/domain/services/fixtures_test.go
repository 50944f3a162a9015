package services_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"dispatch/internal/core/domain/model/drop"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	baseTime = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	// Around Manhattan; 0.01 degree of latitude is roughly 1.1 km.
	baseLat = 40.7128
	baseLng = -74.0060
)

func fixedClock() time.Time {
	return baseTime.Add(-time.Hour)
}

type dropOption func(*drop.Params)

func at(latOffset, lngOffset float64) dropOption {
	return func(p *drop.Params) {
		p.Pickup = drop.Point{Lat: baseLat + latOffset, Lng: baseLng + lngOffset, Address: "pickup"}
		p.Delivery = drop.Point{Lat: baseLat + latOffset + 0.005, Lng: baseLng + lngOffset + 0.005, Address: "delivery"}
	}
}

func window(startOffset, length time.Duration) dropOption {
	return func(p *drop.Params) {
		p.Earliest = baseTime.Add(startOffset)
		p.Latest = baseTime.Add(startOffset + length)
	}
}

func weighing(w float64) dropOption {
	return func(p *drop.Params) { p.Weight = w }
}

func volume(v float64) dropOption {
	return func(p *drop.Params) { p.Volume = v }
}

func worth(v float64) dropOption {
	return func(p *drop.Params) { p.Value = v }
}

func tier(t drop.ServiceTier) dropOption {
	return func(p *drop.Params) { p.Tier = t }
}

func priority(n int) dropOption {
	return func(p *drop.Params) { p.Priority = n }
}

func lasting(d time.Duration) dropOption {
	return func(p *drop.Params) { p.EstimatedDuration = d }
}

func newDrop(t *testing.T, opts ...dropOption) *drop.Drop {
	t.Helper()

	p := drop.Params{
		ID:                kernel.NewUUID(),
		Pickup:            drop.Point{Lat: baseLat, Lng: baseLng, Address: "pickup"},
		Delivery:          drop.Point{Lat: baseLat + 0.005, Lng: baseLng + 0.005, Address: "delivery"},
		Earliest:          baseTime,
		Latest:            baseTime.Add(2 * time.Hour),
		Weight:            20,
		Volume:            0.5,
		Tier:              drop.Standard,
		Priority:          5,
		EstimatedDuration: 30 * time.Minute,
		Value:             100,
		CreatedAt:         baseTime.Add(-24 * time.Hour),
	}
	for _, opt := range opts {
		opt(&p)
	}

	d, err := drop.NewDrop(p)
	require.NoError(t, err)
	return d
}

func ids(drops []*drop.Drop) []kernel.UUID {
	out := make([]kernel.UUID, len(drops))
	for i, d := range drops {
		out[i] = d.ID()
	}
	return out
}

type MockDistanceEstimator struct{ mock.Mock }

func (m *MockDistanceEstimator) Estimate(ctx context.Context, from, to kernel.Location) (ports.DistanceEstimate, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(ports.DistanceEstimate), args.Error(1)
}

// stalledEstimator never answers before its context ends.
type stalledEstimator struct {
	calls atomic.Int32
}

func (s *stalledEstimator) Estimate(ctx context.Context, _, _ kernel.Location) (ports.DistanceEstimate, error) {
	s.calls.Add(1)
	<-ctx.Done()
	return ports.DistanceEstimate{}, ctx.Err()
}

type MockAdvisor struct{ mock.Mock }

func (m *MockAdvisor) SuggestGroupings(ctx context.Context, drops []*drop.Drop) ([][]kernel.UUID, error) {
	args := m.Called(ctx, drops)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]kernel.UUID), args.Error(1)
}
