package distance

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"
)

// DefaultCallTimeout bounds a single estimator call.
const DefaultCallTimeout = 2 * time.Second

const (
	FallbackReasonTimeout = "timeout"
	FallbackReasonError   = "error"
)

// FallbackRecorder counts estimates that had to fall back to haversine.
type FallbackRecorder interface {
	RecordEstimatorFallback(reason string)
}

// FallbackEstimator bounds each call of the primary estimator and answers with
// a degraded haversine estimate when it fails or runs out of time. Only the
// cancellation of the caller's own context is returned as an error.
type FallbackEstimator struct {
	primary  ports.DistanceEstimator
	fallback HaversineEstimator
	timeout  time.Duration
	recorder FallbackRecorder
	logger   *slog.Logger
}

// NewFallbackEstimator wraps primary. recorder may be nil; a non-positive
// timeout falls back to DefaultCallTimeout.
func NewFallbackEstimator(
	primary ports.DistanceEstimator,
	fallback HaversineEstimator,
	timeout time.Duration,
	recorder FallbackRecorder,
	logger *slog.Logger,
) *FallbackEstimator {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &FallbackEstimator{
		primary:  primary,
		fallback: fallback,
		timeout:  timeout,
		recorder: recorder,
		logger:   logger.With("component", "distance_fallback"),
	}
}

func (f *FallbackEstimator) Estimate(ctx context.Context, from, to kernel.Location) (ports.DistanceEstimate, error) {
	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	est, err := f.primary.Estimate(callCtx, from, to)
	if err == nil {
		return est, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ports.DistanceEstimate{}, ctxErr
	}

	reason := FallbackReasonError
	if errors.Is(err, context.DeadlineExceeded) {
		reason = FallbackReasonTimeout
	}
	if f.recorder != nil {
		f.recorder.RecordEstimatorFallback(reason)
	}
	f.logger.WarnContext(ctx, "distance estimator fell back to haversine", "reason", reason, "error", err)

	degraded, fbErr := f.fallback.Estimate(ctx, from, to)
	if fbErr != nil {
		return ports.DistanceEstimate{}, fbErr
	}
	degraded.Degraded = true
	return degraded, nil
}
