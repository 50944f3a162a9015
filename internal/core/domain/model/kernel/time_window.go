package kernel

import (
	"fmt"
	"time"

	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

// ErrTimeWindowIsNotConstructed is returned when a zero-value TimeWindow is used.
var ErrTimeWindowIsNotConstructed = errs.NewValueIsRequiredError(
	"time window must be created via NewTimeWindow constructor")

// TimeWindow is the interval during which a drop may be serviced.
// The invariant latest > earliest is enforced by NewTimeWindow.
type TimeWindow struct {
	earliest time.Time
	latest   time.Time
	guard    guard.ConstructorGuard
}

// NewTimeWindow validates that latest is strictly after earliest. Both instants
// are normalised to UTC.
//
// Example:
//
//	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
//	tw, err := kernel.NewTimeWindow(start, start.Add(2*time.Hour))
func NewTimeWindow(earliest, latest time.Time) (TimeWindow, error) {
	if earliest.IsZero() {
		return TimeWindow{}, errs.NewValueIsRequiredError("earliest")
	}
	if latest.IsZero() {
		return TimeWindow{}, errs.NewValueIsRequiredError("latest")
	}
	if !latest.After(earliest) {
		return TimeWindow{}, errs.NewValueIsInvalidErrorWithCause(
			"time window",
			fmt.Errorf("latest %s is not after earliest %s", latest.Format(time.RFC3339), earliest.Format(time.RFC3339)),
		)
	}

	return TimeWindow{
		earliest: earliest.UTC(),
		latest:   latest.UTC(),
		guard:    guard.NewConstructorGuard(),
	}, nil
}

// Validate reports whether the TimeWindow was built by NewTimeWindow.
func (w TimeWindow) Validate() error {
	return w.guard.Validate(ErrTimeWindowIsNotConstructed)
}

func (w TimeWindow) Earliest() time.Time {
	return w.earliest
}

func (w TimeWindow) Latest() time.Time {
	return w.latest
}

// Spread is the length of the window.
func (w TimeWindow) Spread() time.Duration {
	return w.latest.Sub(w.earliest)
}

// Contains reports whether t falls inside the closed interval [earliest, latest].
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.earliest) && !t.After(w.latest)
}

func (w TimeWindow) String() string {
	return fmt.Sprintf("TimeWindow(%s..%s)", w.earliest.Format(time.RFC3339), w.latest.Format(time.RFC3339))
}
