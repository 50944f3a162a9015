package route

import (
	"fmt"
	"strings"

	"dispatch/internal/pkg/errs"
)

// Status is the lifecycle state of a Route.
type Status int

const (
	Unknown Status = iota
	PendingAssignment
	Assigned
	InProgress
	Completed
	Failed
)

var statusNames = map[Status]string{
	PendingAssignment: "pending_assignment",
	Assigned:          "assigned",
	InProgress:        "in_progress",
	Completed:         "completed",
	Failed:            "failed",
}

// ParseStatus converts a persisted/wire status name into a Status.
func ParseStatus(s string) (Status, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for status, name := range statusNames {
		if name == needle {
			return status, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%q is not a valid route status", s))
}

func (s Status) Validate() error {
	if _, ok := statusNames[s]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// IsActive reports whether the route still occupies its driver.
func (s Status) IsActive() bool {
	return s == Assigned || s == InProgress
}

// ValidateCanHaveDriver checks driver presence against the status: a pending
// route has no driver, every later state except Failed requires one.
func (s Status) ValidateCanHaveDriver(hasDriver bool) error {
	if hasDriver && s == PendingAssignment {
		return errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to have a driver", s),
		)
	}

	if !hasDriver && (s == Assigned || s == InProgress || s == Completed) {
		return errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to have no driver", s),
		)
	}

	return nil
}

// AssignDriver transitions PendingAssignment or Assigned -> Assigned.
func (s Status) AssignDriver() (Status, error) {
	if s != PendingAssignment && s != Assigned {
		return 0, errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to assign a driver", s),
		)
	}
	return Assigned, nil
}

// Start transitions Assigned -> InProgress.
func (s Status) Start() (Status, error) {
	if s != Assigned {
		return 0, errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to start", s),
		)
	}
	return InProgress, nil
}

// Complete transitions InProgress -> Completed.
func (s Status) Complete() (Status, error) {
	if s != InProgress {
		return 0, errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to complete", s),
		)
	}
	return Completed, nil
}

// Fail transitions PendingAssignment, Assigned or InProgress -> Failed.
func (s Status) Fail() (Status, error) {
	if s != PendingAssignment && s != Assigned && s != InProgress {
		return 0, errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to fail", s),
		)
	}
	return Failed, nil
}
