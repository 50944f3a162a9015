package ports

import (
	"errors"
	"fmt"
	"strings"

	"dispatch/internal/core/domain/model/kernel"
)

// ErrConcurrentUpdate is returned when the database aborted a transaction
// because of a concurrent writer (serialization failure, deadlock or a unique
// violation on a claimed row). The whole transaction is lost.
var ErrConcurrentUpdate = errors.New("concurrent update")

// ClaimConflictError reports drops that another orchestration pass claimed first.
type ClaimConflictError struct {
	RouteID    kernel.UUID
	Conflicted []kernel.UUID
}

func NewClaimConflictError(routeID kernel.UUID, conflicted []kernel.UUID) *ClaimConflictError {
	return &ClaimConflictError{
		RouteID:    routeID,
		Conflicted: append([]kernel.UUID(nil), conflicted...),
	}
}

func (e *ClaimConflictError) Error() string {
	ids := make([]string, len(e.Conflicted))
	for i, id := range e.Conflicted {
		ids[i] = id.String()
	}
	return fmt.Sprintf("drops already claimed while binding route %s: %s", e.RouteID, strings.Join(ids, ", "))
}

// IsConflicted reports whether id is among the lost drops.
func (e *ClaimConflictError) IsConflicted(id kernel.UUID) bool {
	for _, c := range e.Conflicted {
		if c.IsEqual(id) {
			return true
		}
	}
	return false
}
