// Package pgerr classifies PostgreSQL errors raised through GORM and pgx.
package pgerr

import (
	"errors"
	"fmt"

	"dispatch/internal/core/ports"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	SerializationFailure = "40001"
	DeadlockDetected     = "40P01"
	UniqueViolation      = "23505"
)

// Translate wraps serialization failures, deadlocks and unique violations in
// ports.ErrConcurrentUpdate. Other errors are returned unchanged.
func Translate(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case SerializationFailure, DeadlockDetected, UniqueViolation:
		return fmt.Errorf("%w: %w", ports.ErrConcurrentUpdate, err)
	default:
		return err
	}
}
