package ports

import (
	"context"
)

// UnitOfWorkFactory creates a fresh UnitOfWork per command so concurrent
// operations stay isolated.
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// UnitOfWork is a business transaction boundary. One route and the claim of its
// member drops are committed together or not at all.
type UnitOfWork interface {
	// Begin starts a new database transaction.
	Begin(ctx context.Context) error

	// Commit commits the current transaction.
	Commit(ctx context.Context) error

	// Rollback rolls back the current transaction. Calling it after Commit
	// returns an error that callers may ignore.
	Rollback(ctx context.Context) error

	// DropRepository returns a repository bound to the current transaction.
	DropRepository() DropRepository

	// RouteRepository returns a repository bound to the current transaction.
	RouteRepository() RouteRepository
}
