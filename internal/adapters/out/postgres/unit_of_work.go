// Package postgres provides the GORM-based Unit of Work used by the dispatch
// commands. One unit of work spans one business transaction: for an
// orchestration pass that is a single route together with the claim of its
// drops, so a lost claim rolls back that route only.
//
// Usage:
//
//	uow := factory.Create()
//	if err := uow.Begin(ctx); err != nil {
//	    return err
//	}
//	defer func() {
//	    _ = uow.Rollback(ctx)
//	}()
//
//	if err := uow.RouteRepository().Add(ctx, r); err != nil {
//	    return err
//	}
//	if err := uow.DropRepository().ClaimForRoute(ctx, r.ID(), r.DropIDs()); err != nil {
//	    return err
//	}
//
//	return uow.Commit(ctx)
//
// Concurrency considerations:
//   - Each UnitOfWork instance owns at most one transaction and must not be
//     shared between goroutines
//   - Commit failures caused by concurrent writers (serialization failure,
//     deadlock, unique violation) are reported as ports.ErrConcurrentUpdate
//   - Repositories obtained before Begin run outside the transaction
package postgres

import (
	"context"

	"dispatch/internal/adapters/out/postgres/droprepo"
	"dispatch/internal/adapters/out/postgres/pgerr"
	"dispatch/internal/adapters/out/postgres/routerepo"
	"dispatch/internal/core/ports"

	"gorm.io/gorm"
)

// GormUnitOfWorkFactory creates UnitOfWork instances sharing one connection pool.
type GormUnitOfWorkFactory struct {
	db *gorm.DB
}

// NewGormUnitOfWorkFactory creates a factory for GORM-based unit of work instances.
//
// Example:
//
//	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
//	if err != nil {
//	    log.Fatal("failed to connect database")
//	}
//	factory := NewGormUnitOfWorkFactory(db)
func NewGormUnitOfWorkFactory(db *gorm.DB) *GormUnitOfWorkFactory {
	return &GormUnitOfWorkFactory{db: db}
}

// Create produces a new UnitOfWork with no open transaction.
func (f *GormUnitOfWorkFactory) Create() ports.UnitOfWork {
	return &GormUnitOfWork{db: f.db}
}

// GormUnitOfWork coordinates one database transaction for the drop and route
// repositories.
type GormUnitOfWork struct {
	db *gorm.DB
	tx *gorm.DB
}

// Begin opens the transaction. Calling it again while a transaction is open is a no-op.
func (uow *GormUnitOfWork) Begin(ctx context.Context) error {
	if uow.tx != nil {
		return nil
	}

	tx := uow.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	uow.tx = tx
	return nil
}

// Commit finalizes the transaction. It returns gorm.ErrInvalidTransaction when
// no transaction is open, and an error wrapping ports.ErrConcurrentUpdate when
// PostgreSQL aborted it because of a concurrent writer.
func (uow *GormUnitOfWork) Commit(_ context.Context) error {
	if uow.tx == nil {
		return gorm.ErrInvalidTransaction
	}

	err := uow.tx.Commit().Error
	uow.tx = nil
	return pgerr.Translate(err)
}

// Rollback discards the transaction. After Commit it returns
// gorm.ErrInvalidTransaction, which deferred callers ignore.
func (uow *GormUnitOfWork) Rollback(_ context.Context) error {
	if uow.tx == nil {
		return gorm.ErrInvalidTransaction
	}

	err := uow.tx.Rollback().Error
	uow.tx = nil
	return err
}

// DropRepository returns a drop repository bound to the open transaction, or
// to the pool when none is open.
func (uow *GormUnitOfWork) DropRepository() ports.DropRepository {
	return droprepo.NewGormDropRepository(uow.conn())
}

// RouteRepository returns a route repository bound to the open transaction, or
// to the pool when none is open.
func (uow *GormUnitOfWork) RouteRepository() ports.RouteRepository {
	return routerepo.NewGormRouteRepository(uow.conn())
}

func (uow *GormUnitOfWork) conn() *gorm.DB {
	if uow.tx != nil {
		return uow.tx
	}
	return uow.db
}
