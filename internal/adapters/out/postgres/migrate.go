package postgres

import (
	"dispatch/internal/adapters/out/postgres/driverrepo"
	"dispatch/internal/adapters/out/postgres/droprepo"
	"dispatch/internal/adapters/out/postgres/routerepo"

	"gorm.io/gorm"
)

// Migrate creates or updates the dispatch schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&droprepo.DropDTO{},
		&routerepo.RouteDTO{},
		&routerepo.RouteStopDTO{},
		&driverrepo.DriverDTO{},
	)
}
