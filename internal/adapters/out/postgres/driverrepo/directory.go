package driverrepo

import (
	"context"

	"dispatch/internal/core/domain/model/driver"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/route"
	"dispatch/internal/pkg/errs"

	"gorm.io/gorm"
)

const workloadQuery = `
	SELECT
		d.id,
		d.name,
		d.rating,
		d.registered_at,
		COUNT(r.id) AS active_routes
	FROM drivers d
	LEFT JOIN routes r ON r.driver_id = d.id AND r.status IN (?, ?)
	WHERE d.active
`

// GormDriverDirectory implements ports.DriverDirectory. The workload of a driver
// is the number of routes currently assigned to them or in progress.
type GormDriverDirectory struct {
	db *gorm.DB
}

func NewGormDriverDirectory(db *gorm.DB) *GormDriverDirectory {
	return &GormDriverDirectory{db: db}
}

// GetAvailable lists active drivers ordered by ID.
func (d *GormDriverDirectory) GetAvailable(ctx context.Context) ([]*driver.Driver, error) {
	var rows []workloadRow
	err := d.db.WithContext(ctx).Raw(workloadQuery+`
		GROUP BY d.id, d.name, d.rating, d.registered_at
		ORDER BY d.id
	`, route.Assigned.String(), route.InProgress.String()).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	drivers := make([]*driver.Driver, 0, len(rows))
	for _, row := range rows {
		drv, convErr := toDomain(row)
		if convErr != nil {
			return nil, convErr
		}
		drivers = append(drivers, drv)
	}

	return drivers, nil
}

// Get returns one active driver with its workload.
func (d *GormDriverDirectory) Get(ctx context.Context, id kernel.UUID) (*driver.Driver, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var rows []workloadRow
	err := d.db.WithContext(ctx).Raw(workloadQuery+`
		AND d.id = ?
		GROUP BY d.id, d.name, d.rating, d.registered_at
	`, route.Assigned.String(), route.InProgress.String(), id.Bytes()).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errs.NewObjectNotFoundError("driver", id.String())
	}

	return toDomain(rows[0])
}

func toDomain(row workloadRow) (*driver.Driver, error) {
	id, err := kernel.UUIDFromBytes(row.ID[:])
	if err != nil {
		return nil, err
	}
	return driver.NewDriver(id, row.Name, row.Rating, row.RegisteredAt, row.ActiveRoutes)
}
