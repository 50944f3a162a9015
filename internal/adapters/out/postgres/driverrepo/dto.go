// Package driverrepo reads drivers and their current route workload. Drivers
// are managed elsewhere; this package only exposes them to dispatch.
package driverrepo

import (
	"time"

	"github.com/google/uuid"
)

// DriverDTO is the row layout of the drivers table.
type DriverDTO struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name         string    `gorm:"type:varchar(255);not null"`
	Rating       float64   `gorm:"type:double precision;not null"`
	Active       bool      `gorm:"not null;default:true"`
	RegisteredAt time.Time `gorm:"not null"`
}

func (DriverDTO) TableName() string {
	return "drivers"
}

// workloadRow is one result row of the workload query.
type workloadRow struct {
	ID           uuid.UUID
	Name         string
	Rating       float64
	RegisteredAt time.Time
	ActiveRoutes int
}
