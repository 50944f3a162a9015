// Package droprepo persists drop aggregates and implements the conditional claim
// that binds pending drops to a route.
package droprepo

import (
	"time"

	"dispatch/internal/core/domain/model/drop"
	"dispatch/internal/core/domain/model/kernel"

	"github.com/google/uuid"
)

// DropDTO is the row layout of the drops table. The composite pool index serves
// the pending snapshot query.
type DropDTO struct {
	ID                       uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Pickup                   PointDTO   `gorm:"embedded;embeddedPrefix:pickup_"`
	Delivery                 PointDTO   `gorm:"embedded;embeddedPrefix:delivery_"`
	WindowEarliest           time.Time  `gorm:"not null;index:idx_drops_pool,priority:2"`
	WindowLatest             time.Time  `gorm:"not null"`
	Weight                   float64    `gorm:"type:double precision;not null"`
	Volume                   float64    `gorm:"type:double precision;not null"`
	Tier                     string     `gorm:"type:varchar(16);not null"`
	Priority                 int        `gorm:"type:int;not null"`
	EstimatedDurationSeconds int64      `gorm:"type:bigint;not null"`
	Value                    float64    `gorm:"type:double precision;not null"`
	Status                   string     `gorm:"type:varchar(32);not null;index:idx_drops_pool,priority:1"`
	RouteID                  *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

func (DropDTO) TableName() string {
	return "drops"
}

// PointDTO is an embedded coordinate pair with its address.
type PointDTO struct {
	Lat     float64 `gorm:"type:double precision;not null"`
	Lng     float64 `gorm:"type:double precision;not null"`
	Address string  `gorm:"type:varchar(512)"`
}

func fromDomain(d *drop.Drop) DropDTO {
	var routeID *uuid.UUID
	if id := d.RouteID(); id != nil {
		raw := id.Bytes()
		routeID = &raw
	}

	return DropDTO{
		ID:                       d.ID().Bytes(),
		Pickup:                   PointDTO{Lat: d.Pickup().Lat(), Lng: d.Pickup().Lng(), Address: d.Pickup().Address()},
		Delivery:                 PointDTO{Lat: d.Delivery().Lat(), Lng: d.Delivery().Lng(), Address: d.Delivery().Address()},
		WindowEarliest:           d.Earliest(),
		WindowLatest:             d.Latest(),
		Weight:                   d.Weight(),
		Volume:                   d.Volume(),
		Tier:                     d.Tier().String(),
		Priority:                 d.Priority(),
		EstimatedDurationSeconds: int64(d.EstimatedDuration() / time.Second),
		Value:                    d.Value(),
		Status:                   d.Status().String(),
		RouteID:                  routeID,
		CreatedAt:                d.CreatedAt(),
	}
}

// toDomain restores a drop without rejecting structural problems: a malformed
// row becomes a drop whose Validate reports the issue, so one bad row cannot
// block a whole orchestration pass.
func toDomain(dto DropDTO) (*drop.Drop, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}

	var routeID *kernel.UUID
	if dto.RouteID != nil {
		rID, routeErr := kernel.UUIDFromBytes((*dto.RouteID)[:])
		if routeErr != nil {
			return nil, routeErr
		}
		routeID = &rID
	}

	tier, _ := drop.ParseServiceTier(dto.Tier)
	status, _ := drop.ParseStatus(dto.Status)

	return drop.RestoreDrop(drop.Params{
		ID:                id,
		Pickup:            drop.Point{Lat: dto.Pickup.Lat, Lng: dto.Pickup.Lng, Address: dto.Pickup.Address},
		Delivery:          drop.Point{Lat: dto.Delivery.Lat, Lng: dto.Delivery.Lng, Address: dto.Delivery.Address},
		Earliest:          dto.WindowEarliest,
		Latest:            dto.WindowLatest,
		Weight:            dto.Weight,
		Volume:            dto.Volume,
		Tier:              tier,
		Priority:          dto.Priority,
		EstimatedDuration: time.Duration(dto.EstimatedDurationSeconds) * time.Second,
		Value:             dto.Value,
		CreatedAt:         dto.CreatedAt,
	}, status, routeID)
}
