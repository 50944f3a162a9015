// Package routerepo persists route aggregates with their ordered stops.
package routerepo

import (
	"time"

	"dispatch/internal/core/domain/model/drop"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/route"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// RouteDTO is the row layout of the routes table.
type RouteDTO struct {
	ID                   uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Status               string         `gorm:"type:varchar(32);not null;index"`
	DriverID             *uuid.UUID     `gorm:"type:uuid;index"`
	CompletedDrops       int            `gorm:"type:int;not null"`
	TotalOutcome         float64        `gorm:"type:double precision;not null"`
	TotalWeight          float64        `gorm:"type:double precision;not null"`
	TotalVolume          float64        `gorm:"type:double precision;not null"`
	TotalDistanceMeters  float64        `gorm:"type:double precision;not null"`
	TotalDurationSeconds int64          `gorm:"type:bigint;not null"`
	WindowStart          time.Time      `gorm:"not null"`
	WindowEnd            time.Time      `gorm:"not null"`
	ProposedStart        time.Time      `gorm:"not null"`
	Tier                 string         `gorm:"type:varchar(16);not null"`
	PriorityScore        float64        `gorm:"type:double precision;not null"`
	AlgorithmVersion     string         `gorm:"type:varchar(64)"`
	Notes                string         `gorm:"type:text"`
	Warnings             pq.StringArray `gorm:"type:text[]"`
	FailureReason        string         `gorm:"type:text"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
	Stops                []RouteStopDTO `gorm:"foreignKey:RouteID;constraint:OnDelete:CASCADE"`
}

func (RouteDTO) TableName() string {
	return "routes"
}

// RouteStopDTO is one position of a route. Stops never change after creation.
type RouteStopDTO struct {
	RouteID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	Sequence int       `gorm:"primaryKey;autoIncrement:false"`
	DropID   uuid.UUID `gorm:"type:uuid;not null;index"`
}

func (RouteStopDTO) TableName() string {
	return "route_stops"
}

func fromDomain(r *route.Route) RouteDTO {
	routeID := r.ID().Bytes()

	var driverID *uuid.UUID
	if id := r.DriverID(); id != nil {
		raw := id.Bytes()
		driverID = &raw
	}

	stops := make([]RouteStopDTO, 0, r.TotalDrops())
	for _, s := range r.Stops() {
		stops = append(stops, RouteStopDTO{
			RouteID:  routeID,
			Sequence: s.Sequence(),
			DropID:   s.DropID().Bytes(),
		})
	}

	meta := r.Metadata()
	warnings := pq.StringArray{}
	warnings = append(warnings, meta.Warnings...)

	return RouteDTO{
		ID:                   routeID,
		Status:               r.Status().String(),
		DriverID:             driverID,
		CompletedDrops:       r.CompletedDrops(),
		TotalOutcome:         r.TotalOutcome(),
		TotalWeight:          r.TotalWeight(),
		TotalVolume:          r.TotalVolume(),
		TotalDistanceMeters:  r.TotalDistanceMeters(),
		TotalDurationSeconds: int64(r.TotalDuration() / time.Second),
		WindowStart:          r.WindowStart(),
		WindowEnd:            r.WindowEnd(),
		ProposedStart:        r.ProposedStart(),
		Tier:                 r.Tier().String(),
		PriorityScore:        r.PriorityScore(),
		AlgorithmVersion:     meta.AlgorithmVersion,
		Notes:                meta.Notes,
		Warnings:             warnings,
		FailureReason:        r.FailureReason(),
		CreatedAt:            r.CreatedAt(),
		Stops:                stops,
	}
}

func toDomain(dto RouteDTO) (*route.Route, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}

	var driverID *kernel.UUID
	if dto.DriverID != nil {
		dID, driverErr := kernel.UUIDFromBytes((*dto.DriverID)[:])
		if driverErr != nil {
			return nil, driverErr
		}
		driverID = &dID
	}

	dropIDs := make([]kernel.UUID, len(dto.Stops))
	for i, s := range dto.Stops {
		dropID, stopErr := kernel.UUIDFromBytes(s.DropID[:])
		if stopErr != nil {
			return nil, stopErr
		}
		dropIDs[i] = dropID
	}

	status, err := route.ParseStatus(dto.Status)
	if err != nil {
		return nil, err
	}
	tier, err := drop.ParseServiceTier(dto.Tier)
	if err != nil {
		return nil, err
	}

	return route.RestoreRoute(route.Params{
		ID:                  id,
		DropIDs:             dropIDs,
		TotalOutcome:        dto.TotalOutcome,
		TotalWeight:         dto.TotalWeight,
		TotalVolume:         dto.TotalVolume,
		TotalDistanceMeters: dto.TotalDistanceMeters,
		TotalDuration:       time.Duration(dto.TotalDurationSeconds) * time.Second,
		WindowStart:         dto.WindowStart,
		WindowEnd:           dto.WindowEnd,
		ProposedStart:       dto.ProposedStart,
		CreatedAt:           dto.CreatedAt,
		Tier:                tier,
		PriorityScore:       dto.PriorityScore,
		Metadata: route.Metadata{
			AlgorithmVersion: dto.AlgorithmVersion,
			Notes:            dto.Notes,
			Warnings:         []string(dto.Warnings),
		},
	}, status, driverID, dto.CompletedDrops, dto.FailureReason)
}
