package routerepo

import (
	"context"
	"errors"
	"fmt"

	"dispatch/internal/adapters/out/postgres/pgerr"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/route"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRouteRepository implements ports.RouteRepository using GORM.
//
// Get locks the route row until the surrounding transaction ends and remembers
// the status it read. Update only writes while the row still has that status,
// so two commands that both loaded the route cannot both apply a transition.
type GormRouteRepository struct {
	db     *gorm.DB
	loaded map[kernel.UUID]string
}

func NewGormRouteRepository(db *gorm.DB) *GormRouteRepository {
	return &GormRouteRepository{db: db, loaded: make(map[kernel.UUID]string)}
}

// Add inserts the route and its stops.
func (r *GormRouteRepository) Add(ctx context.Context, aggregate *route.Route) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	return pgerr.Translate(r.db.WithContext(ctx).Create(&dto).Error)
}

// Update writes the mutable part of a route: status, driver, progress, failure
// reason and warnings. Stops are immutable.
func (r *GormRouteRepository) Update(ctx context.Context, aggregate *route.Route) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	query := r.db.WithContext(ctx).
		Model(&RouteDTO{}).
		Where("id = ?", dto.ID)

	prior, seen := r.loaded[aggregate.ID()]
	if seen {
		query = query.Where("status = ?", prior)
	}

	result := query.Updates(map[string]any{
		"status":          dto.Status,
		"driver_id":       dto.DriverID,
		"completed_drops": dto.CompletedDrops,
		"failure_reason":  dto.FailureReason,
		"warnings":        dto.Warnings,
	})
	if result.Error != nil {
		return pgerr.Translate(result.Error)
	}

	if result.RowsAffected == 0 {
		if seen {
			return fmt.Errorf("%w: route %s is no longer %s", ports.ErrConcurrentUpdate, aggregate.ID(), prior)
		}
		return errs.NewObjectNotFoundError("route", aggregate.ID().String())
	}

	r.loaded[aggregate.ID()] = dto.Status
	return nil
}

// Get retrieves a route with its stops in sequence order. Inside a transaction
// the route row stays locked until commit or rollback.
func (r *GormRouteRepository) Get(ctx context.Context, id kernel.UUID) (*route.Route, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dto RouteDTO
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Stops", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence")
		}).
		First(&dto, "id = ?", id.Bytes()).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("route", id.String())
		}
		return nil, err
	}

	aggregate, err := toDomain(dto)
	if err != nil {
		return nil, err
	}

	r.loaded[aggregate.ID()] = dto.Status
	return aggregate, nil
}
