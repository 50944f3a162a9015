package droprepo

import (
	"context"
	"errors"

	"dispatch/internal/adapters/out/postgres/pgerr"
	"dispatch/internal/core/domain/model/drop"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDropRepository implements ports.DropRepository using GORM.
type GormDropRepository struct {
	db *gorm.DB
}

// NewGormDropRepository creates a repository bound to db, which is either the
// pool or an open transaction.
func NewGormDropRepository(db *gorm.DB) *GormDropRepository {
	return &GormDropRepository{db: db}
}

// Add saves a new drop. Structurally invalid drops are refused.
func (r *GormDropRepository) Add(ctx context.Context, aggregate *drop.Drop) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	return pgerr.Translate(r.db.WithContext(ctx).Create(&dto).Error)
}

// Get retrieves a drop by ID.
func (r *GormDropRepository) Get(ctx context.Context, id kernel.UUID) (*drop.Drop, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dto DropDTO
	if err := r.db.WithContext(ctx).First(&dto, "id = ?", id.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("drop", id.String())
		}
		return nil, err
	}

	return toDomain(dto)
}

// GetPendingSnapshot returns up to limit unbound pending drops, earliest window first.
func (r *GormDropRepository) GetPendingSnapshot(ctx context.Context, limit int) ([]*drop.Drop, error) {
	if limit <= 0 {
		return nil, errs.NewValueIsOutOfRangeError("limit", limit, 1, "unbounded")
	}

	var dtos []DropDTO
	err := r.db.WithContext(ctx).
		Where("status = ? AND route_id IS NULL", drop.Pending.String()).
		Order("window_earliest, id").
		Limit(limit).
		Find(&dtos).Error
	if err != nil {
		return nil, err
	}

	drops := make([]*drop.Drop, 0, len(dtos))
	for _, dto := range dtos {
		d, err := toDomain(dto)
		if err != nil {
			return nil, err
		}
		drops = append(drops, d)
	}

	return drops, nil
}

// ClaimForRoute binds the drops to routeID with a single conditional update.
// Rows changed by a concurrent pass no longer match the predicate; they are
// reported in a *ports.ClaimConflictError and the caller rolls back.
func (r *GormDropRepository) ClaimForRoute(ctx context.Context, routeID kernel.UUID, dropIDs []kernel.UUID) error {
	if err := routeID.Validate(); err != nil {
		return err
	}
	if len(dropIDs) == 0 {
		return errs.NewValueIsRequiredError("drop ids")
	}

	ids := make([]uuid.UUID, len(dropIDs))
	for i, id := range dropIDs {
		ids[i] = id.Bytes()
	}

	rows, err := r.db.WithContext(ctx).Raw(`
		UPDATE drops
		SET status = ?, route_id = ?, updated_at = NOW()
		WHERE id IN ? AND status = ? AND route_id IS NULL
		RETURNING id
	`, drop.AssignedToRoute.String(), routeID.Bytes(), ids, drop.Pending.String()).Rows()
	if err != nil {
		return pgerr.Translate(err)
	}
	defer rows.Close()

	claimed := make(map[uuid.UUID]struct{}, len(ids))
	for rows.Next() {
		var id uuid.UUID
		if err = rows.Scan(&id); err != nil {
			return err
		}
		claimed[id] = struct{}{}
	}
	if err = rows.Err(); err != nil {
		return pgerr.Translate(err)
	}

	if len(claimed) == len(dropIDs) {
		return nil
	}

	lost := make([]kernel.UUID, 0, len(dropIDs)-len(claimed))
	for _, id := range dropIDs {
		if _, ok := claimed[id.Bytes()]; !ok {
			lost = append(lost, id)
		}
	}
	return ports.NewClaimConflictError(routeID, lost)
}

// ReleaseRoute returns the drops still assigned to routeID to the pending pool.
// Drops already picked up or delivered stay where they are.
func (r *GormDropRepository) ReleaseRoute(ctx context.Context, routeID kernel.UUID) (int, error) {
	if err := routeID.Validate(); err != nil {
		return 0, err
	}

	result := r.db.WithContext(ctx).
		Model(&DropDTO{}).
		Where("route_id = ? AND status = ?", routeID.Bytes(), drop.AssignedToRoute.String()).
		Updates(map[string]any{
			"status":   drop.Pending.String(),
			"route_id": nil,
		})
	if result.Error != nil {
		return 0, pgerr.Translate(result.Error)
	}

	return int(result.RowsAffected), nil
}
