package queries

import (
	"context"
	"time"

	"dispatch/internal/core/domain/model/drop"
	"dispatch/internal/core/domain/model/kernel"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetPendingDropsQueryHandler reads the pending pool directly from the drops table.
// Rows with coordinates that no longer form a valid location are skipped; they
// are reported by the validation query instead.
type GetPendingDropsQueryHandler struct {
	db *gorm.DB
}

func NewGetPendingDropsQueryHandler(db *gorm.DB) GetPendingDropsQueryHandler {
	return GetPendingDropsQueryHandler{db: db}
}

// Handle returns at most query.Limit() drops ordered by window start and ID,
// the order an orchestration pass reads them in.
func (h GetPendingDropsQueryHandler) Handle(
	ctx context.Context,
	query GetPendingDropsQuery,
) ([]GetPendingDropsQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	drops := make([]GetPendingDropsQueryResponse, 0)

	rows, err := h.db.WithContext(ctx).Raw(`
		SELECT
			id,
			pickup_lat, pickup_lng, pickup_address,
			delivery_lat, delivery_lng, delivery_address,
			window_earliest,
			window_latest,
			weight,
			volume,
			value,
			tier,
			priority,
			estimated_duration_seconds
		FROM drops
		WHERE status = ? AND route_id IS NULL
		ORDER BY window_earliest, id
		LIMIT ?
	`, drop.Pending.String(), query.Limit()).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			resp                           GetPendingDropsQueryResponse
			id                             uuid.UUID
			pickupLat, pickupLng           float64
			deliveryLat, deliveryLng       float64
			pickupAddress, deliveryAddress string
			tier                           string
			durationSeconds                int64
		)

		err = rows.Scan(
			&id,
			&pickupLat, &pickupLng, &pickupAddress,
			&deliveryLat, &deliveryLng, &deliveryAddress,
			&resp.Earliest,
			&resp.Latest,
			&resp.Weight,
			&resp.Volume,
			&resp.Value,
			&tier,
			&resp.Priority,
			&durationSeconds,
		)
		if err != nil {
			return nil, err
		}

		dropID, idErr := kernel.UUIDFromBytes(id[:])
		if idErr != nil {
			return nil, idErr
		}
		resp.ID = dropID

		pickup, pickupErr := kernel.NewLocation(pickupLat, pickupLng, pickupAddress)
		delivery, deliveryErr := kernel.NewLocation(deliveryLat, deliveryLng, deliveryAddress)
		if pickupErr != nil || deliveryErr != nil {
			continue
		}
		resp.Pickup = pickup
		resp.Delivery = delivery

		resp.Tier, _ = drop.ParseServiceTier(tier)
		resp.EstimatedDuration = time.Duration(durationSeconds) * time.Second

		drops = append(drops, resp)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return drops, nil
}
