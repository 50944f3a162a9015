package queries

import (
	"context"
	"database/sql"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// GetRouteQueryHandler reads a route and its stops with two raw queries.
type GetRouteQueryHandler struct {
	db *gorm.DB
}

func NewGetRouteQueryHandler(db *gorm.DB) GetRouteQueryHandler {
	return GetRouteQueryHandler{db: db}
}

// Handle returns errs.ErrObjectNotFound when the route does not exist.
func (h GetRouteQueryHandler) Handle(ctx context.Context, query GetRouteQuery) (GetRouteQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return GetRouteQueryResponse{}, err
	}

	resp, err := h.route(ctx, query.RouteID())
	if err != nil {
		return GetRouteQueryResponse{}, err
	}

	resp.Stops, err = h.stops(ctx, query.RouteID())
	if err != nil {
		return GetRouteQueryResponse{}, err
	}

	return resp, nil
}

func (h GetRouteQueryHandler) route(ctx context.Context, routeID kernel.UUID) (GetRouteQueryResponse, error) {
	rows, err := h.db.WithContext(ctx).Raw(`
		SELECT
			id,
			status,
			driver_id,
			completed_drops,
			total_outcome,
			total_weight,
			total_volume,
			total_distance_meters,
			total_duration_seconds,
			window_start,
			window_end,
			proposed_start,
			tier,
			priority_score,
			algorithm_version,
			warnings,
			failure_reason,
			created_at
		FROM routes
		WHERE id = ?
	`, routeID.Bytes()).Rows()
	if err != nil {
		return GetRouteQueryResponse{}, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return GetRouteQueryResponse{}, err
		}
		return GetRouteQueryResponse{}, errs.NewObjectNotFoundError("route", routeID.String())
	}

	var (
		resp             GetRouteQueryResponse
		id               uuid.UUID
		driverID         uuid.NullUUID
		durationSeconds  int64
		algorithmVersion sql.NullString
		failureReason    sql.NullString
		warnings         pq.StringArray
	)
	err = rows.Scan(
		&id,
		&resp.Status,
		&driverID,
		&resp.CompletedDrops,
		&resp.TotalOutcome,
		&resp.TotalWeight,
		&resp.TotalVolume,
		&resp.TotalDistanceMeters,
		&durationSeconds,
		&resp.WindowStart,
		&resp.WindowEnd,
		&resp.ProposedStart,
		&resp.Tier,
		&resp.PriorityScore,
		&algorithmVersion,
		&warnings,
		&failureReason,
		&resp.CreatedAt,
	)
	if err != nil {
		return GetRouteQueryResponse{}, err
	}

	if resp.ID, err = kernel.UUIDFromBytes(id[:]); err != nil {
		return GetRouteQueryResponse{}, err
	}
	if driverID.Valid {
		dID, idErr := kernel.UUIDFromBytes(driverID.UUID[:])
		if idErr != nil {
			return GetRouteQueryResponse{}, idErr
		}
		resp.DriverID = &dID
	}
	resp.TotalDuration = time.Duration(durationSeconds) * time.Second
	resp.AlgorithmVersion = algorithmVersion.String
	resp.FailureReason = failureReason.String
	resp.Warnings = append([]string{}, warnings...)

	return resp, rows.Err()
}

func (h GetRouteQueryHandler) stops(ctx context.Context, routeID kernel.UUID) ([]RouteStopResponse, error) {
	rows, err := h.db.WithContext(ctx).Raw(`
		SELECT
			s.sequence,
			s.drop_id,
			d.status,
			d.pickup_lat, d.pickup_lng, d.pickup_address,
			d.delivery_lat, d.delivery_lng, d.delivery_address
		FROM route_stops s
		LEFT JOIN drops d ON d.id = s.drop_id
		WHERE s.route_id = ?
		ORDER BY s.sequence
	`, routeID.Bytes()).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stops := make([]RouteStopResponse, 0)
	for rows.Next() {
		var (
			stop                           RouteStopResponse
			dropID                         uuid.UUID
			status                         sql.NullString
			pickupLat, pickupLng           sql.NullFloat64
			deliveryLat, deliveryLng       sql.NullFloat64
			pickupAddress, deliveryAddress sql.NullString
		)

		err = rows.Scan(
			&stop.Sequence,
			&dropID,
			&status,
			&pickupLat, &pickupLng, &pickupAddress,
			&deliveryLat, &deliveryLng, &deliveryAddress,
		)
		if err != nil {
			return nil, err
		}

		if stop.DropID, err = kernel.UUIDFromBytes(dropID[:]); err != nil {
			return nil, err
		}
		stop.DropStatus = status.String
		stop.Pickup = optionalLocation(pickupLat, pickupLng, pickupAddress)
		stop.Delivery = optionalLocation(deliveryLat, deliveryLng, deliveryAddress)

		stops = append(stops, stop)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return stops, nil
}

func optionalLocation(lat, lng sql.NullFloat64, address sql.NullString) *kernel.Location {
	if !lat.Valid || !lng.Valid {
		return nil
	}

	loc, err := kernel.NewLocation(lat.Float64, lng.Float64, address.String)
	if err != nil {
		return nil
	}
	return &loc
}
