package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
	"dispatch/internal/jobs"
	"dispatch/internal/pkg/errs"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

const (
	// TriggerAPI names passes started through the HTTP API.
	TriggerAPI = "api"

	// DefaultPendingLimit is used when GET /drops/pending has no limit.
	DefaultPendingLimit = 100
)

// Use case ports the server depends on. The application handlers and
// jobs.OrchestrationJob satisfy them.
type (
	PassRunner interface {
		Handle(ctx context.Context, cmd commands.OrchestrateDropsCommand) (commands.OrchestrateDropsResult, error)
	}

	Scheduler interface {
		Trigger(ctx context.Context, trigger string, opts services.Options) (commands.OrchestrateDropsResult, error)
		Status() jobs.Status
	}

	DropValidator interface {
		Handle(ctx context.Context, query queries.ValidateDropsQuery) (queries.ValidateDropsQueryResponse, error)
	}

	PendingDropsReader interface {
		Handle(ctx context.Context, query queries.GetPendingDropsQuery) ([]queries.GetPendingDropsQueryResponse, error)
	}

	RouteReader interface {
		Handle(ctx context.Context, query queries.GetRouteQuery) (queries.GetRouteQueryResponse, error)
	}

	RouteDriverAssigner interface {
		Handle(ctx context.Context, cmd commands.AssignRouteDriverCommand) (kernel.UUID, error)
	}

	RouteFailer interface {
		Handle(ctx context.Context, cmd commands.FailRouteCommand) (int, error)
	}
)

// Server handles HTTP requests and maps them onto application use cases.
type Server struct {
	// Command handlers
	preview   PassRunner
	scheduler Scheduler
	assign    RouteDriverAssigner
	fail      RouteFailer

	// Query handlers
	validate DropValidator
	pending  PendingDropsReader
	route    RouteReader
}

// NewServer creates a new HTTP server with the required command and query handlers.
func NewServer(
	preview PassRunner,
	scheduler Scheduler,
	assign RouteDriverAssigner,
	fail RouteFailer,
	validate DropValidator,
	pending PendingDropsReader,
	route RouteReader,
) *Server {
	return &Server{
		preview:   preview,
		scheduler: scheduler,
		assign:    assign,
		fail:      fail,
		validate:  validate,
		pending:   pending,
		route:     route,
	}
}

// Register mounts the API routes on e.
func (s *Server) Register(e *echo.Echo) {
	api := e.Group("/api/v1")

	api.POST("/orchestration/preview", s.PreviewOrchestration)
	api.POST("/orchestration/apply", s.ApplyOrchestration)
	api.GET("/orchestration/status", s.GetOrchestrationStatus)

	api.POST("/drops/validate", s.ValidateDrops)
	api.GET("/drops/pending", s.GetPendingDrops)

	api.GET("/routes/:routeId", s.GetRoute)
	api.POST("/routes/:routeId/assign", s.AssignRouteDriver)
	api.POST("/routes/:routeId/fail", s.FailRoute)
}

// PreviewOrchestration handles POST /api/v1/orchestration/preview. Inline drops
// are planned as given; without them the live pending pool is read.
func (s *Server) PreviewOrchestration(ctx echo.Context) error {
	var req OrchestrationRequest
	if err := ctx.Bind(&req); err != nil {
		return jsonError(ctx, http.StatusBadRequest, "Invalid request body")
	}

	opts, err := req.toOptions()
	if err != nil {
		return jsonError(ctx, http.StatusBadRequest, "Invalid geofence: "+err.Error())
	}

	var cmd commands.OrchestrateDropsCommand
	if len(req.Drops) > 0 {
		drops, convErr := toDomainDrops(req.Drops, time.Now())
		if convErr != nil {
			return jsonError(ctx, http.StatusBadRequest, "Invalid drop: "+convErr.Error())
		}
		cmd, err = commands.NewPreviewDropsCommand(TriggerAPI, drops, opts)
	} else {
		cmd, err = commands.NewOrchestrateDropsCommand(commands.ModePreview, TriggerAPI, opts)
	}
	if err != nil {
		return jsonError(ctx, http.StatusBadRequest, "Invalid orchestration request: "+err.Error())
	}

	result, err := s.preview.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return passError(ctx, err, "Failed to run orchestration preview")
	}

	return ctx.JSON(http.StatusOK, fromPassResult(result))
}

// ApplyOrchestration handles POST /api/v1/orchestration/apply. The pass goes
// through the scheduler so it never overlaps a scheduled one.
func (s *Server) ApplyOrchestration(ctx echo.Context) error {
	var req OrchestrationRequest
	if err := ctx.Bind(&req); err != nil {
		return jsonError(ctx, http.StatusBadRequest, "Invalid request body")
	}
	if len(req.Drops) > 0 {
		return jsonError(ctx, http.StatusBadRequest, "Inline drops are only accepted by preview")
	}

	opts, err := req.toOptions()
	if err != nil {
		return jsonError(ctx, http.StatusBadRequest, "Invalid geofence: "+err.Error())
	}

	result, err := s.scheduler.Trigger(ctx.Request().Context(), TriggerAPI, opts)
	if err != nil {
		if errors.Is(err, jobs.ErrPassInProgress) {
			return jsonError(ctx, http.StatusConflict, "An orchestration pass is already running")
		}
		return passError(ctx, err, "Failed to run orchestration pass")
	}

	return ctx.JSON(http.StatusOK, fromPassResult(result))
}

// GetOrchestrationStatus handles GET /api/v1/orchestration/status.
func (s *Server) GetOrchestrationStatus(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, fromSchedulerStatus(s.scheduler.Status()))
}

// ValidateDrops handles POST /api/v1/drops/validate.
func (s *Server) ValidateDrops(ctx echo.Context) error {
	var req ValidateDropsRequest
	if err := ctx.Bind(&req); err != nil {
		return jsonError(ctx, http.StatusBadRequest, "Invalid request body")
	}

	drops, err := toDomainDrops(req.Drops, time.Now())
	if err != nil {
		return jsonError(ctx, http.StatusBadRequest, "Invalid drop: "+err.Error())
	}

	query, err := queries.NewValidateDropsQuery(drops)
	if err != nil {
		return jsonError(ctx, http.StatusBadRequest, "Invalid validation request: "+err.Error())
	}

	report, err := s.validate.Handle(ctx.Request().Context(), query)
	if err != nil {
		return jsonError(ctx, http.StatusInternalServerError, "Failed to validate drops")
	}

	return ctx.JSON(http.StatusOK, fromValidation(report))
}

// GetPendingDrops handles GET /api/v1/drops/pending.
func (s *Server) GetPendingDrops(ctx echo.Context) error {
	var limit *int
	if err := runtime.BindQueryParameter("form", true, false, "limit", ctx.QueryParams(), &limit); err != nil {
		return jsonError(ctx, http.StatusBadRequest, "Invalid format for parameter limit: "+err.Error())
	}

	n := DefaultPendingLimit
	if limit != nil {
		n = *limit
	}

	query, err := queries.NewGetPendingDropsQuery(n)
	if err != nil {
		return jsonError(ctx, http.StatusBadRequest, err.Error())
	}

	drops, err := s.pending.Handle(ctx.Request().Context(), query)
	if err != nil {
		return jsonError(ctx, http.StatusInternalServerError, "Failed to retrieve pending drops")
	}

	response := make([]Drop, len(drops))
	for i, d := range drops {
		response[i] = fromPendingDrop(d)
	}

	return ctx.JSON(http.StatusOK, response)
}

// GetRoute handles GET /api/v1/routes/{routeId}.
func (s *Server) GetRoute(ctx echo.Context) error {
	routeID, err := bindRouteID(ctx)
	if err != nil {
		return jsonError(ctx, http.StatusBadRequest, err.Error())
	}

	query, err := queries.NewGetRouteQuery(routeID)
	if err != nil {
		return jsonError(ctx, http.StatusBadRequest, err.Error())
	}

	r, err := s.route.Handle(ctx.Request().Context(), query)
	if err != nil {
		if errors.Is(err, errs.ErrObjectNotFound) {
			return jsonError(ctx, http.StatusNotFound, "Route not found")
		}
		return jsonError(ctx, http.StatusInternalServerError, "Failed to retrieve route")
	}

	return ctx.JSON(http.StatusOK, fromRouteQuery(r))
}

// AssignRouteDriver handles POST /api/v1/routes/{routeId}/assign. Without a
// driverId the best idle driver is picked.
func (s *Server) AssignRouteDriver(ctx echo.Context) error {
	routeID, err := bindRouteID(ctx)
	if err != nil {
		return jsonError(ctx, http.StatusBadRequest, err.Error())
	}

	var req AssignRouteDriverRequest
	if err = ctx.Bind(&req); err != nil {
		return jsonError(ctx, http.StatusBadRequest, "Invalid request body")
	}

	var driverID *kernel.UUID
	if req.DriverId != nil {
		id, idErr := kernel.UUIDFromBytes(req.DriverId[:])
		if idErr != nil {
			return jsonError(ctx, http.StatusBadRequest, "Invalid driverId: "+idErr.Error())
		}
		driverID = &id
	}

	cmd, err := commands.NewAssignRouteDriverCommand(routeID, driverID)
	if err != nil {
		return jsonError(ctx, http.StatusBadRequest, "Invalid assignment: "+err.Error())
	}

	assigned, err := s.assign.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return routeCommandError(ctx, err, "Failed to assign driver")
	}

	return ctx.JSON(http.StatusOK, AssignRouteDriverResponse{
		RouteId:  routeID.Bytes(),
		DriverId: assigned.Bytes(),
	})
}

// FailRoute handles POST /api/v1/routes/{routeId}/fail.
func (s *Server) FailRoute(ctx echo.Context) error {
	routeID, err := bindRouteID(ctx)
	if err != nil {
		return jsonError(ctx, http.StatusBadRequest, err.Error())
	}

	var req FailRouteRequest
	if err = ctx.Bind(&req); err != nil {
		return jsonError(ctx, http.StatusBadRequest, "Invalid request body")
	}

	cmd, err := commands.NewFailRouteCommand(routeID, req.Reason)
	if err != nil {
		return jsonError(ctx, http.StatusBadRequest, "Invalid failure: "+err.Error())
	}

	released, err := s.fail.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return routeCommandError(ctx, err, "Failed to fail route")
	}

	return ctx.JSON(http.StatusOK, FailRouteResponse{
		RouteId:       routeID.Bytes(),
		ReleasedDrops: released,
	})
}

func bindRouteID(ctx echo.Context) (kernel.UUID, error) {
	var routeID openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "routeId", ctx.Param("routeId"), &routeID,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return kernel.UUID{}, fmt.Errorf("invalid format for parameter routeId: %w", err)
	}
	return kernel.UUIDFromBytes(routeID[:])
}

// passError maps a failed orchestration pass. A configuration the engine
// rejects is reported with its message; anything else stays opaque.
func passError(ctx echo.Context, err error, fallback string) error {
	if errors.Is(err, services.ErrInvalidConfig) {
		return jsonError(ctx, http.StatusUnprocessableEntity, err.Error())
	}
	return jsonError(ctx, http.StatusInternalServerError, fallback)
}

// routeCommandError maps errors of commands that act on a stored route.
// Input was validated by the command constructor, so an invalid value here is
// a state conflict.
func routeCommandError(ctx echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, errs.ErrObjectNotFound):
		return jsonError(ctx, http.StatusNotFound, err.Error())
	case errors.Is(err, commands.ErrNoDriverFound),
		errors.Is(err, commands.ErrDriverUnavailable),
		errors.Is(err, commands.ErrRouteNotAssignable),
		errors.Is(err, ports.ErrConcurrentUpdate),
		errors.Is(err, errs.ErrValueIsInvalid):
		return jsonError(ctx, http.StatusConflict, err.Error())
	default:
		return jsonError(ctx, http.StatusInternalServerError, fallback)
	}
}

func jsonError(ctx echo.Context, code int, message string) error {
	return ctx.JSON(code, Error{
		Code:    code,
		Message: message,
	})
}
