package http

import (
	"time"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/core/domain/model/drop"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/jobs"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

// Error is the body of every non-2xx response.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type Point struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

type Geofence struct {
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	RadiusMeters float64 `json:"radiusMeters"`
}

// Drop is the wire form of a drop, used for inline previews, validation and
// the pending pool listing.
type Drop struct {
	Id                       *openapi_types.UUID `json:"id,omitempty"`
	Pickup                   Point               `json:"pickup"`
	Delivery                 Point               `json:"delivery"`
	Earliest                 time.Time           `json:"earliest"`
	Latest                   time.Time           `json:"latest"`
	Weight                   float64             `json:"weight"`
	Volume                   float64             `json:"volume"`
	Tier                     string              `json:"tier"`
	Priority                 int                 `json:"priority"`
	EstimatedDurationMinutes float64             `json:"estimatedDurationMinutes"`
	Value                    float64             `json:"value"`
	Status                   string              `json:"status,omitempty"`
	RouteId                  *openapi_types.UUID `json:"routeId,omitempty"`
}

type OrchestrationRequest struct {
	Drops            []Drop     `json:"drops,omitempty"`
	EmergencyMode    bool       `json:"emergencyMode"`
	Geofences        []Geofence `json:"geofences,omitempty"`
	PreferredStart   *time.Time `json:"preferredStart,omitempty"`
	PreciseDistances bool       `json:"preciseDistances"`
	AssignDrivers    bool       `json:"assignDrivers"`
	RequireDriver    bool       `json:"requireDriver"`
	UseAdvisor       bool       `json:"useAdvisor"`
}

type PlannedRoute struct {
	Id                   openapi_types.UUID   `json:"id"`
	DropIds              []openapi_types.UUID `json:"dropIds"`
	DriverId             *openapi_types.UUID  `json:"driverId,omitempty"`
	Status               string               `json:"status"`
	TotalOutcome         float64              `json:"totalOutcome"`
	TotalWeight          float64              `json:"totalWeight"`
	TotalVolume          float64              `json:"totalVolume"`
	TotalDistanceMeters  float64              `json:"totalDistanceMeters"`
	LoadedDistanceMeters float64              `json:"loadedDistanceMeters"`
	EmptyDistanceMeters  float64              `json:"emptyDistanceMeters"`
	TotalDurationMinutes float64              `json:"totalDurationMinutes"`
	WindowStart          time.Time            `json:"windowStart"`
	WindowEnd            time.Time            `json:"windowEnd"`
	ProposedStart        time.Time            `json:"proposedStart"`
	Tier                 string               `json:"tier"`
	PriorityScore        float64              `json:"priorityScore"`
	Source               string               `json:"source"`
	DegradedEstimates    int                  `json:"degradedEstimates"`
	Warnings             []string             `json:"warnings"`
}

type Unassigned struct {
	DropId  openapi_types.UUID `json:"dropId"`
	Reason  string             `json:"reason"`
	Details []string           `json:"details,omitempty"`
}

type PassMetrics struct {
	RoutesCreated        int     `json:"routesCreated"`
	TotalDrops           int     `json:"totalDrops"`
	AssignedDrops        int     `json:"assignedDrops"`
	UnassignedDrops      int     `json:"unassignedDrops"`
	AssignmentRate       float64 `json:"assignmentRate"`
	AverageDropsPerRoute float64 `json:"averageDropsPerRoute"`
	TotalValue           float64 `json:"totalValue"`
	TotalDistanceMeters  float64 `json:"totalDistanceMeters"`
	EmptyDistanceMeters  float64 `json:"emptyDistanceMeters"`
	TotalDurationMinutes float64 `json:"totalDurationMinutes"`
	DegradedEstimates    int     `json:"degradedEstimates"`
	EfficiencyScore      float64 `json:"efficiencyScore"`
}

type OrchestrationResult struct {
	Mode         string         `json:"mode"`
	Trigger      string         `json:"trigger"`
	SnapshotSize int            `json:"snapshotSize"`
	Persisted    int            `json:"persisted"`
	Conflicts    int            `json:"conflicts"`
	StartedAt    time.Time      `json:"startedAt"`
	FinishedAt   time.Time      `json:"finishedAt"`
	Routes       []PlannedRoute `json:"routes"`
	Unassigned   []Unassigned   `json:"unassigned"`
	Metrics      PassMetrics    `json:"metrics"`
	Warnings     []string       `json:"warnings"`
}

type SchedulerStatus struct {
	Running        bool                 `json:"running"`
	LastTrigger    string               `json:"lastTrigger,omitempty"`
	LastStartedAt  *time.Time           `json:"lastStartedAt,omitempty"`
	LastFinishedAt *time.Time           `json:"lastFinishedAt,omitempty"`
	LastDurationMs int64                `json:"lastDurationMs"`
	LastError      string               `json:"lastError,omitempty"`
	LastResult     *OrchestrationResult `json:"lastResult,omitempty"`
	Passes         int                  `json:"passes"`
	SkippedTicks   int                  `json:"skippedTicks"`
	NextRunAt      *time.Time           `json:"nextRunAt,omitempty"`
}

type ValidateDropsRequest struct {
	Drops []Drop `json:"drops"`
}

type DropValidation struct {
	DropId openapi_types.UUID `json:"dropId"`
	Valid  bool               `json:"valid"`
	Issues []string           `json:"issues"`
}

type ValidationReport struct {
	Valid   int              `json:"valid"`
	Invalid int              `json:"invalid"`
	Results []DropValidation `json:"results"`
}

type RouteStop struct {
	Sequence   int                `json:"sequence"`
	DropId     openapi_types.UUID `json:"dropId"`
	DropStatus string             `json:"dropStatus,omitempty"`
	Pickup     *Point             `json:"pickup,omitempty"`
	Delivery   *Point             `json:"delivery,omitempty"`
}

type Route struct {
	Id                   openapi_types.UUID  `json:"id"`
	Status               string              `json:"status"`
	DriverId             *openapi_types.UUID `json:"driverId,omitempty"`
	CompletedDrops       int                 `json:"completedDrops"`
	TotalOutcome         float64             `json:"totalOutcome"`
	TotalWeight          float64             `json:"totalWeight"`
	TotalVolume          float64             `json:"totalVolume"`
	TotalDistanceMeters  float64             `json:"totalDistanceMeters"`
	TotalDurationMinutes float64             `json:"totalDurationMinutes"`
	WindowStart          time.Time           `json:"windowStart"`
	WindowEnd            time.Time           `json:"windowEnd"`
	ProposedStart        time.Time           `json:"proposedStart"`
	Tier                 string              `json:"tier"`
	PriorityScore        float64             `json:"priorityScore"`
	AlgorithmVersion     string              `json:"algorithmVersion"`
	Warnings             []string            `json:"warnings"`
	FailureReason        string              `json:"failureReason,omitempty"`
	CreatedAt            time.Time           `json:"createdAt"`
	Stops                []RouteStop         `json:"stops"`
}

type AssignRouteDriverRequest struct {
	DriverId *openapi_types.UUID `json:"driverId,omitempty"`
}

type AssignRouteDriverResponse struct {
	RouteId  openapi_types.UUID `json:"routeId"`
	DriverId openapi_types.UUID `json:"driverId"`
}

type FailRouteRequest struct {
	Reason string `json:"reason"`
}

type FailRouteResponse struct {
	RouteId       openapi_types.UUID `json:"routeId"`
	ReleasedDrops int                `json:"releasedDrops"`
}

// toDomainDrop keeps structural problems on the drop so they are reported per
// drop instead of failing the whole request. Only an unusable ID is an error.
func toDomainDrop(in Drop, now time.Time) (*drop.Drop, error) {
	id := kernel.NewUUID()
	if in.Id != nil {
		parsed, err := kernel.UUIDFromBytes(in.Id[:])
		if err != nil {
			return nil, err
		}
		id = parsed
	}

	status := drop.Pending
	if in.Status != "" {
		// an unknown name stays Unknown and is reported by Validate
		status, _ = drop.ParseStatus(in.Status)
	}

	var routeID *kernel.UUID
	if in.RouteId != nil {
		parsed, err := kernel.UUIDFromBytes(in.RouteId[:])
		if err != nil {
			return nil, err
		}
		routeID = &parsed
	}

	tier, _ := drop.ParseServiceTier(in.Tier)

	return drop.RestoreDrop(drop.Params{
		ID:                id,
		Pickup:            drop.Point{Lat: in.Pickup.Lat, Lng: in.Pickup.Lng, Address: in.Pickup.Address},
		Delivery:          drop.Point{Lat: in.Delivery.Lat, Lng: in.Delivery.Lng, Address: in.Delivery.Address},
		Earliest:          in.Earliest,
		Latest:            in.Latest,
		Weight:            in.Weight,
		Volume:            in.Volume,
		Tier:              tier,
		Priority:          in.Priority,
		EstimatedDuration: time.Duration(in.EstimatedDurationMinutes * float64(time.Minute)),
		Value:             in.Value,
		CreatedAt:         now,
	}, status, routeID)
}

func toDomainDrops(in []Drop, now time.Time) ([]*drop.Drop, error) {
	out := make([]*drop.Drop, 0, len(in))
	for _, d := range in {
		converted, err := toDomainDrop(d, now)
		if err != nil {
			return nil, err
		}
		out = append(out, converted)
	}
	return out, nil
}

func (r OrchestrationRequest) toOptions() (services.Options, error) {
	opts := services.Options{
		EmergencyMode:    r.EmergencyMode,
		PreferredStart:   r.PreferredStart,
		PreciseDistances: r.PreciseDistances,
		AssignDrivers:    r.AssignDrivers,
		RequireDriver:    r.RequireDriver,
		UseAdvisor:       r.UseAdvisor,
	}

	for _, g := range r.Geofences {
		center, err := kernel.NewLocation(g.Lat, g.Lng, "")
		if err != nil {
			return services.Options{}, err
		}
		fence, err := kernel.NewGeofence(center, g.RadiusMeters)
		if err != nil {
			return services.Options{}, err
		}
		opts.Geofences = append(opts.Geofences, fence)
	}

	return opts, nil
}

func fromLocation(l kernel.Location) Point {
	return Point{Lat: l.Lat(), Lng: l.Lng(), Address: l.Address()}
}

func optionalUUID(id *kernel.UUID) *openapi_types.UUID {
	if id == nil {
		return nil
	}
	out := id.Bytes()
	return &out
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func fromPassResult(in commands.OrchestrateDropsResult) OrchestrationResult {
	out := OrchestrationResult{
		Mode:         in.Mode.String(),
		Trigger:      in.Trigger,
		SnapshotSize: in.SnapshotSize,
		Persisted:    in.Persisted,
		Conflicts:    in.Conflicts,
		StartedAt:    in.StartedAt,
		FinishedAt:   in.FinishedAt,
		Routes:       []PlannedRoute{},
		Unassigned:   []Unassigned{},
		Warnings:     []string{},
	}
	if in.Result == nil {
		return out
	}

	for _, assembled := range in.Result.Routes {
		out.Routes = append(out.Routes, fromAssembledRoute(assembled))
	}
	for _, rejection := range in.Result.Unassigned {
		out.Unassigned = append(out.Unassigned, Unassigned{
			DropId:  rejection.DropID.Bytes(),
			Reason:  string(rejection.Reason),
			Details: rejection.Details,
		})
	}
	out.Warnings = append(out.Warnings, in.Result.Warnings...)

	m := in.Result.Metrics
	out.Metrics = PassMetrics{
		RoutesCreated:        m.RoutesCreated,
		TotalDrops:           m.TotalDrops,
		AssignedDrops:        m.AssignedDrops,
		UnassignedDrops:      m.UnassignedDrops,
		AssignmentRate:       m.AssignmentRate,
		AverageDropsPerRoute: m.AverageDropsPerRoute,
		TotalValue:           m.TotalValue,
		TotalDistanceMeters:  m.TotalDistanceMeters,
		EmptyDistanceMeters:  m.EmptyDistanceMeters,
		TotalDurationMinutes: m.TotalDuration.Minutes(),
		DegradedEstimates:    m.DegradedEstimates,
		EfficiencyScore:      m.EfficiencyScore,
	}

	return out
}

func fromAssembledRoute(a services.AssembledRoute) PlannedRoute {
	r := a.Route()

	ids := make([]openapi_types.UUID, 0, r.TotalDrops())
	for _, id := range r.DropIDs() {
		ids = append(ids, id.Bytes())
	}

	warnings := append([]string{}, r.Metadata().Warnings...)

	return PlannedRoute{
		Id:                   r.ID().Bytes(),
		DropIds:              ids,
		DriverId:             optionalUUID(r.DriverID()),
		Status:               r.Status().String(),
		TotalOutcome:         r.TotalOutcome(),
		TotalWeight:          r.TotalWeight(),
		TotalVolume:          r.TotalVolume(),
		TotalDistanceMeters:  r.TotalDistanceMeters(),
		LoadedDistanceMeters: a.LoadedDistanceMeters(),
		EmptyDistanceMeters:  a.EmptyDistanceMeters(),
		TotalDurationMinutes: r.TotalDuration().Minutes(),
		WindowStart:          r.WindowStart(),
		WindowEnd:            r.WindowEnd(),
		ProposedStart:        r.ProposedStart(),
		Tier:                 r.Tier().String(),
		PriorityScore:        r.PriorityScore(),
		Source:               a.Source().String(),
		DegradedEstimates:    a.DegradedEstimates(),
		Warnings:             warnings,
	}
}

func fromSchedulerStatus(s jobs.Status) SchedulerStatus {
	out := SchedulerStatus{
		Running:        s.Running,
		LastTrigger:    s.LastTrigger,
		LastStartedAt:  optionalTime(s.LastStartedAt),
		LastFinishedAt: optionalTime(s.LastFinishedAt),
		LastDurationMs: s.LastDuration.Milliseconds(),
		LastError:      s.LastError,
		Passes:         s.Passes,
		SkippedTicks:   s.SkippedTicks,
		NextRunAt:      optionalTime(s.NextRunAt),
	}
	if s.LastResult != nil {
		last := fromPassResult(*s.LastResult)
		out.LastResult = &last
	}
	return out
}

func fromValidation(in queries.ValidateDropsQueryResponse) ValidationReport {
	out := ValidationReport{
		Valid:   in.Valid,
		Invalid: in.Invalid,
		Results: make([]DropValidation, 0, len(in.Results)),
	}
	for _, r := range in.Results {
		issues := append([]string{}, r.Issues...)
		out.Results = append(out.Results, DropValidation{
			DropId: r.DropID.Bytes(),
			Valid:  r.Valid(),
			Issues: issues,
		})
	}
	return out
}

func fromPendingDrop(in queries.GetPendingDropsQueryResponse) Drop {
	id := in.ID.Bytes()
	return Drop{
		Id:                       &id,
		Pickup:                   fromLocation(in.Pickup),
		Delivery:                 fromLocation(in.Delivery),
		Earliest:                 in.Earliest,
		Latest:                   in.Latest,
		Weight:                   in.Weight,
		Volume:                   in.Volume,
		Tier:                     in.Tier.String(),
		Priority:                 in.Priority,
		EstimatedDurationMinutes: in.EstimatedDuration.Minutes(),
		Value:                    in.Value,
		Status:                   drop.Pending.String(),
	}
}

func fromRouteQuery(in queries.GetRouteQueryResponse) Route {
	out := Route{
		Id:                   in.ID.Bytes(),
		Status:               in.Status,
		DriverId:             optionalUUID(in.DriverID),
		CompletedDrops:       in.CompletedDrops,
		TotalOutcome:         in.TotalOutcome,
		TotalWeight:          in.TotalWeight,
		TotalVolume:          in.TotalVolume,
		TotalDistanceMeters:  in.TotalDistanceMeters,
		TotalDurationMinutes: in.TotalDuration.Minutes(),
		WindowStart:          in.WindowStart,
		WindowEnd:            in.WindowEnd,
		ProposedStart:        in.ProposedStart,
		Tier:                 in.Tier,
		PriorityScore:        in.PriorityScore,
		AlgorithmVersion:     in.AlgorithmVersion,
		Warnings:             append([]string{}, in.Warnings...),
		FailureReason:        in.FailureReason,
		CreatedAt:            in.CreatedAt,
		Stops:                make([]RouteStop, 0, len(in.Stops)),
	}

	for _, s := range in.Stops {
		stop := RouteStop{
			Sequence:   s.Sequence,
			DropId:     s.DropID.Bytes(),
			DropStatus: s.DropStatus,
		}
		if s.Pickup != nil {
			p := fromLocation(*s.Pickup)
			stop.Pickup = &p
		}
		if s.Delivery != nil {
			p := fromLocation(*s.Delivery)
			stop.Delivery = &p
		}
		out.Stops = append(out.Stops, stop)
	}

	return out
}
