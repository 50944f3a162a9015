package queries

import (
	"context"

	"dispatch/internal/core/domain/services"
)

type ValidateDropsQueryHandler struct {
	engine *services.OrchestrationEngine
}

func NewValidateDropsQueryHandler(engine *services.OrchestrationEngine) ValidateDropsQueryHandler {
	return ValidateDropsQueryHandler{engine: engine}
}

func (h ValidateDropsQueryHandler) Handle(
	_ context.Context,
	query ValidateDropsQuery,
) (ValidateDropsQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return ValidateDropsQueryResponse{}, err
	}

	resp := ValidateDropsQueryResponse{Results: h.engine.Inspect(query.Drops())}
	for _, r := range resp.Results {
		if r.Valid() {
			resp.Valid++
		} else {
			resp.Invalid++
		}
	}

	return resp, nil
}
