package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/turtacn/riskpulse/internal/application/dto"
	"github.com/turtacn/riskpulse/internal/domain/service"
	"github.com/turtacn/riskpulse/pkg/constants"
	pkgerrors "github.com/turtacn/riskpulse/pkg/errors"
)

// ProviderHandler serves the provider health and breaker admin endpoints.
type ProviderHandler struct {
	aggregator service.Aggregator
}

// NewProviderHandler creates the handler.
func NewProviderHandler(aggregator service.Aggregator) *ProviderHandler {
	return &ProviderHandler{aggregator: aggregator}
}

// Health handles GET /api/v1/providers/health: the breaker snapshot per
// provider.
func (h *ProviderHandler) Health(c *gin.Context) {
	dto.SendSuccess(c, gin.H{"providers": h.aggregator.BreakerStates()})
}

// ResetBreaker handles POST /api/v1/providers/:id/breaker/reset. Admin
// surface: forces one provider's breaker back to closed.
func (h *ProviderHandler) ResetBreaker(c *gin.Context) {
	id := constants.ProviderID(c.Param("id"))

	known := false
	for _, p := range constants.AllProviders {
		if p == id {
			known = true
			break
		}
	}
	if !known {
		dto.SendError(c, pkgerrors.ErrNotFound("provider", string(id)))
		return
	}

	if !h.aggregator.ResetBreaker(id) {
		// No breaker exists yet for this provider, so there is nothing to
		// reset; report the closed steady state.
		dto.SendSuccess(c, gin.H{"provider_id": id, "state": "closed", "reset": false})
		return
	}
	dto.SendSuccess(c, gin.H{"provider_id": id, "state": "closed", "reset": true})
}
