package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/turtacn/riskpulse/internal/application/dto"
	"github.com/turtacn/riskpulse/internal/domain/models"
	"github.com/turtacn/riskpulse/internal/domain/service"
	pkgerrors "github.com/turtacn/riskpulse/pkg/errors"
)

// ModelHandler serves the model registry endpoints.
type ModelHandler struct {
	registry service.Registry
}

// NewModelHandler creates the handler.
func NewModelHandler(registry service.Registry) *ModelHandler {
	return &ModelHandler{registry: registry}
}

// List handles GET /api/v1/models.
func (h *ModelHandler) List(c *gin.Context) {
	dto.SendSuccess(c, gin.H{"models": h.registry.Descriptors()})
}

// Get handles GET /api/v1/models/:id.
func (h *ModelHandler) Get(c *gin.Context) {
	id := models.ModelID(c.Param("id"))
	descriptor, ok := h.registry.Descriptor(id)
	if !ok {
		dto.SendError(c, pkgerrors.ErrNotFound("model", string(id)))
		return
	}
	dto.SendSuccess(c, descriptor)
}
