// Package handlers implements the HTTP endpoint handlers.
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/riskpulse/internal/application/dto"
	appservice "github.com/turtacn/riskpulse/internal/application/service"
	"github.com/turtacn/riskpulse/pkg/constants"
	pkgerrors "github.com/turtacn/riskpulse/pkg/errors"
)

// AssessmentHandler serves the assessment endpoints.
type AssessmentHandler struct {
	svc *appservice.AssessmentService
}

// NewAssessmentHandler creates the handler.
func NewAssessmentHandler(svc *appservice.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{svc: svc}
}

// Create handles POST /api/v1/assessments.
func (h *AssessmentHandler) Create(c *gin.Context) {
	var req dto.CreateAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, pkgerrors.ErrValidation("malformed request body").WithError(err))
		return
	}

	idempotencyKey := c.GetHeader(constants.HeaderIdempotencyKey)
	resp, err := h.svc.Create(c.Request.Context(), &req, idempotencyKey)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	if resp.Replayed {
		dto.SendSuccess(c, resp)
		return
	}
	dto.SendCreated(c, resp)
}

// Get handles GET /api/v1/assessments/:id.
func (h *AssessmentHandler) Get(c *gin.Context) {
	resp, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, resp)
}

// List handles GET /api/v1/assessments?business_id=...&limit=...
func (h *AssessmentHandler) List(c *gin.Context) {
	businessID := c.Query("business_id")
	if businessID == "" {
		dto.SendError(c, pkgerrors.ErrMissingField("business_id"))
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 100 {
			dto.SendError(c, pkgerrors.ErrValidation("limit must be an integer between 1 and 100"))
			return
		}
		limit = parsed
	}

	resp, err := h.svc.ListByBusiness(c.Request.Context(), businessID, limit)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, gin.H{"assessments": resp, "count": len(resp)})
}
