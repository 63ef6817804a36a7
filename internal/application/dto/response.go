package dto

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/riskpulse/pkg/constants"
	pkgerrors "github.com/turtacn/riskpulse/pkg/errors"
)

// ErrorBody is the public error envelope. It carries the machine-readable
// code and sanitized details only; causes and stack traces stay in logs.
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// ErrorResponse wraps an ErrorBody with request correlation metadata.
type ErrorResponse struct {
	Error     ErrorBody `json:"error"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp string    `json:"timestamp"`
}

// SendError writes the error envelope for err. Non-AppError values are
// collapsed to a generic internal error so nothing internal leaks.
func SendError(c *gin.Context, err error) {
	appErr, ok := pkgerrors.AsAppError(err)
	if !ok {
		appErr = pkgerrors.ErrInternal(err)
	}

	requestID, _ := c.Request.Context().Value(constants.ContextKeyRequestID).(string)
	c.AbortWithStatusJSON(appErr.HTTPStatus, ErrorResponse{
		Error: ErrorBody{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		},
		RequestID: requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// SendSuccess writes a JSON payload with status 200.
func SendSuccess(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// SendCreated writes a JSON payload with status 201.
func SendCreated(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusCreated, payload)
}
