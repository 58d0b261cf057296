package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/EduCore-2025/exam-engine/internal/errors"
	"github.com/EduCore-2025/exam-engine/internal/services"
	"github.com/EduCore-2025/exam-engine/internal/utils"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ===== BASE HANDLER STRUCT =====

// BaseHandler provides common logging and error mapping for all handlers
type BaseHandler struct {
	logger utils.Logger
}

// NewBaseHandler creates a new base handler with logging capability
func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{
		logger: logger,
	}
}

// LogError logs error details with context information
func (h *BaseHandler) LogError(c *gin.Context, err error, message string, additionalFields ...interface{}) {
	fields := []interface{}{
		"request_id", c.GetHeader("X-Request-ID"),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	}
	fields = append(fields, additionalFields...)
	h.logger.LogError(err, message, fields...)
}

// RespondWithError sends a consistent error response and logs it
func (h *BaseHandler) RespondWithError(c *gin.Context, statusCode int, message string, err error, details ...interface{}) {
	errorResp := ErrorResponse{
		Message: message,
	}
	if len(details) > 0 {
		errorResp.Details = details[0]
	}
	if err != nil {
		h.LogError(c, err, message, "status_code", statusCode)
	}
	c.JSON(statusCode, errorResp)
}

// RespondWithSuccess sends a consistent success response
func (h *BaseHandler) RespondWithSuccess(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, SuccessResponse{
		Message: message,
		Data:    data,
	})
}

// RespondServiceError maps a service error onto the HTTP status taxonomy:
// missing resources to 404, conflicts to 409, wrong lifecycle state to 422,
// ownership and permission failures to 403, validation to 400.
func (h *BaseHandler) RespondServiceError(c *gin.Context, err error) {
	switch {
	case services.IsNotFound(err):
		h.RespondWithError(c, http.StatusNotFound, err.Error(), nil)
	case services.IsConflict(err):
		h.RespondWithError(c, http.StatusConflict, err.Error(), nil)
	case services.IsInvalidState(err):
		var stateErr *services.InvalidStateError
		if errors.As(err, &stateErr) {
			h.RespondWithError(c, http.StatusUnprocessableEntity, err.Error(), nil, stateErr)
			return
		}
		h.RespondWithError(c, http.StatusUnprocessableEntity, err.Error(), nil)
	case services.IsUnauthorized(err):
		h.RespondWithError(c, http.StatusForbidden, err.Error(), nil)
	case services.IsValidation(err):
		var ve apperrors.ValidationErrors
		if errors.As(err, &ve) {
			h.RespondWithError(c, http.StatusBadRequest, "validation failed", nil, ve)
			return
		}
		h.RespondWithError(c, http.StatusBadRequest, err.Error(), nil)
	default:
		h.RespondWithError(c, http.StatusInternalServerError, "internal server error", err)
	}
}
