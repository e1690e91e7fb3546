package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/propfolio/backend/internal/interfaces/http/dto"
	"github.com/propfolio/backend/internal/interfaces/http/middleware"
)

// RequestIDKey is the context key for the request ID.
const RequestIDKey = "X-Request-ID"

// BaseHandler provides the response helpers shared by all handlers.
type BaseHandler struct{}

func getRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(RequestIDKey)
}

// getUserID reads the user ID from JWT claims, falling back to the
// X-User-ID header for development setups.
func getUserID(c *gin.Context) (uuid.UUID, error) {
	userIDStr := middleware.GetJWTUserID(c)
	if userIDStr == "" {
		userIDStr = c.GetHeader("X-User-ID")
	}
	if userIDStr == "" {
		return uuid.Nil, errors.New("user ID not found in context")
	}
	return uuid.Parse(userIDStr)
}

// getOrgID reads the organization ID from JWT claims or the X-Org-ID
// header. Without either it falls back to the development org.
func getOrgID(c *gin.Context) (uuid.UUID, error) {
	orgIDStr := middleware.GetJWTOrgID(c)
	if orgIDStr == "" {
		orgIDStr = c.GetHeader("X-Org-ID")
	}
	if orgIDStr == "" {
		return uuid.MustParse("00000000-0000-0000-0000-000000000001"), nil
	}
	return uuid.Parse(orgIDStr)
}

// Success sends a 200 response with data.
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a 200 response with data and pagination meta.
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 response with data.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 response.
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with an explicit status code.
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// ErrorWithCode sends an error response, deriving the status from the code.
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

func (h *BaseHandler) BadRequest(c *gin.Context, msg string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, msg)
}

func (h *BaseHandler) NotFound(c *gin.Context, msg string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, msg)
}

func (h *BaseHandler) Unauthorized(c *gin.Context, msg string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, msg)
}

func (h *BaseHandler) Forbidden(c *gin.Context, msg string) {
	h.Error(c, http.StatusForbidden, dto.ErrCodeForbidden, msg)
}

func (h *BaseHandler) Conflict(c *gin.Context, msg string) {
	h.Error(c, http.StatusConflict, dto.ErrCodeConflict, msg)
}

// UnprocessableEntity sends a 422 response with the caller's error code.
func (h *BaseHandler) UnprocessableEntity(c *gin.Context, code, msg string) {
	h.Error(c, http.StatusUnprocessableEntity, code, msg)
}

func (h *BaseHandler) InternalError(c *gin.Context, msg string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, msg)
}

func (h *BaseHandler) TooManyRequests(c *gin.Context, msg string) {
	h.Error(c, http.StatusTooManyRequests, dto.ErrCodeRateLimited, msg)
}

// ValidationError sends a 400 response carrying field-level details.
func (h *BaseHandler) ValidationError(c *gin.Context, details []dto.ValidationDetail) {
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		"Request validation failed",
		getRequestID(c),
		details,
	))
}

// respondDomainError writes the mapped response for a DomainError,
// reporting whether err was one. errors.As handles wrapped errors.
func (h *BaseHandler) respondDomainError(c *gin.Context, err error) bool {
	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	code := dto.NormalizeErrorCode(domainErr.Code)
	c.JSON(dto.GetHTTPStatus(code),
		dto.NewErrorResponseWithRequestID(code, domainErr.Message, getRequestID(c)))
	return true
}

// HandleDomainError converts a domain error to an HTTP response, treating
// anything else as an internal error.
func (h *BaseHandler) HandleDomainError(c *gin.Context, err error) {
	if h.respondDomainError(c, err) {
		return
	}
	h.InternalError(c, "An unexpected error occurred")
}

// HandleError responds to both domain and standard errors. A nil err is
// a no-op.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	if h.respondDomainError(c, err) {
		return
	}
	h.InternalError(c, "An unexpected error occurred")
}
