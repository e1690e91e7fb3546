package handler

import "github.com/propfolio/backend/internal/interfaces/http/dto"

// The wrapper types below exist for OpenAPI documentation only; handlers
// marshal dto.Response at runtime.

// APIResponse is the standard response envelope with a typed data field.
// @Description Standard API response wrapper with typed data field
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorResponse is the standard error envelope.
// @Description Standard error response
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}

// SuccessResponse is a bare success envelope without data.
// @Description Simple success response without data
type SuccessResponse struct {
	Success bool `json:"success" example:"true"`
}

// CountData carries a single count value.
// @Description Count data
type CountData struct {
	Count int64 `json:"count"`
}
