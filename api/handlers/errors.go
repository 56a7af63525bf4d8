package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"example.com/eventhub/internal/service"
)

// ErrorResponse defines the structure of an error response
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Error represents an API error
type Error struct {
	Message    string
	StatusCode int
	Code       string
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// Common API errors
var (
	ErrInvalidRequest     = &Error{Message: "Invalid request", StatusCode: http.StatusBadRequest, Code: "INVALID_REQUEST"}
	ErrNotFound           = &Error{Message: "Resource not found", StatusCode: http.StatusNotFound, Code: "NOT_FOUND"}
	ErrInternalServer     = &Error{Message: "Internal server error", StatusCode: http.StatusInternalServerError, Code: "INTERNAL_ERROR"}
	ErrUnauthorized       = &Error{Message: "Unauthorized", StatusCode: http.StatusUnauthorized, Code: "UNAUTHORIZED"}
	ErrForbidden          = &Error{Message: "Forbidden", StatusCode: http.StatusForbidden, Code: "FORBIDDEN"}
	ErrConflict           = &Error{Message: "Already participating in this event", StatusCode: http.StatusConflict, Code: "CONFLICT"}
	ErrInvalidTransition  = &Error{Message: "Participation is already in a terminal status", StatusCode: http.StatusUnprocessableEntity, Code: "INVALID_TRANSITION"}
	ErrServiceUnavailable = &Error{Message: "Storage temporarily unavailable, retry the call", StatusCode: http.StatusServiceUnavailable, Code: "TRANSIENT"}
)

// NewValidationError creates a new validation error with a custom message
func NewValidationError(message string) *Error {
	return &Error{
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Code:       "VALIDATION_ERROR",
	}
}

// FromServiceError maps a lifecycle engine error to an API error. The
// engine's contract ends at typed errors; the translation to wire
// responses lives here.
func FromServiceError(err error) *Error {
	switch {
	case errors.Is(err, service.ErrEventNotFound):
		return &Error{Message: "Event not found", StatusCode: http.StatusNotFound, Code: "NOT_FOUND"}
	case errors.Is(err, service.ErrParticipantNotFound):
		return &Error{Message: "Participant not found", StatusCode: http.StatusNotFound, Code: "NOT_FOUND"}
	case errors.Is(err, service.ErrSubjectNotFound):
		return &Error{Message: "Subject not found", StatusCode: http.StatusNotFound, Code: "NOT_FOUND"}
	case errors.Is(err, service.ErrAlreadyRegistered):
		return ErrConflict
	case errors.Is(err, service.ErrInvalidTransition):
		return ErrInvalidTransition
	case errors.Is(err, context.DeadlineExceeded):
		return ErrServiceUnavailable
	default:
		return ErrInternalServer
	}
}

// WriteError writes an error response
func WriteError(c *gin.Context, err error) {
	var apiError *Error
	if !errors.As(err, &apiError) {
		apiError = FromServiceError(err)
	}

	if apiError.StatusCode >= http.StatusInternalServerError {
		// Invariant breaches and unknown faults must be loud, never
		// silently absorbed into a generic response.
		logrus.WithError(err).Error("Unhandled error")
	}

	c.JSON(apiError.StatusCode, ErrorResponse{
		Message: apiError.Message,
		Code:    apiError.Code,
	})
}
