package response

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// Error codes used across handlers and services
const (
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeForbidden      = "FORBIDDEN"
	ErrCodeInternal       = "INTERNAL_ERROR"
	ErrCodeBusUnavailable = "BUS_UNAVAILABLE"
	ErrCodeUploadFailed   = "UPLOAD_FAILED"
	ErrCodeGatewayTimeout = "GATEWAY_TIMEOUT"
)

// AppError is a service-layer error carrying a machine-readable code.
type AppError struct {
	Code    string
	Message string
	Details string
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAppError creates an AppError with the given code and message.
func NewAppError(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// NewAppErrorWithDetails creates an AppError with additional detail text.
func NewAppErrorWithDetails(code, message, details string) *AppError {
	return &AppError{Code: code, Message: message, Details: details}
}

// ErrorBody is the JSON error shape returned by every endpoint.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SendError writes a standard error response.
func SendError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"error": ErrorBody{Code: code, Message: message},
	})
}

// SendSuccess writes a standard success response.
func SendSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"data": data})
}
