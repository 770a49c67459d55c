// Package errors provides custom error types for the billminder API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import (
	"errors"
	"net/http"
)

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is reports whether target is an AppError with the same code, so wrapped
// copies still match their sentinel.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Code returns the AppError code carried by err, or "" when err is not an AppError.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Detail returns err's message followed by its internal cause, for logs.
func Detail(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Internal != nil {
		return appErr.Message + ": " + appErr.Internal.Error()
	}
	return err.Error()
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
)

// Category errors.
var (
	ErrCategoryNotFound  = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Category not found", StatusCode: http.StatusNotFound}
	ErrDuplicateCategory = &AppError{Code: "DUPLICATE_CATEGORY", Message: "A category with this name already exists", StatusCode: http.StatusConflict}
	ErrCategoryInUse     = &AppError{Code: "CATEGORY_IN_USE", Message: "Category is still used by bills", StatusCode: http.StatusConflict}
)

// Bill errors.
var (
	ErrBillNotFound  = &AppError{Code: "BILL_NOT_FOUND", Message: "Bill not found", StatusCode: http.StatusNotFound}
	ErrInvalidRange  = &AppError{Code: "INVALID_RANGE", Message: "End date must not be before start date", StatusCode: http.StatusBadRequest}
	ErrInvalidStatus = &AppError{Code: "INVALID_STATUS", Message: "Status must be pending or paid", StatusCode: http.StatusBadRequest}
)

// Attachment errors.
var (
	ErrFileTooLarge        = &AppError{Code: "FILE_TOO_LARGE", Message: "File exceeds the maximum upload size", StatusCode: http.StatusRequestEntityTooLarge}
	ErrUnsupportedFileType = &AppError{Code: "UNSUPPORTED_FILE_TYPE", Message: "Only images, PDF, Word and text files are allowed", StatusCode: http.StatusBadRequest}
	ErrAttachmentMissing   = &AppError{Code: "ATTACHMENT_MISSING", Message: "Attachment file not found", StatusCode: http.StatusNotFound}
)

// Notification errors.
var (
	ErrNoDestination   = &AppError{Code: "NO_DESTINATION", Message: "User has no email address for notifications", StatusCode: http.StatusUnprocessableEntity}
	ErrDeliveryFailure = &AppError{Code: "DELIVERY_FAILURE", Message: "Failed to deliver notification", StatusCode: http.StatusBadGateway}
)

// Report errors.
var (
	ErrRenderFailure = &AppError{Code: "RENDER_FAILURE", Message: "Failed to generate report", StatusCode: http.StatusInternalServerError}
)
