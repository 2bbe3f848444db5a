// Package errors provides standardized error handling for the intake pipeline
// and its collaborators.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Gate rejection codes. A gate rejection is a user-facing refusal of the
// submission; no record is persisted when one of these is returned.
const (
	ErrCodeOutOfScope         ErrorCode = "OUT_OF_SCOPE"
	ErrCodeLocationRequired   ErrorCode = "LOCATION_REQUIRED"
	ErrCodeImageIrrelevant    ErrorCode = "IMAGE_IRRELEVANT"
	ErrCodeInvalidImageFormat ErrorCode = "INVALID_IMAGE_FORMAT"
)

// Component-level failure codes surfaced to the orchestrator.
const (
	ErrCodeNoGpsData            ErrorCode = "NO_GPS_DATA"
	ErrCodeMalformedCoordinate  ErrorCode = "MALFORMED_COORDINATE"
	ErrCodeLocationUnresolvable ErrorCode = "LOCATION_UNRESOLVABLE"
	ErrCodeStorageFailure       ErrorCode = "STORAGE_FAILURE"
	ErrCodeUpstreamService      ErrorCode = "UPSTREAM_SERVICE_ERROR"
)

// Persistence and notification codes.
const (
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeComplaintInsertFailed    ErrorCode = "COMPLAINT_INSERT_FAILED"
	ErrCodeTicketNotFound           ErrorCode = "TICKET_NOT_FOUND"
	ErrCodeInvalidStatus            ErrorCode = "INVALID_STATUS"
	ErrCodeNotificationSendFailed   ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// CodeOf returns the ErrorCode carried by err, or an empty code when err is
// not a StandardError.
func CodeOf(err error) ErrorCode {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// MessageOf returns the user-facing message carried by err, or err.Error()
// when err is not a StandardError.
func MessageOf(err error) string {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Message
	}
	return err.Error()
}

// IsGateRejection reports whether err is one of the user-facing gate
// rejections that must not create a persisted record.
func IsGateRejection(err error) bool {
	switch CodeOf(err) {
	case ErrCodeOutOfScope, ErrCodeLocationRequired, ErrCodeImageIrrelevant, ErrCodeInvalidImageFormat:
		return true
	}
	return false
}

// --- Constructors ---

// NewOutOfScopeError rejects a submission that is not a government-service
// complaint.
func NewOutOfScopeError() *StandardError {
	return &StandardError{
		Code:      ErrCodeOutOfScope,
		Message:   "We apologize, but this complaint appears to be outside our scope of services.",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewLocationRequiredError rejects an image-bearing submission whose photo
// could not be anchored to a location.
func NewLocationRequiredError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeLocationRequired,
		Message:   "Please provide an image with GPS location data",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewImageIrrelevantError rejects a submission whose photo does not match the
// complaint text. The message carries the scorer's explanation verbatim.
func NewImageIrrelevantError(message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeImageIrrelevant,
		Message:   message,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidImageFormatError rejects a submission with an undecodable image
// payload.
func NewInvalidImageFormatError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidImageFormat,
		Message:   "Invalid image format or corrupted image data",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoGpsDataError indicates the image carries no usable GPS metadata.
func NewNoGpsDataError() *StandardError {
	return &StandardError{
		Code:      ErrCodeNoGpsData,
		Message:   "No GPS data found in image",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMalformedCoordinateError indicates the GPS metadata block exists but its
// numeric payload cannot be converted.
func NewMalformedCoordinateError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMalformedCoordinate,
		Message:   "GPS metadata could not be converted to coordinates",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewLocationUnresolvableError indicates the reverse-geocoding lookup failed.
func NewLocationUnresolvableError(err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &StandardError{
		Code:      ErrCodeLocationUnresolvable,
		Message:   "Could not extract address from GPS coordinates",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStorageFailureError wraps an image-storage failure. It is non-fatal to
// the submission.
func NewStorageFailureError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStorageFailure,
		Message:   "Failed to store complaint image",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamServiceError wraps a transport or protocol failure of an
// external service (language model, embedding model, geocoder).
func NewUpstreamServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamService,
		Message:   fmt.Sprintf("Upstream service %s is unavailable", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewComplaintInsertFailedError creates a retryable persistence error.
func NewComplaintInsertFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeComplaintInsertFailed,
		Message:   "An error occurred while submitting the complaint.",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewTicketNotFoundError indicates no complaint exists for the given ticket.
func NewTicketNotFoundError(ticket string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTicketNotFound,
		Message:   "Ticket number not found. Please check and try again.",
		Details:   fmt.Sprintf("ticket: %s", ticket),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidStatusError rejects a status outside the allowed set.
func NewInvalidStatusError(status string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidStatus,
		Message:   "Invalid status. Status must be Pending, In Progress, or Resolved.",
		Details:   fmt.Sprintf("status: %s", status),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError wraps an email delivery failure.
func NewNotificationSendFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Failed to send status notification",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}
