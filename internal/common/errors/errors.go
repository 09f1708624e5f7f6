// Package errors provides standardized error handling for the intake pipeline.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeExtractionUnreadable ErrorCode = "EXTRACTION_UNREADABLE"

	ErrCodeParsingMalformedOutput    ErrorCode = "PARSING_MALFORMED_OUTPUT"
	ErrCodeParsingModelUnavailable   ErrorCode = "PARSING_MODEL_UNAVAILABLE"
	ErrCodeScreeningModelUnavailable ErrorCode = "SCREENING_MODEL_UNAVAILABLE"

	ErrCodeDispatchTransientNetwork ErrorCode = "DISPATCH_TRANSIENT_NETWORK"
	ErrCodeDispatchRateLimited      ErrorCode = "DISPATCH_RATE_LIMITED"
	ErrCodeDispatchAuthFailure      ErrorCode = "DISPATCH_AUTH_FAILURE"
	ErrCodeDispatchRecipientInvalid ErrorCode = "DISPATCH_RECIPIENT_INVALID"

	ErrCodeAttachmentMissing     ErrorCode = "ATTACHMENT_MISSING"
	ErrCodeAttachmentUnsupported ErrorCode = "ATTACHMENT_UNSUPPORTED"
	ErrCodeAttachmentTooLarge    ErrorCode = "ATTACHMENT_TOO_LARGE"

	ErrCodeStatusTransitionInvalid ErrorCode = "STATUS_TRANSITION_INVALID"
	ErrCodeCandidateNotFound       ErrorCode = "CANDIDATE_NOT_FOUND"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeStorageUnavailable       ErrorCode = "STORAGE_UNAVAILABLE"
	ErrCodeMailboxUnavailable       ErrorCode = "MAILBOX_UNAVAILABLE"
	ErrCodeCalendarUnavailable      ErrorCode = "CALENDAR_UNAVAILABLE"
)

// ErrDuplicateMessage marks a message already ingested. It is a dedupe
// sentinel, not a failure: callers skip the message and move on.
var ErrDuplicateMessage = errors.New("message already processed")

// IsDuplicateMessage reports whether err is the dedupe sentinel.
func IsDuplicateMessage(err error) bool {
	return errors.Is(err, ErrDuplicateMessage)
}

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewExtractionUnreadableError is returned when every extraction layer fails
// to produce usable text from a resume document.
func NewExtractionUnreadableError(filename string, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeExtractionUnreadable,
		Message:   "Resume document could not be read by any extraction layer",
		Details:   fmt.Sprintf("filename: %s, %s", filename, details),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewParsingMalformedOutputError is returned when the model output stays
// invalid after corrective retries are exhausted.
func NewParsingMalformedOutputError(attempts int, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeParsingMalformedOutput,
		Message:   "Model returned malformed profile output",
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"attempts": attempts},
		Timestamp: time.Now().UTC(),
	}
}

// NewParsingModelUnavailableError creates a retryable model availability error.
func NewParsingModelUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeParsingModelUnavailable,
		Message:   "Resume parsing model unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewScreeningModelUnavailableError creates a retryable model availability error.
func NewScreeningModelUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeScreeningModelUnavailable,
		Message:   "Fit screening model unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDispatchTransientNetworkError creates a retryable delivery error.
func NewDispatchTransientNetworkError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDispatchTransientNetwork,
		Message:   "Notification delivery failed on a transient network error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDispatchRateLimitedError creates a retryable rate limit error.
func NewDispatchRateLimitedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDispatchRateLimited,
		Message:   "Notification delivery rate limited",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDispatchAuthFailureError creates a non-retryable auth error.
func NewDispatchAuthFailureError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDispatchAuthFailure,
		Message:   "Notification delivery authentication failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDispatchRecipientInvalidError creates a non-retryable recipient error.
func NewDispatchRecipientInvalidError(recipient string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDispatchRecipientInvalid,
		Message:   "Recipient address rejected",
		Details:   fmt.Sprintf("recipient: %s", recipient),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAttachmentMissingError is returned when a message carries no resume.
func NewAttachmentMissingError(messageID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAttachmentMissing,
		Message:   "Message carries no resume attachment",
		Details:   fmt.Sprintf("messageId: %s", messageID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAttachmentUnsupportedError is returned for attachment types the
// extraction engine cannot handle.
func NewAttachmentUnsupportedError(filename, mimeType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAttachmentUnsupported,
		Message:   "Attachment type not supported",
		Details:   fmt.Sprintf("filename: %s, mimeType: %s", filename, mimeType),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAttachmentTooLargeError is returned when an attachment exceeds the
// configured size cap.
func NewAttachmentTooLargeError(filename string, size, limit int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeAttachmentTooLarge,
		Message:   "Attachment exceeds size limit",
		Details:   fmt.Sprintf("filename: %s, size: %d, limit: %d", filename, size, limit),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStatusTransitionInvalidError signals an illegal lifecycle transition.
func NewStatusTransitionInvalidError(from, to string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStatusTransitionInvalid,
		Message:   "Illegal candidate status transition",
		Details:   fmt.Sprintf("from: %s, to: %s", from, to),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCandidateNotFoundError creates a non-retryable lookup error.
func NewCandidateNotFoundError(candidateID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCandidateNotFound,
		Message:   "Candidate not found",
		Details:   fmt.Sprintf("candidateId: %s", candidateID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStorageUnavailableError creates a retryable blob storage error.
func NewStorageUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStorageUnavailable,
		Message:   "Blob storage unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewMailboxUnavailableError creates a retryable mailbox access error.
func NewMailboxUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMailboxUnavailable,
		Message:   "Mailbox unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCalendarUnavailableError creates a retryable calendar error.
func NewCalendarUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCalendarUnavailable,
		Message:   "Calendar service unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeStorageUnavailable,
		ErrCodeMailboxUnavailable,
		ErrCodeCalendarUnavailable,
		ErrCodeDispatchTransientNetwork:
		return 3

	case ErrCodeParsingModelUnavailable,
		ErrCodeScreeningModelUnavailable,
		ErrCodeDispatchRateLimited:
		return 2

	default:
		return 0
	}
}

// IsRetryable reports whether an error is classified transient. Errors that
// do not carry a StandardError are treated as fatal.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return false
}

// CodeOf extracts the error code from an error chain, or "UNKNOWN" when no
// StandardError is present.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return "UNKNOWN"
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "EXTRACTION"):
		return "EXTRACTION"
	case strings.Contains(codeStr, "PARSING") || strings.Contains(codeStr, "SCREENING"):
		return "AI"
	case strings.Contains(codeStr, "DISPATCH") || strings.Contains(codeStr, "CALENDAR"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "ATTACHMENT"):
		return "INTAKE"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY") || strings.Contains(codeStr, "STORAGE"):
		return "STORAGE"
	case strings.Contains(codeStr, "STATUS") || strings.Contains(codeStr, "CANDIDATE"):
		return "LIFECYCLE"
	default:
		return "OTHER"
	}
}
