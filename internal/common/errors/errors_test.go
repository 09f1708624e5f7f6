// internal/common/errors/errors_test.go
package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Classification
// ==========================

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"model unavailable is transient", NewParsingModelUnavailableError(errors.New("503")), true},
		{"mailbox unavailable is transient", NewMailboxUnavailableError(errors.New("timeout")), true},
		{"rate limited is transient", NewDispatchRateLimitedError(errors.New("throttled")), true},
		{"malformed output is fatal", NewParsingMalformedOutputError(3, "missing full_name"), false},
		{"invalid recipient is fatal", NewDispatchRecipientInvalidError("bad@"), false},
		{"unreadable resume is fatal", NewExtractionUnreadableError("cv.pdf", "all layers failed"), false},
		{"plain error is fatal", errors.New("something broke"), false},
		{"nil error is fatal", nil, false},
		{"wrapped transient stays transient", fmt.Errorf("ingest: %w", NewStorageUnavailableError(errors.New("s3 down"))), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCodeCandidateNotFound, CodeOf(NewCandidateNotFoundError("cand-1")))
	assert.Equal(t, ErrCodeAttachmentTooLarge,
		CodeOf(fmt.Errorf("resolve: %w", NewAttachmentTooLargeError("cv.pdf", 20<<20, 10<<20))))
	assert.Equal(t, ErrorCode("UNKNOWN"), CodeOf(errors.New("plain")))
	assert.Equal(t, ErrorCode("UNKNOWN"), CodeOf(nil))
}

func TestGetRetryCount(t *testing.T) {
	assert.Equal(t, 3, GetRetryCount(ErrCodeDatabaseConnectionFailed))
	assert.Equal(t, 3, GetRetryCount(ErrCodeDispatchTransientNetwork))
	assert.Equal(t, 2, GetRetryCount(ErrCodeParsingModelUnavailable))
	assert.Equal(t, 2, GetRetryCount(ErrCodeDispatchRateLimited))
	assert.Equal(t, 0, GetRetryCount(ErrCodeExtractionUnreadable))
	assert.Equal(t, 0, GetRetryCount(ErrCodeStatusTransitionInvalid))
}

func TestIsRetryableErrorCode(t *testing.T) {
	assert.True(t, IsRetryableErrorCode(ErrCodeMailboxUnavailable))
	assert.False(t, IsRetryableErrorCode(ErrCodeAttachmentMissing))
}

func TestGetErrorCategory(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected string
	}{
		{ErrCodeExtractionUnreadable, "EXTRACTION"},
		{ErrCodeParsingMalformedOutput, "AI"},
		{ErrCodeScreeningModelUnavailable, "AI"},
		{ErrCodeDispatchRateLimited, "NOTIFICATION"},
		{ErrCodeCalendarUnavailable, "NOTIFICATION"},
		{ErrCodeAttachmentUnsupported, "INTAKE"},
		{ErrCodeQueryExecutionFailed, "STORAGE"},
		{ErrCodeStorageUnavailable, "STORAGE"},
		{ErrCodeStatusTransitionInvalid, "LIFECYCLE"},
		{ErrCodeCandidateNotFound, "LIFECYCLE"},
		{ErrorCode("SOMETHING_ELSE"), "OTHER"},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.expected, GetErrorCategory(tt.code))
		})
	}
}

// ==========================
// Sentinels
// ==========================

func TestDuplicateMessageSentinel(t *testing.T) {
	require.True(t, IsDuplicateMessage(ErrDuplicateMessage))
	require.True(t, IsDuplicateMessage(fmt.Errorf("upsert cand: %w", ErrDuplicateMessage)))
	require.False(t, IsDuplicateMessage(errors.New("some other error")))
	require.False(t, IsDuplicateMessage(nil))
}

func TestInfrastructureConstructorsCarryCause(t *testing.T) {
	mailbox := NewMailboxUnavailableError(errors.New("gmail: connection reset"))
	assert.Equal(t, "gmail: connection reset", mailbox.Details)
	assert.True(t, mailbox.Retryable)

	storage := NewStorageUnavailableError(errors.New("s3: bucket missing"))
	assert.Equal(t, "s3: bucket missing", storage.Details)
	assert.True(t, storage.Retryable)
}

func TestStandardError_Error(t *testing.T) {
	err := NewStatusTransitionInvalidError("invited", "processing")
	assert.Contains(t, err.Error(), "STATUS_TRANSITION_INVALID")
	assert.Contains(t, err.Error(), "Illegal candidate status transition")
	assert.Equal(t, "from: invited, to: processing", err.Details)
}
