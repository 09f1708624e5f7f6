// internal/models/notification.go
package models

import "time"

// NotificationKind distinguishes the two outbound channels.
type NotificationKind string

const (
	NotificationInvite   NotificationKind = "invite"
	NotificationFeedback NotificationKind = "feedback"
)

// AttemptResult is the outcome of one send attempt.
type AttemptResult string

const (
	AttemptSuccess AttemptResult = "success"
	AttemptFailure AttemptResult = "failure"
)

// NotificationAttempt is one row of the append-only audit trail. Attempts are
// never mutated after creation; retry logic reads them to avoid repeating
// side effects that already succeeded.
type NotificationAttempt struct {
	ID              string           `json:"id"`
	CandidateID     string           `json:"candidate_id"`
	Kind            NotificationKind `json:"kind"`
	Recipient       string           `json:"recipient"`
	AttemptedAt     time.Time        `json:"attempted_at"`
	Result          AttemptResult    `json:"result"`
	Reason          string           `json:"reason,omitempty"`
	CalendarEventID string           `json:"calendar_event_id,omitempty"`
}

// FeedbackFailure is one per-item failure in a bulk feedback response.
type FeedbackFailure struct {
	CandidateID string `json:"candidate_id"`
	Email       string `json:"email"`
	Reason      string `json:"reason"`
}

// BulkFeedbackResult is the outcome of a bulk feedback dispatch.
type BulkFeedbackResult struct {
	Sent     int               `json:"sent"`
	Failures []FeedbackFailure `json:"failures"`
}

// InviteResult reports a single-invite dispatch outcome.
type InviteResult struct {
	CandidateID     string    `json:"candidate_id"`
	CalendarEventID string    `json:"calendar_event_id,omitempty"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	EmailSent       bool      `json:"email_sent"`
}
