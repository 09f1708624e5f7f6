// internal/store/attempts.go
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	pipeerrors "github.com/talentflow/intake-pipeline/internal/common/errors"
	"github.com/talentflow/intake-pipeline/internal/models"
)

// RecordNotificationAttempt appends one attempt to the audit trail. Rows are
// never updated afterwards.
func (s *CandidateStore) RecordNotificationAttempt(ctx context.Context, attempt models.NotificationAttempt) (string, error) {
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	if attempt.AttemptedAt.IsZero() {
		attempt.AttemptedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_attempts (id, candidate_id, kind, recipient, attempted_at, result, reason, calendar_event_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		attempt.ID, attempt.CandidateID, attempt.Kind, attempt.Recipient,
		attempt.AttemptedAt, attempt.Result, attempt.Reason, attempt.CalendarEventID)
	if err != nil {
		return "", pipeerrors.NewQueryExecutionFailedError("record_notification_attempt", err)
	}
	return attempt.ID, nil
}

// ListAttempts returns the audit trail for one candidate, oldest first.
func (s *CandidateStore) ListAttempts(ctx context.Context, candidateID string) ([]models.NotificationAttempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, candidate_id, kind, recipient, attempted_at, result, reason, calendar_event_id
		FROM notification_attempts
		WHERE candidate_id = $1
		ORDER BY attempted_at ASC`, candidateID)
	if err != nil {
		return nil, pipeerrors.NewQueryExecutionFailedError("list_attempts", err)
	}
	defer rows.Close()

	return scanAttempts(rows)
}

// ListAllAttempts returns the full audit trail, oldest first. Used by the
// compliance export.
func (s *CandidateStore) ListAllAttempts(ctx context.Context) ([]models.NotificationAttempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, candidate_id, kind, recipient, attempted_at, result, reason, calendar_event_id
		FROM notification_attempts
		ORDER BY attempted_at ASC`)
	if err != nil {
		return nil, pipeerrors.NewQueryExecutionFailedError("list_all_attempts", err)
	}
	defer rows.Close()

	return scanAttempts(rows)
}

func scanAttempts(rows *sql.Rows) ([]models.NotificationAttempt, error) {
	var out []models.NotificationAttempt
	for rows.Next() {
		var a models.NotificationAttempt
		if err := rows.Scan(&a.ID, &a.CandidateID, &a.Kind, &a.Recipient,
			&a.AttemptedAt, &a.Result, &a.Reason, &a.CalendarEventID); err != nil {
			return nil, pipeerrors.NewQueryExecutionFailedError("scan_attempts", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, pipeerrors.NewQueryExecutionFailedError("scan_attempts", err)
	}
	return out, nil
}
