// internal/store/candidates.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	pipeerrors "github.com/talentflow/intake-pipeline/internal/common/errors"
	"github.com/talentflow/intake-pipeline/internal/common/logger"
	"github.com/talentflow/intake-pipeline/internal/models"
)

// CandidateStore is the pipeline's system of record. All candidate state,
// including the dedupe key and the lifecycle status, lives here.
type CandidateStore struct {
	db  *sql.DB
	log logger.Logger
}

func NewCandidateStore(db *sql.DB, log logger.Logger) *CandidateStore {
	return &CandidateStore{db: db, log: log}
}

const candidateColumns = `id, message_id, source_email, sender_name, email_subject, raw_email_body,
	resume_blob_ref, resume_filename, extracted_text, extraction_method,
	parsed_profile, validation_flags, status, fit_score, summary,
	matching_skills, concerns, recommendation, recruiter_comments,
	job_description_ref, calendar_event_id, created_at, updated_at`

// UpsertByMessageID creates a candidate record on the first sighting of a
// message id. A second call with the same message id returns the existing id
// and the dedupe sentinel; it never re-creates the record.
func (s *CandidateStore) UpsertByMessageID(ctx context.Context, msg *models.InboundMessage) (string, error) {
	id := uuid.NewString()

	var insertedID string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO candidates (id, message_id, source_email, sender_name, email_subject, raw_email_body, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (message_id) DO NOTHING
		RETURNING id`,
		id, msg.MessageID, msg.SenderEmail, msg.SenderName, msg.Subject, msg.Body, models.StatusPending,
	).Scan(&insertedID)

	if err == sql.ErrNoRows {
		// Conflict path: the message was already ingested.
		var existingID string
		if err := s.db.QueryRowContext(ctx,
			`SELECT id FROM candidates WHERE message_id = $1`, msg.MessageID,
		).Scan(&existingID); err != nil {
			return "", pipeerrors.NewQueryExecutionFailedError("upsert_by_message_id", err)
		}
		return existingID, pipeerrors.ErrDuplicateMessage
	}
	if err != nil {
		return "", pipeerrors.NewQueryExecutionFailedError("upsert_by_message_id", err)
	}

	return insertedID, nil
}

// GetByID loads a full candidate record.
func (s *CandidateStore) GetByID(ctx context.Context, id string) (*models.Candidate, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE id = $1`, id)

	c, err := scanCandidate(row)
	if err == sql.ErrNoRows {
		return nil, pipeerrors.NewCandidateNotFoundError(id)
	}
	if err != nil {
		return nil, pipeerrors.NewQueryExecutionFailedError("get_by_id", err)
	}
	return c, nil
}

// List returns all candidates ordered by creation time, newest first.
func (s *CandidateStore) List(ctx context.Context) ([]*models.Candidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+candidateColumns+` FROM candidates ORDER BY created_at DESC`)
	if err != nil {
		return nil, pipeerrors.NewQueryExecutionFailedError("list", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// TransitionStatus moves a candidate through the lifecycle graph. Illegal
// transitions are rejected with an invariant-violation error and leave the
// record untouched.
func (s *CandidateStore) TransitionStatus(ctx context.Context, id string, to models.Status) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return pipeerrors.NewQueryExecutionFailedError("transition_status", err)
	}
	defer tx.Rollback()

	var current models.Status
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM candidates WHERE id = $1 FOR UPDATE`, id,
	).Scan(&current)
	if err == sql.ErrNoRows {
		return pipeerrors.NewCandidateNotFoundError(id)
	}
	if err != nil {
		return pipeerrors.NewQueryExecutionFailedError("transition_status", err)
	}

	if !models.CanTransition(current, to) {
		return pipeerrors.NewStatusTransitionInvalidError(string(current), string(to))
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE candidates SET status = $1, updated_at = now() WHERE id = $2`, to, id,
	); err != nil {
		return pipeerrors.NewQueryExecutionFailedError("transition_status", err)
	}

	return tx.Commit()
}

// AppendFlags adds validation flags, preserving the order the pipeline
// raised them in.
func (s *CandidateStore) AppendFlags(ctx context.Context, id string, flags ...models.ValidationFlag) error {
	if len(flags) == 0 {
		return nil
	}
	payload, err := json.Marshal(flags)
	if err != nil {
		return fmt.Errorf("marshal flags: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE candidates SET validation_flags = validation_flags || $1::jsonb, updated_at = now() WHERE id = $2`,
		payload, id)
	if err != nil {
		return pipeerrors.NewQueryExecutionFailedError("append_flags", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return pipeerrors.NewCandidateNotFoundError(id)
	}
	return nil
}

// RecordExtraction stores the extraction outcome for a candidate.
func (s *CandidateStore) RecordExtraction(ctx context.Context, id, blobRef, filename, text string, method models.ExtractionMethod) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE candidates
		SET resume_blob_ref = $1, resume_filename = $2, extracted_text = $3,
			extraction_method = $4, updated_at = now()
		WHERE id = $5`,
		blobRef, filename, text, method, id)
	if err != nil {
		return pipeerrors.NewQueryExecutionFailedError("record_extraction", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return pipeerrors.NewCandidateNotFoundError(id)
	}
	return nil
}

// RecordParseResult stores the parsed profile. A nil profile is stored as
// SQL NULL; screening must never run on it.
func (s *CandidateStore) RecordParseResult(ctx context.Context, id string, profile *models.ParsedProfile) error {
	var payload interface{}
	if profile != nil {
		b, err := json.Marshal(profile)
		if err != nil {
			return fmt.Errorf("marshal profile: %w", err)
		}
		payload = b
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE candidates SET parsed_profile = $1, updated_at = now() WHERE id = $2`,
		payload, id)
	if err != nil {
		return pipeerrors.NewQueryExecutionFailedError("record_parse_result", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return pipeerrors.NewCandidateNotFoundError(id)
	}
	return nil
}

// RecordScreeningResult stores the screener output. The score must already
// be clamped to [0,100] by the screener.
func (s *CandidateStore) RecordScreeningResult(ctx context.Context, id string, result models.ScreeningResult, recruiterComments string) error {
	skills, err := json.Marshal(emptyIfNil(result.MatchingSkills))
	if err != nil {
		return fmt.Errorf("marshal matching skills: %w", err)
	}
	concerns, err := json.Marshal(emptyIfNil(result.Concerns))
	if err != nil {
		return fmt.Errorf("marshal concerns: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE candidates
		SET fit_score = $1, summary = $2, matching_skills = $3, concerns = $4,
			recommendation = $5, recruiter_comments = $6, updated_at = now()
		WHERE id = $7`,
		result.FitScore, result.Summary, skills, concerns,
		result.Recommendation, recruiterComments, id)
	if err != nil {
		return pipeerrors.NewQueryExecutionFailedError("record_screening_result", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return pipeerrors.NewCandidateNotFoundError(id)
	}
	return nil
}

// SetCalendarEvent persists a created calendar event id so invite retries
// reuse it instead of creating duplicates.
func (s *CandidateStore) SetCalendarEvent(ctx context.Context, id, eventID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE candidates SET calendar_event_id = $1, updated_at = now() WHERE id = $2`,
		eventID, id)
	if err != nil {
		return pipeerrors.NewQueryExecutionFailedError("set_calendar_event", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return pipeerrors.NewCandidateNotFoundError(id)
	}
	return nil
}

// SetJobDescriptionRef records which job description the candidate was
// screened against.
func (s *CandidateStore) SetJobDescriptionRef(ctx context.Context, id, ref string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE candidates SET job_description_ref = $1, updated_at = now() WHERE id = $2`,
		ref, id)
	if err != nil {
		return pipeerrors.NewQueryExecutionFailedError("set_job_description_ref", err)
	}
	return nil
}

// FindPendingForBulkAction selects candidates eligible for bulk feedback:
// pending, needs_review, or screened but not yet notified.
func (s *CandidateStore) FindPendingForBulkAction(ctx context.Context) ([]*models.Candidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+candidateColumns+` FROM candidates
		 WHERE status IN ($1, $2, $3)
		 ORDER BY created_at ASC`,
		models.StatusPending, models.StatusNeedsReview, models.StatusScreened)
	if err != nil {
		return nil, pipeerrors.NewQueryExecutionFailedError("find_pending_for_bulk_action", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// Delete removes a candidate permanently. This serves explicit external
// deletion requests only; the pipeline itself never deletes.
func (s *CandidateStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM candidates WHERE id = $1`, id)
	if err != nil {
		return pipeerrors.NewQueryExecutionFailedError("delete", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return pipeerrors.NewCandidateNotFoundError(id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCandidate(row rowScanner) (*models.Candidate, error) {
	var (
		c           models.Candidate
		profileRaw  []byte
		flagsRaw    []byte
		skillsRaw   []byte
		concernsRaw []byte
		fitScore    sql.NullInt64
	)

	err := row.Scan(
		&c.ID, &c.MessageID, &c.SourceEmail, &c.SenderName, &c.EmailSubject, &c.RawEmailBody,
		&c.ResumeBlobRef, &c.ResumeFilename, &c.ExtractedText, &c.ExtractionMethod,
		&profileRaw, &flagsRaw, &c.Status, &fitScore, &c.Summary,
		&skillsRaw, &concernsRaw, &c.Recommendation, &c.RecruiterComments,
		&c.JobDescriptionRef, &c.CalendarEventID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if fitScore.Valid {
		v := int(fitScore.Int64)
		c.FitScore = &v
	}
	if len(profileRaw) > 0 {
		var p models.ParsedProfile
		if err := json.Unmarshal(profileRaw, &p); err != nil {
			return nil, fmt.Errorf("unmarshal parsed profile: %w", err)
		}
		c.ParsedProfile = &p
	}
	if len(flagsRaw) > 0 {
		if err := json.Unmarshal(flagsRaw, &c.ValidationFlags); err != nil {
			return nil, fmt.Errorf("unmarshal validation flags: %w", err)
		}
	}
	if len(skillsRaw) > 0 {
		if err := json.Unmarshal(skillsRaw, &c.MatchingSkills); err != nil {
			return nil, fmt.Errorf("unmarshal matching skills: %w", err)
		}
	}
	if len(concernsRaw) > 0 {
		if err := json.Unmarshal(concernsRaw, &c.Concerns); err != nil {
			return nil, fmt.Errorf("unmarshal concerns: %w", err)
		}
	}

	return &c, nil
}

func scanCandidates(rows *sql.Rows) ([]*models.Candidate, error) {
	var out []*models.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, pipeerrors.NewQueryExecutionFailedError("scan", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, pipeerrors.NewQueryExecutionFailedError("scan", err)
	}
	return out, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
