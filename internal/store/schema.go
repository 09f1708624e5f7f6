// internal/store/schema.go
package store

import "context"

const candidatesSchema = `
CREATE TABLE IF NOT EXISTS candidates (
	id UUID PRIMARY KEY,
	message_id TEXT NOT NULL UNIQUE,
	source_email TEXT NOT NULL,
	sender_name TEXT NOT NULL DEFAULT '',
	email_subject TEXT NOT NULL DEFAULT '',
	raw_email_body TEXT NOT NULL DEFAULT '',
	resume_blob_ref TEXT NOT NULL DEFAULT '',
	resume_filename TEXT NOT NULL DEFAULT '',
	extracted_text TEXT NOT NULL DEFAULT '',
	extraction_method TEXT NOT NULL DEFAULT 'none',
	parsed_profile JSONB,
	validation_flags JSONB NOT NULL DEFAULT '[]',
	status TEXT NOT NULL DEFAULT 'pending',
	fit_score INTEGER,
	summary TEXT NOT NULL DEFAULT '',
	matching_skills JSONB NOT NULL DEFAULT '[]',
	concerns JSONB NOT NULL DEFAULT '[]',
	recommendation TEXT NOT NULL DEFAULT '',
	recruiter_comments TEXT NOT NULL DEFAULT '',
	job_description_ref TEXT NOT NULL DEFAULT '',
	calendar_event_id TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_candidates_status ON candidates (status);
`

const attemptsSchema = `
CREATE TABLE IF NOT EXISTS notification_attempts (
	id UUID PRIMARY KEY,
	candidate_id UUID NOT NULL REFERENCES candidates (id) ON DELETE CASCADE,
	kind TEXT NOT NULL,
	recipient TEXT NOT NULL,
	attempted_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	result TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	calendar_event_id TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_attempts_candidate ON notification_attempts (candidate_id);
`

// EnsureSchema creates the pipeline tables when they do not exist yet.
func (s *CandidateStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, candidatesSchema); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, attemptsSchema)
	return err
}
