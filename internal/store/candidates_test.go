// internal/store/candidates_test.go
package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pipeerrors "github.com/talentflow/intake-pipeline/internal/common/errors"
	"github.com/talentflow/intake-pipeline/internal/common/logger"
	"github.com/talentflow/intake-pipeline/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestStore(t *testing.T) (*CandidateStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewCandidateStore(db, logger.NewTestLogger(t)), mock
}

func testMessage() *models.InboundMessage {
	return &models.InboundMessage{
		MessageID:   "msg-001",
		SenderEmail: "ada@example.com",
		SenderName:  "Ada Lovelace",
		Subject:     "Application: Senior Go Engineer",
		Body:        "Please find my resume attached.",
	}
}

func candidateRows(id string, status models.Status) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "message_id", "source_email", "sender_name", "email_subject", "raw_email_body",
		"resume_blob_ref", "resume_filename", "extracted_text", "extraction_method",
		"parsed_profile", "validation_flags", "status", "fit_score", "summary",
		"matching_skills", "concerns", "recommendation", "recruiter_comments",
		"job_description_ref", "calendar_event_id", "created_at", "updated_at",
	}).AddRow(
		id, "msg-001", "ada@example.com", "Ada Lovelace", "Application", "body",
		"resumes/"+id+"/resume.pdf", "resume.pdf", "extracted text", "direct",
		[]byte(`{"full_name":"Ada Lovelace","contact_email":"ada@example.com"}`), []byte(`[]`), status, 85, "Strong fit.",
		[]byte(`["go"]`), []byte(`[]`), "Interview.", "Looks good.",
		"", "", now, now,
	)
}

// ==========================
// Dedupe / Upsert Tests
// ==========================

func TestCandidateStore_UpsertByMessageID_New(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO candidates`)).
		WithArgs(sqlmock.AnyArg(), "msg-001", "ada@example.com", "Ada Lovelace",
			"Application: Senior Go Engineer", "Please find my resume attached.", models.StatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("cand-1"))

	id, err := store.UpsertByMessageID(context.Background(), testMessage())

	require.NoError(t, err)
	assert.Equal(t, "cand-1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCandidateStore_UpsertByMessageID_Duplicate(t *testing.T) {
	store, mock := newTestStore(t)

	// ON CONFLICT DO NOTHING yields no row on the duplicate path
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO candidates`)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM candidates WHERE message_id = $1`)).
		WithArgs("msg-001").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("cand-existing"))

	id, err := store.UpsertByMessageID(context.Background(), testMessage())

	require.Error(t, err)
	assert.True(t, pipeerrors.IsDuplicateMessage(err))
	assert.Equal(t, "cand-existing", id, "the duplicate path must still return the existing id")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Status Transition Tests
// ==========================

func TestCandidateStore_TransitionStatus_Legal(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status FROM candidates WHERE id = $1 FOR UPDATE`)).
		WithArgs("cand-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE candidates SET status = $1, updated_at = now() WHERE id = $2`)).
		WithArgs(models.StatusProcessing, "cand-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.TransitionStatus(context.Background(), "cand-1", models.StatusProcessing)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCandidateStore_TransitionStatus_Illegal(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status FROM candidates WHERE id = $1 FOR UPDATE`)).
		WithArgs("cand-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("invited"))
	mock.ExpectRollback()

	err := store.TransitionStatus(context.Background(), "cand-1", models.StatusProcessing)

	require.Error(t, err)
	assert.Equal(t, pipeerrors.ErrCodeStatusTransitionInvalid, pipeerrors.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet(), "illegal transitions must not issue an UPDATE")
}

func TestCandidateStore_TransitionStatus_NotFound(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status FROM candidates WHERE id = $1 FOR UPDATE`)).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := store.TransitionStatus(context.Background(), "missing", models.StatusProcessing)

	require.Error(t, err)
	assert.Equal(t, pipeerrors.ErrCodeCandidateNotFound, pipeerrors.CodeOf(err))
}

// ==========================
// Persistence Tests
// ==========================

func TestCandidateStore_RecordScreeningResult(t *testing.T) {
	store, mock := newTestStore(t)

	result := models.ScreeningResult{
		FitScore:       85,
		Summary:        "Strong systems background.",
		MatchingSkills: []string{"go", "postgres"},
		Concerns:       nil, // persisted as [], not NULL
		Recommendation: "Interview.",
	}

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE candidates`)).
		WithArgs(85, "Strong systems background.", []byte(`["go","postgres"]`), []byte(`[]`),
			"Interview.", "Solid candidate.", "cand-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.RecordScreeningResult(context.Background(), "cand-1", result, "Solid candidate.")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCandidateStore_RecordParseResult_NilProfile(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE candidates SET parsed_profile = $1, updated_at = now() WHERE id = $2`)).
		WithArgs(nil, "cand-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.RecordParseResult(context.Background(), "cand-1", nil)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCandidateStore_GetByID_NotFound(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery(`SELECT .+ FROM candidates WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	cand, err := store.GetByID(context.Background(), "missing")

	require.Error(t, err)
	assert.Nil(t, cand)
	assert.Equal(t, pipeerrors.ErrCodeCandidateNotFound, pipeerrors.CodeOf(err))
}

func TestCandidateStore_GetByID_Scans(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery(`SELECT .+ FROM candidates WHERE id = \$1`).
		WithArgs("cand-1").
		WillReturnRows(candidateRows("cand-1", models.StatusScreened))

	cand, err := store.GetByID(context.Background(), "cand-1")

	require.NoError(t, err)
	assert.Equal(t, models.StatusScreened, cand.Status)
	require.NotNil(t, cand.FitScore)
	assert.Equal(t, 85, *cand.FitScore)
	require.NotNil(t, cand.ParsedProfile)
	assert.Equal(t, "Ada Lovelace", cand.ParsedProfile.FullName)
	assert.Equal(t, []string{"go"}, cand.MatchingSkills)
}

func TestCandidateStore_FindPendingForBulkAction(t *testing.T) {
	store, mock := newTestStore(t)

	rows := candidateRows("cand-1", models.StatusScreened)
	mock.ExpectQuery(`SELECT .+ FROM candidates\s+WHERE status IN`).
		WithArgs(models.StatusPending, models.StatusNeedsReview, models.StatusScreened).
		WillReturnRows(rows)

	candidates, err := store.FindPendingForBulkAction(context.Background())

	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "cand-1", candidates[0].ID)
}

func TestCandidateStore_AppendFlags_Empty(t *testing.T) {
	store, _ := newTestStore(t)

	// no flags, no query
	err := store.AppendFlags(context.Background(), "cand-1")
	require.NoError(t, err)
}
