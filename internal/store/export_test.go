// internal/store/export_test.go
package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pipeerrors "github.com/talentflow/intake-pipeline/internal/common/errors"
	"github.com/talentflow/intake-pipeline/internal/models"
)

func attemptRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "candidate_id", "kind", "recipient", "attempted_at", "result", "reason", "calendar_event_id",
	})
}

func addCandidateRow(rows *sqlmock.Rows, id string, status models.Status) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(
		id, "msg-"+id, id+"@example.com", "Sender "+id, "Application", "body",
		"resumes/"+id+"/resume.pdf", "resume.pdf", "extracted text", "direct",
		[]byte(`{}`), []byte(`[]`), status, 85, "Strong fit.",
		[]byte(`["go"]`), []byte(`[]`), "Interview.", "",
		"", "", now, now,
	)
}

// ==========================
// Audit Trail Tests
// ==========================

func TestCandidateStore_ListAttempts(t *testing.T) {
	store, mock := newTestStore(t)
	attempted := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM notification_attempts`)).
		WithArgs("cand-1").
		WillReturnRows(attemptRows().
			AddRow("att-1", "cand-1", "invite", "ada@example.com", attempted, "success", "", "evt-1").
			AddRow("att-2", "cand-1", "feedback", "ada@example.com", attempted.Add(time.Hour), "failure", "rate limited", ""))

	attempts, err := store.ListAttempts(context.Background(), "cand-1")

	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, models.NotificationInvite, attempts[0].Kind)
	assert.Equal(t, "evt-1", attempts[0].CalendarEventID)
	assert.Equal(t, models.AttemptFailure, attempts[1].Result)
	assert.Equal(t, "rate limited", attempts[1].Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Compliance Export Tests
// ==========================

func TestCandidateStore_Export_GroupsAttemptsByCandidate(t *testing.T) {
	store, mock := newTestStore(t)
	attempted := time.Now().UTC()

	candidates := candidateRows("cand-1", models.StatusInvited)
	addCandidateRow(candidates, "cand-2", models.StatusScreened)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM candidates ORDER BY created_at DESC`)).
		WillReturnRows(candidates)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM notification_attempts`)).
		WillReturnRows(attemptRows().
			AddRow("att-1", "cand-1", "invite", "ada@example.com", attempted, "success", "", "evt-1").
			AddRow("att-2", "cand-1", "invite", "ada@example.com", attempted.Add(time.Minute), "success", "", "evt-1"))

	doc, err := store.Export(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, doc.CandidateCount)
	assert.Equal(t, 2, doc.AttemptCount)
	require.Len(t, doc.Candidates, 2)

	assert.Equal(t, "cand-1", doc.Candidates[0].Candidate.ID)
	assert.Len(t, doc.Candidates[0].Attempts, 2)

	// candidates without a trail still appear, with an empty slice
	assert.Equal(t, "cand-2", doc.Candidates[1].Candidate.ID)
	assert.NotNil(t, doc.Candidates[1].Attempts)
	assert.Empty(t, doc.Candidates[1].Attempts)

	assert.False(t, doc.GeneratedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Deletion Tests
// ==========================

func TestCandidateStore_Delete(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM candidates WHERE id = $1`)).
		WithArgs("cand-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Delete(context.Background(), "cand-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCandidateStore_Delete_NotFound(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM candidates WHERE id = $1`)).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Delete(context.Background(), "missing")

	require.Error(t, err)
	assert.Equal(t, pipeerrors.ErrCodeCandidateNotFound, pipeerrors.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
