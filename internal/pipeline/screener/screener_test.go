// internal/pipeline/screener/screener_test.go
package screener

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pipeerrors "github.com/talentflow/intake-pipeline/internal/common/errors"
	"github.com/talentflow/intake-pipeline/internal/common/logger"
	"github.com/talentflow/intake-pipeline/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeClient struct {
	jsonResponse string
	jsonErr      error
	contentText  string
	contentErr   error
	jsonCalls    int
	contentCalls int
}

func (c *fakeClient) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	c.jsonCalls++
	return c.jsonResponse, c.jsonErr
}

func (c *fakeClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	c.contentCalls++
	return c.contentText, c.contentErr
}

func (c *fakeClient) Close() error { return nil }

func testProfile() *models.ParsedProfile {
	return &models.ParsedProfile{
		FullName:     "Ada Lovelace",
		ContactEmail: "ada@example.com",
		Skills:       []string{"go", "postgres"},
	}
}

func screeningJSON(score int) string {
	return fmt.Sprintf(`{
		"fit_score": %d,
		"summary": "Strong systems background.",
		"matching_skills": ["go"],
		"concerns": ["no cloud experience"],
		"recommendation": "Proceed to interview."
	}`, score)
}

// ==========================
// Core Functionality Tests
// ==========================

func TestScreener_Screen_Success(t *testing.T) {
	client := &fakeClient{jsonResponse: screeningJSON(85), contentText: "Solid Go background; cloud exposure is the main gap."}
	s := New(client, "Senior Go engineer role", logger.NewTestLogger(t))

	result, comments, err := s.Screen(context.Background(), testProfile())

	require.NoError(t, err)
	assert.Equal(t, 85, result.FitScore)
	assert.Equal(t, []string{"go"}, result.MatchingSkills)
	assert.Equal(t, "Solid Go background; cloud exposure is the main gap.", comments)
	assert.Equal(t, 1, client.jsonCalls)
	assert.Equal(t, 1, client.contentCalls)
}

func TestScreener_Screen_ClampsScore(t *testing.T) {
	tests := []struct {
		name     string
		rawScore int
		expected int
	}{
		{"above maximum", 140, 100},
		{"below minimum", -20, 0},
		{"upper boundary", 100, 100},
		{"lower boundary", 0, 0},
		{"in range untouched", 73, 73},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{jsonResponse: screeningJSON(tt.rawScore), contentText: "note"}
			s := New(client, "role", logger.NewTestLogger(t))

			result, _, err := s.Screen(context.Background(), testProfile())

			require.NoError(t, err)
			assert.Equal(t, tt.expected, result.FitScore)
		})
	}
}

func TestScreener_Screen_NilProfile(t *testing.T) {
	client := &fakeClient{}
	s := New(client, "role", logger.NewTestLogger(t))

	result, _, err := s.Screen(context.Background(), nil)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 0, client.jsonCalls, "screening must never reach the model without a profile")
}

func TestScreener_Screen_ModelUnavailable(t *testing.T) {
	client := &fakeClient{jsonErr: fmt.Errorf("deadline exceeded")}
	s := New(client, "role", logger.NewTestLogger(t))

	result, _, err := s.Screen(context.Background(), testProfile())

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, pipeerrors.ErrCodeScreeningModelUnavailable, pipeerrors.CodeOf(err))
	assert.True(t, pipeerrors.IsRetryable(err))
}

func TestScreener_Screen_MalformedResult(t *testing.T) {
	client := &fakeClient{jsonResponse: "not a json object"}
	s := New(client, "role", logger.NewTestLogger(t))

	_, _, err := s.Screen(context.Background(), testProfile())

	require.Error(t, err)
	assert.Equal(t, pipeerrors.ErrCodeScreeningModelUnavailable, pipeerrors.CodeOf(err))
}

func TestScreener_Screen_CommentDraftFallback(t *testing.T) {
	client := &fakeClient{jsonResponse: screeningJSON(60), contentErr: fmt.Errorf("quota exhausted")}
	s := New(client, "role", logger.NewTestLogger(t))

	result, comments, err := s.Screen(context.Background(), testProfile())

	require.NoError(t, err, "a failed comment draft must not fail screening")
	assert.Equal(t, 60, result.FitScore)
	assert.Equal(t, fallbackComments, comments)
}

// ==========================
// Threshold Band Tests
// ==========================

func TestClassifyScore(t *testing.T) {
	tests := []struct {
		score    int
		expected string
	}{
		{100, models.FitHigh},
		{90, models.FitHigh},
		{89, models.FitMedium},
		{70, models.FitMedium},
		{69, models.FitLow},
		{0, models.FitLow},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("score %d", tt.score), func(t *testing.T) {
			assert.Equal(t, tt.expected, models.ClassifyScore(tt.score))
		})
	}
}
