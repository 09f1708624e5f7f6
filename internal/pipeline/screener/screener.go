// Package screener scores a parsed profile against the job description and
// drafts a short recruiter note.
package screener

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/talentflow/intake-pipeline/internal/common/errors"
	"github.com/talentflow/intake-pipeline/internal/common/genai"
	"github.com/talentflow/intake-pipeline/internal/common/logger"
	"github.com/talentflow/intake-pipeline/internal/models"
)

const screenPrompt = `You are screening a candidate for the role described below.
Score how well the candidate fits the role on a 0-100 scale.

Job description:
%s

Candidate profile:
%s

Return ONLY a JSON object:
{
  "fit_score": <integer 0-100>,
  "summary": "<two or three sentences on overall fit>",
  "matching_skills": ["<skill>", ...],
  "concerns": ["<gap or concern>", ...],
  "recommendation": "<one sentence hiring recommendation>"
}`

const commentsPrompt = `Write a short, neutral note (at most three sentences) a recruiter
could paste into an applicant tracking system about this candidate.
Mention the strongest matching skill and the main gap, if any.
Do not use markdown.

Screening result:
%s`

// fallbackComments is used when the comment draft call fails; screening
// itself has already succeeded at that point.
const fallbackComments = "Automated screening completed. See fit score and summary for details."

// Screener runs the fit evaluation stage.
type Screener struct {
	client         genai.Client
	jobDescription string
	log            logger.Logger
}

func New(client genai.Client, jobDescription string, log logger.Logger) *Screener {
	return &Screener{client: client, jobDescription: jobDescription, log: log}
}

// Screen evaluates a profile and returns the screening result along with a
// best-effort recruiter comment draft. The profile must be non-nil; callers
// route unparsed candidates to manual review instead.
func (s *Screener) Screen(ctx context.Context, profile *models.ParsedProfile) (*models.ScreeningResult, string, error) {
	if profile == nil {
		return nil, "", fmt.Errorf("screening requires a parsed profile")
	}

	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return nil, "", fmt.Errorf("marshal profile: %w", err)
	}

	raw, err := s.client.GenerateJSON(ctx, fmt.Sprintf(screenPrompt, s.jobDescription, profileJSON))
	if err != nil {
		return nil, "", errors.NewScreeningModelUnavailableError(err)
	}

	result, err := parseResult(raw)
	if err != nil {
		return nil, "", errors.NewScreeningModelUnavailableError(err)
	}

	comments := s.draftComments(ctx, result)
	return result, comments, nil
}

func parseResult(raw string) (*models.ScreeningResult, error) {
	raw = genai.CleanJSONBlock(raw)

	var result models.ScreeningResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("unmarshal screening result: %w", err)
	}
	if strings.TrimSpace(result.Summary) == "" {
		return nil, fmt.Errorf("screening result missing summary")
	}

	// Out-of-range scores are clamped rather than rejected; the model
	// occasionally returns 100+ for strong matches.
	result.FitScore = models.ClampScore(result.FitScore)
	return &result, nil
}

// draftComments is best effort. A failed draft never fails the stage.
func (s *Screener) draftComments(ctx context.Context, result *models.ScreeningResult) string {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fallbackComments
	}

	text, err := s.client.GenerateContent(ctx, fmt.Sprintf(commentsPrompt, resultJSON))
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			s.log.Warn("recruiter comment draft failed, using fallback", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return fallbackComments
	}
	return strings.TrimSpace(text)
}
