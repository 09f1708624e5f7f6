// internal/models/candidate.go
package models

import "time"

// Status is the candidate lifecycle state.
type Status string

const (
	StatusPending       Status = "pending"
	StatusProcessing    Status = "processing"
	StatusParsed        Status = "parsed"
	StatusScreened      Status = "screened"
	StatusInvitePending Status = "invite_pending"
	StatusInvited       Status = "invited"
	StatusFeedbackSent  Status = "feedback_sent"
	StatusNeedsReview   Status = "needs_review"
)

// statusTransitions is the full lifecycle graph. Transitions not listed here
// are illegal and must be rejected by the store.
var statusTransitions = map[Status][]Status{
	StatusPending:       {StatusProcessing, StatusNeedsReview, StatusFeedbackSent},
	StatusProcessing:    {StatusParsed, StatusNeedsReview},
	StatusParsed:        {StatusScreened, StatusNeedsReview},
	StatusScreened:      {StatusInvitePending, StatusFeedbackSent, StatusNeedsReview},
	StatusInvitePending: {StatusInvited, StatusNeedsReview},
	StatusNeedsReview:   {StatusProcessing, StatusFeedbackSent},
	StatusInvited:       {},
	StatusFeedbackSent:  {},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status has no outgoing transitions.
func (s Status) IsTerminal() bool {
	return len(statusTransitions[s]) == 0
}

// ExtractionMethod records which layer produced the candidate's text.
type ExtractionMethod string

const (
	ExtractionDirect ExtractionMethod = "direct"
	ExtractionLayout ExtractionMethod = "layout"
	ExtractionOCR    ExtractionMethod = "ocr"
	ExtractionNone   ExtractionMethod = "none"
)

// ValidationFlag types raised by the pipeline.
const (
	FlagUnreadableResume   = "unreadable_resume"
	FlagParsingFailed      = "parsing_failed"
	FlagScreeningFailed    = "screening_failed"
	FlagEmailMismatch      = "email_mismatch"
	FlagNameMismatch       = "name_mismatch"
	FlagAttachmentMissing  = "attachment_missing"
	FlagAttachmentTooLarge = "attachment_too_large"
	FlagAttachmentInvalid  = "attachment_invalid"
)

// ValidationFlag is one review-worthy condition attached to a candidate.
// Flags are ordered by the sequence in which the pipeline raised them.
type ValidationFlag struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// WorkExperience is one entry in the parsed work history.
type WorkExperience struct {
	Title     string `json:"title"`
	Company   string `json:"company"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Summary   string `json:"summary"`
}

// Education is one entry in the parsed education history.
type Education struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Year        string `json:"year"`
}

// ProfileLinks holds candidate-provided URLs.
type ProfileLinks struct {
	LinkedIn  string `json:"linkedin"`
	GitHub    string `json:"github"`
	Portfolio string `json:"portfolio"`
}

// ParsedProfile is the structured output of the resume parser. Fields absent
// from the resume stay empty; the parser never invents values.
type ParsedProfile struct {
	FullName       string           `json:"full_name"`
	ContactEmail   string           `json:"contact_email"`
	Phone          string           `json:"phone"`
	Summary        string           `json:"summary"`
	Skills         []string         `json:"skills"`
	WorkExperience []WorkExperience `json:"work_experience"`
	Education      []Education      `json:"education"`
	Links          ProfileLinks     `json:"links"`
}

// ScreeningResult is the structured output of the fit screener.
type ScreeningResult struct {
	FitScore       int      `json:"fit_score"`
	Summary        string   `json:"summary"`
	MatchingSkills []string `json:"matching_skills"`
	Concerns       []string `json:"concerns"`
	Recommendation string   `json:"recommendation"`
}

// Fit classification bands for display.
const (
	FitHigh   = "high"
	FitMedium = "medium"
	FitLow    = "low"
)

// ClassifyScore maps a fit score to its display band.
func ClassifyScore(score int) string {
	switch {
	case score >= 90:
		return FitHigh
	case score >= 70:
		return FitMedium
	default:
		return FitLow
	}
}

// ClampScore forces a model-produced score into the valid range.
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Candidate is the pipeline's unit of record, keyed by source message id.
type Candidate struct {
	ID                string           `json:"id"`
	MessageID         string           `json:"-"`
	SourceEmail       string           `json:"source_email"`
	SenderName        string           `json:"sender_name"`
	EmailSubject      string           `json:"email_subject,omitempty"`
	RawEmailBody      string           `json:"-"`
	ResumeBlobRef     string           `json:"-"`
	ResumeFilename    string           `json:"resume_filename,omitempty"`
	ExtractedText     string           `json:"-"`
	ExtractionMethod  ExtractionMethod `json:"extraction_method,omitempty"`
	ParsedProfile     *ParsedProfile   `json:"parsed_profile"`
	ValidationFlags   []ValidationFlag `json:"validation_flags"`
	Status            Status           `json:"status"`
	FitScore          *int             `json:"fit_score"`
	Summary           string           `json:"summary,omitempty"`
	MatchingSkills    []string         `json:"matching_skills"`
	Concerns          []string         `json:"concerns"`
	Recommendation    string           `json:"recommendation,omitempty"`
	RecruiterComments string           `json:"recruiter_comments,omitempty"`
	JobDescriptionRef string           `json:"-"`
	CalendarEventID   string           `json:"-"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// NeedsManualReview reports whether automatic notification must be withheld.
func (c *Candidate) NeedsManualReview() bool {
	return len(c.ValidationFlags) > 0
}
