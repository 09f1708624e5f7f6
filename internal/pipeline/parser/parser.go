// internal/pipeline/parser/parser.go

// Package parser turns extracted resume text into a structured profile using
// the language model, validating every response against a fixed schema.
package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/talentflow/intake-pipeline/internal/common/errors"
	"github.com/talentflow/intake-pipeline/internal/common/genai"
	"github.com/talentflow/intake-pipeline/internal/common/logger"
	"github.com/talentflow/intake-pipeline/internal/models"
)

// profileSchema pins the contract the model must satisfy. Fields the resume
// does not provide stay empty strings or empty arrays; the model must not
// invent values.
const profileSchema = `{
	"type": "object",
	"required": ["full_name", "contact_email", "phone", "summary", "skills", "work_experience", "education", "links"],
	"properties": {
		"full_name": {"type": "string"},
		"contact_email": {"type": "string"},
		"phone": {"type": "string"},
		"summary": {"type": "string"},
		"skills": {"type": "array", "items": {"type": "string"}},
		"work_experience": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["title", "company"],
				"properties": {
					"title": {"type": "string"},
					"company": {"type": "string"},
					"start_date": {"type": "string"},
					"end_date": {"type": "string"},
					"summary": {"type": "string"}
				}
			}
		},
		"education": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"degree": {"type": "string"},
					"institution": {"type": "string"},
					"year": {"type": "string"}
				}
			}
		},
		"links": {
			"type": "object",
			"properties": {
				"linkedin": {"type": "string"},
				"github": {"type": "string"},
				"portfolio": {"type": "string"}
			}
		}
	}
}`

const parsePrompt = `Extract the candidate profile from the resume text below.
Return ONLY a JSON object with exactly these fields:
full_name, contact_email, phone, summary, skills (array of strings),
work_experience (array of {title, company, start_date, end_date, summary}),
education (array of {degree, institution, year}),
links ({linkedin, github, portfolio}).
Use an empty string or empty array for anything the resume does not state.
Never invent values.

Resume text:
%s`

const reformatPrompt = `Your previous response was not valid against the required schema:
%s

Return ONLY a corrected JSON object with exactly these fields:
full_name, contact_email, phone, summary, skills, work_experience, education, links.

Previous response:
%s`

// Parser drives the model and enforces the output contract.
type Parser struct {
	client      genai.Client
	schema      *gojsonschema.Schema
	maxAttempts int
	log         logger.Logger
}

func New(client genai.Client, maxAttempts int, log logger.Logger) (*Parser, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(profileSchema))
	if err != nil {
		return nil, fmt.Errorf("compile profile schema: %w", err)
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Parser{client: client, schema: schema, maxAttempts: maxAttempts, log: log}, nil
}

// Parse extracts a profile from resume text. Malformed model output triggers
// a corrective reformat prompt, up to maxAttempts; after that the
// candidate is marked for review with a nil profile.
func (p *Parser) Parse(ctx context.Context, resumeText string) (*models.ParsedProfile, error) {
	prompt := fmt.Sprintf(parsePrompt, resumeText)
	var lastRaw string
	var lastValidation string

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		raw, err := p.client.GenerateJSON(ctx, prompt)
		if err != nil {
			return nil, errors.NewParsingModelUnavailableError(err)
		}
		lastRaw = raw

		profile, validationErr := p.validate(raw)
		if validationErr == nil {
			return profile, nil
		}
		lastValidation = validationErr.Error()

		p.log.Warn("model returned malformed profile, requesting reformat", map[string]interface{}{
			"attempt":     attempt,
			"maxAttempts": p.maxAttempts,
			"error":       lastValidation,
		})

		prompt = fmt.Sprintf(reformatPrompt, lastValidation, lastRaw)
	}

	return nil, errors.NewParsingMalformedOutputError(p.maxAttempts, lastValidation)
}

// validate checks a raw model response against the schema and unmarshals it.
func (p *Parser) validate(raw string) (*models.ParsedProfile, error) {
	raw = genai.CleanJSONBlock(raw)

	result, err := p.schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("schema violations: %s", strings.Join(msgs, "; "))
	}

	var profile models.ParsedProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	return &profile, nil
}

// CrossCheck compares the parsed profile against the mail envelope and
// returns validation flags for mismatches. Comparisons are case-insensitive;
// empty profile fields raise no flag.
func CrossCheck(profile *models.ParsedProfile, senderEmail, senderName string) []models.ValidationFlag {
	if profile == nil {
		return nil
	}
	var flags []models.ValidationFlag

	if profile.ContactEmail != "" && senderEmail != "" &&
		!strings.EqualFold(strings.TrimSpace(profile.ContactEmail), strings.TrimSpace(senderEmail)) {
		flags = append(flags, models.ValidationFlag{
			Type:    models.FlagEmailMismatch,
			Message: fmt.Sprintf("resume email %q differs from sender %q", profile.ContactEmail, senderEmail),
		})
	}

	if profile.FullName != "" && senderName != "" && !namesMatch(profile.FullName, senderName) {
		flags = append(flags, models.ValidationFlag{
			Type:    models.FlagNameMismatch,
			Message: fmt.Sprintf("resume name %q differs from sender %q", profile.FullName, senderName),
		})
	}

	return flags
}

// namesMatch tolerates reordered name parts and extra middle names: it is a
// match when either name's parts are all contained in the other.
func namesMatch(a, b string) bool {
	partsA := strings.Fields(strings.ToLower(a))
	partsB := strings.Fields(strings.ToLower(b))
	return containsAll(partsA, partsB) || containsAll(partsB, partsA)
}

func containsAll(haystack, needles []string) bool {
	if len(needles) == 0 {
		return false
	}
	set := make(map[string]bool, len(haystack))
	for _, p := range haystack {
		set[p] = true
	}
	for _, n := range needles {
		if !set[n] {
			return false
		}
	}
	return true
}
