package notify

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
)

var inviteTemplate = template.Must(template.New("invite").Parse(`Hi {{.Name}},

Thank you for applying. We were impressed by your background and would like
to invite you to an interview.

Proposed slot: {{.Start}} to {{.End}} ({{.Timezone}})
{{if .HasCalendarInvite}}A calendar invitation has been sent to this address; please accept or
propose a new time from there.{{else}}Please reply to this email to confirm the slot or propose another time.{{end}}

We look forward to speaking with you.

Best regards,
The Recruiting Team`))

var feedbackTemplate = template.Must(template.New("feedback").Parse(`Hi {{.Name}},

Thank you for taking the time to apply and for your interest in the role.

After careful review we have decided not to move forward with your
application at this time.
{{if .Summary}}
From our review: {{.Summary}}
{{end}}{{if .Strengths}}What stood out to us was your experience with {{.Strengths}}.
{{end}}{{if .Concerns}}What held the application back: {{.Concerns}}.
{{end}}
This decision is not a reflection of your abilities; we received many
strong applications for a limited number of positions. We will keep your
profile on file and encourage you to apply for future openings that match
your experience.

Best regards,
The Recruiting Team`))

var intakeAckTemplate = template.Must(template.New("ack").Parse(`Hi {{.Name}},

We have received your application and your resume is being reviewed.
You will hear from us once the review is complete. No action is needed
from your side.

Best regards,
The Recruiting Team`))

type inviteTemplateData struct {
	Name              string
	Start             string
	End               string
	Timezone          string
	HasCalendarInvite bool
}

type feedbackTemplateData struct {
	Name      string
	Summary   string
	Strengths string
	Concerns  string
}

type recipientTemplateData struct {
	Name string
}

const (
	inviteSubject   = "Interview Invitation"
	feedbackSubject = "Update on Your Application"
	ackSubject      = "Application Received"

	inviteTimeLayout = "Monday, 2 January 2006 at 15:04"
)

func renderTemplate(tmpl *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s template: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

func renderInvite(name string, start, end time.Time, timezone string, hasCalendarInvite bool) (string, error) {
	if name == "" {
		name = "there"
	}
	return renderTemplate(inviteTemplate, inviteTemplateData{
		Name:              name,
		Start:             start.Format(inviteTimeLayout),
		End:               end.Format(inviteTimeLayout),
		Timezone:          timezone,
		HasCalendarInvite: hasCalendarInvite,
	})
}

// renderFeedback personalizes the rejection from the stored screening result:
// the summary, the candidate's strongest matching skills, and any concerns the
// screen recorded.
func renderFeedback(name, summary string, matchingSkills, concerns []string) (string, error) {
	if name == "" {
		name = "there"
	}
	strengths := ""
	if len(matchingSkills) > 0 {
		top := matchingSkills
		if len(top) > 3 {
			top = top[:3]
		}
		strengths = strings.Join(top, ", ")
	}
	return renderTemplate(feedbackTemplate, feedbackTemplateData{
		Name:      name,
		Summary:   summary,
		Strengths: strengths,
		Concerns:  strings.Join(concerns, "; "),
	})
}

func renderIntakeAck(name string) (string, error) {
	if name == "" {
		name = "there"
	}
	return renderTemplate(intakeAckTemplate, recipientTemplateData{Name: name})
}
