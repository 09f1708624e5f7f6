package notify

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	awsclient "github.com/talentflow/intake-pipeline/internal/common/aws"
	pipeerrors "github.com/talentflow/intake-pipeline/internal/common/errors"
)

// EmailSender abstracts the outbound mail provider so the dispatcher can be
// tested without AWS.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NopEmailSender discards mail. Used when outbound email is disabled.
type NopEmailSender struct{}

func (NopEmailSender) Send(ctx context.Context, to, subject, body string) error { return nil }

// SESEmailSender sends plain-text mail through Amazon SES.
type SESEmailSender struct {
	client    *awsclient.SESClient
	fromEmail string
	replyTo   string
}

func NewSESEmailSender(client *awsclient.SESClient, fromEmail, replyTo string) *SESEmailSender {
	return &SESEmailSender{client: client, fromEmail: fromEmail, replyTo: replyTo}
}

func (s *SESEmailSender) Send(ctx context.Context, to, subject, body string) error {
	if !isValidEmail(to) {
		return pipeerrors.NewDispatchRecipientInvalidError(to)
	}

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
			},
		},
	}
	if s.replyTo != "" {
		input.ReplyToAddresses = []string{s.replyTo}
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return classifySendError(err, to)
	}
	return nil
}

// classifySendError maps provider failures onto the dispatch error taxonomy
// so the retry layer only re-attempts what can actually succeed.
func classifySendError(err error, recipient string) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "throttl") || strings.Contains(msg, "rate exceeded"):
		return pipeerrors.NewDispatchRateLimitedError(err)
	case strings.Contains(msg, "messagerejected") || strings.Contains(msg, "invalid") && strings.Contains(msg, "address"):
		return pipeerrors.NewDispatchRecipientInvalidError(recipient)
	case strings.Contains(msg, "accessdenied") || strings.Contains(msg, "credential") || strings.Contains(msg, "signature"):
		return pipeerrors.NewDispatchAuthFailureError(err)
	default:
		return pipeerrors.NewDispatchTransientNetworkError(err)
	}
}

func isValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 || len(parts[0]) == 0 || len(parts[1]) == 0 {
		return false
	}
	return strings.Contains(parts[1], ".")
}
