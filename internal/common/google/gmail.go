// internal/common/google/gmail.go
package google

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/talentflow/intake-pipeline/internal/models"
)

// Mailbox abstracts inbound mail access for the watcher. Implementations
// must be safe for sequential use from a single poll cycle.
type Mailbox interface {
	// ListMessages returns message ids matching the query, newest last.
	ListMessages(ctx context.Context, query string, max int64) ([]string, error)
	// GetMessage fetches a normalized message with attachment metadata.
	GetMessage(ctx context.Context, messageID string) (*models.InboundMessage, error)
	// FetchAttachment downloads one attachment's content.
	FetchAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error)
	// MarkRead removes the unread label once a message outcome is durable.
	MarkRead(ctx context.Context, messageID string) error
}

// GmailClient implements Mailbox over the Gmail API.
type GmailClient struct {
	svc  *gmail.Service
	user string
}

// NewGmailClient builds a Gmail-backed mailbox. The credentials file carries
// an authorized user token; "me" addresses the mailbox it belongs to.
func NewGmailClient(ctx context.Context, credentialsFile string) (*GmailClient, error) {
	opts := []option.ClientOption{
		option.WithScopes(gmail.GmailReadonlyScope, gmail.GmailModifyScope),
	}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	return &GmailClient{svc: svc, user: "me"}, nil
}

func (g *GmailClient) ListMessages(ctx context.Context, query string, max int64) ([]string, error) {
	call := g.svc.Users.Messages.List(g.user).Q(query)
	if max > 0 {
		call = call.MaxResults(max)
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		ids = append(ids, m.Id)
	}
	return ids, nil
}

func (g *GmailClient) GetMessage(ctx context.Context, messageID string) (*models.InboundMessage, error) {
	msg, err := g.svc.Users.Messages.Get(g.user, messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}

	out := &models.InboundMessage{
		MessageID:  messageID,
		ReceivedAt: time.UnixMilli(msg.InternalDate).UTC(),
	}

	for _, h := range msg.Payload.Headers {
		switch h.Name {
		case "Subject":
			out.Subject = h.Value
		case "From":
			out.SenderName, out.SenderEmail = splitAddress(h.Value)
		}
	}

	out.Body = messageBody(msg.Payload)
	out.Attachments = attachmentRefs(msg.Payload)

	return out, nil
}

func (g *GmailClient) FetchAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	att, err := g.svc.Users.Messages.Attachments.Get(g.user, messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}

	data, err := base64.URLEncoding.DecodeString(att.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode attachment data: %w", err)
	}
	return data, nil
}

func (g *GmailClient) MarkRead(ctx context.Context, messageID string) error {
	_, err := g.svc.Users.Messages.Modify(g.user, messageID, &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{"UNREAD"},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to mark message %s read: %w", messageID, err)
	}
	return nil
}

// splitAddress parses "Name <addr@host>" header values. A bare address is
// returned with an empty name.
func splitAddress(from string) (name, email string) {
	from = strings.TrimSpace(from)
	open := strings.LastIndex(from, "<")
	end := strings.LastIndex(from, ">")
	if open >= 0 && end > open {
		name = strings.Trim(strings.TrimSpace(from[:open]), `"`)
		email = strings.TrimSpace(from[open+1 : end])
		return name, email
	}
	return "", from
}

func messageBody(payload *gmail.MessagePart) string {
	if payload == nil {
		return ""
	}
	if payload.Body != nil && payload.Body.Data != "" {
		if data, err := base64.URLEncoding.DecodeString(payload.Body.Data); err == nil {
			return string(data)
		}
	}
	for _, part := range payload.Parts {
		if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
			if data, err := base64.URLEncoding.DecodeString(part.Body.Data); err == nil {
				return string(data)
			}
		}
	}
	return ""
}

func attachmentRefs(payload *gmail.MessagePart) []models.AttachmentRef {
	if payload == nil {
		return nil
	}
	var refs []models.AttachmentRef
	for _, part := range payload.Parts {
		if part.Filename == "" || part.Body == nil || part.Body.AttachmentId == "" {
			continue
		}
		refs = append(refs, models.AttachmentRef{
			AttachmentID: part.Body.AttachmentId,
			Filename:     part.Filename,
			MimeType:     part.MimeType,
			Size:         part.Body.Size,
		})
	}
	return refs
}
