// internal/models/mail.go
package models

import "time"

// InboundMessage is a normalized mailbox message as seen by the watcher.
type InboundMessage struct {
	MessageID   string
	SenderEmail string
	SenderName  string
	Subject     string
	Body        string
	ReceivedAt  time.Time
	Attachments []AttachmentRef
}

// AttachmentRef points at one attachment inside a mailbox message. Content is
// fetched lazily by the resolver, not carried in the listing.
type AttachmentRef struct {
	AttachmentID string
	Filename     string
	MimeType     string
	Size         int64
}
