// internal/pipeline/attachments/resolver.go

// Package attachments identifies and persists the resume document carried by
// an inbound message.
package attachments

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/talentflow/intake-pipeline/internal/common/errors"
	"github.com/talentflow/intake-pipeline/internal/common/google"
	"github.com/talentflow/intake-pipeline/internal/common/logger"
	"github.com/talentflow/intake-pipeline/internal/models"
	"github.com/talentflow/intake-pipeline/internal/storage"
)

// Resolved is a persisted resume ready for extraction.
type Resolved struct {
	BlobRef  string
	Filename string
	MimeType string
	Content  []byte
}

// Resolver picks the resume attachment out of a message, validates it, and
// persists it to blob storage.
type Resolver struct {
	mailbox   google.Mailbox
	blobs     storage.BlobStore
	sizeLimit int64
	log       logger.Logger
}

func NewResolver(mailbox google.Mailbox, blobs storage.BlobStore, sizeLimit int64, log logger.Logger) *Resolver {
	return &Resolver{mailbox: mailbox, blobs: blobs, sizeLimit: sizeLimit, log: log}
}

// Resolve finds the first supported attachment, downloads it, verifies its
// content matches the claimed type, and stores it under the candidate's key.
// Duplicate filenames within one message are processed once.
func (r *Resolver) Resolve(ctx context.Context, candidateID string, msg *models.InboundMessage) (*Resolved, error) {
	if len(msg.Attachments) == 0 {
		return nil, errors.NewAttachmentMissingError(msg.MessageID)
	}

	seen := make(map[string]bool)
	var lastErr error

	for _, att := range msg.Attachments {
		if seen[att.Filename] {
			continue
		}
		seen[att.Filename] = true

		if !supportedAttachment(att.Filename, att.MimeType) {
			lastErr = errors.NewAttachmentUnsupportedError(att.Filename, att.MimeType)
			continue
		}

		if r.sizeLimit > 0 && att.Size > r.sizeLimit {
			r.log.Warn("attachment exceeds size limit, skipping", map[string]interface{}{
				"filename": att.Filename,
				"size":     att.Size,
				"limit":    r.sizeLimit,
			})
			lastErr = errors.NewAttachmentTooLargeError(att.Filename, att.Size, r.sizeLimit)
			continue
		}

		data, err := r.mailbox.FetchAttachment(ctx, msg.MessageID, att.AttachmentID)
		if err != nil {
			lastErr = errors.NewMailboxUnavailableError(err)
			continue
		}

		if !contentMatchesType(data, att.Filename) {
			lastErr = errors.NewAttachmentUnsupportedError(att.Filename, att.MimeType)
			continue
		}

		ref := fmt.Sprintf("resumes/%s/%s", candidateID, filepath.Base(att.Filename))
		stored, err := r.blobs.Put(ctx, ref, data, att.MimeType)
		if err != nil {
			return nil, err
		}

		return &Resolved{
			BlobRef:  stored,
			Filename: att.Filename,
			MimeType: att.MimeType,
			Content:  data,
		}, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.NewAttachmentMissingError(msg.MessageID)
}

func supportedAttachment(filename, mimeType string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".docx", ".doc":
		return true
	}
	switch mimeType {
	case "application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return true
	}
	return false
}

// contentMatchesType rejects attachments whose bytes disagree with the
// claimed extension: %PDF for PDFs, PK zip header for DOCX, OLE header for
// legacy DOC.
func contentMatchesType(data []byte, filename string) bool {
	if len(data) < 8 {
		return false
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return bytes.HasPrefix(data, []byte("%PDF"))
	case ".docx":
		return bytes.HasPrefix(data, []byte("PK"))
	case ".doc":
		return bytes.HasPrefix(data, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	}
	return true
}
