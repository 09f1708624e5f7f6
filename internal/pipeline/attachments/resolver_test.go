// internal/pipeline/attachments/resolver_test.go
package attachments

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pipeerrors "github.com/talentflow/intake-pipeline/internal/common/errors"
	"github.com/talentflow/intake-pipeline/internal/common/logger"
	"github.com/talentflow/intake-pipeline/internal/models"
	"github.com/talentflow/intake-pipeline/internal/storage"
)

// ==========================
// Fakes
// ==========================

type fakeMailbox struct {
	attachments map[string][]byte
	fetchErr    error
	fetches     int
}

func (m *fakeMailbox) ListMessages(ctx context.Context, query string, max int64) ([]string, error) {
	return nil, nil
}

func (m *fakeMailbox) GetMessage(ctx context.Context, messageID string) (*models.InboundMessage, error) {
	return nil, nil
}

func (m *fakeMailbox) FetchAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	m.fetches++
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	data, ok := m.attachments[attachmentID]
	if !ok {
		return nil, fmt.Errorf("attachment %s not found", attachmentID)
	}
	return data, nil
}

func (m *fakeMailbox) MarkRead(ctx context.Context, messageID string) error { return nil }

type fakeBlobStore struct {
	blobs  map[string][]byte
	putErr error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: make(map[string][]byte)}
}

func (b *fakeBlobStore) Put(ctx context.Context, ref string, data []byte, contentType string) (string, error) {
	if b.putErr != nil {
		return "", b.putErr
	}
	b.blobs[ref] = data
	return ref, nil
}

func (b *fakeBlobStore) Get(ctx context.Context, ref string) ([]byte, error) {
	return b.blobs[ref], nil
}

func (b *fakeBlobStore) Retrieve(ctx context.Context, ref, filename, contentType string) (*storage.Retrieval, error) {
	return &storage.Retrieval{Content: b.blobs[ref], Filename: filename, ContentType: contentType}, nil
}

func (b *fakeBlobStore) Delete(ctx context.Context, ref string) error {
	delete(b.blobs, ref)
	return nil
}

// ==========================
// Helpers
// ==========================

var pdfBytes = []byte("%PDF-1.4 sample resume content")

func pdfAttachment(id, filename string, size int64) models.AttachmentRef {
	return models.AttachmentRef{
		AttachmentID: id,
		Filename:     filename,
		MimeType:     "application/pdf",
		Size:         size,
	}
}

func testMessage(atts ...models.AttachmentRef) *models.InboundMessage {
	return &models.InboundMessage{
		MessageID:   "msg-1",
		SenderEmail: "ada@example.com",
		Attachments: atts,
	}
}

// ==========================
// Resolve
// ==========================

func TestResolve_StoresFirstSupportedAttachment(t *testing.T) {
	mailbox := &fakeMailbox{attachments: map[string][]byte{"att-1": pdfBytes}}
	blobs := newFakeBlobStore()
	r := NewResolver(mailbox, blobs, 10<<20, logger.NewTestLogger(t))

	got, err := r.Resolve(context.Background(), "cand-1", testMessage(pdfAttachment("att-1", "resume.pdf", 1024)))
	require.NoError(t, err)

	assert.Equal(t, "resumes/cand-1/resume.pdf", got.BlobRef)
	assert.Equal(t, "resume.pdf", got.Filename)
	assert.Equal(t, "application/pdf", got.MimeType)
	assert.Equal(t, pdfBytes, got.Content)
	assert.Equal(t, pdfBytes, blobs.blobs["resumes/cand-1/resume.pdf"])
}

func TestResolve_NoAttachments(t *testing.T) {
	r := NewResolver(&fakeMailbox{}, newFakeBlobStore(), 10<<20, logger.NewTestLogger(t))

	_, err := r.Resolve(context.Background(), "cand-1", testMessage())
	require.Error(t, err)
	assert.Equal(t, pipeerrors.ErrCodeAttachmentMissing, pipeerrors.CodeOf(err))
}

func TestResolve_SkipsUnsupportedThenUsesSupported(t *testing.T) {
	mailbox := &fakeMailbox{attachments: map[string][]byte{"att-2": pdfBytes}}
	r := NewResolver(mailbox, newFakeBlobStore(), 10<<20, logger.NewTestLogger(t))

	msg := testMessage(
		models.AttachmentRef{AttachmentID: "att-1", Filename: "photo.png", MimeType: "image/png", Size: 100},
		pdfAttachment("att-2", "resume.pdf", 1024),
	)

	got, err := r.Resolve(context.Background(), "cand-1", msg)
	require.NoError(t, err)
	assert.Equal(t, "resume.pdf", got.Filename)
	assert.Equal(t, 1, mailbox.fetches, "unsupported attachments are never downloaded")
}

func TestResolve_OnlyUnsupportedAttachments(t *testing.T) {
	r := NewResolver(&fakeMailbox{}, newFakeBlobStore(), 10<<20, logger.NewTestLogger(t))

	msg := testMessage(models.AttachmentRef{AttachmentID: "att-1", Filename: "notes.txt", MimeType: "text/plain", Size: 10})

	_, err := r.Resolve(context.Background(), "cand-1", msg)
	require.Error(t, err)
	assert.Equal(t, pipeerrors.ErrCodeAttachmentUnsupported, pipeerrors.CodeOf(err))
}

func TestResolve_SizeCapEnforced(t *testing.T) {
	r := NewResolver(&fakeMailbox{}, newFakeBlobStore(), 1<<20, logger.NewTestLogger(t))

	msg := testMessage(pdfAttachment("att-1", "huge.pdf", 5<<20))

	_, err := r.Resolve(context.Background(), "cand-1", msg)
	require.Error(t, err)
	assert.Equal(t, pipeerrors.ErrCodeAttachmentTooLarge, pipeerrors.CodeOf(err))
}

func TestResolve_DuplicateFilenamesFetchedOnce(t *testing.T) {
	mailbox := &fakeMailbox{attachments: map[string][]byte{"att-1": pdfBytes, "att-2": pdfBytes}}
	r := NewResolver(mailbox, newFakeBlobStore(), 10<<20, logger.NewTestLogger(t))

	msg := testMessage(
		pdfAttachment("att-1", "resume.pdf", 1024),
		pdfAttachment("att-2", "resume.pdf", 1024),
	)

	_, err := r.Resolve(context.Background(), "cand-1", msg)
	require.NoError(t, err)
	assert.Equal(t, 1, mailbox.fetches)
}

func TestResolve_ContentMismatchRejected(t *testing.T) {
	// Claims to be a PDF but carries an HTML error page.
	mailbox := &fakeMailbox{attachments: map[string][]byte{"att-1": []byte("<html>not found</html>")}}
	r := NewResolver(mailbox, newFakeBlobStore(), 10<<20, logger.NewTestLogger(t))

	_, err := r.Resolve(context.Background(), "cand-1", testMessage(pdfAttachment("att-1", "resume.pdf", 1024)))
	require.Error(t, err)
	assert.Equal(t, pipeerrors.ErrCodeAttachmentUnsupported, pipeerrors.CodeOf(err))
}

func TestResolve_MailboxFetchFailure(t *testing.T) {
	mailbox := &fakeMailbox{fetchErr: fmt.Errorf("gmail: 503")}
	r := NewResolver(mailbox, newFakeBlobStore(), 10<<20, logger.NewTestLogger(t))

	_, err := r.Resolve(context.Background(), "cand-1", testMessage(pdfAttachment("att-1", "resume.pdf", 1024)))
	require.Error(t, err)
	assert.Equal(t, pipeerrors.ErrCodeMailboxUnavailable, pipeerrors.CodeOf(err))
	assert.True(t, pipeerrors.IsRetryable(err))
}

func TestSupportedAttachment(t *testing.T) {
	assert.True(t, supportedAttachment("resume.pdf", ""))
	assert.True(t, supportedAttachment("Resume.DOCX", ""))
	assert.True(t, supportedAttachment("cv", "application/pdf"))
	assert.False(t, supportedAttachment("photo.png", "image/png"))
	assert.False(t, supportedAttachment("notes.txt", "text/plain"))
}

func TestContentMatchesType(t *testing.T) {
	assert.True(t, contentMatchesType([]byte("%PDF-1.7 more than eight"), "a.pdf"))
	assert.True(t, contentMatchesType([]byte("PK\x03\x04 zipped document"), "a.docx"))
	assert.False(t, contentMatchesType([]byte("<html>error</html>"), "a.pdf"))
	assert.False(t, contentMatchesType([]byte("short"), "a.pdf"))
}
