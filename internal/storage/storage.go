// internal/storage/storage.go
package storage

import (
	"context"
	"time"
)

// Retrieval describes how a stored resume should be handed back: external
// object storage yields a redirect URL, local storage yields the bytes.
type Retrieval struct {
	RedirectURL string
	Content     []byte
	Filename    string
	ContentType string
}

// BlobStore persists resume documents under stable references.
type BlobStore interface {
	// Put stores data and returns the blob reference.
	Put(ctx context.Context, ref string, data []byte, contentType string) (string, error)
	// Get returns the raw content of a stored blob.
	Get(ctx context.Context, ref string) ([]byte, error)
	// Retrieve returns either a redirect descriptor or the content itself.
	Retrieve(ctx context.Context, ref, filename, contentType string) (*Retrieval, error)
	// Delete removes a stored blob.
	Delete(ctx context.Context, ref string) error
}

// presignTTL bounds how long a redirect URL stays valid.
const presignTTL = 15 * time.Minute
