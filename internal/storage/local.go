// internal/storage/local.go
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/talentflow/intake-pipeline/internal/common/errors"
)

// LocalStore keeps resume blobs on the local filesystem under a base
// directory. Retrievals stream the content directly.
type LocalStore struct {
	baseDir string
}

func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir %s: %w", baseDir, err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

// path resolves a ref inside the base directory, rejecting traversal.
func (l *LocalStore) path(ref string) (string, error) {
	clean := filepath.Clean(ref)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid blob reference %q", ref)
	}
	return filepath.Join(l.baseDir, clean), nil
}

func (l *LocalStore) Put(ctx context.Context, ref string, data []byte, contentType string) (string, error) {
	p, err := l.path(ref)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", errors.NewStorageUnavailableError(err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", errors.NewStorageUnavailableError(err)
	}
	return ref, nil
}

func (l *LocalStore) Get(ctx context.Context, ref string) ([]byte, error) {
	p, err := l.path(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, errors.NewStorageUnavailableError(err)
	}
	return data, nil
}

func (l *LocalStore) Retrieve(ctx context.Context, ref, filename, contentType string) (*Retrieval, error) {
	data, err := l.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &Retrieval{
		Content:     data,
		Filename:    filename,
		ContentType: contentType,
	}, nil
}

func (l *LocalStore) Delete(ctx context.Context, ref string) error {
	p, err := l.path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.NewStorageUnavailableError(err)
	}
	return nil
}
