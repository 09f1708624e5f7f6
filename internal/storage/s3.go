// internal/storage/s3.go
package storage

import (
	"context"
	"fmt"

	"github.com/talentflow/intake-pipeline/internal/common/aws"
	"github.com/talentflow/intake-pipeline/internal/common/errors"
)

// S3Store keeps resume blobs in an S3 bucket and serves retrievals as
// presigned redirect URLs.
type S3Store struct {
	client *aws.S3Client
}

func NewS3Store(client *aws.S3Client) *S3Store {
	return &S3Store{client: client}
}

func (s *S3Store) Put(ctx context.Context, ref string, data []byte, contentType string) (string, error) {
	if err := s.client.PutObject(ctx, ref, data, contentType); err != nil {
		return "", errors.NewStorageUnavailableError(err)
	}
	return ref, nil
}

func (s *S3Store) Get(ctx context.Context, ref string) ([]byte, error) {
	data, err := s.client.GetObject(ctx, ref)
	if err != nil {
		return nil, errors.NewStorageUnavailableError(err)
	}
	return data, nil
}

func (s *S3Store) Retrieve(ctx context.Context, ref, filename, contentType string) (*Retrieval, error) {
	url, err := s.client.PresignGet(ctx, ref, presignTTL)
	if err != nil {
		return nil, errors.NewStorageUnavailableError(fmt.Errorf("presign %s: %w", ref, err))
	}
	return &Retrieval{
		RedirectURL: url,
		Filename:    filename,
		ContentType: contentType,
	}, nil
}

func (s *S3Store) Delete(ctx context.Context, ref string) error {
	if err := s.client.DeleteObject(ctx, ref); err != nil {
		return errors.NewStorageUnavailableError(err)
	}
	return nil
}
