package blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	gos3 "storefront/pkg/s3"
)

// S3Store keeps blobs in one bucket.
type S3Store struct {
	client *gos3.Client
	bucket string
}

// NewS3Store returns a store backed by bucket.
func NewS3Store(client *gos3.Client, bucket string) (*S3Store, error) {
	if client == nil {
		return nil, errors.New("s3 client is required")
	}
	if bucket == "" {
		return nil, errors.New("bucket is required")
	}
	return &S3Store{client: client, bucket: bucket}, nil
}

// Open streams the object stored under key.
func (s *S3Store) Open(ctx context.Context, key string) (io.ReadCloser, Object, error) {
	body, obj, err := s.client.GetObject(ctx, s.bucket, key)
	if err != nil {
		if errors.Is(err, gos3.ErrNoSuchKey) {
			return nil, Object{}, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, Object{}, err
	}
	if obj.ContentType == "" {
		obj.ContentType = ContentTypeFor(key)
	}
	return body, Object{Size: obj.Size, ContentType: obj.ContentType}, nil
}

// Put uploads r under key.
func (s *S3Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = ContentTypeFor(key)
	}
	return s.client.PutObject(ctx, s.bucket, key, r, size, contentType, "")
}

// Delete removes the object stored under key.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	return s.client.DeleteObject(ctx, s.bucket, key)
}
