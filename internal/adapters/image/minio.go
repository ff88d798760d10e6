package image

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/uxray-ai/uxray/internal/config"
	"github.com/uxray-ai/uxray/internal/core"
)

// MinioSource fetches screenshots from S3-compatible object storage. The
// reference is an object key within the configured bucket.
type MinioSource struct {
	client *minio.Client
	bucket string
}

// NewMinioSource connects to the configured object store.
func NewMinioSource(cfg config.MinioConfig) (*MinioSource, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object storage client: %w", err)
	}
	return &MinioSource{client: client, bucket: cfg.Bucket}, nil
}

// Fetch downloads the object and returns its bytes and content type.
func (s *MinioSource) Fetch(ctx context.Context, ref string) ([]byte, string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, ref, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", core.ErrImageUnavailable(ref, err)
	}
	defer obj.Close()

	stat, err := obj.Stat()
	if err != nil {
		return nil, "", core.ErrImageUnavailable(ref, err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, "", core.ErrImageUnavailable(ref, err)
	}

	contentType := stat.ContentType
	if contentType == "" {
		contentType = contentTypeFor(ref)
	}
	return data, contentType, nil
}
