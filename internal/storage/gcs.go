package storage

import (
	"context"
	"fmt"

	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"
)

// ObjectStore uploads generated assets and exposes them at a public URL.
type ObjectStore interface {
	// UploadPublic writes data under path, marks the object publicly
	// readable and returns its public URL.
	UploadPublic(ctx context.Context, path string, data []byte, contentType string) (string, error)
}

// gcsStore implements ObjectStore on a Google Cloud Storage bucket.
type gcsStore struct {
	bucket     *gcs.BucketHandle
	bucketName string
	logger     *zap.Logger
}

// NewGCSStore creates an ObjectStore over the named bucket.
func NewGCSStore(client *gcs.Client, bucketName string, logger *zap.Logger) ObjectStore {
	return &gcsStore{
		bucket:     client.Bucket(bucketName),
		bucketName: bucketName,
		logger:     logger.Named("gcs_store"),
	}
}

func (s *gcsStore) UploadPublic(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	obj := s.bucket.Object(path)

	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to write object %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize object %s: %w", path, err)
	}

	if err := obj.ACL().Set(ctx, gcs.AllUsers, gcs.RoleReader); err != nil {
		return "", fmt.Errorf("failed to make object %s public: %w", path, err)
	}

	url := fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucketName, path)
	s.logger.Debug("Object uploaded", zap.String("path", path), zap.Int("size_bytes", len(data)))
	return url, nil
}
