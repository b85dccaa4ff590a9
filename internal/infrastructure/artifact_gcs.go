package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"github.com/yourusername/tubefetch/internal/domain"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GCSArtifactStore uploads artifacts to a Cloud Storage bucket and hands out V4 signed URLs
type GCSArtifactStore struct {
	client *storage.Client
	bucket string
	prefix string
	expiry time.Duration
	logger *zap.Logger
}

// NewGCSArtifactStore creates a new GCS artifact store
func NewGCSArtifactStore(ctx context.Context, config *domain.GCSConfig, expiry time.Duration, logger *zap.Logger) (*GCSArtifactStore, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("storage.gcs.bucket is required")
	}

	var opts []option.ClientOption
	if config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}

	return &GCSArtifactStore{
		client: client,
		bucket: config.Bucket,
		prefix: config.Prefix,
		expiry: expiry,
		logger: logger,
	}, nil
}

// Name returns the backend name
func (s *GCSArtifactStore) Name() string {
	return domain.StorageGCS
}

// Publish uploads the file, records a signed URL and deletes the local copy
func (s *GCSArtifactStore) Publish(ctx context.Context, artifact *domain.Artifact) error {
	file, err := os.Open(artifact.Path)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrArtifactMissing, err)
	}
	defer file.Close()

	key := objectKey(s.prefix, artifact)
	wc := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	wc.ContentType = "video/mp4"
	wc.ContentDisposition = contentDisposition(artifact.Name)

	if _, err := io.Copy(wc, file); err != nil {
		wc.Close()
		return fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to finalize object %s: %w", key, err)
	}
	file.Close()

	artifact.Key = key
	url, err := s.Link(ctx, artifact)
	if err != nil {
		return err
	}
	artifact.URL = url

	if err := removeLocal(artifact.Path); err != nil {
		s.logger.Warn("Failed to remove local artifact after upload", zap.Error(err))
	}
	artifact.Path = ""

	s.logger.Info("Artifact uploaded",
		zap.String("bucket", s.bucket),
		zap.String("object", key))
	return nil
}

// Remove deletes the object
func (s *GCSArtifactStore) Remove(ctx context.Context, artifact *domain.Artifact) error {
	if artifact.Key == "" {
		return removeLocal(artifact.Path)
	}
	err := s.client.Bucket(s.bucket).Object(artifact.Key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete object %s: %w", artifact.Key, err)
	}
	return nil
}

// Link signs a V4 GET URL for the object
func (s *GCSArtifactStore) Link(ctx context.Context, artifact *domain.Artifact) (string, error) {
	url, err := s.client.Bucket(s.bucket).SignedURL(artifact.Key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(s.expiry),
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign %s: %w", artifact.Key, err)
	}
	return url, nil
}

// Close closes the storage client
func (s *GCSArtifactStore) Close() error {
	return s.client.Close()
}
