package infrastructure

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/yourusername/tubefetch/internal/domain"
	"go.uber.org/zap"
)

// S3ArtifactStore uploads artifacts to an S3 bucket and hands out presigned URLs
type S3ArtifactStore struct {
	client   *s3.Client
	uploader *manager.Uploader
	presign  *s3.PresignClient
	bucket   string
	prefix   string
	expiry   time.Duration
	logger   *zap.Logger
}

// NewS3ArtifactStore creates a new S3 artifact store
func NewS3ArtifactStore(config *domain.S3Config, expiry time.Duration, logger *zap.Logger) (*S3ArtifactStore, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("storage.s3.bucket is required")
	}
	if config.Region == "" {
		return nil, fmt.Errorf("storage.s3.region is required")
	}
	if config.AccessKey == "" || config.SecretKey == "" {
		return nil, fmt.Errorf("storage.s3.access_key and storage.s3.secret_key are required")
	}

	opts := s3.Options{
		Region:       config.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(config.AccessKey, config.SecretKey, ""),
		UsePathStyle: config.UsePathStyle,
	}
	if config.Endpoint != "" {
		opts.BaseEndpoint = aws.String(config.Endpoint)
	}
	client := s3.New(opts)

	return &S3ArtifactStore{
		client:   client,
		uploader: manager.NewUploader(client),
		presign:  s3.NewPresignClient(client),
		bucket:   config.Bucket,
		prefix:   config.Prefix,
		expiry:   expiry,
		logger:   logger,
	}, nil
}

// Name returns the backend name
func (s *S3ArtifactStore) Name() string {
	return domain.StorageS3
}

// Publish uploads the file, records a presigned URL and deletes the local copy
func (s *S3ArtifactStore) Publish(ctx context.Context, artifact *domain.Artifact) error {
	file, err := os.Open(artifact.Path)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrArtifactMissing, err)
	}
	defer file.Close()

	key := objectKey(s.prefix, artifact)
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(s.bucket),
		Key:                aws.String(key),
		Body:               file,
		ContentType:        aws.String("video/mp4"),
		ContentDisposition: aws.String(contentDisposition(artifact.Name)),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s to bucket %s: %w", key, s.bucket, err)
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
		zap.String("key", key))
	return nil
}

// Remove deletes the object
func (s *S3ArtifactStore) Remove(ctx context.Context, artifact *domain.Artifact) error {
	if artifact.Key == "" {
		return removeLocal(artifact.Path)
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(artifact.Key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", artifact.Key, err)
	}
	return nil
}

// Link presigns a GET request for the object
func (s *S3ArtifactStore) Link(ctx context.Context, artifact *domain.Artifact) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(artifact.Key),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", artifact.Key, err)
	}
	return req.URL, nil
}
