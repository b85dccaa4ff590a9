package infrastructure

import (
	"context"
	"fmt"
	"os"

	"github.com/yourusername/tubefetch/internal/domain"
	"go.uber.org/zap"
)

// LocalArtifactStore keeps artifacts in the downloads directory; the HTTP
// layer streams them to the user
type LocalArtifactStore struct {
	logger *zap.Logger
}

// NewLocalArtifactStore creates a new local artifact store
func NewLocalArtifactStore(logger *zap.Logger) *LocalArtifactStore {
	return &LocalArtifactStore{logger: logger}
}

// Name returns the backend name
func (s *LocalArtifactStore) Name() string {
	return domain.StorageLocal
}

// Publish checks the file is in place and records its size
func (s *LocalArtifactStore) Publish(ctx context.Context, artifact *domain.Artifact) error {
	info, err := os.Stat(artifact.Path)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrArtifactMissing, err)
	}
	artifact.Size = info.Size()
	return nil
}

// Remove deletes the file
func (s *LocalArtifactStore) Remove(ctx context.Context, artifact *domain.Artifact) error {
	if err := removeLocal(artifact.Path); err != nil {
		return err
	}
	s.logger.Debug("Artifact removed", zap.String("path", artifact.Path))
	return nil
}

// Link returns an empty string; local files are served directly
func (s *LocalArtifactStore) Link(ctx context.Context, artifact *domain.Artifact) (string, error) {
	return "", nil
}
