package infrastructure

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/yourusername/tubefetch/internal/domain"
	"go.uber.org/zap"
)

// NewArtifactStore creates the artifact store selected by storage.backend
func NewArtifactStore(ctx context.Context, config *domain.StorageConfig, logger *zap.Logger) (domain.ArtifactStore, error) {
	switch config.Backend {
	case "", domain.StorageLocal:
		return NewLocalArtifactStore(logger), nil
	case domain.StorageS3:
		return NewS3ArtifactStore(&config.S3, config.URLExpiry, logger)
	case domain.StorageGCS:
		return NewGCSArtifactStore(ctx, &config.GCS, config.URLExpiry, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", config.Backend)
	}
}

// objectKey joins the configured prefix and the artifact key
func objectKey(prefix string, artifact *domain.Artifact) string {
	key := artifact.Key
	if key == "" {
		key = artifact.Name
	}
	return path.Join(prefix, key)
}

// removeLocal deletes a local artifact and its job directory when empty
func removeLocal(p string) error {
	if p == "" {
		return nil
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", p, err)
	}
	// fails while the directory still holds other files
	os.Remove(filepath.Dir(p))
	return nil
}

func contentDisposition(name string) string {
	return fmt.Sprintf("attachment; filename=%q", name)
}
