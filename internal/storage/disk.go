package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	stderrors "grievance-intake/internal/common/errors"
	"grievance-intake/internal/common/logger"
)

// Store persists a validated submission's image and returns the stored path.
type Store interface {
	Save(ctx context.Context, ticket string, image []byte) (string, error)
}

// DiskStore writes images under a flat upload directory keyed by ticket
// number.
type DiskStore struct {
	dir    string
	logger logger.Logger
}

func NewDiskStore(dir string, log logger.Logger) *DiskStore {
	return &DiskStore{
		dir:    dir,
		logger: log.With(map[string]interface{}{"component": "disk-store"}),
	}
}

func (s *DiskStore) Save(_ context.Context, ticket string, image []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", stderrors.NewStorageFailureError(err)
	}

	path := filepath.Join(s.dir, fmt.Sprintf("%s.jpg", ticket))
	if err := os.WriteFile(path, image, 0o644); err != nil {
		return "", stderrors.NewStorageFailureError(err)
	}

	s.logger.Debug("image stored", map[string]interface{}{
		"ticket": ticket,
		"path":   path,
		"bytes":  len(image),
	})
	return path, nil
}
