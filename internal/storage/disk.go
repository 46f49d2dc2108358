package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	apperrors "linkhub/pkg/errors"
	"linkhub/pkg/logger"
)

// DiskStore keeps blobs under a local directory and serves them through the
// static /uploads route. Public IDs are the file paths relative to the root,
// so Destroy needs no lookup table.
type DiskStore struct {
	root    string
	baseURL string
	log     logger.Logger
}

func NewDiskStore(root, baseURL string, log logger.Logger) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
	}, nil
}

func (s *DiskStore) Upload(ctx context.Context, data []byte, folder, resourceType string) (*UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	folder = filepath.Clean("/" + folder)
	publicID := filepath.Join(folder, uuid.New().String())

	path := filepath.Join(s.root, publicID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}

	s.log.Debug("Stored blob", "public_id", publicID, "bytes", len(data), "resource_type", resourceType)

	return &UploadResult{
		URL:      s.baseURL + "/uploads" + filepath.ToSlash(publicID),
		PublicID: publicID,
	}, nil
}

func (s *DiskStore) Destroy(ctx context.Context, publicID, resourceType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := filepath.Join(s.root, filepath.Clean("/"+publicID))
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}
	return nil
}
