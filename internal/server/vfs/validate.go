package vfs

import (
	"context"
	"errors"
	"fmt"

	"github.com/andrejsk/clouddrive/internal/common"
	"github.com/andrejsk/clouddrive/internal/server/keymap"
	"github.com/andrejsk/clouddrive/internal/server/models"
	"github.com/andrejsk/clouddrive/internal/server/objstore"
)

// PathInfo is the result of path validation. Type is only set when Valid.
type PathInfo struct {
	Valid bool            `json:"valid"`
	Type  models.ItemType `json:"type,omitempty"`
}

// ValidatePath decides whether location names an existing item and of which
// kind. The store keeps no type metadata, so the check is two-step: an exact
// HEAD treating the path as a file key, then a one-page prefix probe
// treating it as a folder. A folder is valid if it has at least one child
// key, one child prefix, or an explicit marker object.
func (s *Service) ValidatePath(ctx context.Context, ownerID string, location []string) (PathInfo, error) {
	if err := keymap.ValidateLocation(location); err != nil {
		return PathInfo{}, err
	}

	store, err := s.scope.Scoped(ctx, ownerID)
	if err != nil {
		return PathInfo{}, err
	}

	// Root always exists.
	if len(location) == 0 {
		return PathInfo{Valid: true, Type: models.ItemTypeFolder}, nil
	}

	fileKey := keymap.PrivateKey(ownerID, location, "", false)
	if _, err := store.Head(ctx, fileKey); err == nil {
		return PathInfo{Valid: true, Type: models.ItemTypeFile}, nil
	} else if !errors.Is(err, common.ErrNotFound) {
		return PathInfo{}, err
	}

	folderPrefix := keymap.PrivateKey(ownerID, location, "", true)
	page, err := store.List(ctx, folderPrefix, keymap.Separator, "", 1)
	if err != nil {
		return PathInfo{}, err
	}
	if len(page.Objects) > 0 || len(page.CommonPrefixes) > 0 {
		return PathInfo{Valid: true, Type: models.ItemTypeFolder}, nil
	}

	return PathInfo{Valid: false}, nil
}

// FolderExists checks for the exact folder-marker key.
func (s *Service) FolderExists(ctx context.Context, ownerID string, location []string, name string) (bool, error) {
	if err := keymap.ValidateName(name); err != nil {
		return false, err
	}
	if err := keymap.ValidateLocation(location); err != nil {
		return false, err
	}

	store, err := s.scope.Scoped(ctx, ownerID)
	if err != nil {
		return false, err
	}

	return folderMarkerExists(ctx, store, keymap.PrivateKey(ownerID, location, name, true))
}

// CreateFolder writes the zero-byte marker object for a new folder. Creating
// a folder whose marker already exists returns ErrConflict. Two creates
// racing past the check both write the marker; the write is idempotent and
// both callers see success.
func (s *Service) CreateFolder(ctx context.Context, ownerID string, location []string, name string) error {
	if err := keymap.ValidateName(name); err != nil {
		return err
	}
	if err := keymap.ValidateLocation(location); err != nil {
		return err
	}

	store, err := s.scope.Scoped(ctx, ownerID)
	if err != nil {
		return err
	}

	markerKey := keymap.PrivateKey(ownerID, location, name, true)
	exists, err := folderMarkerExists(ctx, store, markerKey)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("folder %q: %w", name, common.ErrConflict)
	}

	if err := store.Put(ctx, markerKey, nil, 0); err != nil {
		return err
	}

	s.logger.Info(ctx, "folder created", "key", markerKey)
	return nil
}

func folderMarkerExists(ctx context.Context, store objstore.Store, key string) (bool, error) {
	_, err := store.Head(ctx, key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, common.ErrNotFound) {
		return false, nil
	}
	return false, err
}
