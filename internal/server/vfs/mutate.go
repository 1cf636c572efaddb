package vfs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/andrejsk/clouddrive/internal/common"
	"github.com/andrejsk/clouddrive/internal/server/keymap"
	"github.com/andrejsk/clouddrive/internal/server/models"
	"github.com/andrejsk/clouddrive/internal/server/objstore"
)

// MoveRequest describes a move across folder boundaries.
type MoveRequest struct {
	SourceLocation      []string        `json:"sourceLocation"`
	DestinationLocation []string        `json:"destinationLocation"`
	ItemName            string          `json:"itemName"`
	ItemType            models.ItemType `json:"itemType"`
}

// Rename renames an item in place. A file is one copy-then-delete; a folder
// rewrites the marker and every descendant key under the old prefix.
func (s *Service) Rename(ctx context.Context, ownerID string, typ models.ItemType, oldName, newName string, location []string) (BatchResult, error) {
	if err := keymap.ValidateName(oldName); err != nil {
		return BatchResult{}, err
	}
	if err := keymap.ValidateName(newName); err != nil {
		return BatchResult{}, err
	}
	if err := keymap.ValidateLocation(location); err != nil {
		return BatchResult{}, err
	}

	store, err := s.scope.Scoped(ctx, ownerID)
	if err != nil {
		return BatchResult{}, err
	}

	isFolder := typ == models.ItemTypeFolder
	oldKey := keymap.PrivateKey(ownerID, location, oldName, isFolder)
	newKey := keymap.PrivateKey(ownerID, location, newName, isFolder)

	res, err := s.relocate(ctx, store, oldKey, newKey, isFolder)
	if err == nil && !res.AllOK() {
		s.logger.Warn(ctx, "rename left sources in place", "oldKey", oldKey, "failed", len(res.FailedKeys))
	}
	return res, err
}

// Move relocates an item to a different folder with the same copy-then-
// delete discipline as Rename.
func (s *Service) Move(ctx context.Context, ownerID string, req MoveRequest) (BatchResult, error) {
	if err := keymap.ValidateName(req.ItemName); err != nil {
		return BatchResult{}, err
	}
	if err := keymap.ValidateLocation(req.SourceLocation); err != nil {
		return BatchResult{}, err
	}
	if err := keymap.ValidateLocation(req.DestinationLocation); err != nil {
		return BatchResult{}, err
	}

	store, err := s.scope.Scoped(ctx, ownerID)
	if err != nil {
		return BatchResult{}, err
	}

	isFolder := req.ItemType == models.ItemTypeFolder
	oldKey := keymap.PrivateKey(ownerID, req.SourceLocation, req.ItemName, isFolder)
	newKey := keymap.PrivateKey(ownerID, req.DestinationLocation, req.ItemName, isFolder)

	if isFolder && strings.HasPrefix(newKey, oldKey) {
		return BatchResult{}, fmt.Errorf("cannot move a folder into itself: %w", common.ErrInvalidArgument)
	}

	return s.relocate(ctx, store, oldKey, newKey, isFolder)
}

// relocate implements copy-then-delete for one item. Sources are never
// deleted until every copy is confirmed, so a partial failure can leave
// duplicate objects under both prefixes but never loses data. Copies run in
// key order and stop at the first failure; the result lists the failed key
// and every key that was not attempted.
func (s *Service) relocate(ctx context.Context, store objstore.Store, oldKey, newKey string, isFolder bool) (BatchResult, error) {
	if !isFolder {
		if _, err := store.Head(ctx, oldKey); err != nil {
			return BatchResult{}, err
		}
		if err := store.Copy(ctx, oldKey, newKey); err != nil {
			return BatchResult{Total: 1, FailedKeys: []string{oldKey}}, err
		}
		if err := store.Delete(ctx, oldKey); err != nil {
			return BatchResult{Total: 1, Succeeded: 1, FailedKeys: []string{oldKey}}, err
		}
		return BatchResult{Total: 1, Succeeded: 1}, nil
	}

	// Enumeration completes before any copy or delete is issued.
	keys, err := objstore.ListAll(ctx, store, oldKey)
	if err != nil {
		return BatchResult{}, err
	}
	if len(keys) == 0 {
		return BatchResult{}, fmt.Errorf("folder %q: %w", oldKey, common.ErrNotFound)
	}

	res := BatchResult{Total: len(keys)}
	copied := make([]string, 0, len(keys))
	for i, key := range keys {
		dst := newKey + strings.TrimPrefix(key, oldKey)
		if err := store.Copy(ctx, key, dst); err != nil {
			// Abort remaining copies; report this key and all unattempted
			// ones as failed. Originals stay intact.
			res.Succeeded = len(copied)
			res.FailedKeys = append([]string(nil), keys[i:]...)
			s.logger.Error(ctx, "copy failed, aborting batch", "key", key, "err", err.Error())
			return res, nil
		}
		copied = append(copied, key)
	}

	res.Succeeded = len(copied)
	res.FailedKeys = deleteInBatches(ctx, store, copied)
	return res, nil
}

// deleteInBatches removes keys in chunks of at most MaxBatchDelete,
// collecting failures instead of aborting. Returns the failed keys.
func deleteInBatches(ctx context.Context, store objstore.Store, keys []string) []string {
	var failed []string
	for start := 0; start < len(keys); start += objstore.MaxBatchDelete {
		end := min(start+objstore.MaxBatchDelete, len(keys))
		batch := keys[start:end]
		batchFailed, err := store.DeleteMany(ctx, batch)
		if err != nil {
			failed = append(failed, batch...)
			continue
		}
		failed = append(failed, batchFailed...)
	}
	return failed
}

// Delete removes an item. Files are a single delete; deleting an absent
// file reports ErrNotFound without treating it as fatal upstream damage.
// Folders are fully enumerated first and then removed in batches, carrying
// per-batch failures in the result rather than stopping.
func (s *Service) Delete(ctx context.Context, ownerID string, typ models.ItemType, name string, location []string) (BatchResult, error) {
	if err := keymap.ValidateName(name); err != nil {
		return BatchResult{}, err
	}
	if err := keymap.ValidateLocation(location); err != nil {
		return BatchResult{}, err
	}

	store, err := s.scope.Scoped(ctx, ownerID)
	if err != nil {
		return BatchResult{}, err
	}

	if typ != models.ItemTypeFolder {
		key := keymap.PrivateKey(ownerID, location, name, false)
		if _, err := store.Head(ctx, key); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return BatchResult{}, fmt.Errorf("file %q: %w", name, common.ErrNotFound)
			}
			return BatchResult{}, err
		}
		if err := store.Delete(ctx, key); err != nil {
			return BatchResult{Total: 1, FailedKeys: []string{key}}, err
		}
		return BatchResult{Total: 1, Succeeded: 1}, nil
	}

	prefix := keymap.PrivateKey(ownerID, location, name, true)
	keys, err := objstore.ListAll(ctx, store, prefix)
	if err != nil {
		return BatchResult{}, err
	}

	// Nothing listed: the folder may still exist as a bare marker.
	if len(keys) == 0 {
		if err := store.Delete(ctx, prefix); err != nil {
			return BatchResult{Total: 1, FailedKeys: []string{prefix}}, err
		}
		return BatchResult{Total: 1, Succeeded: 1}, nil
	}

	failed := deleteInBatches(ctx, store, keys)
	res := BatchResult{Total: len(keys), Succeeded: len(keys) - len(failed), FailedKeys: failed}
	if !res.AllOK() {
		s.logger.Warn(ctx, "folder delete incomplete", "prefix", prefix, "failed", len(failed))
	}
	return res, nil
}
