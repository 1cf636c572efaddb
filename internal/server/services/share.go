// Package services implements the sharing registry: publishing private
// items under globally unique public names, staleness checks against the
// source's content tag, view counting and the featured flag.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/andrejsk/clouddrive/internal/common"
	"github.com/andrejsk/clouddrive/internal/dbx"
	"github.com/andrejsk/clouddrive/internal/logging"
	sc "github.com/andrejsk/clouddrive/internal/server/config"
	"github.com/andrejsk/clouddrive/internal/server/keymap"
	"github.com/andrejsk/clouddrive/internal/server/models"
	"github.com/andrejsk/clouddrive/internal/server/objstore"
	"github.com/andrejsk/clouddrive/internal/server/repositories/repomanager"
)

// shareCopyConcurrency bounds parallel object copies when publishing a
// folder share.
const shareCopyConcurrency = 16

type ShareService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	scope       objstore.ScopeProvider
	config      *sc.Config
	logger      logging.Logger
}

func NewShareService(db *sql.DB, rm repomanager.RepositoryManager, scope objstore.ScopeProvider, config *sc.Config, logger logging.Logger) *ShareService {
	return &ShareService{
		db:          db,
		repomanager: rm,
		scope:       scope,
		config:      config,
		logger:      logger.With("module", "shares"),
	}
}

// ShareRequest describes a share to publish. An empty ShareName asks the
// service to generate a random one.
type ShareRequest struct {
	ItemName   string          `json:"itemName"`
	ItemType   models.ItemType `json:"itemType"`
	Location   []string        `json:"location"`
	ShareName  string          `json:"shareName"`
	SourceTag  string          `json:"sourceTag"`
	IsFeatured bool            `json:"isFeatured"`
}

// Share publishes an item. The database row is inserted first: the unique
// index on share_name is the only authority on name collisions, so claiming
// the name before touching any object closes the race between two
// simultaneous claims. If the object copy then fails, the claim is released.
func (s *ShareService) Share(ctx context.Context, ownerID string, req ShareRequest) (*models.ShareRecord, error) {
	if err := keymap.ValidateName(req.ItemName); err != nil {
		return nil, err
	}
	if err := keymap.ValidateLocation(req.Location); err != nil {
		return nil, err
	}
	if req.ShareName == "" {
		suffix, err := common.MakeRandHexString(4)
		if err != nil {
			return nil, err
		}
		req.ShareName = "share-" + suffix
	}
	if err := keymap.ValidateShareName(req.ShareName); err != nil {
		return nil, err
	}

	store, err := s.scope.Sharing(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	isFolder := req.ItemType == models.ItemTypeFolder
	srcKey := keymap.PrivateKey(ownerID, req.Location, req.ItemName, isFolder)

	sourceTag := req.SourceTag
	if !isFolder {
		info, err := store.Head(ctx, srcKey)
		if err != nil {
			return nil, err
		}
		sourceTag = info.ETag
	}

	rec := &models.ShareRecord{
		ShareName:  req.ShareName,
		OwnerID:    ownerID,
		ItemName:   req.ItemName,
		ItemType:   req.ItemType,
		SourceTag:  sourceTag,
		IsFeatured: req.IsFeatured,
	}

	repo := s.repomanager.Shares(s.db)
	if err := repo.Create(ctx, rec); err != nil {
		return nil, err
	}

	if err := s.publishObjects(ctx, store, srcKey, req.ItemName, req.ShareName, isFolder); err != nil {
		// Release the claimed name; the copy never completed.
		if delErr := repo.Delete(ctx, ownerID, req.ShareName); delErr != nil {
			s.logger.Error(ctx, "failed to release share name after copy failure", "shareName", req.ShareName, "err", delErr.Error())
		}
		return nil, err
	}

	s.logger.Info(ctx, "item shared", "shareName", req.ShareName, "itemName", req.ItemName)
	return rec, nil
}

// publishObjects copies the source into the public namespace. Folder copies
// run with bounded concurrency; a failure cancels the remaining copies and
// the keys already copied are removed.
func (s *ShareService) publishObjects(ctx context.Context, store objstore.Store, srcKey, itemName, shareName string, isFolder bool) error {
	if !isFolder {
		return store.Copy(ctx, srcKey, keymap.PublicKey(itemName, shareName, false))
	}

	keys, err := objstore.ListAll(ctx, store, srcKey)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return fmt.Errorf("folder %q: %w", itemName, common.ErrNotFound)
	}

	dstPrefix := keymap.PublicKey(itemName, shareName, true)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(shareCopyConcurrency)
	copied := make([]string, len(keys))
	for i, key := range keys {
		g.Go(func() error {
			dst := dstPrefix + strings.TrimPrefix(key, srcKey)
			if err := store.Copy(gctx, key, dst); err != nil {
				return err
			}
			copied[i] = dst
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// Best-effort cleanup of the partial public copy.
		var leftover []string
		for _, dst := range copied {
			if dst != "" {
				leftover = append(leftover, dst)
			}
		}
		for start := 0; start < len(leftover); start += objstore.MaxBatchDelete {
			end := min(start+objstore.MaxBatchDelete, len(leftover))
			if _, delErr := store.DeleteMany(ctx, leftover[start:end]); delErr != nil {
				s.logger.Error(ctx, "cleanup of partial share copy failed", "shareName", shareName, "err", delErr.Error())
			}
		}
		return err
	}
	return nil
}

// CheckShared reports whether the owner's item is already shared and
// whether the shared copy still matches sourceTag. A mismatch is surfaced
// as stale, never auto-resolved.
func (s *ShareService) CheckShared(ctx context.Context, ownerID, itemName, sourceTag string) (models.ShareStatus, *models.ShareRecord, error) {
	repo := s.repomanager.Shares(s.db)

	rec, err := repo.GetByOwnerItem(ctx, ownerID, itemName)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return models.ShareStatusUnshared, nil, nil
		}
		return "", nil, err
	}

	if rec.SourceTag == sourceTag {
		return models.ShareStatusCurrent, rec, nil
	}
	return models.ShareStatusStale, rec, nil
}

// RenameShare atomically swaps the public name: the row update claims the
// new name (failing with Conflict if taken), then the public object is
// re-keyed. If re-keying fails the row rename is reverted.
func (s *ShareService) RenameShare(ctx context.Context, ownerID, oldName, newName string) error {
	if err := keymap.ValidateShareName(oldName); err != nil {
		return err
	}
	if err := keymap.ValidateShareName(newName); err != nil {
		return err
	}

	// The read and the claim of the new name run in one transaction so a
	// concurrent unshare or rename cannot slip between them.
	var rec *models.ShareRecord
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Shares(tx)
		r, err := repo.GetByName(ctx, oldName)
		if err != nil {
			return err
		}
		if r.OwnerID != ownerID {
			return common.ErrNotFound
		}
		rec = r
		return repo.Rename(ctx, ownerID, oldName, newName)
	})
	if err != nil {
		return err
	}

	store, err := s.scope.Public(ctx)
	if err != nil {
		return err
	}

	isFolder := rec.ItemType == models.ItemTypeFolder
	if err := s.rekeyPublic(ctx, store, rec.ItemName, oldName, newName, isFolder); err != nil {
		if revertErr := s.repomanager.Shares(s.db).Rename(ctx, ownerID, newName, oldName); revertErr != nil {
			s.logger.Error(ctx, "failed to revert share rename", "oldName", oldName, "newName", newName, "err", revertErr.Error())
		}
		return err
	}

	s.logger.Info(ctx, "share renamed", "oldName", oldName, "newName", newName)
	return nil
}

func (s *ShareService) rekeyPublic(ctx context.Context, store objstore.Store, itemName, oldName, newName string, isFolder bool) error {
	if !isFolder {
		oldKey := keymap.PublicKey(itemName, oldName, false)
		newKey := keymap.PublicKey(itemName, newName, false)
		if err := store.Copy(ctx, oldKey, newKey); err != nil {
			return err
		}
		return store.Delete(ctx, oldKey)
	}

	oldPrefix := keymap.PublicKey(itemName, oldName, true)
	newPrefix := keymap.PublicKey(itemName, newName, true)
	keys, err := objstore.ListAll(ctx, store, oldPrefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := store.Copy(ctx, key, newPrefix+strings.TrimPrefix(key, oldPrefix)); err != nil {
			return err
		}
	}
	for start := 0; start < len(keys); start += objstore.MaxBatchDelete {
		end := min(start+objstore.MaxBatchDelete, len(keys))
		if _, err := store.DeleteMany(ctx, keys[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// Unshare removes the public object and the registry row. The private
// original is untouched.
func (s *ShareService) Unshare(ctx context.Context, ownerID, shareName string) error {
	repo := s.repomanager.Shares(s.db)

	rec, err := repo.GetByName(ctx, shareName)
	if err != nil {
		return err
	}
	if rec.OwnerID != ownerID {
		return common.ErrNotFound
	}

	store, err := s.scope.Public(ctx)
	if err != nil {
		return err
	}

	if rec.ItemType == models.ItemTypeFolder {
		prefix := keymap.PublicKey(rec.ItemName, shareName, true)
		keys, err := objstore.ListAll(ctx, store, prefix)
		if err != nil {
			return err
		}
		for start := 0; start < len(keys); start += objstore.MaxBatchDelete {
			end := min(start+objstore.MaxBatchDelete, len(keys))
			if _, err := store.DeleteMany(ctx, keys[start:end]); err != nil {
				return err
			}
		}
	} else {
		if err := store.Delete(ctx, keymap.PublicKey(rec.ItemName, shareName, false)); err != nil {
			return err
		}
	}

	if err := repo.Delete(ctx, ownerID, shareName); err != nil {
		return err
	}

	s.logger.Info(ctx, "share removed", "shareName", shareName)
	return nil
}

// RecordView bumps the view counter and returns the share plus its new
// count. The UPDATE is atomic at the database, so concurrent viewers never
// lose increments; no cross-request ordering is promised beyond that.
func (s *ShareService) RecordView(ctx context.Context, shareName string) (*models.ShareRecord, error) {
	repo := s.repomanager.Shares(s.db)

	views, err := repo.IncrementViews(ctx, shareName)
	if err != nil {
		return nil, err
	}

	rec, err := repo.GetByName(ctx, shareName)
	if err != nil {
		return nil, err
	}
	rec.Views = views
	return rec, nil
}

// SetFeatured toggles the featured flag on an owner's share.
func (s *ShareService) SetFeatured(ctx context.Context, ownerID, shareName string, featured bool) error {
	return s.repomanager.Shares(s.db).SetFeatured(ctx, ownerID, shareName, featured)
}

// ListShares returns the owner's shares, newest first.
func (s *ShareService) ListShares(ctx context.Context, ownerID string) ([]*models.ShareRecord, error) {
	return s.repomanager.Shares(s.db).ListByOwner(ctx, ownerID)
}

// ListFeatured returns the public featured gallery, most viewed first.
func (s *ShareService) ListFeatured(ctx context.Context, limit int) ([]*models.ShareRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repomanager.Shares(s.db).ListFeatured(ctx, limit)
}

// PresignShareDownload hands out a read-only URL for a shared file so the
// public page can link directly to the object.
func (s *ShareService) PresignShareDownload(ctx context.Context, shareName string) (string, error) {
	repo := s.repomanager.Shares(s.db)

	rec, err := repo.GetByName(ctx, shareName)
	if err != nil {
		return "", err
	}
	if rec.ItemType == models.ItemTypeFolder {
		return "", fmt.Errorf("folder shares have no single download: %w", common.ErrInvalidArgument)
	}

	store, err := s.scope.Public(ctx)
	if err != nil {
		return "", err
	}

	return store.PresignGet(ctx, keymap.PublicKey(rec.ItemName, shareName, false), s.config.DownloadURLExpiry)
}
