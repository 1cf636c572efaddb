package transfer

import (
	"context"

	"github.com/andrejsk/clouddrive/internal/server/keymap"
	"github.com/andrejsk/clouddrive/internal/server/models"
)

// PresignedUpload pairs a destination key with its one-shot upload URL.
type PresignedUpload struct {
	Name string `json:"name"`
	Key  string `json:"key"`
	URL  string `json:"url"`
}

// PresignUploads issues a short-lived write-only URL per file so the client
// uploads directly to the store. All names are validated before the first
// presign call.
func (s *Service) PresignUploads(ctx context.Context, ownerID string, files []models.FileDescriptor, location []string) ([]PresignedUpload, error) {
	if err := keymap.ValidateLocation(location); err != nil {
		return nil, err
	}
	for _, f := range files {
		if err := keymap.ValidateName(f.Name); err != nil {
			return nil, err
		}
	}

	store, err := s.scope.Scoped(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	uploads := make([]PresignedUpload, 0, len(files))
	for _, f := range files {
		key := keymap.PrivateKey(ownerID, location, f.Name, false)
		url, err := store.PresignPut(ctx, key, s.config.UploadURLExpiry)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, PresignedUpload{Name: f.Name, Key: key, URL: url})
	}
	return uploads, nil
}

// PresignDownload issues a read-only URL for one file. The object is
// HEAD-checked first so an absent path reports ErrNotFound instead of
// handing out a URL that will 404 later.
func (s *Service) PresignDownload(ctx context.Context, ownerID string, location []string, name string) (string, error) {
	if err := keymap.ValidateName(name); err != nil {
		return "", err
	}
	if err := keymap.ValidateLocation(location); err != nil {
		return "", err
	}

	store, err := s.scope.Scoped(ctx, ownerID)
	if err != nil {
		return "", err
	}

	key := keymap.PrivateKey(ownerID, location, name, false)
	if _, err := store.Head(ctx, key); err != nil {
		return "", err
	}

	return store.PresignGet(ctx, key, s.config.DownloadURLExpiry)
}
