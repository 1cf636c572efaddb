package transfer

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/andrejsk/clouddrive/internal/common"
	"github.com/andrejsk/clouddrive/internal/server/keymap"
	"github.com/andrejsk/clouddrive/internal/server/objstore"
)

// StreamFolderZip writes the folder at location as a ZIP archive directly to
// w, typically an http.ResponseWriter. Objects are fetched one at a time and
// piped through the compressor, so the archive is never buffered whole.
//
// Entry names are relative to the folder root. A failed fetch aborts the
// stream: the client gets a truncated download, never a silently incomplete
// archive. Context cancellation (client gone) stops further fetches.
func (s *Service) StreamFolderZip(ctx context.Context, ownerID string, location []string, w io.Writer) error {
	if err := keymap.ValidateLocation(location); err != nil {
		return err
	}

	store, err := s.scope.Scoped(ctx, ownerID)
	if err != nil {
		return err
	}

	prefix := keymap.PrivateKey(ownerID, location, "", true)
	keys, err := objstore.ListAll(ctx, store, prefix)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return fmt.Errorf("folder %q: %w", strings.Join(location, keymap.Separator), common.ErrNotFound)
	}

	zw := zip.NewWriter(w)

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}

		rel := strings.TrimPrefix(key, prefix)
		if rel == "" {
			// The folder's own marker.
			continue
		}

		// Marker objects become directory entries so empty folders survive
		// the round trip.
		if strings.HasSuffix(rel, keymap.Separator) {
			if _, err := zw.Create(rel); err != nil {
				return err
			}
			continue
		}

		body, info, err := store.Get(ctx, key)
		if err != nil {
			s.logger.Error(ctx, "zip stream aborted", "key", key, "err", err.Error())
			return fmt.Errorf("fetch %q: %w", key, err)
		}

		entry, err := zw.CreateHeader(&zip.FileHeader{
			Name:     rel,
			Method:   zip.Deflate,
			Modified: info.LastModified,
		})
		if err != nil {
			body.Close()
			return err
		}
		if _, err := io.Copy(entry, body); err != nil {
			body.Close()
			return err
		}
		body.Close()
	}

	return zw.Close()
}
