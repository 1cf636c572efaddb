package vfs

import (
	"context"
	"sort"
	"strings"

	"github.com/andrejsk/clouddrive/internal/server/keymap"
	"github.com/andrejsk/clouddrive/internal/server/models"
)

// List returns the direct children of the folder at location, folders first
// and then case-insensitive name order. The order is computed here and does
// not depend on how the store happens to return keys.
func (s *Service) List(ctx context.Context, ownerID string, location []string) ([]models.Item, error) {
	if err := keymap.ValidateLocation(location); err != nil {
		return nil, err
	}

	store, err := s.scope.Scoped(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	prefix := keymap.PrivateKey(ownerID, location, "", true)

	var items []models.Item
	token := ""
	for {
		page, err := store.List(ctx, prefix, keymap.Separator, token, listPageSize)
		if err != nil {
			return nil, err
		}

		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(cp, prefix), keymap.Separator)
			if name == "" {
				continue
			}
			items = append(items, models.Item{
				Name:     name,
				Type:     models.ItemTypeFolder,
				Location: location,
			})
		}

		for _, o := range page.Objects {
			// The folder's own marker lists under its prefix; skip it.
			if o.Key == prefix {
				continue
			}
			items = append(items, models.Item{
				Name:         strings.TrimPrefix(o.Key, prefix),
				Type:         models.ItemTypeFile,
				Location:     location,
				Size:         o.Size,
				LastModified: o.LastModified,
				ContentTag:   o.ETag,
			})
		}

		if !page.Truncated {
			break
		}
		token = page.NextToken
	}

	sortItems(items)
	return items, nil
}

// sortItems applies the stable total order callers rely on for rendering:
// folders before files, then case-insensitive name comparison.
func sortItems(items []models.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Type != items[j].Type {
			return items[i].Type == models.ItemTypeFolder
		}
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})
}
