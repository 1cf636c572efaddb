// Package shares persists ShareRecord rows. The unique primary key on
// share_name is the authority on name collisions: a lost claim surfaces as
// common.ErrConflict, never as a racy check-then-insert in application code.
package shares

import (
	"context"

	"github.com/andrejsk/clouddrive/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, rec *models.ShareRecord) error
	GetByName(ctx context.Context, shareName string) (*models.ShareRecord, error)
	GetByOwnerItem(ctx context.Context, ownerID, itemName string) (*models.ShareRecord, error)
	Rename(ctx context.Context, ownerID, oldName, newName string) error
	Delete(ctx context.Context, ownerID, shareName string) error
	IncrementViews(ctx context.Context, shareName string) (int64, error)
	SetFeatured(ctx context.Context, ownerID, shareName string, featured bool) error
	ListByOwner(ctx context.Context, ownerID string) ([]*models.ShareRecord, error)
	ListFeatured(ctx context.Context, limit int) ([]*models.ShareRecord, error)
}
