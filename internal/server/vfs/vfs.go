// Package vfs makes the flat object namespace behave like a hierarchical
// filesystem: folder listing and type inference over prefix queries, marker
// objects for empty folders, and rename/move/delete implemented as bulk key
// rewrites with explicit partial-failure reporting.
package vfs

import (
	"github.com/andrejsk/clouddrive/internal/logging"
	"github.com/andrejsk/clouddrive/internal/server/objstore"
)

// listPageSize is the page size used when enumerating descendant keys.
const listPageSize = 1000

type Service struct {
	scope  objstore.ScopeProvider
	logger logging.Logger
}

func NewService(scope objstore.ScopeProvider, logger logging.Logger) *Service {
	return &Service{
		scope:  scope,
		logger: logger.With("module", "vfs"),
	}
}

