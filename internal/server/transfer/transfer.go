// Package transfer moves bulk bytes without routing them through the
// application tier: presigned upload/download URLs for single objects, and
// an on-the-fly ZIP stream for whole-folder downloads.
package transfer

import (
	"github.com/andrejsk/clouddrive/internal/logging"
	sc "github.com/andrejsk/clouddrive/internal/server/config"
	"github.com/andrejsk/clouddrive/internal/server/objstore"
)

type Service struct {
	scope  objstore.ScopeProvider
	config *sc.Config
	logger logging.Logger
}

func NewService(scope objstore.ScopeProvider, config *sc.Config, logger logging.Logger) *Service {
	return &Service{
		scope:  scope,
		config: config,
		logger: logger.With("module", "transfer"),
	}
}
