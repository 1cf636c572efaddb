package repomanager

import (
	"context"
	"database/sql"

	"github.com/andrejsk/clouddrive/internal/dbx"
	"github.com/andrejsk/clouddrive/internal/server/repositories/shares"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Shares(db dbx.DBTX) shares.Repository
}
