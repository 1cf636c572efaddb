// Package server wires the application together: configuration, database,
// object store scoping, the domain services and the HTTP endpoint, plus
// graceful shutdown on OS signals.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/andrejsk/clouddrive/internal/logging"
	"github.com/andrejsk/clouddrive/internal/server/config"
	"github.com/andrejsk/clouddrive/internal/server/httpapi"
	"github.com/andrejsk/clouddrive/internal/server/objstore"
	"github.com/andrejsk/clouddrive/internal/server/repositories/repomanager"
	"github.com/andrejsk/clouddrive/internal/server/services"
	"github.com/andrejsk/clouddrive/internal/server/transfer"
	"github.com/andrejsk/clouddrive/internal/server/vfs"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB

	vfsService      *vfs.Service
	transferService *transfer.Service
	shareService    *services.ShareService
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	handler := slog.NewJSONHandler(os.Stdout, nil)
	logger := logging.NewSlogLogger(slog.New(handler))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	scoper := objstore.NewScoper(cfg)

	vs := vfs.NewService(scoper, logger)
	ts := transfer.NewService(scoper, cfg, logger)
	ss := services.NewShareService(db, rm, scoper, cfg, logger)

	return &App{
		config:          cfg,
		logger:          logger,
		db:              db,
		vfsService:      vs,
		transferService: ts,
		shareService:    ss,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewHTTPServer(
		app.config.EndpointAddrHTTP,
		app.logger,
		app.vfsService,
		app.transferService,
		app.shareService,
		app.config.SecretKey,
	)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}
}
