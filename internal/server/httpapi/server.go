// Package httpapi exposes the drive over HTTP/JSON: the private API behind
// bearer tokens and the small public surface for shared items.
package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/andrejsk/clouddrive/internal/logging"
	"github.com/andrejsk/clouddrive/internal/server/services"
	"github.com/andrejsk/clouddrive/internal/server/transfer"
	"github.com/andrejsk/clouddrive/internal/server/vfs"
)

type HTTPServer struct {
	address   string
	vfs       *vfs.Service
	transfer  *transfer.Service
	shares    *services.ShareService
	jwtSecret []byte
	logger    logging.Logger
}

func NewHTTPServer(address string, l logging.Logger, vs *vfs.Service, ts *transfer.Service, ss *services.ShareService, secretKey string) *HTTPServer {
	return &HTTPServer{
		address:   address,
		vfs:       vs,
		transfer:  ts,
		shares:    ss,
		jwtSecret: []byte(secretKey),
		logger:    l.With("module", "http_server"),
	}
}

func (s *HTTPServer) routes() http.Handler {
	mux := http.NewServeMux()

	// private API
	mux.HandleFunc("GET /api/items", s.withAuth(s.handleList))
	mux.HandleFunc("GET /api/items/validate", s.withAuth(s.handleValidatePath))
	mux.HandleFunc("POST /api/folders", s.withAuth(s.handleCreateFolder))
	mux.HandleFunc("POST /api/items/rename", s.withAuth(s.handleRename))
	mux.HandleFunc("POST /api/items/move", s.withAuth(s.handleMove))
	mux.HandleFunc("POST /api/items/delete", s.withAuth(s.handleDelete))
	mux.HandleFunc("POST /api/uploads", s.withAuth(s.handlePresignUploads))
	mux.HandleFunc("GET /api/downloads", s.withAuth(s.handlePresignDownload))
	mux.HandleFunc("GET /api/folders/zip", s.withAuth(s.handleFolderZip))
	mux.HandleFunc("POST /api/shares", s.withAuth(s.handleShare))
	mux.HandleFunc("GET /api/shares", s.withAuth(s.handleListShares))
	mux.HandleFunc("GET /api/shares/status", s.withAuth(s.handleShareStatus))
	mux.HandleFunc("POST /api/shares/rename", s.withAuth(s.handleRenameShare))
	mux.HandleFunc("DELETE /api/shares/{name}", s.withAuth(s.handleUnshare))
	mux.HandleFunc("PUT /api/shares/{name}/featured", s.withAuth(s.handleSetFeatured))

	// public surface, no token
	mux.HandleFunc("GET /public/shares/{name}", s.handlePublicShare)
	mux.HandleFunc("GET /public/shares/{name}/download", s.handlePublicDownload)
	mux.HandleFunc("GET /public/featured", s.handleFeatured)

	return s.withLogging(mux)
}

func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// parseLocation turns a slash-joined query value into folder segments.
func parseLocation(raw string) []string {
	if raw == "" {
		return nil
	}
	var segments []string
	for _, seg := range strings.Split(raw, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}
