package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/andrejsk/clouddrive/internal/common"
	"github.com/andrejsk/clouddrive/internal/server/models"
	"github.com/andrejsk/clouddrive/internal/server/transfer"
)

type presignUploadsRequest struct {
	Location []string                `json:"location"`
	Files    []models.FileDescriptor `json:"files"`
}

type presignUploadsResponse struct {
	Uploads []transfer.PresignedUpload `json:"uploads"`
}

func (s *HTTPServer) handlePresignUploads(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req presignUploadsRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(req.Files) == 0 {
		s.writeError(w, r, fmt.Errorf("no files given: %w", common.ErrInvalidArgument))
		return
	}

	uploads, err := s.transfer.PresignUploads(r.Context(), ownerID, req.Files, req.Location)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, presignUploadsResponse{Uploads: uploads})
}

type presignDownloadResponse struct {
	URL string `json:"url"`
}

func (s *HTTPServer) handlePresignDownload(w http.ResponseWriter, r *http.Request, ownerID string) {
	q := r.URL.Query()
	location := parseLocation(q.Get("location"))
	name := q.Get("name")

	url, err := s.transfer.PresignDownload(r.Context(), ownerID, location, name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, presignDownloadResponse{URL: url})
}

// handleFolderZip streams the archive straight into the response body. The
// body is chunked by net/http; once the first byte is written the status is
// committed, so a mid-stream failure can only cut the stream short.
func (s *HTTPServer) handleFolderZip(w http.ResponseWriter, r *http.Request, ownerID string) {
	q := r.URL.Query()
	location := parseLocation(q.Get("location"))
	name := q.Get("name")
	if name == "" {
		s.writeError(w, r, fmt.Errorf("folder name required: %w", common.ErrInvalidArgument))
		return
	}

	fullLocation := append(append([]string{}, location...), name)

	// The folder must exist before headers go out, otherwise a 404 could
	// no longer be sent.
	info, err := s.vfs.ValidatePath(r.Context(), ownerID, fullLocation)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !info.Valid || info.Type != models.ItemTypeFolder {
		s.writeError(w, r, fmt.Errorf("folder %q: %w", name, common.ErrNotFound))
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".zip"))

	if err := s.transfer.StreamFolderZip(r.Context(), ownerID, fullLocation, w); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// Validation passed but the listing came back empty; nothing
			// was written yet so a clean 404 is still possible.
			s.writeError(w, r, err)
			return
		}
		s.logger.Error(r.Context(), "zip stream aborted", "folder", name, "error", err.Error())
	}
}
