package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/andrejsk/clouddrive/internal/server/models"
	"github.com/andrejsk/clouddrive/internal/server/services"
)

func (s *HTTPServer) handleShare(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req services.ShareRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	rec, err := s.shares.Share(r.Context(), ownerID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, mutationResponse{
		Success: true,
		Message: fmt.Sprintf("shared as %q", rec.ShareName),
		Share:   rec,
	})
}

type sharesResponse struct {
	Shares []*models.ShareRecord `json:"shares"`
}

func (s *HTTPServer) handleListShares(w http.ResponseWriter, r *http.Request, ownerID string) {
	recs, err := s.shares.ListShares(r.Context(), ownerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sharesResponse{Shares: recs})
}

type shareStatusResponse struct {
	Status models.ShareStatus  `json:"status"`
	Share  *models.ShareRecord `json:"share,omitempty"`
}

func (s *HTTPServer) handleShareStatus(w http.ResponseWriter, r *http.Request, ownerID string) {
	q := r.URL.Query()

	status, rec, err := s.shares.CheckShared(r.Context(), ownerID, q.Get("itemName"), q.Get("sourceTag"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, shareStatusResponse{Status: status, Share: rec})
}

type renameShareRequest struct {
	OldName string `json:"oldName"`
	NewName string `json:"newName"`
}

func (s *HTTPServer) handleRenameShare(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req renameShareRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.shares.RenameShare(r.Context(), ownerID, req.OldName, req.NewName); err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, mutationResponse{Success: true, Message: fmt.Sprintf("share renamed to %q", req.NewName)})
}

func (s *HTTPServer) handleUnshare(w http.ResponseWriter, r *http.Request, ownerID string) {
	name := r.PathValue("name")
	if err := s.shares.Unshare(r.Context(), ownerID, name); err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, mutationResponse{Success: true, Message: fmt.Sprintf("share %q removed", name)})
}

type setFeaturedRequest struct {
	Featured bool `json:"featured"`
}

func (s *HTTPServer) handleSetFeatured(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req setFeaturedRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.shares.SetFeatured(r.Context(), ownerID, r.PathValue("name"), req.Featured); err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, mutationResponse{Success: true, Message: "featured flag updated"})
}

// handlePublicShare serves the public view of a share and counts the visit.
func (s *HTTPServer) handlePublicShare(w http.ResponseWriter, r *http.Request) {
	rec, err := s.shares.RecordView(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (s *HTTPServer) handlePublicDownload(w http.ResponseWriter, r *http.Request) {
	url, err := s.shares.PresignShareDownload(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, presignDownloadResponse{URL: url})
}

func (s *HTTPServer) handleFeatured(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	recs, err := s.shares.ListFeatured(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sharesResponse{Shares: recs})
}
