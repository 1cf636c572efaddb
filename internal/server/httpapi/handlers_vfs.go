package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/andrejsk/clouddrive/internal/common"
	"github.com/andrejsk/clouddrive/internal/server/models"
	"github.com/andrejsk/clouddrive/internal/server/vfs"
)

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", common.ErrInvalidArgument)
	}
	return nil
}

// mutationResponse is the envelope every mutating operation answers with:
// a success flag, a human-readable message, and operation-specific payload.
type mutationResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Result  *vfs.BatchResult    `json:"result,omitempty"`
	Share   *models.ShareRecord `json:"share,omitempty"`
}

// writeBatchResult answers 200 for a clean batch and 207 when some keys
// failed, so clients can retry the listed subset.
func writeBatchResult(w http.ResponseWriter, verb string, result vfs.BatchResult) {
	status := http.StatusOK
	resp := mutationResponse{Success: true, Message: verb + " completed", Result: &result}
	if !result.AllOK() {
		status = http.StatusMultiStatus
		resp.Success = false
		resp.Message = fmt.Sprintf("%s incomplete: %d of %d keys failed", verb, len(result.FailedKeys), result.Total)
	}
	writeJSON(w, status, resp)
}

type listResponse struct {
	Items []models.Item `json:"items"`
}

func (s *HTTPServer) handleList(w http.ResponseWriter, r *http.Request, ownerID string) {
	location := parseLocation(r.URL.Query().Get("location"))

	items, err := s.vfs.List(r.Context(), ownerID, location)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{Items: items})
}

func (s *HTTPServer) handleValidatePath(w http.ResponseWriter, r *http.Request, ownerID string) {
	location := parseLocation(r.URL.Query().Get("path"))

	info, err := s.vfs.ValidatePath(r.Context(), ownerID, location)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

type createFolderRequest struct {
	Location []string `json:"location"`
	Name     string   `json:"name"`
}

func (s *HTTPServer) handleCreateFolder(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req createFolderRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.vfs.CreateFolder(r.Context(), ownerID, req.Location, req.Name); err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, mutationResponse{Success: true, Message: fmt.Sprintf("folder %q created", req.Name)})
}

type renameRequest struct {
	Location []string        `json:"location"`
	OldName  string          `json:"oldName"`
	NewName  string          `json:"newName"`
	ItemType models.ItemType `json:"itemType"`
}

func (s *HTTPServer) handleRename(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req renameRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.vfs.Rename(r.Context(), ownerID, req.ItemType, req.OldName, req.NewName, req.Location)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeBatchResult(w, "rename", result)
}

func (s *HTTPServer) handleMove(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req vfs.MoveRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.vfs.Move(r.Context(), ownerID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeBatchResult(w, "move", result)
}

type deleteRequest struct {
	Location []string        `json:"location"`
	Name     string          `json:"name"`
	ItemType models.ItemType `json:"itemType"`
}

func (s *HTTPServer) handleDelete(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req deleteRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.vfs.Delete(r.Context(), ownerID, req.ItemType, req.Name, req.Location)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeBatchResult(w, "delete", result)
}
