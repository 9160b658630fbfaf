package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"buggfix/internal/domain"
	"buggfix/internal/middleware"
	"buggfix/internal/service"
	"buggfix/pkg/response"
)

type WorkspaceHandler struct {
	workspaceService *service.WorkspaceService
}

func NewWorkspaceHandler(workspaceService *service.WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{
		workspaceService: workspaceService,
	}
}

// List returns the caller's workspace documents (at most one after the
// service collapses duplicates).
func (h *WorkspaceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	if userID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	workspaces, err := h.workspaceService.List(userID)
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}

	if workspaces == nil {
		workspaces = []*domain.Workspace{}
	}

	response.Success(w, workspaces)
}

// Save upserts the caller's single workspace document with the posted
// folder tree.
func (h *WorkspaceHandler) Save(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	if userID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req domain.SaveWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	workspace, err := h.workspaceService.Save(userID, &req)
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}

	response.JSON(w, http.StatusCreated, workspace)
}

func (h *WorkspaceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	if userID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	if err := h.workspaceService.Delete(userID); err != nil {
		if errors.Is(err, service.ErrWorkspaceNotFound) {
			response.NotFound(w, "workspace not found")
			return
		}
		response.InternalError(w, err.Error())
		return
	}

	response.Success(w, map[string]string{"message": "workspace removed"})
}
