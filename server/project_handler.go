package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"fader/logger"
	"fader/model"
	"fader/repository"
)

// CreateProjectHandler creates a project owned by the caller.
func (h *APIHandler) CreateProjectHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "project name is required")
		return
	}

	project := &model.Project{
		Name:    req.Name,
		OwnerID: GetUserIDFromContext(r.Context()),
	}
	if err := h.projectRepo.Create(r.Context(), project); err != nil {
		logger.Error("failed to create project", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to create project")
		return
	}

	logger.Info("project created",
		logger.Int64("project", project.ID),
		logger.String("name", project.Name))
	respondJSON(w, http.StatusCreated, project)
}

// ListProjectsHandler lists the caller's projects.
func (h *APIHandler) ListProjectsHandler(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projectRepo.ListByOwner(r.Context(), GetUserIDFromContext(r.Context()))
	if err != nil {
		logger.Error("failed to list projects", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to list projects")
		return
	}
	respondJSON(w, http.StatusOK, projects)
}

// GetProjectHandler fetches one project.
func (h *APIHandler) GetProjectHandler(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	project, err := h.projectRepo.GetByID(r.Context(), projectID)
	if err != nil {
		logger.Error("failed to load project", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to load project")
		return
	}
	if project == nil {
		respondError(w, http.StatusNotFound, "project not found")
		return
	}
	respondJSON(w, http.StatusOK, project)
}

// CreateInvitationHandler invites an email address to a project.
func (h *APIHandler) CreateInvitationHandler(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		respondError(w, http.StatusBadRequest, "email is required")
		return
	}

	inv := &model.Invitation{
		ProjectID: projectID,
		Email:     req.Email,
		Token:     uuid.NewString(),
	}
	if err := h.projectRepo.CreateInvitation(r.Context(), inv); err != nil {
		logger.Error("failed to create invitation", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to create invitation")
		return
	}
	respondJSON(w, http.StatusCreated, inv)
}

// ListInvitationsHandler lists a project's invitations.
func (h *APIHandler) ListInvitationsHandler(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	invs, err := h.projectRepo.ListInvitations(r.Context(), projectID)
	if err != nil {
		logger.Error("failed to list invitations", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to list invitations")
		return
	}
	respondJSON(w, http.StatusOK, invs)
}

// AcceptInvitationHandler redeems an invitation token.
func (h *APIHandler) AcceptInvitationHandler(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	inv, err := h.projectRepo.AcceptInvitation(r.Context(), token)
	if err != nil {
		if errors.Is(err, repository.ErrInvitationNotFound) {
			respondError(w, http.StatusNotFound, "invitation not found")
			return
		}
		logger.Error("failed to accept invitation", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to accept invitation")
		return
	}
	respondJSON(w, http.StatusOK, inv)
}
