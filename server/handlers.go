package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"fader/config"
	"fader/core/events"
	"fader/repository"
	"fader/storage"
)

// APIHandler carries the dependencies shared by all HTTP handlers.
type APIHandler struct {
	userRepo    repository.UserRepository
	projectRepo repository.ProjectRepository
	trackRepo   repository.TrackRepository
	versionRepo repository.VersionRepository
	commentRepo repository.CommentRepository
	store       *storage.MinioStore
	hub         *events.ProjectHub
	cfg         *config.Config
}

// NewAPIHandler creates the API handler.
func NewAPIHandler(
	userRepo repository.UserRepository,
	projectRepo repository.ProjectRepository,
	trackRepo repository.TrackRepository,
	versionRepo repository.VersionRepository,
	commentRepo repository.CommentRepository,
	store *storage.MinioStore,
	hub *events.ProjectHub,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		userRepo:    userRepo,
		projectRepo: projectRepo,
		trackRepo:   trackRepo,
		versionRepo: versionRepo,
		commentRepo: commentRepo,
		store:       store,
		hub:         hub,
		cfg:         cfg,
	}
}

// respondJSON writes a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// respondError writes the API error contract: {"error": "..."} with a non-2xx
// status.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// pathID extracts a numeric path variable.
func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[name], 10, 64)
}
