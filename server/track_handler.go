package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"fader/core/events"
	"fader/logger"
	"fader/model"
	"fader/queue"
	"fader/repository"
)

// CreateTrackHandler creates a track together with its first version. The
// audio object must already be uploaded; the request carries its key.
func (h *APIHandler) CreateTrackHandler(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	var req struct {
		Name      string `json:"name"`
		ObjectKey string `json:"objectKey"`
		Notes     string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.ObjectKey == "" {
		respondError(w, http.StatusBadRequest, "track name and objectKey are required")
		return
	}

	track := &model.Track{
		ProjectID: projectID,
		Name:      req.Name,
	}
	if err := h.trackRepo.Create(r.Context(), track); err != nil {
		logger.Error("failed to create track", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to create track")
		return
	}

	version := &model.Version{
		TrackID:   track.ID,
		ObjectKey: req.ObjectKey,
		Notes:     req.Notes,
	}
	if err := h.versionRepo.Create(r.Context(), version); err != nil {
		logger.Error("failed to create first version",
			logger.Int64("track", track.ID),
			logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to create first version")
		return
	}

	track.VersionCount = 1
	logger.Info("track created",
		logger.Int64("project", projectID),
		logger.Int64("track", track.ID),
		logger.String("name", track.Name))

	h.hub.Publish(projectID, events.MsgTypeVersionCreated, version)
	respondJSON(w, http.StatusCreated, track)
}

// ListTracksHandler lists a project's tracks.
func (h *APIHandler) ListTracksHandler(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	tracks, err := h.trackRepo.ListByProject(r.Context(), projectID)
	if err != nil {
		logger.Error("failed to list tracks", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to list tracks")
		return
	}
	respondJSON(w, http.StatusOK, tracks)
}

// GetTrackHandler fetches one track.
func (h *APIHandler) GetTrackHandler(w http.ResponseWriter, r *http.Request) {
	trackID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid track id")
		return
	}

	track, err := h.trackRepo.GetByID(r.Context(), trackID)
	if err != nil {
		logger.Error("failed to load track", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to load track")
		return
	}
	if track == nil {
		respondError(w, http.StatusNotFound, "track not found")
		return
	}
	respondJSON(w, http.StatusOK, track)
}

// RenameTrackHandler changes a track's display name.
func (h *APIHandler) RenameTrackHandler(w http.ResponseWriter, r *http.Request) {
	trackID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid track id")
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "track name is required")
		return
	}

	if err := h.trackRepo.Rename(r.Context(), trackID, req.Name); err != nil {
		if errors.Is(err, repository.ErrTrackNotFound) {
			respondError(w, http.StatusNotFound, "track not found")
			return
		}
		logger.Error("failed to rename track", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to rename track")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "renamed"})
}

// DeleteTrackHandler deletes a track with every version and comment under it.
// Catalog rows go first; stored objects are removed best-effort afterwards
// and failures are handed to the sweep queue.
func (h *APIHandler) DeleteTrackHandler(w http.ResponseWriter, r *http.Request) {
	trackID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid track id")
		return
	}

	track, err := h.trackRepo.GetByID(r.Context(), trackID)
	if err != nil {
		logger.Error("failed to load track", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to load track")
		return
	}
	if track == nil {
		respondError(w, http.StatusNotFound, "track not found")
		return
	}

	objectKeys, err := h.trackRepo.Delete(r.Context(), trackID)
	if err != nil {
		logger.Error("failed to delete track", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to delete track")
		return
	}

	h.cleanupObjects(objectKeys)

	logger.Info("track deleted",
		logger.Int64("track", trackID),
		logger.Int("versions", len(objectKeys)))
	h.hub.Publish(track.ProjectID, events.MsgTypeTrackDeleted, map[string]int64{"trackId": trackID})
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// cleanupObjects removes stored objects best-effort. A failed removal never
// fails the request; it is retried out-of-band by the sweep worker.
func (h *APIHandler) cleanupObjects(objectKeys []string) {
	for _, key := range objectKeys {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := h.store.RemoveObject(ctx, key)
		cancel()
		if err == nil {
			continue
		}
		logger.Warn("failed to remove object, scheduling sweep",
			logger.String("objectKey", key),
			logger.ErrorField(err))
		if err := queue.EnqueueSweep(context.Background(), key); err != nil {
			logger.Error("failed to enqueue sweep",
				logger.String("objectKey", key),
				logger.ErrorField(err))
		}
	}
}
