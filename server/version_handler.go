package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"

	"fader/cache"
	"fader/core/events"
	"fader/core/peaks"
	"fader/logger"
	"fader/model"
	"fader/repository"
)

// ListVersionsHandler lists a track's versions with presigned audio URLs.
func (h *APIHandler) ListVersionsHandler(w http.ResponseWriter, r *http.Request) {
	trackID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid track id")
		return
	}

	versions, err := h.versionRepo.ListByTrack(r.Context(), trackID)
	if err != nil {
		logger.Error("failed to list versions", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to list versions")
		return
	}

	for _, v := range versions {
		url, err := h.store.PresignGet(r.Context(), v.ObjectKey, h.cfg.PartURLTTL)
		if err != nil {
			logger.Warn("failed to presign audio url",
				logger.Int64("version", v.ID),
				logger.ErrorField(err))
			continue
		}
		v.AudioURL = url
	}
	respondJSON(w, http.StatusOK, versions)
}

// CreateVersionHandler appends a version to a track. The version number is
// assigned inside the repository transaction, never by the client.
func (h *APIHandler) CreateVersionHandler(w http.ResponseWriter, r *http.Request) {
	trackID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid track id")
		return
	}

	var req struct {
		ObjectKey string `json:"objectKey"`
		Notes     string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ObjectKey == "" {
		respondError(w, http.StatusBadRequest, "objectKey is required")
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

	version := &model.Version{
		TrackID:   trackID,
		ObjectKey: req.ObjectKey,
		Notes:     req.Notes,
	}
	if err := h.versionRepo.Create(r.Context(), version); err != nil {
		logger.Error("failed to create version", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to create version")
		return
	}

	logger.Info("version created",
		logger.Int64("track", trackID),
		logger.Int64("version", version.ID),
		logger.Int("number", version.Number))
	h.hub.Publish(track.ProjectID, events.MsgTypeVersionCreated, version)
	respondJSON(w, http.StatusCreated, version)
}

// UpdateVersionNotesHandler replaces a version's notes, the only mutable
// version field.
func (h *APIHandler) UpdateVersionNotesHandler(w http.ResponseWriter, r *http.Request) {
	versionID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid version id")
		return
	}

	var req struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.versionRepo.UpdateNotes(r.Context(), versionID, req.Notes); err != nil {
		if errors.Is(err, repository.ErrVersionNotFound) {
			respondError(w, http.StatusNotFound, "version not found")
			return
		}
		logger.Error("failed to update notes", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to update notes")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// SetMasterHandler marks a version as its track's master, atomically
// unsetting the previous one.
func (h *APIHandler) SetMasterHandler(w http.ResponseWriter, r *http.Request) {
	versionID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid version id")
		return
	}

	version, err := h.versionRepo.GetByID(r.Context(), versionID)
	if err != nil {
		logger.Error("failed to load version", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to load version")
		return
	}
	if version == nil {
		respondError(w, http.StatusNotFound, "version not found")
		return
	}

	if err := h.versionRepo.SetMaster(r.Context(), version.TrackID, versionID); err != nil {
		logger.Error("failed to set master", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to set master")
		return
	}

	track, err := h.trackRepo.GetByID(r.Context(), version.TrackID)
	if err == nil && track != nil {
		h.hub.Publish(track.ProjectID, events.MsgTypeMasterChanged, map[string]int64{
			"trackId":   version.TrackID,
			"versionId": versionID,
		})
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "master set"})
}

// DeleteVersionHandler removes a version. The row goes first, then the stored
// object best-effort with a sweep fallback.
func (h *APIHandler) DeleteVersionHandler(w http.ResponseWriter, r *http.Request) {
	versionID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid version id")
		return
	}

	objectKey, err := h.versionRepo.Delete(r.Context(), versionID)
	if err != nil {
		if errors.Is(err, repository.ErrVersionNotFound) {
			respondError(w, http.StatusNotFound, "version not found")
			return
		}
		logger.Error("failed to delete version", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to delete version")
		return
	}

	h.cleanupObjects([]string{objectKey})

	if err := cache.DeletePeaks(r.Context(), versionID); err != nil {
		logger.Warn("failed to drop cached peaks",
			logger.Int64("version", versionID),
			logger.ErrorField(err))
	}

	logger.Info("version deleted", logger.Int64("version", versionID))
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// StreamHandler redirects to a presigned GET for the version's audio.
func (h *APIHandler) StreamHandler(w http.ResponseWriter, r *http.Request) {
	versionID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid version id")
		return
	}

	version, err := h.versionRepo.GetByID(r.Context(), versionID)
	if err != nil {
		logger.Error("failed to load version", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to load version")
		return
	}
	if version == nil {
		respondError(w, http.StatusNotFound, "version not found")
		return
	}

	url, err := h.store.PresignGet(r.Context(), version.ObjectKey, h.cfg.PartURLTTL)
	if err != nil {
		logger.Error("failed to presign stream url", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to presign stream url")
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// GetPeaksHandler returns a version's waveform peaks, extracting and caching
// them on first request. Peaks for a version never change, so the first
// successful write wins.
func (h *APIHandler) GetPeaksHandler(w http.ResponseWriter, r *http.Request) {
	versionID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid version id")
		return
	}

	if cached, ok, err := cache.GetPeaks(r.Context(), versionID); err == nil && ok {
		respondJSON(w, http.StatusOK, map[string]any{"peaks": cached})
		return
	} else if err != nil {
		logger.Warn("peaks cache read failed", logger.ErrorField(err))
	}

	version, err := h.versionRepo.GetByID(r.Context(), versionID)
	if err != nil {
		logger.Error("failed to load version", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to load version")
		return
	}
	if version == nil {
		respondError(w, http.StatusNotFound, "version not found")
		return
	}

	object, err := h.store.GetObject(r.Context(), version.ObjectKey)
	if err != nil {
		logger.Error("failed to fetch audio object", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to fetch audio")
		return
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		logger.Error("failed to read audio object", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to read audio")
		return
	}

	extracted, err := peaks.Extract(data, path.Base(version.ObjectKey), peaks.DefaultBuckets)
	if err != nil {
		logger.Error("failed to extract peaks",
			logger.Int64("version", versionID),
			logger.ErrorField(err))
		respondError(w, http.StatusUnprocessableEntity, "failed to extract waveform peaks")
		return
	}

	if err := cache.SetPeaks(r.Context(), versionID, extracted); err != nil {
		logger.Warn("failed to cache peaks", logger.ErrorField(err))
	}
	respondJSON(w, http.StatusOK, map[string]any{"peaks": extracted})
}
