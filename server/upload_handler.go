package server

import (
	"encoding/json"
	"net/http"

	"fader/logger"
	"fader/storage"
)

// PresignUploadHandler hands out a single-shot PUT URL. The client supplies
// the project and file name; the server owns key construction.
func (h *APIHandler) PresignUploadHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectID   int64  `json:"projectId"`
		FileName    string `json:"fileName"`
		ContentType string `json:"contentType"`
		ObjectKey   string `json:"objectKey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	objectKey := req.ObjectKey
	if objectKey == "" {
		if req.FileName == "" {
			respondError(w, http.StatusBadRequest, "fileName or objectKey is required")
			return
		}
		objectKey = storage.BuildObjectKey(req.ProjectID, req.FileName)
	}

	url, err := h.store.PresignPut(r.Context(), objectKey, req.ContentType, h.cfg.PartURLTTL)
	if err != nil {
		logger.Error("failed to presign upload", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to presign upload")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"url":       url,
		"objectKey": objectKey,
	})
}

// OpenMultipartHandler opens a multipart upload session.
func (h *APIHandler) OpenMultipartHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectID   int64  `json:"projectId"`
		FileName    string `json:"fileName"`
		ContentType string `json:"contentType"`
		ObjectKey   string `json:"objectKey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	objectKey := req.ObjectKey
	if objectKey == "" {
		if req.FileName == "" {
			respondError(w, http.StatusBadRequest, "fileName or objectKey is required")
			return
		}
		objectKey = storage.BuildObjectKey(req.ProjectID, req.FileName)
	}

	uploadID, err := h.store.OpenMultipart(r.Context(), objectKey, req.ContentType)
	if err != nil {
		logger.Error("failed to open multipart session", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to open multipart session")
		return
	}

	logger.Info("multipart session opened",
		logger.String("objectKey", objectKey),
		logger.String("uploadId", uploadID))
	respondJSON(w, http.StatusOK, map[string]string{
		"uploadId":  uploadID,
		"objectKey": objectKey,
	})
}

// PresignPartsHandler returns one PUT URL per requested part number.
func (h *APIHandler) PresignPartsHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ObjectKey   string `json:"objectKey"`
		UploadID    string `json:"uploadId"`
		PartNumbers []int  `json:"partNumbers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ObjectKey == "" || req.UploadID == "" || len(req.PartNumbers) == 0 {
		respondError(w, http.StatusBadRequest, "objectKey, uploadId and partNumbers are required")
		return
	}

	parts, err := h.store.PresignParts(r.Context(), req.ObjectKey, req.UploadID, req.PartNumbers, h.cfg.PartURLTTL)
	if err != nil {
		logger.Error("failed to presign parts", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to presign parts")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"parts": parts})
}

// CompleteMultipartHandler finalizes a multipart session from the uploaded
// part list.
func (h *APIHandler) CompleteMultipartHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ObjectKey string                  `json:"objectKey"`
		UploadID  string                  `json:"uploadId"`
		Parts     []storage.CompletedPart `json:"parts"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ObjectKey == "" || req.UploadID == "" || len(req.Parts) == 0 {
		respondError(w, http.StatusBadRequest, "objectKey, uploadId and parts are required")
		return
	}
	for _, p := range req.Parts {
		if p.ETag == "" {
			respondError(w, http.StatusBadRequest, "every part needs an etag")
			return
		}
	}

	if err := h.store.CompleteMultipart(r.Context(), req.ObjectKey, req.UploadID, req.Parts); err != nil {
		logger.Error("failed to complete multipart session", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to complete multipart session")
		return
	}

	logger.Info("multipart session completed",
		logger.String("objectKey", req.ObjectKey),
		logger.Int("parts", len(req.Parts)))
	respondJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

// AbortMultipartHandler discards a multipart session.
func (h *APIHandler) AbortMultipartHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ObjectKey string `json:"objectKey"`
		UploadID  string `json:"uploadId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ObjectKey == "" || req.UploadID == "" {
		respondError(w, http.StatusBadRequest, "objectKey and uploadId are required")
		return
	}

	if err := h.store.AbortMultipart(r.Context(), req.ObjectKey, req.UploadID); err != nil {
		logger.Error("failed to abort multipart session", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to abort multipart session")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "aborted"})
}
