package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"fader/core/events"
	"fader/logger"
	"fader/model"
	"fader/repository"
)

// ListCommentsHandler returns a version's comment thread. Resolved top-level
// comments are hidden unless includeResolved=true.
func (h *APIHandler) ListCommentsHandler(w http.ResponseWriter, r *http.Request) {
	versionID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid version id")
		return
	}

	includeResolved := r.URL.Query().Get("includeResolved") == "true"
	comments, err := h.commentRepo.ListThread(r.Context(), versionID, includeResolved)
	if err != nil {
		logger.Error("failed to list comments", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to list comments")
		return
	}
	respondJSON(w, http.StatusOK, comments)
}

// CreateCommentHandler posts a comment or reply on a version. A reply aimed
// at another reply lands on the thread's top-level comment instead.
func (h *APIHandler) CreateCommentHandler(w http.ResponseWriter, r *http.Request) {
	versionID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid version id")
		return
	}

	var req struct {
		Content   string   `json:"content"`
		Timestamp *float64 `json:"timestamp"`
		ParentID  *int64   `json:"parentId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == "" {
		respondError(w, http.StatusBadRequest, "comment content is required")
		return
	}
	if req.Timestamp != nil && *req.Timestamp < 0 {
		respondError(w, http.StatusBadRequest, "timestamp must not be negative")
		return
	}

	userID := GetUserIDFromContext(r.Context())
	comment := &model.Comment{
		VersionID: versionID,
		AuthorID:  &userID,
		Content:   req.Content,
		Timestamp: req.Timestamp,
		ParentID:  req.ParentID,
	}
	if err := h.commentRepo.Create(r.Context(), comment); err != nil {
		switch {
		case errors.Is(err, repository.ErrParentNotFound):
			respondError(w, http.StatusNotFound, "parent comment not found")
		case errors.Is(err, repository.ErrParentVersionMismatch):
			respondError(w, http.StatusBadRequest, "parent comment belongs to a different version")
		default:
			logger.Error("failed to create comment", logger.ErrorField(err))
			respondError(w, http.StatusInternalServerError, "failed to create comment")
		}
		return
	}

	h.publishCommentEvent(r, versionID, events.MsgTypeCommentCreated, comment)
	respondJSON(w, http.StatusCreated, comment)
}

// DeleteCommentHandler deletes a comment; a top-level comment takes its
// replies with it.
func (h *APIHandler) DeleteCommentHandler(w http.ResponseWriter, r *http.Request) {
	commentID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid comment id")
		return
	}

	if err := h.commentRepo.Delete(r.Context(), commentID); err != nil {
		if errors.Is(err, repository.ErrCommentNotFound) {
			respondError(w, http.StatusNotFound, "comment not found")
			return
		}
		logger.Error("failed to delete comment", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to delete comment")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ResolveCommentHandler marks a timestamped top-level comment resolved.
// Resolving twice is a conflict, not a no-op.
func (h *APIHandler) ResolveCommentHandler(w http.ResponseWriter, r *http.Request) {
	commentID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid comment id")
		return
	}

	userID := GetUserIDFromContext(r.Context())
	if err := h.commentRepo.Resolve(r.Context(), commentID, userID); err != nil {
		switch {
		case errors.Is(err, repository.ErrCommentNotFound):
			respondError(w, http.StatusNotFound, "comment not found")
		case errors.Is(err, repository.ErrNotResolvable):
			respondError(w, http.StatusBadRequest, "only top-level timestamped comments can be resolved")
		case errors.Is(err, repository.ErrAlreadyResolved):
			respondError(w, http.StatusConflict, "comment is already resolved")
		default:
			logger.Error("failed to resolve comment", logger.ErrorField(err))
			respondError(w, http.StatusInternalServerError, "failed to resolve comment")
		}
		return
	}

	if comment, err := h.commentRepo.GetByID(r.Context(), commentID); err == nil && comment != nil {
		h.publishCommentEvent(r, comment.VersionID, events.MsgTypeCommentResolved, comment)
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}

// UnresolveCommentHandler reopens a resolved comment. Unresolving an open
// comment is a conflict.
func (h *APIHandler) UnresolveCommentHandler(w http.ResponseWriter, r *http.Request) {
	commentID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid comment id")
		return
	}

	if err := h.commentRepo.Unresolve(r.Context(), commentID); err != nil {
		switch {
		case errors.Is(err, repository.ErrCommentNotFound):
			respondError(w, http.StatusNotFound, "comment not found")
		case errors.Is(err, repository.ErrNotResolvable):
			respondError(w, http.StatusBadRequest, "only top-level timestamped comments can be resolved")
		case errors.Is(err, repository.ErrNotResolved):
			respondError(w, http.StatusConflict, "comment is not resolved")
		default:
			logger.Error("failed to unresolve comment", logger.ErrorField(err))
			respondError(w, http.StatusInternalServerError, "failed to unresolve comment")
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "unresolved"})
}

// publishCommentEvent resolves the comment's project and pushes a hub event.
// Event delivery is best-effort; a failed lookup only skips the broadcast.
func (h *APIHandler) publishCommentEvent(r *http.Request, versionID int64, msgType string, payload any) {
	version, err := h.versionRepo.GetByID(r.Context(), versionID)
	if err != nil || version == nil {
		return
	}
	track, err := h.trackRepo.GetByID(r.Context(), version.TrackID)
	if err != nil || track == nil {
		return
	}
	h.hub.Publish(track.ProjectID, msgType, payload)
}
