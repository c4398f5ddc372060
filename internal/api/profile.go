package api

import (
	"log/slog"
	"net/http"

	"github.com/mathmate-ai/mathmate/internal/domain"
	"github.com/mathmate-ai/mathmate/internal/tutor"
)

// GetUserProfile returns the learning profile for a user, creating an
// empty one on first access.
func (h *Handler) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	userID := tutor.NormalizeUserID(r.URL.Query().Get("user_id"))

	profile, err := h.tutor.Profile(r.Context(), userID)
	if err != nil {
		slog.Error("failed to load profile", "user_id", userID, "error", err)
		JSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"profile": profile,
	})
}

type profileUpdateRequest struct {
	UserID string `json:"user_id,omitempty"`
	domain.ProfileUpdate
}

// UpdateUserProfile applies one incremental update to a user's profile and
// returns the updated record.
func (h *Handler) UpdateUserProfile(w http.ResponseWriter, r *http.Request) {
	var req profileUpdateRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	userID := tutor.NormalizeUserID(req.UserID)
	profile, err := h.tutor.UpdateProfile(r.Context(), userID, req.ProfileUpdate)
	if err != nil {
		slog.Error("failed to update profile", "user_id", userID, "error", err)
		JSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"profile": profile,
	})
}
