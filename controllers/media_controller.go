package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"vibe_server/middleware"
	"vibe_server/models"
	"vibe_server/services"
)

// MediaController handles the media lifecycle endpoints under a profile.
type MediaController struct {
	MediaService *services.MediaService
}

func NewMediaController(mediaService *services.MediaService) *MediaController {
	return &MediaController{MediaService: mediaService}
}

// RequestUpload handles POST /api/profiles/{profileId}/media.
func (c *MediaController) RequestUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, models.NewUnauthorizedError("not authenticated"))
		return
	}
	profileID := mux.Vars(r)["profileId"]

	var req models.UploadRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	credential, err := c.MediaService.RequestUpload(r.Context(), userID, profileID, &req)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, credential)
}

// CompleteUpload handles POST /api/profiles/{profileId}/media/{mediaId}.
func (c *MediaController) CompleteUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, models.NewUnauthorizedError("not authenticated"))
		return
	}
	vars := mux.Vars(r)

	var report models.CompletionReport
	if err := DecodeJSON(r, &report); err != nil {
		WriteError(w, err)
		return
	}

	result, err := c.MediaService.CompleteUpload(r.Context(), userID, vars["profileId"], vars["mediaId"], &report)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// ListMedia handles GET /api/profiles/{profileId}/media.
func (c *MediaController) ListMedia(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, models.NewUnauthorizedError("not authenticated"))
		return
	}
	profileID := mux.Vars(r)["profileId"]

	media, err := c.MediaService.ListProfileMedia(r.Context(), userID, profileID)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"media": media})
}

// GetMediaStatus handles GET /api/profiles/{profileId}/media/{mediaId}.
func (c *MediaController) GetMediaStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, models.NewUnauthorizedError("not authenticated"))
		return
	}
	vars := mux.Vars(r)

	media, err := c.MediaService.GetMediaStatus(r.Context(), userID, vars["profileId"], vars["mediaId"])
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, media)
}

// DeleteMedia handles DELETE /api/profiles/{profileId}/media/{mediaId}.
func (c *MediaController) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, models.NewUnauthorizedError("not authenticated"))
		return
	}
	vars := mux.Vars(r)

	if err := c.MediaService.DeleteMedia(r.Context(), userID, vars["profileId"], vars["mediaId"]); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": "media deleted"})
}

// ReorderMedia handles PUT /api/profiles/{profileId}/media.
func (c *MediaController) ReorderMedia(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, models.NewUnauthorizedError("not authenticated"))
		return
	}
	profileID := mux.Vars(r)["profileId"]

	var req struct {
		SortedMediaIDs []string `json:"sortedMediaIds"`
	}
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	profile, err := c.MediaService.ReorderMedia(r.Context(), userID, profileID, req.SortedMediaIDs)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"activeMediaIds": profile.ActiveMediaIDs,
	})
}
