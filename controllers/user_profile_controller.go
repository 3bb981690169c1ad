package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"vibe_server/middleware"
	"vibe_server/models"
	"vibe_server/services"
)

// UserProfileController handles requests on the caller's profiles. Profile
// IDs come from the caller's pre-allocated pool, so every handler starts by
// checking ownership of the addressed ID.
type UserProfileController struct {
	ProfileService *services.ProfileService
}

func NewUserProfileController(profileService *services.ProfileService) *UserProfileController {
	return &UserProfileController{ProfileService: profileService}
}

// ListProfiles handles GET /api/profiles.
func (c *UserProfileController) ListProfiles(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, models.NewUnauthorizedError("not authenticated"))
		return
	}

	user, err := c.ProfileService.Users.GetUser(r.Context(), userID)
	if err != nil {
		WriteError(w, err)
		return
	}
	profiles, err := c.ProfileService.ListProfiles(r.Context(), user)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"profiles":            profiles,
		"allocatedProfileIds": user.AllocatedProfileIDs,
	})
}

// GetProfile handles GET /api/profiles/{profileId}.
func (c *UserProfileController) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, models.NewUnauthorizedError("not authenticated"))
		return
	}
	profileID := mux.Vars(r)["profileId"]

	if _, err := c.ProfileService.ValidateProfileID(r.Context(), userID, profileID, true); err != nil {
		WriteError(w, err)
		return
	}
	profile, err := c.ProfileService.GetProfile(r.Context(), profileID)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, profile)
}

// UpsertProfile handles PUT /api/profiles/{profileId}: first write creates
// the profile on its allocated slot, later writes update it.
func (c *UserProfileController) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, models.NewUnauthorizedError("not authenticated"))
		return
	}
	profileID := mux.Vars(r)["profileId"]

	var update models.ProfileUpdate
	if err := DecodeJSON(r, &update); err != nil {
		WriteError(w, err)
		return
	}

	user, err := c.ProfileService.ValidateProfileID(r.Context(), userID, profileID, false)
	if err != nil {
		WriteError(w, err)
		return
	}
	profile, created, err := c.ProfileService.UpsertProfile(r.Context(), user, profileID, &update)
	if err != nil {
		WriteError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	WriteJSON(w, status, profile)
}

// DeleteProfile handles DELETE /api/profiles/{profileId}. The slot returns
// to the caller's available pool.
func (c *UserProfileController) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, models.NewUnauthorizedError("not authenticated"))
		return
	}
	profileID := mux.Vars(r)["profileId"]

	user, err := c.ProfileService.ValidateProfileID(r.Context(), userID, profileID, false)
	if err != nil {
		WriteError(w, err)
		return
	}
	if err := c.ProfileService.DeleteProfile(r.Context(), user, profileID); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": "profile deleted"})
}
