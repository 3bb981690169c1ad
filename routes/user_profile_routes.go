package routes

import (
	"github.com/gorilla/mux"

	"vibe_server/controllers"
	"vibe_server/middleware"
	"vibe_server/services"
)

// RegisterUserProfileRoutes sets up the authenticated profile endpoints
// under /api/profiles.
func RegisterUserProfileRoutes(r *mux.Router, profileService *services.ProfileService, auth *middleware.AuthMiddleware) {
	controller := controllers.NewUserProfileController(profileService)

	profileRouter := r.PathPrefix("/api/profiles").Subrouter()
	profileRouter.Use(auth.RequireAuth)

	profileRouter.HandleFunc("", controller.ListProfiles).Methods("GET")
	profileRouter.HandleFunc("/{profileId}", controller.GetProfile).Methods("GET")
	profileRouter.HandleFunc("/{profileId}", controller.UpsertProfile).Methods("PUT")
	profileRouter.HandleFunc("/{profileId}", controller.DeleteProfile).Methods("DELETE")
}
