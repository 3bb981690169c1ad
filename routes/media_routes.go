package routes

import (
	"github.com/gorilla/mux"

	"vibe_server/controllers"
	"vibe_server/middleware"
	"vibe_server/services"
)

// RegisterMediaRoutes sets up the authenticated media lifecycle endpoints
// under /api/profiles/{profileId}/media.
func RegisterMediaRoutes(r *mux.Router, mediaService *services.MediaService, auth *middleware.AuthMiddleware) {
	controller := controllers.NewMediaController(mediaService)

	mediaRouter := r.PathPrefix("/api/profiles/{profileId}/media").Subrouter()
	mediaRouter.Use(auth.RequireAuth)

	mediaRouter.HandleFunc("", controller.RequestUpload).Methods("POST")
	mediaRouter.HandleFunc("", controller.ListMedia).Methods("GET")
	mediaRouter.HandleFunc("", controller.ReorderMedia).Methods("PUT")
	mediaRouter.HandleFunc("/{mediaId}", controller.CompleteUpload).Methods("POST")
	mediaRouter.HandleFunc("/{mediaId}", controller.GetMediaStatus).Methods("GET")
	mediaRouter.HandleFunc("/{mediaId}", controller.DeleteMedia).Methods("DELETE")
}
