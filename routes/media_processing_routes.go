package routes

import (
	"github.com/gorilla/mux"

	"vibe_server/controllers"
	"vibe_server/services"
)

// RegisterMediaProcessingRoutes sets up the internal bucket-notification
// endpoint. Deployment keeps /internal off the public listener.
func RegisterMediaProcessingRoutes(r *mux.Router, processingService *services.MediaProcessingService) {
	controller := controllers.NewMediaProcessingController(processingService)

	internalRouter := r.PathPrefix("/internal/media").Subrouter()
	internalRouter.HandleFunc("/events", controller.HandleStorageEvents).Methods("POST")
}
