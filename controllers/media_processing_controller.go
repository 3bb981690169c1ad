package controllers

import (
	"log"
	"net/http"

	"vibe_server/models"
	"vibe_server/services"
)

// MediaProcessingController receives bucket notifications on the internal
// surface. It is not exposed through the public API gateway.
type MediaProcessingController struct {
	ProcessingService *services.MediaProcessingService
}

func NewMediaProcessingController(processingService *services.MediaProcessingService) *MediaProcessingController {
	return &MediaProcessingController{ProcessingService: processingService}
}

// HandleStorageEvents handles POST /internal/media/events.
func (c *MediaProcessingController) HandleStorageEvents(w http.ResponseWriter, r *http.Request) {
	var event models.S3Event
	if err := DecodeJSON(r, &event); err != nil {
		WriteError(w, err)
		return
	}

	if err := c.ProcessingService.ProcessEvent(r.Context(), &event); err != nil {
		log.Printf("Storage event processing failed: %v", err)
		WriteError(w, models.NewStorageError("failed to process storage events", err))
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": "events processed"})
}
