package routes

import (
	"github.com/gorilla/mux"

	"vibe_server/controllers"
	"vibe_server/services"
)

// RegisterAuthRoutes sets up the public authentication endpoint.
func RegisterAuthRoutes(r *mux.Router, authService *services.AuthService) {
	controller := controllers.NewAuthController(authService)

	authRouter := r.PathPrefix("/api/auth").Subrouter()
	authRouter.HandleFunc("/platform", controller.AuthenticatePlatform).Methods("POST")
}
