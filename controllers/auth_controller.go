package controllers

import (
	"net/http"

	"vibe_server/models"
	"vibe_server/services"
)

// AuthController handles platform sign-in.
type AuthController struct {
	AuthService *services.AuthService
}

func NewAuthController(authService *services.AuthService) *AuthController {
	return &AuthController{AuthService: authService}
}

// AuthenticatePlatform handles POST /api/auth/platform.
func (c *AuthController) AuthenticatePlatform(w http.ResponseWriter, r *http.Request) {
	var req models.AuthRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	result, err := c.AuthService.AuthenticatePlatform(r.Context(), &req)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}
