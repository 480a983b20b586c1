package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/aksjeradar/aksjeradar/internal/middleware"
	"github.com/aksjeradar/aksjeradar/internal/models"
	"github.com/aksjeradar/aksjeradar/internal/services"
	"github.com/aksjeradar/aksjeradar/internal/utils"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService  services.AuthService
	jwtSecretKey []byte
	csrfKey      []byte
	ttl          time.Duration
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService services.AuthService, jwtSecretKey, csrfKey []byte, ttl time.Duration) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		jwtSecretKey: jwtSecretKey,
		csrfKey:      csrfKey,
		ttl:          ttl,
	}
}

// RegisterRoutes registers the public auth endpoints. router must run the
// optional auth middleware so the CSRF token is bound to the caller.
func (h *AuthHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/login", h.Login).Methods("POST")
	router.HandleFunc("/api/csrf-token", h.CSRFToken).Methods("GET")
}

// Login handles user login and returns a JWT token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var loginReq models.LoginRequest
	if !decodeBody(w, r, &loginReq) {
		return
	}

	// Authenticate the user
	user, err := h.authService.Authenticate(loginReq.Username, loginReq.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	// Generate token
	tokenString, err := h.authService.GenerateToken(user, h.jwtSecretKey, h.ttl)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not generate token")
		return
	}

	writeJSON(w, http.StatusOK, models.TokenResponse{
		AccessToken: tokenString,
		TokenType:   "bearer",
	})
}

// CSRFToken returns the token the caller must send in X-CSRFToken
func (h *AuthHandler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	token := middleware.CSRFToken(h.csrfKey, utils.GetUsernameFromContext(r.Context()))
	writeJSON(w, http.StatusOK, models.CSRFTokenResponse{Token: token})
}
