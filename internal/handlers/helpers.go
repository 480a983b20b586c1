package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/aksjeradar/aksjeradar/internal/services"
	"github.com/aksjeradar/aksjeradar/internal/utils"
)

// User-facing error texts.
const (
	msgInvalidInput = "Ugyldig input"
	msgNotFound     = "Ikke funnet"
	msgInternal     = "Intern serverfeil"
)

const maxBodyBytes = 64 << 10

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[handlers] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{"success": false, "error": msg})
}

// writeServiceError maps service errors to status codes. Unknown errors
// are logged and reported as 500 without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, msgInvalidInput)
	case errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusNotFound, msgNotFound)
	default:
		log.Printf("[handlers] %s %s: %v", r.Method, r.URL.Path, err)
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidInput)
		return false
	}
	return true
}

func requireUser(w http.ResponseWriter, r *http.Request) (uint, bool) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return 0, false
	}
	return userID, true
}
