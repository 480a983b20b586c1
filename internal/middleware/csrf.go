package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/aksjeradar/aksjeradar/internal/utils"
)

// CSRFHeader carries the token on mutating requests.
const CSRFHeader = "X-CSRFToken"

// CSRFToken derives the token for username. Anonymous sessions share
// the token of the empty username.
func CSRFToken(key []byte, username string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte("csrf:" + username))
	return hex.EncodeToString(mac.Sum(nil))
}

// CSRFMiddleware rejects mutating requests whose X-CSRFToken does not
// match the token issued to the requesting user. It must run after the
// auth middleware.
func CSRFMiddleware(key []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			want := CSRFToken(key, utils.GetUsernameFromContext(r.Context()))
			if !hmac.Equal([]byte(r.Header.Get(CSRFHeader)), []byte(want)) {
				writeError(w, http.StatusForbidden, "CSRF token missing or invalid")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": msg})
}
