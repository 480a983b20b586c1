package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/aksjeradar/aksjeradar/internal/models"
	"github.com/aksjeradar/aksjeradar/internal/utils"
)

var secret = []byte("test-secret")

func signed(t *testing.T, key []byte, uid uint, name string) string {
	t.Helper()
	claims := &models.Claims{UserID: uid, Username: name, StandardClaims: jwt.StandardClaims{
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func whoami(w http.ResponseWriter, r *http.Request) {
	id, _ := utils.GetUserIDFromContext(r.Context())
	w.Header().Set("X-User", utils.GetUsernameFromContext(r.Context()))
	if id == 0 {
		w.WriteHeader(http.StatusNoContent)
	}
}

func TestAuthMiddleware(t *testing.T) {
	h := AuthMiddleware(secret)(http.HandlerFunc(whoami))

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"wrong key", "Bearer " + signed(t, []byte("other"), 1, "kari"), http.StatusUnauthorized},
		{"valid", "Bearer " + signed(t, secret, 1, "kari"), http.StatusOK},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if c.header != "" {
				req.Header.Set("Authorization", c.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != c.status {
				t.Errorf("status = %d, want %d", rec.Code, c.status)
			}
			if c.status == http.StatusOK && rec.Header().Get("X-User") != "kari" {
				t.Errorf("username = %q", rec.Header().Get("X-User"))
			}
		})
	}
}

func TestOptionalAuthLetsAnonymousThrough(t *testing.T) {
	h := OptionalAuth(secret)(http.HandlerFunc(whoami))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/log-error", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestCSRFMiddleware(t *testing.T) {
	h := AuthMiddleware(secret)(CSRFMiddleware(secret)(http.HandlerFunc(whoami)))
	bearer := "Bearer " + signed(t, secret, 1, "kari")

	send := func(method, csrf string) int {
		req := httptest.NewRequest(method, "/api/watchlist/toggle", nil)
		req.Header.Set("Authorization", bearer)
		if csrf != "" {
			req.Header.Set(CSRFHeader, csrf)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if got := send(http.MethodGet, ""); got != http.StatusOK {
		t.Errorf("GET without token = %d", got)
	}
	if got := send(http.MethodPost, ""); got != http.StatusForbidden {
		t.Errorf("POST without token = %d", got)
	}
	if got := send(http.MethodPost, CSRFToken(secret, "ola")); got != http.StatusForbidden {
		t.Errorf("POST with another user's token = %d", got)
	}
	if got := send(http.MethodPost, CSRFToken(secret, "kari")); got != http.StatusOK {
		t.Errorf("POST with token = %d", got)
	}
}
