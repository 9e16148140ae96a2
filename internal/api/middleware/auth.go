package middleware

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/kanpai-app/kanpai/internal/api/response"
)

// TriggerAuth guards the internal cron trigger endpoint. The caller presents
// a bearer token and the server holds only its bcrypt hash, so the token
// never sits in config or logs in the clear.
type TriggerAuth struct {
	tokenHash string
}

// NewTriggerAuth creates a TriggerAuth. An empty hash disables the trigger
// entirely rather than leaving it open.
func NewTriggerAuth(tokenHash string) *TriggerAuth {
	return &TriggerAuth{tokenHash: tokenHash}
}

// Authenticate validates the Bearer token against the configured hash.
func (a *TriggerAuth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.tokenHash == "" {
			response.Error(w, http.StatusForbidden,
				"TRIGGER_DISABLED", "Trigger token is not configured", nil)
			return
		}

		token := extractBearerToken(r)
		if token == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing or invalid Authorization header", nil)
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(a.tokenHash), []byte(token)) != nil {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid trigger token", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
