package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/kanpai-app/kanpai/internal/api/response"
)

// Recovery turns a panicking handler into a 500 response so one bad
// request cannot take the gift API down with it.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				slog.Error("recovered from handler panic",
					"panic", v,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				response.Error(w, http.StatusInternalServerError,
					"INTERNAL_ERROR", "An unexpected error occurred", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
