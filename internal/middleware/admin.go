package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

const AdminKeyHeader = "X-Admin-Key"

// RequireAdminKey guards the back office. Requests must carry the key in
// X-Admin-Key or as a bearer token. An empty key disables the admin API.
func RequireAdminKey(key string, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				writeError(w, http.StatusServiceUnavailable, "admin API is not configured")
				return
			}

			supplied := r.Header.Get(AdminKeyHeader)
			if supplied == "" {
				supplied = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			}
			if subtle.ConstantTimeCompare([]byte(supplied), []byte(key)) != 1 {
				log.Warn().Str("ip", ClientIP(r)).Str("path", r.URL.Path).Msg("rejected admin request")
				writeError(w, http.StatusUnauthorized, "invalid admin key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}
