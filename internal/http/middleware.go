package http

import (
	"net/http"
	"strings"
)

const (
	// The API serves JSON only, so the default policy denies everything
	cspDefault = "default-src 'none'"
	// Swagger UI needs scripts, styles, and images to render
	cspSwagger = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:"
)

// SecurityHeaders sets the baseline security headers on every response
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

		if strings.HasPrefix(r.URL.Path, "/swagger/") {
			h.Set("Content-Security-Policy", cspSwagger)
		} else {
			h.Set("Content-Security-Policy", cspDefault)
		}

		next.ServeHTTP(w, r)
	})
}
