package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurityHeaders(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("locks down API responses", func(t *testing.T) {
		rec := httptest.NewRecorder()
		SecurityHeaders(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/books", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
		assert.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
		assert.NotEmpty(t, rec.Header().Get("Permissions-Policy"))
		assert.Equal(t, cspDefault, rec.Header().Get("Content-Security-Policy"))
	})

	t.Run("relaxes the CSP for the swagger UI", func(t *testing.T) {
		rec := httptest.NewRecorder()
		SecurityHeaders(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))

		assert.Equal(t, cspSwagger, rec.Header().Get("Content-Security-Policy"))
	})
}
