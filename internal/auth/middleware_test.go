package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkcircle/inkcircle-api/internal/httputil"
	"github.com/inkcircle/inkcircle-api/internal/user"
)

func seedUser(t *testing.T, repo *fakeUserRepo, role user.Role, verified bool) *user.User {
	t.Helper()

	u, err := repo.Create(context.Background(), user.CreateParams{
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Username:     "adal-" + uuid.NewString()[:8],
		Email:        uuid.NewString()[:8] + "@example.com",
		PasswordHash: "irrelevant",
	})
	require.NoError(t, err)

	repo.mu.Lock()
	stored := repo.users[u.Email]
	stored.Role = role
	stored.IsVerified = verified
	copied := *stored
	repo.mu.Unlock()

	return &copied
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body httputil.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Code
}

func TestRequireAuth(t *testing.T) {
	repo := newFakeUserRepo()
	tokens := newTestTokenService(t)
	mw := NewMiddleware(tokens, repo)

	authedRequest := func(t *testing.T, u *user.User) *http.Request {
		t.Helper()
		tokenStr, err := tokens.CreateSessionToken(u.ID, u.Email, TokenKindAccess, time.Hour)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/books", nil)
		req.Header.Set("Authorization", "Bearer "+tokenStr)
		return req
	}

	t.Run("missing credentials", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mw.RequireAuth(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/books", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, httputil.CodeMissingAuth, decodeErrorCode(t, rec))
	})

	t.Run("malformed authorization header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/books", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()
		mw.RequireAuth(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, httputil.CodeInvalidAuthHeader, decodeErrorCode(t, rec))
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/books", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := httptest.NewRecorder()
		mw.RequireAuth(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, httputil.CodeInvalidToken, decodeErrorCode(t, rec))
	})

	t.Run("expired token", func(t *testing.T) {
		u := seedUser(t, repo, user.RoleUser, true)
		tokenStr, err := tokens.CreateSessionToken(u.ID, u.Email, TokenKindAccess, -time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/books", nil)
		req.Header.Set("Authorization", "Bearer "+tokenStr)
		rec := httptest.NewRecorder()
		mw.RequireAuth(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, httputil.CodeTokenExpired, decodeErrorCode(t, rec))
	})

	t.Run("refresh token rejected on protected routes", func(t *testing.T) {
		u := seedUser(t, repo, user.RoleUser, true)
		tokenStr, err := tokens.CreateSessionToken(u.ID, u.Email, TokenKindRefresh, time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/books", nil)
		req.Header.Set("Authorization", "Bearer "+tokenStr)
		rec := httptest.NewRecorder()
		mw.RequireAuth(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, httputil.CodeInvalidToken, decodeErrorCode(t, rec))
	})

	t.Run("valid token whose user was deleted", func(t *testing.T) {
		tokenStr, err := tokens.CreateSessionToken(uuid.New(), "gone@example.com", TokenKindAccess, time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/books", nil)
		req.Header.Set("Authorization", "Bearer "+tokenStr)
		rec := httptest.NewRecorder()
		mw.RequireAuth(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, httputil.CodeUserNotFound, decodeErrorCode(t, rec))
	})

	t.Run("valid token resolves the user into context", func(t *testing.T) {
		u := seedUser(t, repo, user.RoleUser, true)

		var resolved *user.User
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			resolved, _ = GetUserFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		})

		rec := httptest.NewRecorder()
		mw.RequireAuth(inner).ServeHTTP(rec, authedRequest(t, u))

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, resolved)
		assert.Equal(t, u.ID, resolved.ID)
	})

	t.Run("access token accepted from cookie", func(t *testing.T) {
		u := seedUser(t, repo, user.RoleUser, true)
		tokenStr, err := tokens.CreateSessionToken(u.ID, u.Email, TokenKindAccess, time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/books", nil)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: tokenStr})
		rec := httptest.NewRecorder()
		mw.RequireAuth(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRequireVerified(t *testing.T) {
	repo := newFakeUserRepo()
	tokens := newTestTokenService(t)
	mw := NewMiddleware(tokens, repo)

	withUser := func(u *user.User) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/books", nil)
		ctx := context.WithValue(req.Context(), UserContextKey, u)
		return req.WithContext(ctx)
	}

	t.Run("unverified user is rejected", func(t *testing.T) {
		u := seedUser(t, repo, user.RoleUser, false)
		rec := httptest.NewRecorder()
		mw.RequireVerified(okHandler()).ServeHTTP(rec, withUser(u))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, httputil.CodeAccountNotVerified, decodeErrorCode(t, rec))
	})

	t.Run("verified user passes", func(t *testing.T) {
		u := seedUser(t, repo, user.RoleUser, true)
		rec := httptest.NewRecorder()
		mw.RequireVerified(okHandler()).ServeHTTP(rec, withUser(u))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing identity is rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mw.RequireVerified(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/books", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireRoles(t *testing.T) {
	repo := newFakeUserRepo()

	withUser := func(u *user.User) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/reviews", nil)
		ctx := context.WithValue(req.Context(), UserContextKey, u)
		return req.WithContext(ctx)
	}

	t.Run("role outside the set is rejected", func(t *testing.T) {
		u := seedUser(t, repo, user.RoleUser, true)
		rec := httptest.NewRecorder()
		RequireRoles(user.RoleAdmin)(okHandler()).ServeHTTP(rec, withUser(u))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, httputil.CodeInsufficientPermission, decodeErrorCode(t, rec))
	})

	t.Run("role in the set passes", func(t *testing.T) {
		u := seedUser(t, repo, user.RoleAdmin, true)
		rec := httptest.NewRecorder()
		RequireRoles(user.RoleAdmin)(okHandler()).ServeHTTP(rec, withUser(u))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("verification and role are independent axes", func(t *testing.T) {
		// An unverified admin still satisfies the role check; the
		// verification gate is a separate middleware
		u := seedUser(t, repo, user.RoleAdmin, false)
		rec := httptest.NewRecorder()
		RequireRoles(user.RoleAdmin)(okHandler()).ServeHTTP(rec, withUser(u))

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
