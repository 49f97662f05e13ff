package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/inkcircle/inkcircle-api/internal/httputil"
	"github.com/inkcircle/inkcircle-api/internal/user"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

// UserContextKey holds the resolved *user.User for the request
const UserContextKey ContextKey = "current_user"

// Middleware is the access-control gate for protected routes. The checks
// compose as an explicit chain: RequireAuth resolves the caller's identity,
// RequireVerified and RequireRoles refine it. Verification and role are
// independent axes; a route that needs both must chain both.
type Middleware struct {
	tokens *TokenService
	users  UserRepository
}

func NewMiddleware(tokens *TokenService, users UserRepository) *Middleware {
	return &Middleware{tokens: tokens, users: users}
}

// RequireAuth validates the bearer access token and resolves it to a
// persisted user, which is attached to the request context. A refresh
// token presented here is rejected. A valid token whose subject no longer
// matches a user yields 401 with the user_not_found code.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string

		// Priority 1: Authorization header
		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				token = parts[1]
			} else {
				httputil.RespondErrorWithCode(w, "invalid authorization header format", httputil.CodeInvalidAuthHeader, http.StatusUnauthorized)
				return
			}
		}

		// Priority 2: Cookie (fallback)
		if token == "" {
			cookieToken, err := GetAccessTokenFromCookie(r)
			if err != nil {
				httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
				return
			}
			token = cookieToken
		}

		claims, err := m.tokens.VerifySessionToken(token, TokenKindAccess)
		if err != nil {
			if errors.Is(err, ErrExpiredToken) {
				httputil.RespondErrorWithCode(w, "token has expired", httputil.CodeTokenExpired, http.StatusUnauthorized)
				return
			}
			httputil.RespondErrorWithCode(w, "invalid token", httputil.CodeInvalidToken, http.StatusUnauthorized)
			return
		}

		current, err := m.users.GetByEmail(r.Context(), claims.Email)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				httputil.RespondErrorWithCode(w, "user not found", httputil.CodeUserNotFound, http.StatusUnauthorized)
				return
			}
			httputil.RespondErrorWithCode(w, "failed to resolve user", httputil.CodeInternalError, http.StatusInternalServerError)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, current)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireVerified rejects callers whose account has not completed email
// verification. Must run after RequireAuth.
func (m *Middleware) RequireVerified(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current, ok := GetUserFromContext(r.Context())
		if !ok {
			httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
			return
		}

		if !current.IsVerified {
			httputil.RespondErrorWithCode(w, "account not verified", httputil.CodeAccountNotVerified, http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireRoles rejects callers whose role is not in the allowed set. Must
// run after RequireAuth. Role membership does not imply verification.
func RequireRoles(roles ...user.Role) func(next http.Handler) http.Handler {
	allowed := make(map[user.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			current, ok := GetUserFromContext(r.Context())
			if !ok {
				httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
				return
			}

			if _, ok := allowed[current.Role]; !ok {
				httputil.RespondErrorWithCode(w, "insufficient permissions", httputil.CodeInsufficientPermission, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetUserFromContext extracts the resolved user from the request context
func GetUserFromContext(ctx context.Context) (*user.User, bool) {
	current, ok := ctx.Value(UserContextKey).(*user.User)
	return current, ok
}
