package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/inkcircle/inkcircle-api/internal/httputil"
	"github.com/inkcircle/inkcircle-api/internal/logging"
	"github.com/inkcircle/inkcircle-api/internal/ratelimit"
	"github.com/inkcircle/inkcircle-api/internal/user"
	"github.com/inkcircle/inkcircle-api/internal/validate"
)

// Handler contains HTTP handlers for authentication endpoints
type Handler struct {
	service         *Service
	rateLimiter     *ratelimit.Limiter
	validator       *validate.Validator
	logger          *logging.Logger
	isProduction    bool
	accessDuration  time.Duration
	refreshDuration time.Duration
}

func NewHandler(service *Service, rateLimiter *ratelimit.Limiter, validator *validate.Validator, logger *logging.Logger, isProduction bool, accessDuration, refreshDuration time.Duration) *Handler {
	return &Handler{
		service:         service,
		rateLimiter:     rateLimiter,
		validator:       validator,
		logger:          logger,
		isProduction:    isProduction,
		accessDuration:  accessDuration,
		refreshDuration: refreshDuration,
	}
}

// SignupRequest represents the signup request body
type SignupRequest struct {
	FirstName string `json:"first_name" validate:"required,max=50"`
	LastName  string `json:"last_name" validate:"required,max=50"`
	Username  string `json:"username" validate:"required,min=3,max=30,alphanum"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=8"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest represents the token refresh request body
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ForgotPasswordRequest represents the password reset request
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest represents the password reset confirmation
type ResetPasswordRequest struct {
	Token           string `json:"token" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// ResendVerificationRequest represents the resend verification email request
type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// SignupResponse represents the signup response
type SignupResponse struct {
	User    *user.User `json:"user"`
	Message string     `json:"message"`
}

// Signup handles user registration
// @Summary      Register a new user
// @Description  Create a new account. A verification email is sent; the account cannot pass the verification gate until the link is used.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body SignupRequest true "Signup payload"
// @Success      201 {object} SignupResponse
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      409 {object} httputil.ErrorResponse "Email or username already exists"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/signup [post]
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ip := getClientIP(r)
	if h.ipLimited(w, r, ip, "signup") {
		return
	}

	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid signup request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		logger.Warn("signup validation failed", "error", err.Error())
		respondError(w, err.Error(), httputil.CodeValidationError, http.StatusBadRequest)
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	newUser, err := h.service.Signup(r.Context(), SignupParams{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			logger.Warn("signup failed: email already exists")
			respondError(w, "email already exists", httputil.CodeConflict, http.StatusConflict)
			return
		}
		if errors.Is(err, user.ErrDuplicateUsername) {
			logger.Warn("signup failed: username already exists")
			respondError(w, "username already exists", httputil.CodeConflict, http.StatusConflict)
			return
		}
		logger.Error("signup failed: internal error", "error", err.Error())
		respondError(w, "failed to create user", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("user signed up successfully", "user_id", newUser.ID)

	respondJSON(w, SignupResponse{
		User:    newUser,
		Message: "Account created. Please check your email to verify your account.",
	}, http.StatusCreated)
}

// VerifyEmail handles email verification
// @Summary      Verify email address
// @Description  Verify an account using the token from the verification email
// @Tags         auth
// @Produce      json
// @Param        token path string true "Verification token"
// @Success      200 {object} map[string]string
// @Failure      400 {object} httputil.ErrorResponse "Invalid, expired, or already used token"
// @Failure      404 {object} httputil.ErrorResponse "User not found"
// @Router       /auth/verify/{token} [get]
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	token := chi.URLParam(r, "token")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		logger.Warn("email verification failed: token missing")
		respondError(w, "verification token required", httputil.CodeInvalidActionToken, http.StatusBadRequest)
		return
	}

	err := h.service.VerifyEmail(r.Context(), token)
	if err != nil {
		if errors.Is(err, ErrAlreadyVerified) {
			logger.Warn("email verification failed: already verified")
			respondError(w, "This email is already verified. You can login now.", httputil.CodeAlreadyVerified, http.StatusBadRequest)
			return
		}
		if errors.Is(err, ErrInvalidActionToken) {
			logger.Warn("email verification failed: invalid token")
			respondError(w, "Invalid or expired verification token.", httputil.CodeInvalidActionToken, http.StatusBadRequest)
			return
		}
		if errors.Is(err, user.ErrNotFound) {
			logger.Warn("email verification failed: user not found")
			respondError(w, "user not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("email verification failed: internal error", "error", err.Error())
		respondError(w, "failed to verify email", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("email verified successfully")

	respondJSON(w, map[string]string{
		"message": "Email verified successfully. You can now login.",
	}, http.StatusOK)
}

// Login handles user login
// @Summary      User login
// @Description  Authenticate and receive an access/refresh token pair
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} TokenPair
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body"
// @Failure      401 {object} httputil.ErrorResponse "Invalid credentials"
// @Failure      403 {object} httputil.ErrorResponse "Account not verified"
// @Router       /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ip := getClientIP(r)
	if h.ipLimited(w, r, ip, "login") {
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		logger.Warn("login validation failed", "error", err.Error())
		respondError(w, err.Error(), httputil.CodeValidationError, http.StatusBadRequest)
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	tokens, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			logger.Warn("login failed: invalid credentials")
			respondError(w, "invalid email or password", httputil.CodeInvalidCredentials, http.StatusUnauthorized)
			return
		}
		if errors.Is(err, ErrAccountNotVerified) {
			logger.Warn("login failed: account not verified")
			respondError(w, "account not verified, please check your inbox", httputil.CodeAccountNotVerified, http.StatusForbidden)
			return
		}
		logger.Error("login failed: internal error", "error", err.Error())
		respondError(w, "failed to login", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("user logged in successfully")

	if ShouldUseCookies(r) {
		SetAuthCookies(w, tokens.AccessToken, tokens.RefreshToken, h.isProduction, h.accessDuration, h.refreshDuration)
		respondJSON(w, map[string]string{"message": "logged in successfully"}, http.StatusOK)
	} else {
		respondJSON(w, tokens, http.StatusOK)
	}
}

// Refresh handles access token refresh
// @Summary      Refresh tokens
// @Description  Exchange a refresh token for a new access/refresh pair
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshRequest false "Refresh token (cookie fallback)"
// @Success      200 {object} TokenPair
// @Failure      400 {object} httputil.ErrorResponse "Refresh token missing"
// @Failure      401 {object} httputil.ErrorResponse "Invalid, expired, or wrong-kind token"
// @Router       /auth/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var refreshToken string
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
		refreshToken = req.RefreshToken
	}

	if refreshToken == "" {
		cookieToken, err := GetRefreshTokenFromCookie(r)
		if err == nil {
			refreshToken = cookieToken
		}
	}

	if refreshToken == "" {
		logger.Warn("refresh token missing from both body and cookie")
		respondError(w, "refresh token required", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	refreshToken = strings.TrimSpace(refreshToken)

	tokens, err := h.service.Refresh(r.Context(), refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, ErrExpiredToken):
			logger.Warn("token refresh failed: token expired")
			respondError(w, "refresh token has expired", httputil.CodeTokenExpired, http.StatusUnauthorized)
		case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrWrongTokenKind):
			logger.Warn("token refresh failed: invalid token", "error", err.Error())
			respondError(w, "invalid refresh token", httputil.CodeInvalidToken, http.StatusUnauthorized)
		case errors.Is(err, user.ErrNotFound):
			logger.Warn("token refresh failed: user not found")
			respondError(w, "user not found", httputil.CodeUserNotFound, http.StatusUnauthorized)
		default:
			logger.Error("token refresh failed: internal error", "error", err.Error())
			respondError(w, "failed to refresh token", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("tokens refreshed successfully")

	if ShouldUseCookies(r) {
		SetAuthCookies(w, tokens.AccessToken, tokens.RefreshToken, h.isProduction, h.accessDuration, h.refreshDuration)
		respondJSON(w, map[string]string{"message": "token refreshed successfully"}, http.StatusOK)
	} else {
		respondJSON(w, tokens, http.StatusOK)
	}
}

// Logout handles user logout
// @Summary      User logout
// @Description  Logout is client-side token discard; the server only clears auth cookies. Tokens remain valid until expiry.
// @Tags         auth
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ClearAuthCookies(w)

	logger.Info("user logged out")

	respondJSON(w, map[string]string{"message": "logged out"}, http.StatusOK)
}

// ForgotPassword handles password reset requests
// @Summary      Request password reset
// @Description  Send a password reset link. Always returns success to prevent email enumeration.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ForgotPasswordRequest true "Email address"
// @Success      200 {object} map[string]string
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Router       /auth/password-reset-request [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid forgot password request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		logger.Warn("forgot password validation failed", "error", err.Error())
		respondError(w, err.Error(), httputil.CodeValidationError, http.StatusBadRequest)
		return
	}

	ip := getClientIP(r)
	if h.ipLimited(w, r, ip, "") {
		return
	}
	if h.emailOnCooldown(w, r, req.Email) {
		return
	}

	// Always succeeds from the caller's perspective
	_ = h.service.RequestPasswordReset(r.Context(), req.Email)

	respondJSON(w, map[string]string{
		"message": "If an account exists with that email, a password reset link has been sent.",
	}, http.StatusOK)
}

// ResetPassword handles password reset with token
// @Summary      Confirm password reset
// @Description  Set a new password using a valid reset token. Tokens are single-use.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ResetPasswordRequest true "Reset token and new password"
// @Success      200 {object} map[string]string
// @Failure      400 {object} httputil.ErrorResponse "Invalid request or token"
// @Failure      404 {object} httputil.ErrorResponse "User not found"
// @Router       /auth/password-reset-confirm [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid reset password request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		logger.Warn("reset password validation failed", "error", err.Error())
		respondError(w, err.Error(), httputil.CodeValidationError, http.StatusBadRequest)
		return
	}

	err := h.service.ConfirmPasswordReset(r.Context(), req.Token, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		switch {
		case errors.Is(err, ErrPasswordMismatch):
			logger.Warn("password reset failed: passwords do not match")
			respondError(w, "passwords do not match", httputil.CodePasswordMismatch, http.StatusBadRequest)
		case errors.Is(err, ErrInvalidActionToken):
			logger.Warn("password reset failed: invalid or expired token")
			respondError(w, "invalid or expired reset token", httputil.CodeInvalidActionToken, http.StatusBadRequest)
		case errors.Is(err, user.ErrNotFound):
			logger.Warn("password reset failed: user not found")
			respondError(w, "user not found", httputil.CodeNotFound, http.StatusNotFound)
		default:
			logger.Error("password reset failed: internal error", "error", err.Error())
			respondError(w, "failed to reset password", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("password reset successfully")

	respondJSON(w, map[string]string{
		"message": "Password reset successfully. You can now login with your new password.",
	}, http.StatusOK)
}

// ResendVerification handles resending the verification email
// @Summary      Resend verification email
// @Description  Send a new verification link. Always returns success to prevent email enumeration.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ResendVerificationRequest true "Email address"
// @Success      200 {object} map[string]string
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Router       /auth/resend-verification [post]
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ResendVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid resend verification request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		logger.Warn("resend verification validation failed", "error", err.Error())
		respondError(w, err.Error(), httputil.CodeValidationError, http.StatusBadRequest)
		return
	}

	ip := getClientIP(r)
	if h.ipLimited(w, r, ip, "") {
		return
	}
	if h.emailOnCooldown(w, r, req.Email) {
		return
	}

	_ = h.service.ResendVerification(r.Context(), req.Email)

	respondJSON(w, map[string]string{
		"message": "If your email is registered and not verified, a new verification link has been sent.",
	}, http.StatusOK)
}

// ipLimited checks and records the caller's IP against the rate limit,
// writing the 429 response itself when the limit is exceeded. Limiter
// errors are logged and treated as not-limited so Redis trouble does not
// lock out legitimate callers.
func (h *Handler) ipLimited(w http.ResponseWriter, r *http.Request, ip, purpose string) bool {
	logger := logging.GetLoggerFromContext(r.Context())

	exceeded, err := h.rateLimiter.CheckIPRateLimitWithPurpose(r.Context(), ip, purpose)
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
	} else if exceeded {
		logger.Warn("IP rate limit exceeded", "ip", ip, "purpose", purpose)
		respondError(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return true
	}

	if err := h.rateLimiter.RecordIPRequestWithPurpose(r.Context(), ip, purpose); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}

	return false
}

// emailOnCooldown checks and arms the per-address cooldown for endpoints
// that trigger outbound mail
func (h *Handler) emailOnCooldown(w http.ResponseWriter, r *http.Request, email string) bool {
	logger := logging.GetLoggerFromContext(r.Context())

	onCooldown, err := h.rateLimiter.CheckEmailCooldown(r.Context(), email)
	if err != nil {
		logger.Error("failed to check email cooldown", "error", err.Error())
	} else if onCooldown {
		logger.Warn("email on cooldown", "email", email)
		respondError(w, "please wait before requesting another email", httputil.CodeCooldownActive, http.StatusTooManyRequests)
		return true
	}

	if err := h.rateLimiter.SetEmailCooldown(r.Context(), email); err != nil {
		logger.Error("failed to set email cooldown", "error", err.Error())
	}

	return false
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data any, statusCode int) {
	httputil.RespondJSON(w, data, statusCode)
}

// respondError sends an error response with a machine-readable code
func respondError(w http.ResponseWriter, message string, code string, statusCode int) {
	httputil.RespondErrorWithCode(w, message, code, statusCode)
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		// X-Forwarded-For can contain multiple IPs, take the first one
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return strings.TrimSpace(xri)
	}

	ip := r.RemoteAddr
	// RemoteAddr format is "IP:port", extract just the IP
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
