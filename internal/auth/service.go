package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inkcircle/inkcircle-api/internal/logging"
	"github.com/inkcircle/inkcircle-api/internal/user"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountNotVerified = errors.New("account not verified, please check your inbox")
	ErrAlreadyVerified    = errors.New("email already verified")
	ErrPasswordMismatch   = errors.New("passwords do not match")
)

// TokenPair is the result of a successful login or refresh
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// SignupParams carries the signup payload after request validation
type SignupParams struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password  string
}

// Service handles authentication business logic
type Service struct {
	userRepo             UserRepository
	resetTokens          ConsumedTokenStore
	tokens               *TokenService
	actionTokens         *ActionTokenService
	emailService         EmailService
	logger               *logging.Logger
	accessTokenDuration  time.Duration
	refreshTokenDuration time.Duration
	verifyTokenDuration  time.Duration
	resetTokenDuration   time.Duration
}

func NewService(
	userRepo UserRepository,
	resetTokens ConsumedTokenStore,
	tokens *TokenService,
	actionTokens *ActionTokenService,
	emailService EmailService,
	logger *logging.Logger,
	accessTokenDuration time.Duration,
	refreshTokenDuration time.Duration,
	verifyTokenDuration time.Duration,
	resetTokenDuration time.Duration,
) *Service {
	return &Service{
		userRepo:             userRepo,
		resetTokens:          resetTokens,
		tokens:               tokens,
		actionTokens:         actionTokens,
		emailService:         emailService,
		logger:               logger,
		accessTokenDuration:  accessTokenDuration,
		refreshTokenDuration: refreshTokenDuration,
		verifyTokenDuration:  verifyTokenDuration,
		resetTokenDuration:   resetTokenDuration,
	}
}

// Signup creates a new user account and sends a verification email. New
// accounts start unverified with the user role; duplicate email or
// username errors pass through from the repository.
func (s *Service) Signup(ctx context.Context, params SignupParams) (*user.User, error) {
	passwordHash, err := HashPassword(params.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser, err := s.userRepo.Create(ctx, user.CreateParams{
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		Username:     params.Username,
		Email:        params.Email,
		PasswordHash: passwordHash,
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) || errors.Is(err, user.ErrDuplicateUsername) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	verificationToken, err := s.actionTokens.Create(newUser.Email, PurposeEmailVerification, s.verifyTokenDuration)
	if err != nil {
		// The account exists; the user can request a fresh link later
		s.logger.Warn("failed to create verification token", "email", newUser.Email, "error", err)
		return newUser, nil
	}

	// Dispatch is fire-and-forget; delivery failures never fail the signup
	go func() {
		emailCtx := context.Background()
		if err := s.emailService.SendVerificationEmail(emailCtx, newUser.Email, verificationToken); err != nil {
			s.logger.Warn("failed to send verification email", "email", newUser.Email, "error", err)
		}
	}()

	return newUser, nil
}

// VerifyEmail marks an account verified using the emailed action token
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	claims, err := s.actionTokens.Verify(token, PurposeEmailVerification)
	if err != nil {
		return ErrInvalidActionToken
	}

	existing, err := s.userRepo.GetByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.ErrNotFound
		}
		return fmt.Errorf("failed to load user for verification: %w", err)
	}

	if existing.IsVerified {
		return ErrAlreadyVerified
	}

	if err := s.userRepo.MarkVerified(ctx, existing.ID); err != nil {
		return fmt.Errorf("failed to verify user: %w", err)
	}

	return nil
}

// Login authenticates a user and returns an access/refresh token pair.
// Unknown emails and wrong passwords are indistinguishable; an unverified
// account is reported as its own outcome after the password check so the
// distinction never leaks to holders of wrong credentials.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !VerifyPassword(existing.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	if !existing.IsVerified {
		return nil, ErrAccountNotVerified
	}

	return s.issueTokenPair(existing)
}

// Refresh exchanges a refresh-kind token for a fresh pair. An access token
// presented here fails with ErrWrongTokenKind.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.VerifySessionToken(refreshToken, TokenKindRefresh)
	if err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return s.issueTokenPair(existing)
}

// RequestPasswordReset starts the reset flow. It always returns nil so the
// response cannot be used to probe which emails are registered.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			s.logger.Warn("failed to get user for password reset", "error", err)
		}
		return nil
	}

	token, err := s.actionTokens.Create(existing.Email, PurposePasswordReset, s.resetTokenDuration)
	if err != nil {
		s.logger.Warn("failed to create password reset token", "error", err)
		return nil
	}

	go func() {
		emailCtx := context.Background()
		if err := s.emailService.SendPasswordResetEmail(emailCtx, existing.Email, token); err != nil {
			s.logger.Warn("failed to send password reset email", "email", existing.Email, "error", err)
		}
	}()

	return nil
}

// ConfirmPasswordReset sets a new password using a valid, unconsumed reset
// token. The token is marked consumed so the link cannot be replayed.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return ErrPasswordMismatch
	}

	claims, err := s.actionTokens.Verify(token, PurposePasswordReset)
	if err != nil {
		return ErrInvalidActionToken
	}

	consumed, err := s.resetTokens.IsConsumed(ctx, claims.TokenID)
	if err != nil {
		return fmt.Errorf("failed to check reset token: %w", err)
	}
	if consumed {
		return ErrInvalidActionToken
	}

	existing, err := s.userRepo.GetByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.ErrNotFound
		}
		return fmt.Errorf("failed to load user for password reset: %w", err)
	}

	passwordHash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, existing.ID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.resetTokens.MarkConsumed(ctx, claims.TokenID, s.resetTokenDuration); err != nil {
		s.logger.Warn("failed to mark reset token consumed", "error", err)
	}

	return nil
}

// ResendVerification sends a fresh verification link. Always returns nil
// to prevent email enumeration; verified accounts get nothing.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			s.logger.Warn("failed to get user for resend verification", "error", err)
		}
		return nil
	}

	if existing.IsVerified {
		return nil
	}

	token, err := s.actionTokens.Create(existing.Email, PurposeEmailVerification, s.verifyTokenDuration)
	if err != nil {
		s.logger.Warn("failed to create verification token", "error", err)
		return nil
	}

	go func() {
		emailCtx := context.Background()
		if err := s.emailService.SendVerificationEmail(emailCtx, existing.Email, token); err != nil {
			s.logger.Warn("failed to resend verification email", "email", existing.Email, "error", err)
		}
	}()

	return nil
}

func (s *Service) issueTokenPair(u *user.User) (*TokenPair, error) {
	accessToken, err := s.tokens.CreateSessionToken(u.ID, u.Email, TokenKindAccess, s.accessTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	refreshToken, err := s.tokens.CreateSessionToken(u.ID, u.Email, TokenKindRefresh, s.refreshTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTokenDuration.Seconds()),
	}, nil
}
