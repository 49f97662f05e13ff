package mail

import (
	"context"
	"fmt"

	"github.com/inkcircle/inkcircle-api/internal/logging"
)

// Service builds the application's outbound emails and hands them to the
// configured Dispatcher. Callers run it from goroutines; a dispatch failure
// is logged and never propagates back to the originating request.
type Service struct {
	dispatcher  Dispatcher
	frontendURL string
	logger      *logging.Logger
}

func NewService(dispatcher Dispatcher, frontendURL string, logger *logging.Logger) *Service {
	return &Service{
		dispatcher:  dispatcher,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

// SendVerificationEmail dispatches an account-verification link
func (s *Service) SendVerificationEmail(ctx context.Context, toEmail, token string) error {
	link := fmt.Sprintf("%s/verify?token=%s", s.frontendURL, token)

	body, err := RenderVerificationEmail(link)
	if err != nil {
		s.logger.Error("failed to render verification email", "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	msg := Message{
		To:       []string{toEmail},
		Subject:  "Verify your email address",
		HTMLBody: body,
	}

	if err := s.dispatcher.Dispatch(ctx, msg); err != nil {
		s.logger.Error("failed to dispatch verification email", "email", toEmail, "error", err)
		return fmt.Errorf("dispatch mail: %w", err)
	}

	s.logger.Info("verification email dispatched", "email", toEmail)
	return nil
}

// SendPasswordResetEmail dispatches a password-reset link
func (s *Service) SendPasswordResetEmail(ctx context.Context, toEmail, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, token)

	body, err := RenderPasswordResetEmail(link)
	if err != nil {
		s.logger.Error("failed to render password reset email", "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	msg := Message{
		To:       []string{toEmail},
		Subject:  "Reset your password",
		HTMLBody: body,
	}

	if err := s.dispatcher.Dispatch(ctx, msg); err != nil {
		s.logger.Error("failed to dispatch password reset email", "email", toEmail, "error", err)
		return fmt.Errorf("dispatch mail: %w", err)
	}

	s.logger.Info("password reset email dispatched", "email", toEmail)
	return nil
}
