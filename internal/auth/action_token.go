package auth

import (
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/google/uuid"
)

// ErrInvalidActionToken covers every action-token failure: tampering,
// expiry, wrong purpose, malformed payload. Decoding fails closed.
var ErrInvalidActionToken = errors.New("invalid or expired action token")

// ActionPurpose binds an action token to the single flow it was minted for
type ActionPurpose string

const (
	PurposeEmailVerification ActionPurpose = "email_verification"
	PurposePasswordReset     ActionPurpose = "password_reset"
)

// ActionClaims are the verified contents of an action token
type ActionClaims struct {
	Email   string
	Purpose ActionPurpose
	TokenID string
}

// ActionTokenService issues and verifies single-purpose email-action
// tokens (verification links, password-reset links). It is keyed
// independently from the session TokenService so an action token can never
// be replayed as a session token.
type ActionTokenService struct {
	symmetricKey paseto.V4SymmetricKey
}

func NewActionTokenService(symmetricKey []byte) (*ActionTokenService, error) {
	if len(symmetricKey) != 32 {
		return nil, fmt.Errorf("symmetric key must be exactly 32 bytes, got %d", len(symmetricKey))
	}

	key, err := paseto.V4SymmetricKeyFromBytes(symmetricKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create symmetric key: %w", err)
	}

	return &ActionTokenService{symmetricKey: key}, nil
}

// Create mints a token carrying the email for the given purpose
func (s *ActionTokenService) Create(email string, purpose ActionPurpose, ttl time.Duration) (string, error) {
	now := time.Now()

	token := paseto.NewToken()
	token.SetIssuedAt(now)
	token.SetExpiration(now.Add(ttl))
	token.SetSubject(email)
	token.SetJti(uuid.NewString())
	token.SetString("purpose", string(purpose))

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

// Verify decodes the token and checks it was minted for the expected
// purpose. Any mismatch yields ErrInvalidActionToken, never a partial
// result.
func (s *ActionTokenService) Verify(tokenStr string, purpose ActionPurpose) (*ActionClaims, error) {
	parser := paseto.NewParser()

	token, err := parser.ParseV4Local(s.symmetricKey, tokenStr, nil)
	if err != nil {
		return nil, ErrInvalidActionToken
	}

	tokenPurpose, err := token.GetString("purpose")
	if err != nil || ActionPurpose(tokenPurpose) != purpose {
		return nil, ErrInvalidActionToken
	}

	email, err := token.GetSubject()
	if err != nil || email == "" {
		return nil, ErrInvalidActionToken
	}

	jti, err := token.GetJti()
	if err != nil {
		return nil, ErrInvalidActionToken
	}

	return &ActionClaims{
		Email:   email,
		Purpose: ActionPurpose(tokenPurpose),
		TokenID: jti,
	}, nil
}
