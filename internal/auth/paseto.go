package auth

import (
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token has expired")
	ErrWrongTokenKind = errors.New("wrong token kind")
)

// TokenKind distinguishes short-lived access tokens from long-lived
// refresh tokens. A refresh token is never accepted where an access token
// is required, and vice versa.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// SessionClaims are the verified contents of a session token
type SessionClaims struct {
	UserID    string    `json:"user_id"` // UUID stored as string in token
	Email     string    `json:"email"`   // token subject
	Kind      TokenKind `json:"kind"`
	TokenID   string    `json:"jti"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// TokenService issues and verifies session tokens.
// Uses PASETO v4.local (symmetric encryption with XChaCha20-Poly1305).
type TokenService struct {
	symmetricKey paseto.V4SymmetricKey
}

func NewTokenService(symmetricKey []byte) (*TokenService, error) {
	if len(symmetricKey) != 32 {
		return nil, fmt.Errorf("symmetric key must be exactly 32 bytes, got %d", len(symmetricKey))
	}

	key, err := paseto.V4SymmetricKeyFromBytes(symmetricKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create symmetric key: %w", err)
	}

	return &TokenService{symmetricKey: key}, nil
}

// CreateSessionToken generates a session token of the given kind. The
// subject is the user's email; a fresh jti makes every token unique.
func (s *TokenService) CreateSessionToken(userID uuid.UUID, email string, kind TokenKind, duration time.Duration) (string, error) {
	now := time.Now()

	token := paseto.NewToken()
	token.SetIssuedAt(now)
	token.SetExpiration(now.Add(duration))
	token.SetSubject(email)
	token.SetJti(uuid.NewString())
	token.SetString("user_id", userID.String())
	token.SetString("kind", string(kind))

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

// VerifySessionToken validates a session token and enforces its kind.
// It fails closed: any signature, expiry, or claim problem yields an error
// and never partial claims.
func (s *TokenService) VerifySessionToken(tokenStr string, kind TokenKind) (*SessionClaims, error) {
	parser := paseto.NewParser()

	token, err := parser.ParseV4Local(s.symmetricKey, tokenStr, nil)
	if err != nil {
		// The parser checks expiration by default; distinguish expired from invalid
		if errors.Is(err, &paseto.RuleError{}) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	tokenKind, err := token.GetString("kind")
	if err != nil {
		return nil, ErrInvalidToken
	}
	if TokenKind(tokenKind) != kind {
		return nil, ErrWrongTokenKind
	}

	email, err := token.GetSubject()
	if err != nil {
		return nil, ErrInvalidToken
	}

	userID, err := token.GetString("user_id")
	if err != nil {
		return nil, ErrInvalidToken
	}

	jti, err := token.GetJti()
	if err != nil {
		return nil, ErrInvalidToken
	}

	issuedAt, err := token.GetIssuedAt()
	if err != nil {
		return nil, ErrInvalidToken
	}

	expiresAt, err := token.GetExpiration()
	if err != nil {
		return nil, ErrInvalidToken
	}

	return &SessionClaims{
		UserID:    userID,
		Email:     email,
		Kind:      TokenKind(tokenKind),
		TokenID:   jti,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}
