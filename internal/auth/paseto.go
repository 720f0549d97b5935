package auth

import (
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const (
	pasetoKeySize = 32
	tokenIssuer   = "tasky"
	claimEmail    = "email"
)

// PasetoService issues v4.local tokens (XChaCha20 + BLAKE2b, symmetric key).
// The user id travels in the registered "sub" claim.
type PasetoService struct {
	key paseto.V4SymmetricKey
	now func() time.Time
}

func NewPasetoService(symmetricKey []byte) (*PasetoService, error) {
	if n := len(symmetricKey); n != pasetoKeySize {
		return nil, fmt.Errorf("paseto key must be exactly %d bytes, got %d", pasetoKeySize, n)
	}

	key, err := paseto.V4SymmetricKeyFromBytes(symmetricKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load paseto key: %w", err)
	}
	return &PasetoService{key: key, now: time.Now}, nil
}

func (s *PasetoService) CreateToken(userID uuid.UUID, email string, duration time.Duration) (string, error) {
	issued := s.now()

	t := paseto.NewToken()
	t.SetIssuer(tokenIssuer)
	t.SetJti(uuid.NewString())
	t.SetSubject(userID.String())
	t.SetIssuedAt(issued)
	t.SetNotBefore(issued)
	t.SetExpiration(issued.Add(duration))
	t.SetString(claimEmail, email)

	return t.V4Encrypt(s.key, nil), nil
}

// VerifyToken decrypts tokenStr and checks issuer and expiry. Expiry is
// compared against the service clock so an expired token is reported as
// ErrExpiredToken rather than ErrInvalidToken.
func (s *PasetoService) VerifyToken(tokenStr string) (*TokenClaims, error) {
	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.IssuedBy(tokenIssuer))

	t, err := parser.ParseV4Local(s.key, tokenStr, nil)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, err := pasetoClaims(t)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !s.now().Before(claims.ExpiresAt) {
		return nil, ErrExpiredToken
	}
	return claims, nil
}

func pasetoClaims(t *paseto.Token) (*TokenClaims, error) {
	var (
		c   TokenClaims
		err error
	)
	if c.UserID, err = t.GetSubject(); err != nil {
		return nil, err
	}
	if c.Email, err = t.GetString(claimEmail); err != nil {
		return nil, err
	}
	if c.IssuedAt, err = t.GetIssuedAt(); err != nil {
		return nil, err
	}
	if c.ExpiresAt, err = t.GetExpiration(); err != nil {
		return nil, err
	}
	return &c, nil
}
