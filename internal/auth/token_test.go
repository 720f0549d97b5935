package auth

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/tasky/internal/config"
)

var testKey = bytes.Repeat([]byte("k"), 32)

func tokenServices(t *testing.T, now func() time.Time) map[string]TokenService {
	t.Helper()

	p, err := NewPasetoService(testKey)
	require.NoError(t, err)
	p.now = now

	j, err := NewJWTService(testKey)
	require.NoError(t, err)
	j.now = now

	return map[string]TokenService{"paseto": p, "jwt": j}
}

func TestTokenService_RoundTrip(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	for name, svc := range tokenServices(t, func() time.Time { return now }) {
		t.Run(name, func(t *testing.T) {
			token, err := svc.CreateToken(userID, "ada@example.com", 15*time.Minute)
			require.NoError(t, err)

			claims, err := svc.VerifyToken(token)
			require.NoError(t, err)
			assert.Equal(t, userID.String(), claims.UserID)
			assert.Equal(t, "ada@example.com", claims.Email)
			assert.True(t, now.Add(15*time.Minute).Equal(claims.ExpiresAt))
		})
	}
}

func TestTokenService_Expired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	for name, svc := range tokenServices(t, clock) {
		t.Run(name, func(t *testing.T) {
			now = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
			token, err := svc.CreateToken(uuid.New(), "ada@example.com", time.Minute)
			require.NoError(t, err)

			now = now.Add(2 * time.Minute)
			_, err = svc.VerifyToken(token)
			assert.ErrorIs(t, err, ErrExpiredToken)
		})
	}
}

func TestTokenService_Invalid(t *testing.T) {
	now := func() time.Time { return time.Now() }

	for name, svc := range tokenServices(t, now) {
		t.Run(name, func(t *testing.T) {
			_, err := svc.VerifyToken("garbage")
			assert.ErrorIs(t, err, ErrInvalidToken)

			token, err := svc.CreateToken(uuid.New(), "ada@example.com", time.Minute)
			require.NoError(t, err)
			_, err = svc.VerifyToken(token[:len(token)-4] + "AAAA")
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestTokenService_WrongKey(t *testing.T) {
	p1, err := NewPasetoService(testKey)
	require.NoError(t, err)
	p2, err := NewPasetoService(bytes.Repeat([]byte("x"), 32))
	require.NoError(t, err)

	token, err := p1.CreateToken(uuid.New(), "ada@example.com", time.Minute)
	require.NoError(t, err)
	_, err = p2.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	j, err := NewJWTService(testKey)
	require.NoError(t, err)
	_, err = j.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "a PASETO token is not a JWT")
}

func TestNewTokenService_KeyLength(t *testing.T) {
	_, err := NewPasetoService([]byte("short"))
	assert.Error(t, err)

	_, err = NewJWTService([]byte("short"))
	assert.Error(t, err)
}

func TestNewTokenService_Strategy(t *testing.T) {
	svc, err := NewTokenService(config.AuthConfig{TokenStrategy: config.TokenStrategyPaseto, PasetoKey: testKey})
	require.NoError(t, err)
	assert.IsType(t, &PasetoService{}, svc)

	svc, err = NewTokenService(config.AuthConfig{TokenStrategy: config.TokenStrategyJWT, JWTSecret: testKey})
	require.NoError(t, err)
	assert.IsType(t, &JWTService{}, svc)

	_, err = NewTokenService(config.AuthConfig{TokenStrategy: "saml"})
	assert.Error(t, err)
}
