package auth

import (
	"fmt"

	"github.com/redmonkez12/tasky/internal/config"
)

// NewTokenService builds the access token implementation selected by cfg.TokenStrategy
func NewTokenService(cfg config.AuthConfig) (TokenService, error) {
	switch cfg.TokenStrategy {
	case config.TokenStrategyPaseto:
		svc, err := NewPasetoService(cfg.PasetoKey)
		if err != nil {
			return nil, err
		}
		return svc, nil
	case config.TokenStrategyJWT:
		svc, err := NewJWTService(cfg.JWTSecret)
		if err != nil {
			return nil, err
		}
		return svc, nil
	default:
		return nil, fmt.Errorf("unsupported token strategy %q", cfg.TokenStrategy)
	}
}
