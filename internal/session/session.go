// Package session carries the authenticated identity established by the auth
// middleware. Consumers only read it; its lifecycle belongs to internal/auth.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session is the authenticated identity of the caller
type Session struct {
	UserID    uuid.UUID
	Email     string
	ExpiresAt time.Time
}

type contextKey struct{}

// WithSession returns a copy of ctx carrying s
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored in ctx, or nil
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}

// Authenticated reports whether s names a user.
func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != uuid.Nil
}
