package session

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))

	s := &Session{UserID: uuid.New(), Email: "a@example.com"}
	ctx := WithSession(context.Background(), s)
	assert.Same(t, s, FromContext(ctx))
}

func TestAuthenticated(t *testing.T) {
	var nilSession *Session
	assert.False(t, nilSession.Authenticated())
	assert.False(t, (&Session{}).Authenticated())
	assert.True(t, (&Session{UserID: uuid.New()}).Authenticated())
}
