package email

import (
	"context"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/tasky/internal/config"
	"github.com/redmonkez12/tasky/internal/logging"
)

type captured struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  string
}

func newTestService(t *testing.T, cfg config.EmailConfig) (*Service, *[]captured) {
	t.Helper()
	svc, err := NewService(cfg, time.Hour, logging.NewNopLogger())
	require.NoError(t, err)

	var sent []captured
	svc.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		sent = append(sent, captured{addr: addr, auth: a, from: from, to: to, msg: string(msg)})
		return nil
	}
	return svc, &sent
}

func TestSendPasswordResetEmail(t *testing.T) {
	svc, sent := newTestService(t, config.EmailConfig{
		SMTPHost:    "smtp.example.com",
		SMTPPort:    "587",
		SMTPUser:    "mailer",
		FromAddress: "noreply@tasky.dev",
		FrontendURL: "https://tasky.dev/",
	})

	require.NoError(t, svc.SendPasswordResetEmail(context.Background(), "ada@example.com", "a+b/c"))
	require.Len(t, *sent, 1)

	m := (*sent)[0]
	assert.Equal(t, "smtp.example.com:587", m.addr)
	assert.NotNil(t, m.auth)
	assert.Equal(t, "noreply@tasky.dev", m.from)
	assert.Equal(t, []string{"ada@example.com"}, m.to)
	assert.Contains(t, m.msg, "Subject: Reset your Tasky password\r\n")
	assert.Contains(t, m.msg, "https://tasky.dev/reset-password?token=a%2Bb%2Fc")
	assert.Contains(t, m.msg, "expires in 1 hour")
}

func TestSendPasswordResetEmail_NoSMTPHost(t *testing.T) {
	svc, sent := newTestService(t, config.EmailConfig{FrontendURL: "http://localhost:3000"})

	require.NoError(t, svc.SendPasswordResetEmail(context.Background(), "ada@example.com", "tok"))
	assert.Empty(t, *sent)
}

func TestSendPasswordResetEmail_DeliveryFailure(t *testing.T) {
	svc, _ := newTestService(t, config.EmailConfig{SMTPHost: "smtp.example.com", SMTPPort: "25"})
	svc.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := svc.SendPasswordResetEmail(context.Background(), "ada@example.com", "tok")
	assert.ErrorContains(t, err, "connection refused")
}

func TestHumanDuration(t *testing.T) {
	assert.Equal(t, "1 hour", humanDuration(time.Hour))
	assert.Equal(t, "24 hours", humanDuration(24*time.Hour))
	assert.Equal(t, "30 minutes", humanDuration(30*time.Minute))
	assert.Equal(t, "90 minutes", humanDuration(90*time.Minute))
}
