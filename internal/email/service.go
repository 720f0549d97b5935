package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"net/url"
	"strings"
	"time"

	"github.com/redmonkez12/tasky/internal/config"
	"github.com/redmonkez12/tasky/internal/logging"
	"github.com/redmonkez12/tasky/templates"
)

const passwordResetTemplate = "email/password_reset.html"

// SendFunc delivers a raw RFC 5322 message. It matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service sends transactional mail over SMTP
type Service struct {
	cfg       config.EmailConfig
	resetTTL  time.Duration
	templates *template.Template
	logger    *logging.Logger
	send      SendFunc
}

func NewService(cfg config.EmailConfig, resetTTL time.Duration, logger *logging.Logger) (*Service, error) {
	tmpl, err := template.ParseFS(templates.EmailFS, "email/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}

	return &Service{
		cfg:       cfg,
		resetTTL:  resetTTL,
		templates: tmpl,
		logger:    logger,
		send:      smtp.SendMail,
	}, nil
}

// SendPasswordResetEmail mails the reset link for token to toEmail.
// Without an SMTP host the link is only logged.
func (s *Service) SendPasswordResetEmail(ctx context.Context, toEmail, token string) error {
	logger := logging.FromContext(ctx, s.logger)

	resetLink := s.resetLink(token)

	if s.cfg.SMTPHost == "" {
		logger.Warn("SMTP not configured, password reset email not sent", "email", toEmail, "link", resetLink)
		return nil
	}

	body, err := s.render(passwordResetTemplate, map[string]string{
		"ResetLink": resetLink,
		"ExpiresIn": humanDuration(s.resetTTL),
	})
	if err != nil {
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sendEmail(toEmail, "Reset your Tasky password", body); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("password reset email sent", "email", toEmail)
	return nil
}

func (s *Service) resetLink(token string) string {
	return strings.TrimRight(s.cfg.FrontendURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
}

func (s *Service) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, strings.TrimPrefix(name, "email/"), data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *Service) sendEmail(to, subject, body string) error {
	var auth smtp.Auth
	if s.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}

	msg := []byte("From: " + s.cfg.FromAddress + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n" +
		"\r\n" +
		body + "\r\n")

	addr := net.JoinHostPort(s.cfg.SMTPHost, s.cfg.SMTPPort)
	return s.send(addr, auth, s.cfg.FromAddress, []string{to}, msg)
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", d/time.Hour)
	case d >= time.Minute:
		return fmt.Sprintf("%d minutes", d/time.Minute)
	default:
		return d.String()
	}
}
