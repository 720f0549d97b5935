package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/tasky/internal/logging"
	"github.com/redmonkez12/tasky/internal/user"
)

const (
	MinPasswordLength = 6
	maxEmailLength    = 254
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailRequired      = errors.New("email is required")
	ErrPasswordRequired   = errors.New("password is required")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
	ErrInvalidEmailFormat = errors.New("invalid email format")
	ErrResetTokenRequired = errors.New("reset token is required")
)

// Durations groups the lifetimes of issued credentials
type Durations struct {
	AccessToken  time.Duration
	RefreshToken time.Duration
	ResetToken   time.Duration
}

// Service handles authentication business logic
type Service struct {
	userRepo     UserRepository
	refreshRepo  RefreshTokenRepository
	resetRepo    ResetTokenRepository
	tokenService TokenService
	emailService EmailService
	logger       *logging.Logger
	durations    Durations
	now          func() time.Time
	// sendAsync runs mail delivery off the request path
	sendAsync func(func())
}

func NewService(
	userRepo UserRepository,
	refreshRepo RefreshTokenRepository,
	resetRepo ResetTokenRepository,
	tokenService TokenService,
	emailService EmailService,
	logger *logging.Logger,
	durations Durations,
) *Service {
	return &Service{
		userRepo:     userRepo,
		refreshRepo:  refreshRepo,
		resetRepo:    resetRepo,
		tokenService: tokenService,
		emailService: emailService,
		logger:       logger,
		durations:    durations,
		now:          time.Now,
		sendAsync:    func(f func()) { go f() },
	}
}

// Register creates a new user account with a password
func (s *Service) Register(ctx context.Context, name, email, password string) (*user.User, error) {
	if err := user.ValidateName(name); err != nil {
		return nil, err
	}
	email = user.NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser, err := s.userRepo.Create(ctx, name, email, passwordHash)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, user.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return newUser, nil
}

// Login authenticates a user and returns tokens
func (s *Service) Login(ctx context.Context, email, password string) (*AuthTokens, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	existingUser, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	// Accounts created through an external provider have no password
	if !existingUser.HasPassword() || !verifyPassword(existingUser.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	if isLegacyHash(existingUser.PasswordHash) {
		s.upgradeHash(ctx, existingUser.ID, password)
	}

	tokens, err := s.generateTokens(ctx, existingUser.ID, existingUser.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	return tokens, nil
}

// upgradeHash rewrites a legacy bcrypt hash as argon2id after a successful login
func (s *Service) upgradeHash(ctx context.Context, userID uuid.UUID, password string) {
	passwordHash, err := hashPassword(password)
	if err == nil {
		err = s.userRepo.UpdatePassword(ctx, userID, passwordHash)
	}
	if err != nil {
		s.log(ctx).Warn("failed to upgrade legacy password hash", "user_id", userID, "error", err)
	}
}

// RefreshAccessToken rotates a refresh token and issues a new token pair
func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	rt, err := s.refreshRepo.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshTokenNotFound) || errors.Is(err, ErrRefreshTokenRevoked) || errors.Is(err, ErrInvalidToken) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	now := s.now()
	if rt.IsRevoked() {
		return nil, ErrRefreshTokenRevoked
	}
	if rt.IsExpired(now) {
		return nil, ErrRefreshTokenExpired
	}

	// Revoke old refresh token before issuing new ones to prevent reuse
	if err := s.refreshRepo.RevokeRefreshToken(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("failed to revoke old refresh token: %w", err)
	}

	existingUser, err := s.userRepo.GetByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return s.generateTokens(ctx, existingUser.ID, existingUser.Email)
}

// RevokeRefreshToken revokes a refresh token
func (s *Service) RevokeRefreshToken(ctx context.Context, refreshToken string) error {
	return s.refreshRepo.RevokeRefreshToken(ctx, refreshToken)
}

// RequestPasswordReset creates a reset token and mails the link.
// Always returns nil to prevent email enumeration attacks.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = user.NormalizeEmail(email)
	if ValidateEmail(email) != nil {
		return nil
	}

	existingUser, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			s.log(ctx).Warn("failed to get user for password reset", "error", err)
		}
		return nil
	}

	token, err := generateRandomToken()
	if err != nil {
		s.log(ctx).Warn("failed to generate password reset token", "error", err)
		return nil
	}

	expires := s.now().Add(s.durations.ResetToken)
	if err := s.resetRepo.CreateResetToken(ctx, existingUser.Email, token, expires); err != nil {
		s.log(ctx).Warn("failed to store password reset token", "error", err)
		return nil
	}

	logger := s.log(ctx)
	s.sendAsync(func() {
		// The request context is cancelled once the response is written
		if err := s.emailService.SendPasswordResetEmail(context.WithoutCancel(ctx), existingUser.Email, token); err != nil {
			logger.Warn("failed to send password reset email", "email", existingUser.Email, "error", err)
		}
	})

	return nil
}

// ResetPassword sets a new password using a valid reset token. The token
// is consumed before anything else happens, so it works at most once even
// when the rest of the reset fails. Every refresh token of the user is revoked.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrResetTokenRequired
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	rt, err := s.resetRepo.ConsumeResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrPasswordResetTokenNotFound) {
			return ErrPasswordResetTokenNotFound
		}
		return fmt.Errorf("failed to consume password reset token: %w", err)
	}

	if !s.now().Before(rt.Expires) {
		return ErrPasswordResetTokenNotFound
	}

	existingUser, err := s.userRepo.GetByEmail(ctx, rt.Identifier)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrPasswordResetTokenNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	passwordHash, err := hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, existingUser.ID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.refreshRepo.RevokeAllUserTokens(ctx, existingUser.ID); err != nil {
		s.log(ctx).Warn("failed to revoke all user tokens after password reset", "error", err)
	}

	return nil
}

// generateTokens creates both access and refresh tokens
func (s *Service) generateTokens(ctx context.Context, userID uuid.UUID, email string) (*AuthTokens, error) {
	accessToken, err := s.tokenService.CreateToken(userID, email, s.durations.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	refreshToken, err := generateRandomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	expiresAt := s.now().Add(s.durations.RefreshToken)
	if err := s.refreshRepo.StoreRefreshToken(ctx, userID, refreshToken, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.durations.AccessToken.Seconds()),
	}, nil
}

func (s *Service) log(ctx context.Context) *logging.Logger {
	return logging.FromContext(ctx, s.logger)
}

// ValidateEmail expects an already normalized bare address
func ValidateEmail(email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	if len(email) > maxEmailLength {
		return ErrInvalidEmailFormat
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmailFormat
	}
	return nil
}

// ValidatePassword enforces MinPasswordLength characters
func ValidatePassword(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	if len([]rune(password)) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}
