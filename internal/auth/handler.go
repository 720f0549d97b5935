package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/redmonkez12/tasky/internal/httputil"
	"github.com/redmonkez12/tasky/internal/logging"
	"github.com/redmonkez12/tasky/internal/ratelimit"
	"github.com/redmonkez12/tasky/internal/session"
	"github.com/redmonkez12/tasky/internal/user"
)

// RateLimiter throttles unauthenticated auth endpoints
type RateLimiter interface {
	LimitIP(ctx context.Context, ip, purpose string, p ratelimit.Policy) (ratelimit.Result, error)
	StartEmailCooldown(ctx context.Context, email string, cooldown time.Duration) (bool, error)
}

// ProfileService serves the signed-in user's profile
type ProfileService interface {
	Me(ctx context.Context, userID uuid.UUID) (*user.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, p user.ProfileUpdate) (*user.User, error)
}

// HandlerOptions configures cookies and throttling of the auth endpoints
type HandlerOptions struct {
	SecureCookies   bool
	AccessDuration  time.Duration
	RefreshDuration time.Duration
	IPPolicy        ratelimit.Policy
	EmailCooldown   time.Duration
}

// Handler contains HTTP handlers for authentication endpoints
type Handler struct {
	service     *Service
	profiles    ProfileService
	rateLimiter RateLimiter
	logger      *logging.Logger
	opts        HandlerOptions
}

func NewHandler(service *Service, profiles ProfileService, rateLimiter RateLimiter, logger *logging.Logger, opts HandlerOptions) *Handler {
	return &Handler{
		service:     service,
		profiles:    profiles,
		rateLimiter: rateLimiter,
		logger:      logger,
		opts:        opts,
	}
}

// Routes mounts the auth endpoints. Profile endpoints require mw.
func (h *Handler) Routes(r chi.Router, mw *Middleware) {
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/refresh", h.Refresh)
	r.Post("/logout", h.Logout)
	r.Post("/forgot-password", h.ForgotPassword)
	r.Post("/reset-password", h.ResetPassword)

	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAuth)
		r.Get("/me", h.Me)
		r.Patch("/profile", h.UpdateProfile)
	})
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest represents the token refresh request body
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RegisterResponse represents the registration response
type RegisterResponse struct {
	User    *user.User `json:"user"`
	Message string     `json:"message"`
}

// ForgotPasswordRequest represents the password reset request
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest represents the password reset confirmation
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// MessageResponse is a plain confirmation body
type MessageResponse struct {
	Message string `json:"message"`
}

// Register handles user registration
// @Summary      Register a new user
// @Description  Create a new user account with name, email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration data"
// @Success      201 {object} RegisterResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid request or validation error"
// @Failure      409 {object} httputil.ErrorResponse "Email already exists"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Router       /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	logger := h.log(r)

	if h.ipLimited(w, r, "register") {
		return
	}

	var req RegisterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid registration request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	newUser, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrDuplicateEmail):
			logger.Warn("registration failed: email already exists")
			httputil.RespondErrorWithCode(w, "email already exists", httputil.CodeEmailAlreadyExists, http.StatusConflict)
		case isValidationError(err):
			logger.Warn("registration failed: validation error", "error", err.Error())
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationError, http.StatusBadRequest)
		default:
			logger.Error("registration failed: internal error", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to register user", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("user registered successfully", "user_id", newUser.ID)

	httputil.RespondJSON(w, RegisterResponse{
		User:    newUser,
		Message: "Registration successful. You can now login.",
	}, http.StatusCreated)
}

// Login handles user login
// @Summary      User login
// @Description  Authenticate user and receive access and refresh tokens. Browser clients receive HttpOnly cookies instead.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} AuthTokens
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body"
// @Failure      401 {object} httputil.ErrorResponse "Invalid credentials"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Router       /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := h.log(r)

	if h.ipLimited(w, r, "login") {
		return
	}

	var req LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid login request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	tokens, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			logger.Warn("login failed: invalid credentials")
			httputil.RespondErrorWithCode(w, "invalid email or password", httputil.CodeInvalidCredentials, http.StatusUnauthorized)
			return
		}
		logger.Error("login failed: internal error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to login", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("user logged in successfully")
	h.respondTokens(w, r, tokens, "logged in successfully")
}

// Refresh handles access token refresh
// @Summary      Refresh access token
// @Description  Use a refresh token (body or cookie) to get a new token pair. The old refresh token is revoked.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshRequest false "Refresh token"
// @Success      200 {object} AuthTokens
// @Failure      400 {object} httputil.ErrorResponse "Refresh token missing"
// @Failure      401 {object} httputil.ErrorResponse "Invalid or expired refresh token"
// @Router       /auth/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	logger := h.log(r)

	refreshToken := refreshTokenFromRequest(r)
	if refreshToken == "" {
		logger.Warn("refresh token missing from both body and cookie")
		httputil.RespondErrorWithCode(w, "refresh token required", httputil.CodeRefreshTokenRequired, http.StatusBadRequest)
		return
	}

	tokens, err := h.service.RefreshAccessToken(r.Context(), refreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrRefreshTokenRevoked) || errors.Is(err, ErrRefreshTokenExpired) {
			logger.Warn("token refresh failed: invalid or expired token", "error", err.Error())
			httputil.RespondErrorWithCode(w, "invalid or expired refresh token", httputil.CodeInvalidRefreshToken, http.StatusUnauthorized)
			return
		}
		logger.Error("token refresh failed: internal error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to refresh token", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("access token refreshed successfully")
	h.respondTokens(w, r, tokens, "token refreshed successfully")
}

// Logout handles user logout
// @Summary      User logout
// @Description  Revoke the refresh token and clear auth cookies
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshRequest false "Optional refresh token"
// @Success      200 {object} MessageResponse
// @Router       /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := h.log(r)

	if refreshToken := refreshTokenFromRequest(r); refreshToken != "" {
		if err := h.service.RevokeRefreshToken(r.Context(), refreshToken); err != nil && !errors.Is(err, ErrRefreshTokenNotFound) {
			// Cookies are cleared regardless
			logger.Warn("failed to revoke refresh token", "error", err)
		}
	}

	ClearAuthCookies(w, h.opts.SecureCookies)

	logger.Info("user logged out successfully")
	httputil.RespondJSON(w, MessageResponse{Message: "logged out"}, http.StatusOK)
}

// Me returns the signed-in user
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} user.User
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      404 {object} httputil.ErrorResponse "User not found"
// @Router       /auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if !sess.Authenticated() {
		httputil.RespondErrorWithCode(w, "authentication required", httputil.CodeUnauthorized, http.StatusUnauthorized)
		return
	}

	u, err := h.profiles.Me(r.Context(), sess.UserID)
	if err != nil {
		h.respondProfileError(w, r, err)
		return
	}

	httputil.RespondJSON(w, u, http.StatusOK)
}

// UpdateProfile changes the signed-in user's name or image
// @Summary      Update profile
// @Description  Name must have at least 2 characters. An empty image clears it.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body user.ProfileUpdate true "Profile fields"
// @Success      200 {object} user.User
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Router       /auth/profile [patch]
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if !sess.Authenticated() {
		httputil.RespondErrorWithCode(w, "authentication required", httputil.CodeUnauthorized, http.StatusUnauthorized)
		return
	}

	var req user.ProfileUpdate
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.log(r).Warn("invalid profile request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	u, err := h.profiles.UpdateProfile(r.Context(), sess.UserID, req)
	if err != nil {
		h.respondProfileError(w, r, err)
		return
	}

	httputil.RespondJSON(w, u, http.StatusOK)
}

// ForgotPassword handles password reset requests
// @Summary      Request password reset
// @Description  Send a password reset link to the user's email. Always returns success to prevent email enumeration.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ForgotPasswordRequest true "Email address"
// @Success      200 {object} MessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Router       /auth/forgot-password [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	logger := h.log(r)

	var req ForgotPasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid forgot password request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if h.ipLimited(w, r, "forgot-password") {
		return
	}

	email := user.NormalizeEmail(req.Email)
	if email != "" {
		onCooldown, err := h.rateLimiter.StartEmailCooldown(r.Context(), email, h.opts.EmailCooldown)
		if err != nil {
			// Fail open so a Redis outage does not block resets
			logger.Error("failed to check email cooldown", "error", err.Error())
		} else if onCooldown {
			logger.Warn("email on cooldown", "email", email)
			httputil.RespondErrorWithCode(w, "please wait before requesting another reset", httputil.CodeCooldownActive, http.StatusTooManyRequests)
			return
		}
	}

	_ = h.service.RequestPasswordReset(r.Context(), email)

	httputil.RespondJSON(w, MessageResponse{
		Message: "If an account exists with that email, a password reset link has been sent.",
	}, http.StatusOK)
}

// ResetPassword handles password reset with token
// @Summary      Reset password
// @Description  Reset a user's password using a valid reset token. Signs the user out everywhere.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ResetPasswordRequest true "Reset token and new password"
// @Success      200 {object} MessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid request or token"
// @Router       /auth/reset-password [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	logger := h.log(r)

	var req ResetPasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid reset password request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, ErrPasswordResetTokenNotFound):
			logger.Warn("password reset failed: invalid or expired token")
			httputil.RespondErrorWithCode(w, "invalid or expired reset token", httputil.CodeInvalidResetToken, http.StatusBadRequest)
		case isValidationError(err):
			logger.Warn("password reset failed: validation error", "error", err.Error())
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationError, http.StatusBadRequest)
		default:
			logger.Error("password reset failed: internal error", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to reset password", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("password reset successfully")

	httputil.RespondJSON(w, MessageResponse{
		Message: "Password reset successfully. You can now login with your new password.",
	}, http.StatusOK)
}

func (h *Handler) respondTokens(w http.ResponseWriter, r *http.Request, tokens *AuthTokens, message string) {
	if ShouldUseCookies(r) {
		SetAuthCookies(w, tokens.AccessToken, tokens.RefreshToken, h.opts.SecureCookies, h.opts.AccessDuration, h.opts.RefreshDuration)
		httputil.RespondJSON(w, MessageResponse{Message: message}, http.StatusOK)
		return
	}
	httputil.RespondJSON(w, tokens, http.StatusOK)
}

func (h *Handler) respondProfileError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, user.ErrNotFound):
		httputil.RespondErrorWithCode(w, "user not found", httputil.CodeUserNotFound, http.StatusNotFound)
	case errors.Is(err, user.ErrNameTooShort), errors.Is(err, user.ErrInvalidImageURL):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationError, http.StatusBadRequest)
	default:
		h.log(r).Error("profile request failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
	}
}

// ipLimited applies the per-IP policy for purpose and writes a 429 when it is
// exhausted. Limiter failures let the request through.
func (h *Handler) ipLimited(w http.ResponseWriter, r *http.Request, purpose string) bool {
	ip := getClientIP(r)

	res, err := h.rateLimiter.LimitIP(r.Context(), ip, purpose, h.opts.IPPolicy)
	if err != nil {
		h.log(r).Error("failed to check IP rate limit", "error", err.Error())
		return false
	}
	if res.Allowed {
		return false
	}

	h.log(r).Warn("IP rate limit exceeded", "ip", ip, "purpose", purpose)
	httputil.SetRetryAfter(w, res.RetryAfter(time.Now()))
	httputil.SetRateLimitHeaders(w, res.Limit, 0)
	httputil.RespondErrorWithCode(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
	return true
}

func (h *Handler) log(r *http.Request) *logging.Logger {
	return logging.FromContext(r.Context(), h.logger)
}

func isValidationError(err error) bool {
	for _, target := range []error{
		ErrEmailRequired, ErrInvalidEmailFormat, ErrPasswordRequired, ErrPasswordTooShort,
		ErrResetTokenRequired, user.ErrNameTooShort,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// refreshTokenFromRequest reads the refresh token from the JSON body, falling back to the cookie
func refreshTokenFromRequest(r *http.Request) string {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && strings.TrimSpace(req.RefreshToken) != "" {
		return strings.TrimSpace(req.RefreshToken)
	}
	if cookieToken, err := GetRefreshTokenFromCookie(r); err == nil {
		return cookieToken
	}
	return ""
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs, the first is the client
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
