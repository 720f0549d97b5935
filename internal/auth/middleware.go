package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/redmonkez12/tasky/internal/httputil"
	"github.com/redmonkez12/tasky/internal/logging"
	"github.com/redmonkez12/tasky/internal/session"
)

// Middleware turns access tokens into a session.Session
type Middleware struct {
	tokenService TokenService
	logger       *logging.Logger
}

func NewMiddleware(tokenService TokenService, logger *logging.Logger) *Middleware {
	return &Middleware{tokenService: tokenService, logger: logger}
}

// authFailure is a rejected request: the client message and its error code
type authFailure struct {
	message string
	code    string
}

var (
	failMissing   = &authFailure{"missing authentication", httputil.CodeMissingAuth}
	failHeader    = &authFailure{"invalid authorization header format", httputil.CodeInvalidAuthHeader}
	failExpired   = &authFailure{"token has expired", httputil.CodeTokenExpired}
	failInvalid   = &authFailure{"invalid token", httputil.CodeInvalidToken}
	failSubjectID = &authFailure{"invalid user ID in token", httputil.CodeInvalidTokenUserID}
)

// RequireAuth rejects requests without a valid access token with 401 and
// stores the caller's session in the request context otherwise. A bearer
// header takes precedence over the access token cookie.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, fail := m.authenticate(r)
		if fail != nil {
			logging.FromContext(r.Context(), m.logger).Debug("request rejected", "reason", fail.code)
			httputil.RespondErrorWithCode(w, fail.message, fail.code, http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), sess)))
	})
}

func (m *Middleware) authenticate(r *http.Request) (*session.Session, *authFailure) {
	token, fail := accessTokenFromRequest(r)
	if fail != nil {
		return nil, fail
	}

	claims, err := m.tokenService.VerifyToken(token)
	switch {
	case errors.Is(err, ErrExpiredToken):
		return nil, failExpired
	case err != nil:
		return nil, failInvalid
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil || userID == uuid.Nil {
		return nil, failSubjectID
	}

	return &session.Session{
		UserID:    userID,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

func accessTokenFromRequest(r *http.Request) (string, *authFailure) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, value, ok := strings.Cut(header, " ")
		value = strings.TrimSpace(value)
		if !ok || !strings.EqualFold(scheme, "Bearer") || value == "" {
			return "", failHeader
		}
		return value, nil
	}

	token, err := GetAccessTokenFromCookie(r)
	if err != nil {
		return "", failMissing
	}
	return token, nil
}
