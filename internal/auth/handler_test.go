package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/tasky/internal/httputil"
	"github.com/redmonkez12/tasky/internal/logging"
	"github.com/redmonkez12/tasky/internal/ratelimit"
	"github.com/redmonkez12/tasky/internal/session"
	"github.com/redmonkez12/tasky/internal/user"
)

type profileStore struct{ users *memUsers }

func (p profileStore) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return p.users.GetByID(ctx, id)
}

func (p profileStore) UpdateProfile(_ context.Context, id uuid.UUID, up user.ProfileUpdate) (*user.User, error) {
	p.users.mu.Lock()
	defer p.users.mu.Unlock()
	u, ok := p.users.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	if up.Name != nil {
		u.Name = up.Name
	}
	cp := *u
	return &cp, nil
}

func newTestAuthRouter(t *testing.T, ipPolicy ratelimit.Policy) (http.Handler, *authFixture) {
	t.Helper()
	f := newAuthFixture(t)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	h := NewHandler(f.svc, user.NewService(profileStore{f.users}), ratelimit.NewLimiter(client), logging.NewNopLogger(), HandlerOptions{
		AccessDuration:  15 * time.Minute,
		RefreshDuration: time.Hour,
		IPPolicy:        ipPolicy,
		EmailCooldown:   2 * time.Minute,
	})

	r := chi.NewRouter()
	r.Route("/auth", func(r chi.Router) { h.Routes(r, NewMiddleware(f.tokens, logging.NewNopLogger())) })
	return r, f
}

func post(h http.Handler, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var generous = ratelimit.Policy{Limit: 100, Window: time.Minute}

func TestHandler_RegisterLoginMe(t *testing.T) {
	h, _ := newTestAuthRouter(t, generous)

	rec := post(h, "/auth/register", `{"name":"Ada","email":"ada@example.com","password":"secret1"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "argon2id")

	rec = post(h, "/auth/register", `{"name":"Ada","email":"ada@example.com","password":"secret1"}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = post(h, "/auth/login", `{"email":"ada@example.com","password":"secret1"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tokens AuthTokens
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&tokens))
	require.NotEmpty(t, tokens.AccessToken)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	me := httptest.NewRecorder()
	h.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code)

	var u user.User
	require.NoError(t, json.NewDecoder(me.Body).Decode(&u))
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, "Ada", *u.Name)
}

func TestHandler_RegisterValidation(t *testing.T) {
	h, _ := newTestAuthRouter(t, generous)

	rec := post(h, "/auth/register", `{"name":"Ada","email":"ada@example.com","password":"123"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp httputil.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, httputil.CodeValidationError, resp.Code)
	assert.Equal(t, ErrPasswordTooShort.Error(), resp.Error)
}

func TestHandler_LoginBrowserGetsCookies(t *testing.T) {
	h, f := newTestAuthRouter(t, generous)
	f.register(t, "ada@example.com", "secret1")

	rec := post(h, "/auth/login", `{"email":"ada@example.com","password":"secret1"}`, map[string]string{"X-Client-Type": "browser"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "access_token")

	names := map[string]bool{}
	for _, c := range rec.Result().Cookies() {
		names[c.Name] = c.HttpOnly
	}
	assert.True(t, names[AccessTokenCookie])
	assert.True(t, names[RefreshTokenCookie])
}

func TestHandler_LoginRateLimitedPerIP(t *testing.T) {
	h, _ := newTestAuthRouter(t, ratelimit.Policy{Limit: 2, Window: 15 * time.Minute})
	body := `{"email":"ada@example.com","password":"wrong-pass"}`
	ip := map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}

	for range 2 {
		assert.Equal(t, http.StatusUnauthorized, post(h, "/auth/login", body, ip).Code)
	}
	rec := post(h, "/auth/login", body, ip)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	other := map[string]string{"X-Forwarded-For": "198.51.100.1"}
	assert.Equal(t, http.StatusUnauthorized, post(h, "/auth/login", body, other).Code)
}

func TestHandler_ForgotPasswordCooldown(t *testing.T) {
	h, f := newTestAuthRouter(t, generous)
	f.register(t, "ada@example.com", "secret1")

	rec := post(h, "/auth/forgot-password", `{"email":"ada@example.com"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, f.mailer.sent, 1)

	rec = post(h, "/auth/forgot-password", `{"email":"ADA@example.com"}`, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Len(t, f.mailer.sent, 1)

	rec = post(h, "/auth/forgot-password", `{"email":"ghost@example.com"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "unknown addresses look the same")
}

func TestHandler_ResetPassword(t *testing.T) {
	h, f := newTestAuthRouter(t, generous)
	f.register(t, "ada@example.com", "secret1")
	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "ada@example.com"))
	token := f.mailer.sent[0].token

	rec := post(h, "/auth/reset-password", `{"token":"bogus","new_password":"new-secret"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(h, "/auth/reset-password", `{"token":"`+token+`","new_password":"new-secret"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_RefreshAndLogout(t *testing.T) {
	h, f := newTestAuthRouter(t, generous)
	f.register(t, "ada@example.com", "secret1")

	tokens, err := f.svc.Login(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, post(h, "/auth/refresh", `{}`, nil).Code)

	rec := post(h, "/auth/refresh", `{"refresh_token":"`+tokens.RefreshToken+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rotated AuthTokens
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&rotated))

	rec = post(h, "/auth/logout", `{"refresh_token":"`+rotated.RefreshToken+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = post(h, "/auth/refresh", `{"refresh_token":"`+rotated.RefreshToken+`"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_RequireAuth(t *testing.T) {
	f := newAuthFixture(t)
	mw := NewMiddleware(f.tokens, logging.NewNopLogger())
	userID := uuid.New()

	var got *session.Session
	h := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = session.FromContext(r.Context())
	}))

	valid, err := f.tokens.CreateToken(userID, "ada@example.com", time.Minute)
	require.NoError(t, err)
	badUser, err := f.tokens.CreateToken(uuid.Nil, "ada@example.com", time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		cookie   string
		wantCode string
	}{
		{name: "missing", wantCode: httputil.CodeMissingAuth},
		{name: "wrong scheme", header: "Basic abc", wantCode: httputil.CodeInvalidAuthHeader},
		{name: "garbage token", header: "Bearer abc", wantCode: httputil.CodeInvalidToken},
		{name: "nil user", header: "Bearer " + badUser, wantCode: httputil.CodeInvalidTokenUserID},
		{name: "header", header: "Bearer " + valid},
		{name: "cookie", cookie: valid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = nil
			req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if tt.wantCode != "" {
				assert.Equal(t, http.StatusUnauthorized, rec.Code)
				var resp httputil.ErrorResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, tt.wantCode, resp.Code)
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, userID, got.UserID)
			assert.Equal(t, "ada@example.com", got.Email)
		})
	}
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "192.0.2.1", getClientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", getClientIP(req))
}
