package handler

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/contentapp/backend/internal/config"
	"github.com/contentapp/backend/internal/model"
	"github.com/contentapp/backend/internal/protect"
	"github.com/contentapp/backend/internal/service"
)

const (
	testEmail    = "admin@example.com"
	testPassword = "correct-horse-battery"
	testUserID   = "b7a4f5c2-91d3-4be8-a1f0-3c5d2e7b9a01"
)

type memUsers struct {
	byEmail map[string]*model.User
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	if user, ok := m.byEmail[email]; ok {
		return user, nil
	}
	return nil, pgx.ErrNoRows
}

func (m *memUsers) CreateUser(_ context.Context, email, username, passwordHash string) (*model.User, error) {
	user := &model.User{ID: "created-" + email, Email: email, Username: username, PasswordHash: passwordHash}
	m.byEmail[email] = user
	return user, nil
}

type memSessions struct {
	tokens map[string]string
}

func (m *memSessions) PutSessionToken(_ context.Context, userID, tokenValue string) error {
	m.tokens[userID] = tokenValue
	return nil
}

func (m *memSessions) RevokeSessionToken(_ context.Context, userID string) (bool, error) {
	if _, ok := m.tokens[userID]; !ok {
		return false, nil
	}
	delete(m.tokens, userID)
	return true, nil
}

type testEnv struct {
	router    *gin.Engine
	sessions  *memSessions
	protector *protect.Protector
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	users := &memUsers{byEmail: map[string]*model.User{
		testEmail: {ID: testUserID, Email: testEmail, Username: "admin", PasswordHash: string(hash)},
	}}
	sessions := &memSessions{tokens: map[string]string{}}

	protector, err := protect.New([]byte("test-master-key"), "ApplicationUserKey")
	if err != nil {
		t.Fatalf("protect.New: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := service.NewAuthService(users, sessions, protector, logger, config.AuthConfig{
		JWTSecret:    "test-secret",
		AccessTTL:    "60m",
		CookieSecure: "false",
	})
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}

	h := NewAuthHandler(svc)
	router := gin.New()
	router.POST("/api/admin/login", h.Login)
	router.POST("/api/admin/logout", h.Logout)
	router.GET("/api/admin/config", h.Config)
	protected := router.Group("")
	protected.Use(AuthMiddleware(svc))
	protected.GET("/api/admin/me", h.Me)

	return &testEnv{router: router, sessions: sessions, protector: protector}
}

func (e *testEnv) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	e.router.ServeHTTP(w, req)
	return w
}

func cookieByName(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginSetsThreeSessionCookies(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/admin/login", `{"email":"admin@example.com","password":"correct-horse-battery"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 3 {
		t.Fatalf("expected exactly 3 cookies, got %d", len(cookies))
	}
	for _, name := range []string{"access_token", "user_id", "username"} {
		c := cookieByName(cookies, name)
		if c == nil {
			t.Fatalf("missing cookie %q", name)
		}
		if c.MaxAge != 3600 {
			t.Fatalf("cookie %q Max-Age = %d, want 3600", name, c.MaxAge)
		}
		if !c.HttpOnly {
			t.Fatalf("cookie %q must be HttpOnly", name)
		}
	}

	if len(env.sessions.tokens) != 1 {
		t.Fatalf("expected one session record, got %d", len(env.sessions.tokens))
	}
	if env.sessions.tokens[testUserID] != cookieByName(cookies, "access_token").Value {
		t.Fatal("stored token does not match access_token cookie")
	}

	uid, err := env.protector.Unprotect(cookieByName(cookies, "user_id").Value)
	if err != nil {
		t.Fatalf("user_id cookie does not unprotect: %v", err)
	}
	if uid != testUserID {
		t.Fatalf("user_id cookie decodes to %q, want %q", uid, testUserID)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/admin/login", `{"email":"admin@example.com","password":"wrong-password-long"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if len(w.Result().Cookies()) != 0 {
		t.Fatal("failed login must not set cookies")
	}
	if len(env.sessions.tokens) != 0 {
		t.Fatal("failed login must not create session records")
	}
}

func TestLoginMalformedBody(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/admin/login", `{"email":`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestLogoutWithoutCookieStillClearsEverything(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/admin/logout", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	cookies := w.Result().Cookies()
	if len(cookies) != len(sessionCookies) {
		t.Fatalf("expected %d cleared cookies, got %d", len(sessionCookies), len(cookies))
	}
	for _, name := range sessionCookies {
		c := cookieByName(cookies, name)
		if c == nil {
			t.Fatalf("cookie %q not cleared", name)
		}
		if c.MaxAge >= 0 || c.Value != "" {
			t.Fatalf("cookie %q not expired: MaxAge=%d Value=%q", name, c.MaxAge, c.Value)
		}
	}
}

func TestLogoutRevokesSessionAndIsIdempotent(t *testing.T) {
	env := newTestEnv(t)

	login := env.do(http.MethodPost, "/api/admin/login", `{"email":"admin@example.com","password":"correct-horse-battery"}`)
	userCookie := cookieByName(login.Result().Cookies(), "user_id")
	if userCookie == nil {
		t.Fatal("login did not set user_id cookie")
	}

	w := env.do(http.MethodPost, "/api/admin/logout", "", userCookie)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(env.sessions.tokens) != 0 {
		t.Fatal("logout did not revoke the session record")
	}

	// Immediate repeat: still 200, still clears every cookie.
	w = env.do(http.MethodPost, "/api/admin/logout", "", userCookie)
	if w.Code != http.StatusOK {
		t.Fatalf("second logout: expected 200, got %d", w.Code)
	}
	if len(w.Result().Cookies()) != len(sessionCookies) {
		t.Fatal("second logout did not clear cookies")
	}
}

func TestLogoutWithTamperedCookieStillSucceeds(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/admin/logout", "", &http.Cookie{Name: "user_id", Value: "tampered-garbage"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(w.Result().Cookies()) != len(sessionCookies) {
		t.Fatal("tampered cookie must not prevent cookie cleanup")
	}
}

func TestMeRequiresValidAccessToken(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(http.MethodGet, "/api/admin/me", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", w.Code)
	}

	login := env.do(http.MethodPost, "/api/admin/login", `{"email":"admin@example.com","password":"correct-horse-battery"}`)
	access := cookieByName(login.Result().Cookies(), "access_token")

	w := env.do(http.MethodGet, "/api/admin/me", "", access)
	if w.Code != http.StatusOK {
		t.Fatalf("with token: expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	bad := &http.Cookie{Name: "access_token", Value: access.Value + "x"}
	if w := env.do(http.MethodGet, "/api/admin/me", "", bad); w.Code != http.StatusUnauthorized {
		t.Fatalf("forged token: expected 401, got %d", w.Code)
	}
}

func TestConfigReportsSignupFlag(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/admin/config", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != `{"allowSignup":false}` {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}
