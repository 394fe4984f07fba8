package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/contentapp/backend/internal/config"
	"github.com/contentapp/backend/internal/db"
	"github.com/contentapp/backend/internal/model"
	"github.com/contentapp/backend/internal/protect"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
	maxEmailLength    = 254

	// Upper bound on any single store round trip.
	defaultStoreTimeout = 5 * time.Second
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrTimeout            = errors.New("operation timed out")
	ErrMisconfigured      = errors.New("auth config invalid")
)

// credentialStore is the slice of the database the validator reads.
type credentialStore interface {
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	CreateUser(ctx context.Context, email, username, passwordHash string) (*model.User, error)
}

// sessionStore holds the one-record-per-user token mapping.
type sessionStore interface {
	PutSessionToken(ctx context.Context, userID, tokenValue string) error
	RevokeSessionToken(ctx context.Context, userID string) (bool, error)
}

// userProtector opaque-encodes user ids for the user_id cookie.
type userProtector interface {
	Protect(plaintext string) (string, error)
	Unprotect(payload string) (string, error)
}

type CookieConfig struct {
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
	MaxAge   int
}

type AuthService struct {
	users       credentialStore
	sessions    sessionStore
	protector   userProtector
	log         *slog.Logger
	jwtSecret   []byte
	accessTTL   time.Duration
	allowSignup bool
	cookieCfg   CookieConfig
}

type authClaims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

func NewAuthService(users credentialStore, sessions sessionStore, protector userProtector, log *slog.Logger, cfg config.AuthConfig) (*AuthService, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("%w: JWT_SECRET is required", ErrMisconfigured)
	}

	accessTTL, err := config.ParseDuration(cfg.AccessTTL, "SESSION_COOKIE_TTL")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMisconfigured, err)
	}

	allowSignup, err := config.ParseBool(cfg.AllowSignup, false)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ALLOW_SIGNUP", ErrMisconfigured)
	}

	cookieSecure, err := config.ParseBool(cfg.CookieSecure, true)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid AUTH_COOKIE_SECURE", ErrMisconfigured)
	}

	cookieSameSite, err := parseSameSite(cfg.CookieSameSite)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid AUTH_COOKIE_SAMESITE", ErrMisconfigured)
	}

	if cookieSameSite == http.SameSiteNoneMode && !cookieSecure {
		return nil, fmt.Errorf("%w: SameSite=None requires Secure cookie", ErrMisconfigured)
	}

	cookiePath := cfg.CookiePath
	if strings.TrimSpace(cookiePath) == "" {
		cookiePath = "/"
	}

	return &AuthService{
		users:       users,
		sessions:    sessions,
		protector:   protector,
		log:         log,
		jwtSecret:   []byte(cfg.JWTSecret),
		accessTTL:   accessTTL,
		allowSignup: allowSignup,
		cookieCfg: CookieConfig{
			Path:     cookiePath,
			Domain:   cfg.CookieDomain,
			Secure:   cookieSecure,
			SameSite: cookieSameSite,
			MaxAge:   int(accessTTL.Seconds()),
		},
	}, nil
}

func (s *AuthService) AllowSignup() bool {
	return s.allowSignup
}

func (s *AuthService) CookieConfig() CookieConfig {
	return s.cookieCfg
}

func (s *AuthService) AccessTTL() time.Duration {
	return s.accessTTL
}

// EnsureAdmin seeds the admin account at startup when it does not exist yet.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password, username string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: ADMIN_EMAIL/ADMIN_PASSWORD are required", ErrMisconfigured)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultStoreTimeout)
	defer cancel()

	_, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !db.IsNoRows(err) {
		return classifyStoreError(err)
	}

	if err := validateCredentials(email, password); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = s.users.CreateUser(ctx, email, username, string(hash))
	if err != nil {
		return classifyStoreError(err)
	}
	return nil
}

// Authenticate checks the submitted credentials and mints a signed token.
// A missing user and a wrong password both come back as
// ErrInvalidCredentials so the response can never confirm which one it was.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*model.Token, error) {
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultStoreTimeout)
	defer cancel()

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, classifyStoreError(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.generateToken(user)
}

// Login runs the full login transition: authenticate, persist the session
// record, then protect the user id for the cookie. Nothing is persisted on a
// failed credential check.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.Token, string, error) {
	token, err := s.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrInvalidInput) {
			s.log.Info("login rejected", "email", email, "error", err)
		} else {
			s.log.Error("login failed", "email", email, "error", err)
		}
		return nil, "", err
	}

	if err := s.putSession(ctx, token); err != nil {
		s.log.Error("session record write failed", "user_id", token.UserID, "error", err)
		return nil, "", err
	}

	protectedID, err := s.protector.Protect(token.UserID)
	if err != nil {
		return nil, "", err
	}

	s.log.Info("user logged in", "email", email, "user_id", token.UserID)
	return token, protectedID, nil
}

// Register creates a user and issues a session exactly like Login. Gated by
// ALLOW_SIGNUP.
func (s *AuthService) Register(ctx context.Context, email, username, password string) (*model.Token, string, error) {
	if !s.allowSignup {
		return nil, "", ErrForbidden
	}

	if err := validateCredentials(email, password); err != nil {
		return nil, "", err
	}
	if strings.TrimSpace(username) == "" {
		return nil, "", ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultStoreTimeout)
	defer cancel()

	user, err := s.users.CreateUser(ctx, email, username, string(hash))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, "", ErrConflict
		}
		return nil, "", classifyStoreError(err)
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, "", err
	}

	if err := s.putSession(ctx, token); err != nil {
		return nil, "", err
	}

	protectedID, err := s.protector.Protect(token.UserID)
	if err != nil {
		return nil, "", err
	}

	return token, protectedID, nil
}

// Logout revokes the session record behind a protected user-id cookie value
// and reports whether a record was removed. It never returns an error: a
// missing or undecodable cookie is "no active session", and a store fault is
// logged and swallowed so the caller can still clear cookies.
func (s *AuthService) Logout(ctx context.Context, protectedUserID string) bool {
	if protectedUserID == "" {
		return false
	}

	userID, err := s.protector.Unprotect(protectedUserID)
	if err != nil {
		s.log.Info("logout with undecodable user_id cookie", "error", err)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, defaultStoreTimeout)
	defer cancel()

	revoked, err := s.sessions.RevokeSessionToken(ctx, userID)
	if err != nil {
		s.log.Error("session revocation failed", "user_id", userID, "error", classifyStoreError(err))
		return false
	}

	if revoked {
		s.log.Info("session revoked", "user_id", userID)
	}
	return revoked
}

// ParseAccessToken verifies a signed token and returns the identity it
// carries.
func (s *AuthService) ParseAccessToken(tokenStr string) (*model.AuthUser, error) {
	claims := &authClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthorized
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrUnauthorized
	}

	if claims.Subject == "" {
		return nil, ErrUnauthorized
	}

	return &model.AuthUser{
		ID:       claims.Subject,
		Username: claims.Username,
		Email:    claims.Email,
	}, nil
}

func (s *AuthService) putSession(ctx context.Context, token *model.Token) error {
	ctx, cancel := context.WithTimeout(ctx, defaultStoreTimeout)
	defer cancel()

	if err := s.sessions.PutSessionToken(ctx, token.UserID, token.Value); err != nil {
		return classifyStoreError(err)
	}
	return nil
}

func (s *AuthService) generateToken(user *model.User) (*model.Token, error) {
	now := time.Now()
	expiresAt := now.Add(s.accessTTL)
	claims := authClaims{
		Username: user.Username,
		Email:    user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, err
	}

	return &model.Token{
		Value:     signed,
		UserID:    user.ID,
		Username:  user.Username,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}, nil
}

func validateCredentials(email, password string) error {
	email = strings.TrimSpace(email)

	if email == "" || len(email) > maxEmailLength {
		return ErrInvalidInput
	}
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return ErrInvalidInput
	}
	return nil
}

func parseSameSite(value string) (http.SameSite, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	switch value {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, ErrInvalidInput
	}
}

func classifyStoreError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ userProtector = (*protect.Protector)(nil)
