package model

import "time"

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Status    string `json:"status"`
	ExpiresIn int64  `json:"expiresIn"`
}

type LogoutResponse struct {
	Status string `json:"status"`
}

type AuthConfigResponse struct {
	AllowSignup bool `json:"allowSignup"`
}

type AuthMeResponse struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// AuthUser is the identity attached to a request after token verification.
type AuthUser struct {
	ID       string
	Username string
	Email    string
}

type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Token is what a successful credential check produces. Value is the signed
// access token; Value, ID and Username are externalized to the client via
// cookies, and Value is also persisted server-side keyed by UserID.
type Token struct {
	Value     string
	UserID    string
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}