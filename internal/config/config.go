package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Auth     AuthConfig
	Session  SessionConfig
}

type ServerConfig struct {
	Addr           string
	AllowedOrigins string
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

type AuthConfig struct {
	JWTSecret      string
	AccessTTL      string
	AllowSignup    string
	AdminEmail     string
	AdminPassword  string
	AdminUsername  string
	CookieDomain   string
	CookiePath     string
	CookieSecure   string
	CookieSameSite string
}

type SessionConfig struct {
	ProtectionKey string
	Purpose       string
	Retention     string
	SweepInterval string
}

func Load() Config {
	return Config{
		Server: ServerConfig{
			Addr:           getenv("HTTP_ADDR", ":8080"),
			AllowedOrigins: os.Getenv("CORS_ALLOWED_ORIGINS"),
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
		Auth: AuthConfig{
			JWTSecret:      os.Getenv("JWT_SECRET"),
			AccessTTL:      getenv("SESSION_COOKIE_TTL", "60m"),
			AllowSignup:    os.Getenv("ALLOW_SIGNUP"),
			AdminEmail:     os.Getenv("ADMIN_EMAIL"),
			AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
			AdminUsername:  getenv("ADMIN_USERNAME", "admin"),
			CookieDomain:   os.Getenv("AUTH_COOKIE_DOMAIN"),
			CookiePath:     getenv("AUTH_COOKIE_PATH", "/"),
			CookieSecure:   os.Getenv("AUTH_COOKIE_SECURE"),
			CookieSameSite: os.Getenv("AUTH_COOKIE_SAMESITE"),
		},
		Session: SessionConfig{
			ProtectionKey: os.Getenv("DATA_PROTECTION_KEY"),
			Purpose:       getenv("DATA_PROTECTION_PURPOSE", "ApplicationUserKey"),
			Retention:     getenv("SESSION_RETENTION", "24h"),
			SweepInterval: getenv("SESSION_SWEEP_INTERVAL", "10m"),
		},
	}
}

// Validate fails fast on the keys the process cannot run without.
func (c Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Session.ProtectionKey == "" {
		return fmt.Errorf("DATA_PROTECTION_KEY is required")
	}
	if c.Postgres.DatabaseURL == "" && (c.Postgres.User == "" || c.Postgres.Database == "") {
		return fmt.Errorf("missing required env: DATABASE_URL or PGUSER/PGDATABASE")
	}
	return nil
}

func ParseDuration(value, name string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", name, value)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", name)
	}
	return d, nil
}

func ParseBool(value string, fallback bool) (bool, error) {
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseBool(value)
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
