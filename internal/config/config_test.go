package config

import (
	"testing"
	"time"
)

func TestValidateRequiresCoreSecrets(t *testing.T) {
	cfg := Config{}
	cfg.Auth.JWTSecret = "secret"
	cfg.Session.ProtectionKey = "key"
	cfg.Postgres.DatabaseURL = "postgres://u:p@localhost:5432/app"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	missingJWT := cfg
	missingJWT.Auth.JWTSecret = ""
	if err := missingJWT.Validate(); err == nil {
		t.Fatal("expected error for missing JWT_SECRET")
	}

	missingKey := cfg
	missingKey.Session.ProtectionKey = ""
	if err := missingKey.Validate(); err == nil {
		t.Fatal("expected error for missing DATA_PROTECTION_KEY")
	}

	missingDB := cfg
	missingDB.Postgres.DatabaseURL = ""
	if err := missingDB.Validate(); err == nil {
		t.Fatal("expected error for missing database coordinates")
	}
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("60m", "SESSION_COOKIE_TTL")
	if err != nil {
		t.Fatalf("ParseDuration: %v", err)
	}
	if d != time.Hour {
		t.Fatalf("got %v, want 1h", d)
	}

	if _, err := ParseDuration("soon", "SESSION_COOKIE_TTL"); err == nil {
		t.Fatal("expected error for garbage duration")
	}
	if _, err := ParseDuration("-1m", "SESSION_COOKIE_TTL"); err == nil {
		t.Fatal("expected error for negative duration")
	}
}

func TestParseBool(t *testing.T) {
	if v, err := ParseBool("", true); err != nil || !v {
		t.Fatalf("empty value should fall back: %v %v", v, err)
	}
	if v, err := ParseBool("false", true); err != nil || v {
		t.Fatalf("explicit false ignored: %v %v", v, err)
	}
	if _, err := ParseBool("maybe", false); err == nil {
		t.Fatal("expected error for garbage bool")
	}
}
