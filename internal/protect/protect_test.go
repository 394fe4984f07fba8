package protect

import (
	"encoding/base64"
	"errors"
	"testing"
)

func TestProtectRoundTrip(t *testing.T) {
	p, err := New([]byte("test-master-key"), "ApplicationUserKey")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ids := []string{
		"b7a4f5c2-91d3-4be8-a1f0-3c5d2e7b9a01",
		"1",
		"user with spaces",
		"",
	}
	for _, id := range ids {
		sealed, err := p.Protect(id)
		if err != nil {
			t.Fatalf("Protect(%q): %v", id, err)
		}
		got, err := p.Unprotect(sealed)
		if err != nil {
			t.Fatalf("Unprotect(%q): %v", id, err)
		}
		if got != id {
			t.Fatalf("round trip mismatch: got %q, want %q", got, id)
		}
	}
}

func TestProtectOutputIsNonDeterministic(t *testing.T) {
	p, err := New([]byte("test-master-key"), "ApplicationUserKey")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	a, _ := p.Protect("user-1")
	b, _ := p.Protect("user-1")
	if a == b {
		t.Fatal("two Protect calls produced identical payloads")
	}
}

func TestUnprotectRejectsTampering(t *testing.T) {
	p, err := New([]byte("test-master-key"), "ApplicationUserKey")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sealed, err := p.Protect("b7a4f5c2-91d3-4be8-a1f0-3c5d2e7b9a01")
	if err != nil {
		t.Fatalf("Protect: %v", err)
	}

	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}

	// Flipping any single byte must make the decode fail.
	for i := range raw {
		mutated := make([]byte, len(raw))
		copy(mutated, raw)
		mutated[i] ^= 0xff
		_, err := p.Unprotect(base64.RawURLEncoding.EncodeToString(mutated))
		if !errors.Is(err, ErrInvalidPayload) {
			t.Fatalf("byte %d flipped: got err %v, want ErrInvalidPayload", i, err)
		}
	}
}

func TestUnprotectRejectsMalformedInput(t *testing.T) {
	p, err := New([]byte("test-master-key"), "ApplicationUserKey")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, payload := range []string{"", "not base64!!", "AAAA", "%%%"} {
		if _, err := p.Unprotect(payload); !errors.Is(err, ErrInvalidPayload) {
			t.Fatalf("Unprotect(%q): got err %v, want ErrInvalidPayload", payload, err)
		}
	}
}

func TestPurposeIsolation(t *testing.T) {
	master := []byte("shared-master-key")
	users, err := New(master, "ApplicationUserKey")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	other, err := New(master, "SomeOtherPurpose")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sealed, err := users.Protect("user-1")
	if err != nil {
		t.Fatalf("Protect: %v", err)
	}
	if _, err := other.Unprotect(sealed); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("cross-purpose decode: got err %v, want ErrInvalidPayload", err)
	}
}

func TestWrongMasterKeyFailsClosed(t *testing.T) {
	a, err := New([]byte("key-a"), "ApplicationUserKey")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b, err := New([]byte("key-b"), "ApplicationUserKey")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sealed, err := a.Protect("user-1")
	if err != nil {
		t.Fatalf("Protect: %v", err)
	}
	if _, err := b.Unprotect(sealed); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("wrong-key decode: got err %v, want ErrInvalidPayload", err)
	}
}

func TestNewRejectsEmptyInputs(t *testing.T) {
	if _, err := New(nil, "ApplicationUserKey"); err == nil {
		t.Fatal("expected error for empty master key")
	}
	if _, err := New([]byte("key"), ""); err == nil {
		t.Fatal("expected error for empty purpose")
	}
}
