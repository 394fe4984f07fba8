// Package protect reversibly encodes user identifiers for client-visible
// cookies. A protector derives a subkey from the master key bound to a
// purpose string, so a payload sealed for one purpose can never be opened
// under another, even with the same master key.
package protect

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// ErrInvalidPayload covers every decode fault: malformed input, wrong key,
// purpose mismatch, truncation, tampering. Callers treat it as "no valid
// identifier", never as a fatal condition.
var ErrInvalidPayload = errors.New("invalid protected payload")

type Protector struct {
	aeadKey []byte
	purpose string
}

// New derives the purpose-bound subkey from the master key. The master key
// can be any non-empty secret; HKDF stretches it to the AEAD key size.
func New(masterKey []byte, purpose string) (*Protector, error) {
	if len(masterKey) == 0 {
		return nil, errors.New("protect: empty master key")
	}
	if purpose == "" {
		return nil, errors.New("protect: empty purpose")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, masterKey, nil, []byte(purpose))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("protect: derive key: %w", err)
	}

	return &Protector{aeadKey: key, purpose: purpose}, nil
}

// Protect seals the plaintext and returns base64url(nonce || ciphertext).
func (p *Protector) Protect(plaintext string) (string, error) {
	aead, err := chacha20poly1305.New(p.aeadKey)
	if err != nil {
		return "", fmt.Errorf("protect: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("protect: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Unprotect reverses Protect. Any fault collapses to ErrInvalidPayload so
// the error cannot leak which check failed.
func (p *Protector) Unprotect(payload string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return "", ErrInvalidPayload
	}

	aead, err := chacha20poly1305.New(p.aeadKey)
	if err != nil {
		return "", ErrInvalidPayload
	}

	if len(raw) < aead.NonceSize() {
		return "", ErrInvalidPayload
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrInvalidPayload
	}

	return string(plaintext), nil
}
