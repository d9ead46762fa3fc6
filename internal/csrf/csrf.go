// Package csrf issues and checks anti-forgery tokens bound to a per-session
// secret. A token is "<salt>.<digest>" where digest = sha256(salt + "." + secret),
// so every rendered form can carry a fresh token for the same secret.
package csrf

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var ErrInvalidToken = errors.New("invalid csrf token")

const (
	FormField  = "_csrf"
	HeaderName = "X-CSRF-Token"

	secretBytes = 18
	saltBytes   = 8
)

// NewSecret returns a random secret to store on the session.
func NewSecret() (string, error) {
	return randomString(secretBytes)
}

// Token derives a fresh token from secret.
func Token(secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("csrf: empty secret")
	}
	salt, err := randomString(saltBytes)
	if err != nil {
		return "", err
	}
	return salt + "." + digest(salt, secret), nil
}

// Verify reports ErrInvalidToken unless token was derived from secret.
func Verify(secret, token string) error {
	if secret == "" || token == "" {
		return ErrInvalidToken
	}
	salt, sum, ok := strings.Cut(token, ".")
	if !ok || salt == "" {
		return ErrInvalidToken
	}
	if subtle.ConstantTimeCompare([]byte(sum), []byte(digest(salt, secret))) != 1 {
		return ErrInvalidToken
	}
	return nil
}

// FromRequest extracts a submitted token from the form body or header.
func FromRequest(r *http.Request) string {
	if v := r.PostFormValue(FormField); v != "" {
		return v
	}
	return r.Header.Get(HeaderName)
}

// SafeMethod reports whether method never changes server state.
func SafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

func digest(salt, secret string) string {
	sum := sha256.Sum256([]byte(salt + "." + secret))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("csrf: random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
