package auth

import (
	"net/mail"
	"strings"
)

const (
	minPasswordLength = 5
	// bcrypt ignores everything past 72 bytes.
	maxPasswordLength = 72
)

// NormalizeEmail folds case and surrounding whitespace.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	if email == "" || strings.ContainsAny(email, " \t\r\n") {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return false
	}
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}

// checkPasswordPolicy enforces length >= 5 and ASCII letters/digits only.
func checkPasswordPolicy(password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return ErrWeakPassword
	}
	for i := 0; i < len(password); i++ {
		c := password[i]
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9') {
			return ErrWeakPassword
		}
	}
	return nil
}
