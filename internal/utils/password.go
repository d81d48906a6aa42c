package utils

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// IsBcryptHash reports whether s looks like a bcrypt hash ($2a$, $2b$, $2y$).
func IsBcryptHash(s string) bool {
	return len(s) == 60 && strings.HasPrefix(s, "$2")
}

// CheckPassword compares a candidate against the configured secret, which may
// be plaintext or a bcrypt hash. An empty secret never matches.
func CheckPassword(configured, candidate string) bool {
	if configured == "" {
		return false
	}
	if IsBcryptHash(configured) {
		return bcrypt.CompareHashAndPassword([]byte(configured), []byte(candidate)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(configured)) == 1
}
