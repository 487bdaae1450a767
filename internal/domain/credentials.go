package domain

import (
	"fmt"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// ValidEmail reports whether the string is an acceptable account email.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidPassword reports whether the password satisfies the minimum length.
func ValidPassword(password string) bool {
	return len(password) >= MinPasswordLength
}

// HashPassword derives a bcrypt hash from the plaintext password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether the plaintext password matches the stored hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
