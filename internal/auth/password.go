package auth

import (
	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordLength is the minimum accepted password length
	MinPasswordLength = 6
	// BcryptCost is the work factor for credential hashing
	BcryptCost = 12
)

// HashPassword creates a bcrypt hash of the password with cost factor 12
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a password with its bcrypt hash.
// Returns nil if they match, error otherwise.
func VerifyPassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
