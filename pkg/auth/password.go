package auth

import (
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

const (
	HasherBcrypt   = "bcrypt"
	HasherArgon2id = "argon2id"

	// MaxPasswordBytes is the bcrypt input limit, applied to both algorithms.
	MaxPasswordBytes = 72
)

var ErrPasswordTooLong = bcrypt.ErrPasswordTooLong

// PasswordHasher produces salted hashes with the configured algorithm.
// Verification goes through CheckPasswordHash, which understands both
// formats so the algorithm can be switched without invalidating old hashes.
type PasswordHasher struct {
	algorithm string
}

func NewPasswordHasher(algorithm string) (*PasswordHasher, error) {
	switch strings.ToLower(strings.TrimSpace(algorithm)) {
	case "", HasherBcrypt:
		return &PasswordHasher{algorithm: HasherBcrypt}, nil
	case HasherArgon2id:
		return &PasswordHasher{algorithm: HasherArgon2id}, nil
	default:
		return nil, fmt.Errorf("unsupported password hasher %q", algorithm)
	}
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	if h.algorithm == HasherArgon2id {
		hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
		if err != nil {
			return "", fmt.Errorf("create argon2id hash: %w", err)
		}
		return hash, nil
	}
	return HashPassword(password)
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("create bcrypt hash: %w", err)
	}
	return string(bytes), nil
}

func CheckPasswordHash(password, hash string) bool {
	if strings.HasPrefix(hash, "$argon2id$") {
		match, err := argon2id.ComparePasswordAndHash(password, hash)
		return err == nil && match
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
