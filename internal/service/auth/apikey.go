package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// APIKeyVerifier checks a presented API key against the configured hash.
type APIKeyVerifier interface {
	// Verify returns nil when the key matches, ErrInvalidAPIKey otherwise.
	Verify(key string) error
}

// BcryptAPIKeyVerifier implements APIKeyVerifier using bcrypt.
// The plaintext key is never stored; configuration carries only its hash,
// generated with cmd/keygen.
type BcryptAPIKeyVerifier struct {
	hash []byte
}

// NewBcryptAPIKeyVerifier creates a verifier for the given bcrypt hash.
func NewBcryptAPIKeyVerifier(hash string) (*BcryptAPIKeyVerifier, error) {
	if hash == "" {
		return nil, errors.New("API key hash cannot be empty")
	}
	// Reject malformed hashes at startup rather than on the first login.
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, errors.New("API key hash is not a valid bcrypt hash")
	}

	return &BcryptAPIKeyVerifier{hash: []byte(hash)}, nil
}

// Ensure BcryptAPIKeyVerifier implements APIKeyVerifier interface
var _ APIKeyVerifier = (*BcryptAPIKeyVerifier)(nil)

// Verify implements the APIKeyVerifier interface using bcrypt.
func (v *BcryptAPIKeyVerifier) Verify(key string) error {
	if err := bcrypt.CompareHashAndPassword(v.hash, []byte(key)); err != nil {
		return ErrInvalidAPIKey
	}
	return nil
}
