package auth

import (
	"context"
	"time"
)

// JWTService defines operations for managing JWT authentication tokens.
// The API serves a single owner, so tokens carry a fixed subject rather
// than a user identifier.
type JWTService interface {
	// GenerateToken creates a signed JWT access token.
	// Returns the token string or an error if token generation fails.
	GenerateToken(ctx context.Context) (string, error)

	// ValidateToken validates the provided access token string and extracts
	// the claims. Returns an error if validation fails (expired, invalid
	// signature, wrong token type, etc.).
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)

	// GenerateRefreshToken creates a signed JWT refresh token.
	// Refresh tokens have a longer lifetime and are used to obtain new
	// access tokens without re-presenting the API key.
	GenerateRefreshToken(ctx context.Context) (string, error)

	// ValidateRefreshToken validates the provided refresh token string and
	// extracts the claims.
	ValidateRefreshToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims represents the custom claims structure for the JWT tokens.
type Claims struct {
	// TokenType indicates the purpose of the token ("access" or "refresh").
	// Used to prevent token misuse across different contexts.
	TokenType string `json:"type,omitempty"`

	// Standard registered JWT claims
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
