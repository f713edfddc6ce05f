package auth

import (
	"context"
	"time"
)

// JWTService issues and validates the bearer tokens of the HTTP API.
type JWTService interface {
	// GenerateToken creates a signed access token for a learner.
	GenerateToken(ctx context.Context, userID int64) (string, error)

	// ValidateToken validates the token string and extracts its claims.
	// Returns ErrExpiredToken, ErrTokenNotYetValid or ErrInvalidToken on
	// failure.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims are the validated contents of an access token.
type Claims struct {
	// UserID is the learner the token was issued for, taken from "sub".
	UserID    int64
	TokenType string
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}
