package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// how long a session token stays valid when no TTL is configured
const DefaultTokenTTL = 14 * 24 * time.Hour

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// represents JWT claims, the subject carries the user id
type Claims struct {
	jwt.RegisteredClaims
}

// issues and verifies signed session tokens
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}
