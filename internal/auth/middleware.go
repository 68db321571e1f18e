package auth

import (
	"errors"
	"strings"

	apierrors "codeberg.org/federate/server/internal/errors"
	"github.com/gin-gonic/gin"
)

const (
	contextUserID = "user_id"

	msgMissingHeader = "Please make sure your request has an Authorization header"
	msgBadHeader     = "invalid authorization header format"
)

// validates bearer tokens and adds the user id to the request context
func AuthMiddleware(issuer *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			apierrors.Unauthorized(c, msgMissingHeader)
			c.Abort()
			return
		}

		if !authenticate(c, issuer, authHeader) {
			c.Abort()
			return
		}

		c.Next()
	}
}

// validates a bearer token if present; a bad token is rejected, a missing one is not
func OptionalAuthMiddleware(issuer *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")

		if authHeader == "" {
			c.Next()
			return
		}

		if !authenticate(c, issuer, authHeader) {
			c.Abort()
			return
		}

		c.Next()
	}
}

// extracts user_id from context after AuthMiddleware
func GetUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(contextUserID)
	return userID, userID != ""
}

func authenticate(c *gin.Context, issuer *TokenIssuer, authHeader string) bool {
	token, ok := bearerToken(authHeader)
	if !ok {
		apierrors.Unauthorized(c, msgBadHeader)
		return false
	}

	userID, err := issuer.Verify(token)
	if err != nil {
		apierrors.Unauthorized(c, reason(err))
		return false
	}

	c.Set(contextUserID, userID)
	return true
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	return token, token != ""
}

func reason(err error) string {
	if errors.Is(err, ErrExpiredToken) {
		return ErrExpiredToken.Error()
	}

	return ErrInvalidToken.Error()
}
