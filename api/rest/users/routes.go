package users

import (
	"codeberg.org/federate/server/internal/auth"
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(router gin.IRouter, svc ProfileService, issuer *auth.TokenIssuer) {
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware(issuer)) // all user routes require authentication

	api.GET("/profile", GetProfileHandler(svc))
	api.PUT("/me", UpdateProfileHandler(svc))
}
