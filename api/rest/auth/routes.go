package auth

import (
	"codeberg.org/federate/server/internal/auth"
	"github.com/gin-gonic/gin"
)

// registers all authentication routes; extra middleware (rate limiting) runs first
func RegisterRoutes(router gin.IRouter, fed Federator, issuer *auth.TokenIssuer, redirectFlow bool, middleware ...gin.HandlerFunc) {
	authGroup := router.Group("/auth", middleware...)
	{
		authGroup.POST("/login", LoginHandler(fed))
		authGroup.POST("/signup", SignupHandler(fed))
		authGroup.POST("/unlink", auth.AuthMiddleware(issuer), UnlinkHandler(fed))
		authGroup.POST("/:provider", auth.OptionalAuthMiddleware(issuer), FederateHandler(fed))

		if redirectFlow {
			authGroup.GET("/:provider/redirect", BeginRedirectHandler())
			authGroup.GET("/:provider/callback", CallbackHandler(fed))
		}
	}
}
