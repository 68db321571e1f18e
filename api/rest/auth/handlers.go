package auth

import (
	stderrors "errors"
	"io"
	"net/http"

	"codeberg.org/federate/server/federate/users"
	"codeberg.org/federate/server/internal/auth"
	"codeberg.org/federate/server/internal/errors"
	"codeberg.org/federate/server/internal/federation"
	"codeberg.org/federate/server/internal/identity"
	"codeberg.org/federate/server/internal/providers"
	"github.com/gin-gonic/gin"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
)

// LoginHandler godoc
// @Summary Password login
// @Description Exchange an email and password for a session token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/login [post]
func LoginHandler(fed Federator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest

		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		res, err := fed.SignIn(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			if stderrors.Is(err, identity.ErrInvalidCredentials) {
				errors.Unauthorized(c, "invalid email or password")
				return
			}

			errors.InternalError(c, "failed to sign in", err)
			return
		}

		c.JSON(http.StatusOK, TokenResponse{Token: res.Token})
	}
}

// SignupHandler godoc
// @Summary Create a password account
// @Description Register a local account and return a session token for it
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignupRequest true "Account"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /auth/signup [post]
func SignupHandler(fed Federator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SignupRequest

		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		res, err := fed.SignUp(c.Request.Context(), req.DisplayName, req.Email, req.Password)
		if err != nil {
			if stderrors.Is(err, users.ErrDuplicateEmail) {
				errors.Conflict(c, "Email already in use")
				return
			}

			errors.InternalError(c, "failed to create account", err)
			return
		}

		c.JSON(http.StatusOK, TokenResponse{Token: res.Token})
	}
}

// FederateHandler godoc
// @Summary Federated login or link
// @Description Exchange a provider authorization code for a session token.
// @Description With a bearer token the provider identity is linked to the caller.
// @Description Twitter without oauth_token and oauth_verifier returns a request token instead.
// @Tags auth
// @Accept json
// @Produce json
// @Param provider path string true "OAuth provider" Enums(google, github, linkedin, facebook, yahoo, foursquare, twitch, bitbucket, spotify, twitter)
// @Param request body FederateRequest true "Authorization result"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/{provider} [post]
func FederateHandler(fed Federator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req FederateRequest

		// twitter's first phase may post no body at all
		if err := c.ShouldBindJSON(&req); err != nil && !stderrors.Is(err, io.EOF) {
			errors.ValidationError(c, err)
			return
		}

		callerID, _ := auth.GetUserID(c)

		res, err := fed.Login(c.Request.Context(), federation.LoginRequest{
			Provider:      c.Param("provider"),
			Code:          req.Code,
			ClientID:      req.ClientID,
			RedirectURI:   req.RedirectURI,
			OAuthToken:    req.OAuthToken,
			OAuthVerifier: req.OAuthVerifier,
			CallerUserID:  callerID,
		})
		if err != nil {
			federationError(c, err)
			return
		}

		if res.State == federation.StateRequestTokenIssued {
			c.JSON(http.StatusOK, res.RequestToken)
			return
		}

		c.JSON(http.StatusOK, TokenResponse{Token: res.Token})
	}
}

// UnlinkHandler godoc
// @Summary Unlink a provider
// @Description Remove a provider identity from the authenticated user
// @Tags auth
// @Accept json
// @Param request body UnlinkRequest true "Provider"
// @Success 200
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/unlink [post]
// @Security BearerAuth
func UnlinkHandler(fed Federator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := auth.GetUserID(c)
		if !exists {
			errors.Unauthorized(c, "")
			return
		}

		var req UnlinkRequest

		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		if _, err := fed.Unlink(c.Request.Context(), userID, req.Provider); err != nil {
			switch {
			case stderrors.Is(err, providers.ErrUnknownProvider):
				errors.UnknownProvider(c, req.Provider)
			case stderrors.Is(err, users.ErrNotFound):
				errors.BadRequest(c, "User not found", nil)
			default:
				errors.InternalError(c, "failed to unlink provider", err)
			}

			return
		}

		c.Status(http.StatusOK)
	}
}

// BeginRedirectHandler godoc
// @Summary Start redirect login
// @Description Redirect the browser to the provider's consent page
// @Tags auth
// @Param provider path string true "OAuth provider"
// @Success 302 {string} string "Redirect to OAuth provider"
// @Failure 400 {object} errors.ErrorResponse
// @Router /auth/{provider}/redirect [get]
func BeginRedirectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		provider := c.Param("provider")

		if _, err := goth.GetProvider(provider); err != nil {
			errors.UnknownProvider(c, provider)
			return
		}

		withProviderQuery(c, provider)
		gothic.BeginAuthHandler(c.Writer, c.Request)
	}
}

// CallbackHandler godoc
// @Summary Redirect login callback
// @Description Provider callback for the redirect flow. Returns a session token
// @Tags auth
// @Produce json
// @Param provider path string true "OAuth provider"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/{provider}/callback [get]
func CallbackHandler(fed Federator) gin.HandlerFunc {
	return func(c *gin.Context) {
		provider := c.Param("provider")

		if _, err := goth.GetProvider(provider); err != nil {
			errors.UnknownProvider(c, provider)
			return
		}

		withProviderQuery(c, provider)

		gothUser, err := gothic.CompleteUserAuth(c.Writer, c.Request)
		if err != nil {
			errors.InternalError(c, "authentication failed", err)
			return
		}

		res, err := fed.CompleteRedirect(c.Request.Context(), gothUser)
		if err != nil {
			federationError(c, err)
			return
		}

		c.JSON(http.StatusOK, TokenResponse{Token: res.Token})
	}
}

// gothic reads the provider name from the query string
func withProviderQuery(c *gin.Context, provider string) {
	q := c.Request.URL.Query()
	q.Set("provider", provider)
	c.Request.URL.RawQuery = q.Encode()
}

func federationError(c *gin.Context, err error) {
	ferr, ok := federation.AsError(err)
	if !ok {
		errors.InternalError(c, "login failed", err)
		return
	}

	switch ferr.Kind {
	case federation.KindUnknownProvider:
		errors.UnknownProvider(c, ferr.Provider)
	case federation.KindValidation:
		errors.BadRequest(c, ferr.Err.Error(), nil)
	case federation.KindProvider:
		if perr, ok := providers.AsProviderError(err); ok {
			errors.ProviderFailure(c, perr.Provider, perr.Message, perr.Status, err)
			return
		}

		errors.InternalError(c, "provider call failed", err)
	case federation.KindResolve:
		if stderrors.Is(err, users.ErrNotFound) {
			errors.BadRequest(c, "User not found", nil)
			return
		}

		errors.InternalError(c, "failed to resolve identity", err)
	default:
		errors.InternalError(c, "failed to issue session", err)
	}
}
