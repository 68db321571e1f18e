package auth

import (
	"context"

	"codeberg.org/federate/server/federate/users"
	"codeberg.org/federate/server/internal/federation"
	"github.com/markbates/goth"
)

// defines the interface for the login flows the handlers drive
type Federator interface {
	Login(ctx context.Context, req federation.LoginRequest) (*federation.Result, error)
	CompleteRedirect(ctx context.Context, gothUser goth.User) (*federation.Result, error)
	Unlink(ctx context.Context, callerUserID, provider string) (*users.User, error)
	SignIn(ctx context.Context, email, password string) (*federation.Result, error)
	SignUp(ctx context.Context, displayName, email, password string) (*federation.Result, error)
}

// TokenResponse carries a freshly issued session token
type TokenResponse struct {
	Token string `json:"token"`
}

// LoginRequest for password login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SignupRequest for password account creation; bcrypt reads at most 72 bytes
type SignupRequest struct {
	DisplayName string `json:"displayName" binding:"max=100"`
	Email       string `json:"email" binding:"required,email,max=254"`
	Password    string `json:"password" binding:"required,max=72"`
}

// FederateRequest is posted by the client after the provider redirected back to it
type FederateRequest struct {
	Code        string `json:"code"`
	ClientID    string `json:"clientId"`
	RedirectURI string `json:"redirectUri"`

	// twitter second phase
	OAuthToken    string `json:"oauth_token"`
	OAuthVerifier string `json:"oauth_verifier"`
}

// UnlinkRequest names the provider to detach from the caller
type UnlinkRequest struct {
	Provider string `json:"provider" binding:"required"`
}
