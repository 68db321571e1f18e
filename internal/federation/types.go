// package federation drives a login or link request from provider code to session token.
package federation

import (
	"context"
	"errors"
	"fmt"

	"codeberg.org/federate/server/federate/users"
	"codeberg.org/federate/server/internal/identity"
	"codeberg.org/federate/server/internal/providers"
)

// where a federation request is in its pipeline
type State string

const (
	StateStart              State = "start"
	StateTokenExchanged     State = "token_exchanged"
	StateProfileFetched     State = "profile_fetched"
	StateIdentityResolved   State = "identity_resolved"
	StateSessionIssued      State = "session_issued"
	StateRequestTokenIssued State = "request_token_issued" // oauth1 first phase
	StateFailed             State = "failed"
)

// why a request ended in StateFailed
type FailureKind string

const (
	KindValidation      FailureKind = "validation"
	KindUnknownProvider FailureKind = "unknown_provider"
	KindProvider        FailureKind = "provider"
	KindResolve         FailureKind = "resolve"
	KindSession         FailureKind = "session"
)

var ErrValidation = errors.New("invalid federation request")

// a failed federation request; Step is the last state reached before failing
type Error struct {
	Kind     FailureKind
	Provider string
	Step     State
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s login failed after %s (%s): %v", e.Provider, e.Step, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// extracts a federation Error from err's chain
func AsError(err error) (*Error, bool) {
	var ferr *Error
	ok := errors.As(err, &ferr)
	return ferr, ok
}

// the fields a client posts to /auth/{provider}
type LoginRequest struct {
	Provider    string
	Code        string
	ClientID    string
	RedirectURI string

	OAuthToken    string
	OAuthVerifier string

	// set when a signed-in user links another provider
	CallerUserID string
}

type Result struct {
	State        State
	Token        string
	User         *users.User
	Outcome      identity.Outcome
	RequestToken *providers.RequestToken
}

// defines the interface for finding a provider adapter by name
type AdapterLookup interface {
	Lookup(name string) (providers.Adapter, error)
}

// defines the interface for mapping profiles and credentials onto users
type IdentityResolver interface {
	Resolve(ctx context.Context, profile providers.Profile, provider, callerUserID string) (*identity.Resolution, error)
	Unlink(ctx context.Context, userID, provider string) (*users.User, error)
	Register(ctx context.Context, displayName, email, password string) (*users.User, error)
	Authenticate(ctx context.Context, email, password string) (*users.User, error)
}

// defines the interface for issuing session tokens
type SessionIssuer interface {
	Issue(userID string) (string, error)
}

type Deps struct {
	Providers AdapterLookup
	Resolver  IdentityResolver
	Sessions  SessionIssuer
}

type Orchestrator struct {
	providers AdapterLookup
	resolver  IdentityResolver
	sessions  SessionIssuer
}
